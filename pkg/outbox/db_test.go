package outbox

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("CATALOG_DB_DSN")
	if dsn == "" {
		t.Skip("CATALOG_DB_DSN is not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return conn
}

func mustCreateChannel(t *testing.T, tx *gorm.DB) models.SalesChannel {
	t.Helper()
	channel := models.SalesChannel{
		ID:     uuid.New(),
		Code:   "ch-" + uuid.NewString(),
		Name:   "Test Channel",
		Active: true,
	}
	require.NoError(t, tx.Create(&channel).Error)
	return channel
}

func TestEmitDeduplicatesPendingRows(t *testing.T) {
	conn := openTestDB(t)

	tx := conn.Begin()
	require.NoError(t, tx.Error)
	defer tx.Rollback()

	channel := mustCreateChannel(t, tx)
	svc := NewService(NewRepository(tx), nil)

	entityID := uuid.New()
	modelID := uuid.New()
	event := Event{
		EntityType: enums.EntityOffer,
		EntityID:   entityID,
		ModelID:    modelID,
		Lane:       enums.LanePrice,
		Payload:    map[string]any{"newPrice": "100.00"},
	}
	require.NoError(t, svc.Emit(t.Context(), tx, event))

	event.Payload = map[string]any{"newPrice": "110.00", "newRetailPrice": "126.50"}
	require.NoError(t, svc.Emit(t.Context(), tx, event))

	var rows []models.OutboxEvent
	require.NoError(t, tx.
		Where("entity_id = ? AND channel_id = ? AND lane = ?", entityID, channel.ID, enums.LanePrice).
		Find(&rows).Error)
	require.Len(t, rows, 1, "second emit must merge into the pending row")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rows[0].Payload, &payload))
	require.Equal(t, "110.00", payload["newPrice"])
	require.Equal(t, "126.50", payload["newRetailPrice"])
}

func TestClaimPendingSkipsClaimedRows(t *testing.T) {
	conn := openTestDB(t)

	modelID := uuid.New()
	channelID := uuid.New()
	seed := []models.OutboxEvent{}
	for i := 0; i < 4; i++ {
		seed = append(seed, models.OutboxEvent{
			EntityType: enums.EntityModel,
			EntityID:   modelID,
			ModelID:    modelID,
			ChannelID:  channelID,
			Lane:       enums.LaneContent,
			Payload:    json.RawMessage(`{}`),
			Status:     enums.OutboxPending,
		})
	}
	require.NoError(t, conn.Create(&seed).Error)
	t.Cleanup(func() {
		conn.Where("model_id = ?", modelID).Delete(&models.OutboxEvent{})
	})

	repo := NewRepository(conn)
	first, err := repo.ClaimPending(t.Context(), 2)
	require.NoError(t, err)
	second, err := repo.ClaimPending(t.Context(), 10)
	require.NoError(t, err)

	claimed := map[uuid.UUID]bool{}
	for _, row := range first {
		require.Equal(t, enums.OutboxProcessing, row.Status)
		claimed[row.ID] = true
	}
	for _, row := range second {
		require.False(t, claimed[row.ID], "row %s claimed twice", row.ID)
	}
}
