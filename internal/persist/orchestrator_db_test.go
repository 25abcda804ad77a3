package persist

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/internal/goldenrecord"
	"github.com/skuforge/catalog-engine/internal/matching"
	"github.com/skuforge/catalog-engine/internal/media"
	"github.com/skuforge/catalog-engine/internal/pricing"
	"github.com/skuforge/catalog-engine/pkg/config"
	"github.com/skuforge/catalog-engine/pkg/db"
	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
	"github.com/skuforge/catalog-engine/pkg/logger"
	"github.com/skuforge/catalog-engine/pkg/outbox"
)

func testOrchestrator(t *testing.T) (*Orchestrator, *db.Client) {
	t.Helper()

	dsn := os.Getenv("CATALOG_DB_DSN")
	if dsn == "" {
		t.Skip("CATALOG_DB_DSN is not set")
	}

	logg := logger.New(logger.Options{ServiceName: "persist-test"})
	client, err := db.New(t.Context(), config.DBConfig{DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	conn := client.DB()
	repo := catalog.NewRepository(conn)
	engine := matching.NewEngine(repo, nil, logg, 20)
	merger := goldenrecord.NewMerger(repo)
	pricer := pricing.NewService(pricing.NewRuleRepository(conn), time.Minute)
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	registrar := media.NewRegistrar(conn)
	lookups := catalog.NewLookups(conn)

	return NewOrchestrator(client, repo, lookups, engine, merger, pricer, events, registrar, logg), client
}

func testSupplier(t *testing.T, client *db.Client, isManufacturer bool) models.Supplier {
	t.Helper()
	supplier := models.Supplier{
		ID:             uuid.New(),
		Code:           "sup-" + uuid.NewString(),
		Name:           "Test Supplier",
		IsManufacturer: isManufacturer,
		Active:         true,
	}
	require.NoError(t, client.DB().Create(&supplier).Error)
	return supplier
}

func testRecord(t *testing.T, manufacturer, name, sku string) catalog.ProductRecord {
	t.Helper()
	return catalog.ProductRecord{
		SupplierSKU:  sku,
		Name:         name,
		Manufacturer: manufacturer,
		CategoryPath: "Home/Mattresses",
		Price:        decimal.RequireFromString("499.00"),
		InStock:      true,
	}
}

func TestPersistRecordIdempotent(t *testing.T) {
	orch, client := testOrchestrator(t)
	supplier := testSupplier(t, client, false)
	sessionID := uuid.New()

	manufacturer := "Brand-" + uuid.NewString()
	record := testRecord(t, manufacturer, "Comfort Matratze", "SKU-1")

	first, err := orch.PersistRecord(t.Context(), record, supplier.ID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.ActionCreated, first.Action)
	assert.Equal(t, enums.MatcherNone, first.Matcher)

	second, err := orch.PersistRecord(t.Context(), record, supplier.ID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.ActionUpdated, second.Action)
	assert.Equal(t, first.ModelID, second.ModelID)
	assert.Equal(t, first.OfferID, second.OfferID)

	var offerCount int64
	require.NoError(t, client.DB().
		Model(&models.Offer{}).
		Where("model_id = ?", first.ModelID).
		Count(&offerCount).Error)
	assert.EqualValues(t, 1, offerCount)

	var variantCount int64
	require.NoError(t, client.DB().
		Model(&models.Variant{}).
		Where("model_id = ?", first.ModelID).
		Count(&variantCount).Error)
	assert.EqualValues(t, 1, variantCount)
}

func TestPersistSecondSupplierMatchesComposite(t *testing.T) {
	orch, client := testOrchestrator(t)
	supplierA := testSupplier(t, client, false)
	supplierB := testSupplier(t, client, false)
	sessionID := uuid.New()

	manufacturer := "Acme-" + uuid.NewString()

	first, err := orch.PersistRecord(t.Context(), testRecord(t, manufacturer, "Comfort", "A-1"), supplierA.ID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.ActionCreated, first.Action)

	second, err := orch.PersistRecord(t.Context(), testRecord(t, manufacturer, "Comfort", "B-1"), supplierB.ID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, enums.ActionMatched, second.Action)
	assert.Equal(t, first.ModelID, second.ModelID)
	assert.Equal(t, enums.MatcherComposite, second.Matcher)
	assert.GreaterOrEqual(t, second.Confidence, 0.95)

	model, err := catalog.NewRepository(client.DB()).FindModelByID(t.Context(), first.ModelID)
	require.NoError(t, err)
	assert.Equal(t, 2, model.SupplierCount)
	assert.Equal(t, 2, model.OfferCount)
}

func TestPersistEmitsPerEntityEvents(t *testing.T) {
	orch, client := testOrchestrator(t)
	supplier := testSupplier(t, client, false)
	sessionID := uuid.New()

	channel := models.SalesChannel{
		ID:     uuid.New(),
		Code:   "chan-" + uuid.NewString(),
		Name:   "Test Channel",
		Active: true,
	}
	require.NoError(t, client.DB().Create(&channel).Error)
	t.Cleanup(func() {
		client.DB().Delete(&models.OutboxEvent{}, "channel_id = ?", channel.ID)
		client.DB().Delete(&models.SalesChannel{}, "id = ?", channel.ID)
	})

	result, err := orch.PersistRecord(t.Context(), testRecord(t, "Brand-"+uuid.NewString(), "Comfort Matratze", "SKU-EV"), supplier.ID, sessionID)
	require.NoError(t, err)
	require.Equal(t, enums.ActionCreated, result.Action)

	countEvents := func(entityType enums.OutboxEntityType, entityID uuid.UUID, lane enums.OutboxLane) int64 {
		var count int64
		require.NoError(t, client.DB().Model(&models.OutboxEvent{}).
			Where("channel_id = ? AND entity_type = ? AND entity_id = ? AND lane = ?",
				channel.ID, entityType, entityID, lane).
			Count(&count).Error)
		return count
	}

	assert.EqualValues(t, 1, countEvents(enums.EntityModel, result.ModelID, enums.LaneContent))
	assert.EqualValues(t, 1, countEvents(enums.EntityVariant, result.VariantID, enums.LaneContent))
	assert.EqualValues(t, 1, countEvents(enums.EntityOffer, result.OfferID, enums.LaneContent))
	assert.EqualValues(t, 1, countEvents(enums.EntityOffer, result.OfferID, enums.LanePrice))
	assert.EqualValues(t, 1, countEvents(enums.EntityOffer, result.OfferID, enums.LaneStock))
}

func TestPersistRejectsInvalidRecord(t *testing.T) {
	orch, client := testOrchestrator(t)
	supplier := testSupplier(t, client, false)

	_, err := orch.PersistRecord(t.Context(), catalog.ProductRecord{SupplierSKU: "X"}, supplier.ID, uuid.New())
	assert.Error(t, err)
}
