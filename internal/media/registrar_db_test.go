package media

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

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

func TestRegisterImagesIsIdempotent(t *testing.T) {
	conn := openTestDB(t)

	tx := conn.Begin()
	require.NoError(t, tx.Error)
	defer tx.Rollback()

	registrar := NewRegistrar(tx)
	modelID := uuid.New()
	urls := []string{
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/b.jpg",
		"https://cdn.example.com/a.jpg",
		"",
	}

	require.NoError(t, registrar.RegisterImages(t.Context(), enums.EntityModel, modelID, urls))
	require.NoError(t, registrar.RegisterImages(t.Context(), enums.EntityModel, modelID, urls))

	rows, err := registrar.ListImages(t.Context(), enums.EntityModel, modelID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "https://cdn.example.com/a.jpg", rows[0].URL)
	assert.Equal(t, "https://cdn.example.com/b.jpg", rows[1].URL)

	count, err := registrar.CountImages(t.Context(), enums.EntityModel, modelID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
