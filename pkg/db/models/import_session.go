package models

import (
	"time"

	"github.com/google/uuid"
)

// ImportSession records batch-level statistics for one import run so
// operators can see partial success without per-record logs.
type ImportSession struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID   uuid.UUID  `gorm:"column:supplier_id;type:uuid;not null"`
	CreatedCount int        `gorm:"column:created_count;not null;default:0"`
	UpdatedCount int        `gorm:"column:updated_count;not null;default:0"`
	MatchedCount int        `gorm:"column:matched_count;not null;default:0"`
	ErrorCount   int        `gorm:"column:error_count;not null;default:0"`
	StartedAt    time.Time  `gorm:"column:started_at;not null"`
	FinishedAt   *time.Time `gorm:"column:finished_at"`
}
