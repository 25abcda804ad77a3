package readiness

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
)

// Repository owns the channel_requirements and readiness_records tables.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindPolicy loads the channel's requirement policy for a family, falling
// back to the channel's wildcard policy (family IS NULL). Nil means the
// channel has no policy at all.
func (r *Repository) FindPolicy(ctx context.Context, channelID uuid.UUID, family enums.ProductFamily) (*models.ChannelRequirement, error) {
	var policy models.ChannelRequirement
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND family = ?", channelID, family).
		First(&policy).Error
	if err == nil {
		return &policy, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Where("channel_id = ? AND family IS NULL", channelID).
		First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// UpsertRecord writes the cached evaluation for (model, channel).
func (r *Repository) UpsertRecord(ctx context.Context, record *models.ReadinessRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "model_id"}, {Name: "channel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"is_ready", "score", "missing_fields", "evaluated_at",
			}),
		}).
		Create(record).Error
}

// FindRecord loads the cached evaluation, nil on miss.
func (r *Repository) FindRecord(ctx context.Context, modelID, channelID uuid.UUID) (*models.ReadinessRecord, error) {
	var record models.ReadinessRecord
	err := r.db.WithContext(ctx).
		Where("model_id = ? AND channel_id = ?", modelID, channelID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListStaleRecords returns records evaluated before the cutoff, oldest
// first, for the background refresh sweep.
func (r *Repository) ListStaleRecords(ctx context.Context, cutoff time.Time, limit int) ([]models.ReadinessRecord, error) {
	var records []models.ReadinessRecord
	err := r.db.WithContext(ctx).
		Where("evaluated_at < ?", cutoff).
		Order("evaluated_at ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListActiveChannels returns the channels readiness is evaluated against.
func (r *Repository) ListActiveChannels(ctx context.Context) ([]models.SalesChannel, error) {
	var channels []models.SalesChannel
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("code ASC").
		Find(&channels).Error
	if err != nil {
		return nil, err
	}
	return channels, nil
}
