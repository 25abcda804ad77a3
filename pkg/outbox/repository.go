package outbox

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

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindPendingForUpdate locks and returns the pending row for the dedup key,
// or nil when none exists. Must run inside a transaction.
func (r *Repository) FindPendingForUpdate(tx *gorm.DB, entityType enums.OutboxEntityType, entityID, channelID uuid.UUID, lane enums.OutboxLane) (*models.OutboxEvent, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	var row models.OutboxEvent
	err := tx.
		Where("entity_type = ? AND entity_id = ? AND channel_id = ? AND lane = ? AND status = ?",
			entityType, entityID, channelID, lane, enums.OutboxPending).
		Clauses(forUpdate()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Insert(tx *gorm.DB, event *models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(event).Error
}

// UpdatePayload folds a merged payload into an existing pending row and
// refreshes its timestamp.
func (r *Repository) UpdatePayload(tx *gorm.DB, id uuid.UUID, payload []byte) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"payload":    payload,
			"updated_at": time.Now().UTC(),
		}).Error
}

const claimQuery = `
UPDATE outbox_events
SET status = 'processing',
    claimed_at = NOW(),
    updated_at = NOW()
WHERE id IN (
  SELECT id FROM outbox_events
  WHERE status = 'pending'
  ORDER BY created_at ASC, id ASC
  LIMIT ?
  FOR UPDATE SKIP LOCKED
)
RETURNING *
`

// ClaimPending atomically transitions up to limit pending rows to processing,
// skipping rows already locked by a concurrent claimer.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.WithContext(ctx).Raw(claimQuery, limit).Scan(&rows).Error
	return rows, err
}

// MarkSuccess transitions a claimed row to its terminal success state.
func (r *Repository) MarkSuccess(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     enums.OutboxSuccess,
			"updated_at": time.Now().UTC(),
		}).Error
}

// MarkError records a failed delivery attempt and increments the retry count.
func (r *Repository) MarkError(ctx context.Context, id uuid.UUID, cause error) error {
	updates := map[string]any{
		"status":      enums.OutboxFailed,
		"retry_count": gorm.Expr("retry_count + 1"),
		"updated_at":  time.Now().UTC(),
	}
	if cause != nil {
		msg := cause.Error()
		updates["last_error"] = msg
	}
	return r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// MarkFailedTerminal parks a row in failed state without scheduling a retry;
// used together with a DLQ insert for non-retryable errors.
func (r *Repository) MarkFailedTerminal(tx *gorm.DB, id uuid.UUID, cause error, ceiling int) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	updates := map[string]any{
		"status":      enums.OutboxFailed,
		"retry_count": ceiling,
		"updated_at":  time.Now().UTC(),
	}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	return tx.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// RequeueFailed moves failed rows below the retry ceiling back to pending.
func (r *Repository) RequeueFailed(ctx context.Context, tx *gorm.DB, maxRetries int) (int64, error) {
	runner := r.db.WithContext(ctx)
	if tx != nil {
		runner = tx
	}
	res := runner.Model(&models.OutboxEvent{}).
		Where("status = ? AND retry_count < ?", enums.OutboxFailed, maxRetries).
		Updates(map[string]any{
			"status":     enums.OutboxPending,
			"claimed_at": nil,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// ReleaseStaleProcessing returns rows stuck in processing (claimer crashed)
// back to pending once their claim is older than the threshold.
func (r *Repository) ReleaseStaleProcessing(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res := r.db.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("status = ? AND claimed_at < ?", enums.OutboxProcessing, cutoff).
		Updates(map[string]any{
			"status":     enums.OutboxPending,
			"claimed_at": nil,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// DeleteTerminalBefore removes terminal rows older than the cutoff. Failed
// rows are only removed once they exhausted their retries.
func (r *Repository) DeleteTerminalBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, maxRetries int) (int64, error) {
	runner := r.db.WithContext(ctx)
	if tx != nil {
		runner = tx
	}
	res := runner.
		Where("updated_at < ? AND (status = ? OR (status = ? AND retry_count >= ?))",
			cutoff, enums.OutboxSuccess, enums.OutboxFailed, maxRetries).
		Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

// ActiveChannels returns the sales channels events fan out to.
func (r *Repository) ActiveChannels(tx *gorm.DB) ([]models.SalesChannel, error) {
	runner := r.db
	if tx != nil {
		runner = tx
	}
	var channels []models.SalesChannel
	err := runner.Where("active = ?", true).Order("code ASC").Find(&channels).Error
	return channels, err
}
