package outbox

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/pkg/db/models"
)

// DLQRepository persists permanently failed events.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = time.Now().UTC()
	}
	return tx.Create(&entry).Error
}

// DeadLetter moves a claimed event to the DLQ and parks the source row, both
// in one transaction.
func (r *DLQRepository) DeadLetter(tx *gorm.DB, repo *Repository, event models.OutboxEvent, cause error, ceiling int) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	var msg *string
	if cause != nil {
		m := cause.Error()
		msg = &m
	}
	entry := models.OutboxDLQ{
		EventID:      event.ID,
		EntityType:   event.EntityType,
		EntityID:     event.EntityID,
		ModelID:      event.ModelID,
		ChannelID:    event.ChannelID,
		Lane:         event.Lane,
		Payload:      event.Payload,
		ErrorMessage: msg,
		AttemptCount: event.RetryCount,
		FailedAt:     time.Now().UTC(),
	}
	if err := r.InsertTx(tx, entry); err != nil {
		return err
	}
	return repo.MarkFailedTerminal(tx, event.ID, cause, ceiling)
}
