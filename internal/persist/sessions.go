package persist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/errors"
)

// SessionRepository owns the import_sessions table.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Start opens a new import session for the supplier.
func (r *SessionRepository) Start(ctx context.Context, supplierID uuid.UUID) (*models.ImportSession, error) {
	session := &models.ImportSession{
		SupplierID: supplierID,
		StartedAt:  time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, errors.Wrap(errors.CodeData, err, "persist: start session")
	}
	return session, nil
}

// Finish closes the session with the batch counts.
func (r *SessionRepository) Finish(ctx context.Context, session *models.ImportSession, stats BatchStats) error {
	now := time.Now().UTC()
	session.CreatedCount = stats.Created
	session.UpdatedCount = stats.Updated
	session.MatchedCount = stats.Matched
	session.ErrorCount = stats.Errors
	session.FinishedAt = &now
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		return errors.Wrap(errors.CodeData, err, "persist: finish session")
	}
	return nil
}

// Find loads one session by id.
func (r *SessionRepository) Find(ctx context.Context, id uuid.UUID) (*models.ImportSession, error) {
	var session models.ImportSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}
