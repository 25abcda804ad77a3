package persist

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/pkg/enums"
	"github.com/skuforge/catalog-engine/pkg/errors"
	"github.com/skuforge/catalog-engine/pkg/metrics"
)

// BatchStats aggregates the outcome of one batch so operators see partial
// success without per-record logs.
type BatchStats struct {
	SessionID uuid.UUID
	Created   int
	Updated   int
	Matched   int
	Errors    int
}

func (s BatchStats) Total() int {
	return s.Created + s.Updated + s.Matched + s.Errors
}

func (s *BatchStats) count(action enums.PersistAction) {
	switch action {
	case enums.ActionCreated:
		s.Created++
	case enums.ActionUpdated:
		s.Updated++
	case enums.ActionMatched:
		s.Matched++
	}
}

// Batcher runs batches of records through the orchestrator, one transaction
// per record so a failing record never takes its neighbors down with it.
type Batcher struct {
	orch     *Orchestrator
	sessions *SessionRepository
	metrics  *metrics.ImportMetrics
}

func NewBatcher(orch *Orchestrator, sessions *SessionRepository, m *metrics.ImportMetrics) *Batcher {
	return &Batcher{orch: orch, sessions: sessions, metrics: m}
}

// PersistBatch persists every record under a fresh import session and
// records per-record outcomes. The returned error joins all per-record
// failures; stats carry the counts either way.
func (b *Batcher) PersistBatch(ctx context.Context, records []catalog.ProductRecord, supplierID uuid.UUID) (BatchStats, error) {
	started := time.Now()
	session, err := b.sessions.Start(ctx, supplierID)
	if err != nil {
		return BatchStats{}, err
	}

	ctx = b.orch.logg.WithSessionID(b.orch.logg.WithSupplierID(ctx, supplierID.String()), session.ID.String())

	stats := BatchStats{SessionID: session.ID}
	var batchErr error
	for i := range records {
		result, err := b.orch.PersistRecord(ctx, records[i], supplierID, session.ID)
		if err != nil {
			stats.Errors++
			batchErr = multierr.Append(batchErr, errors.Wrap(errors.CodeInternal, err, "record "+records[i].SupplierSKU))
			b.orch.logg.Error(ctx, "record failed to persist", err)
			continue
		}
		stats.count(result.Action)
	}

	if b.metrics != nil {
		b.metrics.IncOutcome("created", stats.Created)
		b.metrics.IncOutcome("updated", stats.Updated)
		b.metrics.IncOutcome("matched", stats.Matched)
		b.metrics.IncOutcome("error", stats.Errors)
		b.metrics.ObserveBatch(supplierID.String(), time.Since(started))
	}

	if err := b.sessions.Finish(ctx, session, stats); err != nil {
		batchErr = multierr.Append(batchErr, err)
	}
	return stats, batchErr
}

// DeactivateMissing flags every offer of the supplier that the session did
// not touch, for full-feed imports where absence means delisting.
func (b *Batcher) DeactivateMissing(ctx context.Context, supplierID, sessionID uuid.UUID) (int64, error) {
	count, err := b.orch.repo.DeactivateMissingOffers(ctx, supplierID, sessionID)
	if err != nil {
		return 0, errors.Wrap(errors.CodeData, err, "persist: deactivate missing offers")
	}
	return count, nil
}
