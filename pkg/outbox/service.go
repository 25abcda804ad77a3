package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
	"github.com/skuforge/catalog-engine/pkg/logger"
)

// Event is an intent to propagate a catalog change. Payload is marshaled to
// JSON; its shape is lane-specific.
type Event struct {
	EntityType enums.OutboxEntityType
	EntityID   uuid.UUID
	ModelID    uuid.UUID
	Lane       enums.OutboxLane
	Payload    any
}

type Service struct {
	repo *Repository
	logg *logger.Logger
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

// Emit fans the event out to every active sales channel inside the caller's
// transaction. When a pending row already exists for (entity, channel, lane),
// its payload absorbs the new delta instead of inserting a duplicate.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !event.EntityType.IsValid() {
		return errors.New("invalid entity type")
	}
	if !event.Lane.IsValid() {
		return errors.New("invalid outbox lane")
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	if event.Payload == nil {
		payload = []byte("{}")
	}

	channels, err := s.repo.ActiveChannels(tx)
	if err != nil {
		return err
	}

	for _, channel := range channels {
		if err := s.emitForChannel(tx, event, channel.ID, payload); err != nil {
			return err
		}
	}

	if s.logg != nil {
		fields := map[string]any{
			"entity_type": event.EntityType,
			"entity_id":   event.EntityID.String(),
			"model_id":    event.ModelID.String(),
			"lane":        event.Lane,
			"channels":    len(channels),
		}
		s.logg.Debug(s.logg.WithFields(ctx, fields), "outbox event queued")
	}
	return nil
}

func (s *Service) emitForChannel(tx *gorm.DB, event Event, channelID uuid.UUID, payload json.RawMessage) error {
	pending, err := s.repo.FindPendingForUpdate(tx, event.EntityType, event.EntityID, channelID, event.Lane)
	if err != nil {
		return err
	}
	if pending != nil {
		merged, err := MergePayloads(pending.Payload, payload)
		if err != nil {
			return err
		}
		return s.repo.UpdatePayload(tx, pending.ID, merged)
	}
	row := models.OutboxEvent{
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		ModelID:    event.ModelID,
		ChannelID:  channelID,
		Lane:       event.Lane,
		Payload:    payload,
		Status:     enums.OutboxPending,
	}
	return s.repo.Insert(tx, &row)
}

// ModelBatch groups claimed events by owning model so a worker can build one
// consolidated projection per model.
type ModelBatch struct {
	ModelID uuid.UUID
	Events  []models.OutboxEvent
}

// FetchPendingBatch claims up to limit pending events (SKIP LOCKED semantics,
// safe under concurrent claimers) and returns them grouped by model.
func (s *Service) FetchPendingBatch(ctx context.Context, limit int) ([]ModelBatch, error) {
	rows, err := s.repo.ClaimPending(ctx, limit)
	if err != nil {
		return nil, err
	}
	return GroupByModel(rows), nil
}

// GroupByModel buckets events per owning model, preserving claim order within
// each bucket and ordering buckets by first appearance.
func GroupByModel(rows []models.OutboxEvent) []ModelBatch {
	byModel := map[uuid.UUID]*ModelBatch{}
	order := []uuid.UUID{}
	for _, row := range rows {
		batch, ok := byModel[row.ModelID]
		if !ok {
			batch = &ModelBatch{ModelID: row.ModelID}
			byModel[row.ModelID] = batch
			order = append(order, row.ModelID)
		}
		batch.Events = append(batch.Events, row)
	}
	out := make([]ModelBatch, 0, len(order))
	for _, id := range order {
		out = append(out, *byModel[id])
	}
	return out
}

// MarkSuccess transitions a processed event terminal.
func (s *Service) MarkSuccess(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkSuccess(ctx, id)
}

// MarkError records a transient delivery failure for later requeue.
func (s *Service) MarkError(ctx context.Context, id uuid.UUID, cause error) error {
	return s.repo.MarkError(ctx, id, cause)
}

// FailPermanently parks the event terminal inside the caller's transaction,
// pinning its retry count at the ceiling so the requeue sweep skips it.
func (s *Service) FailPermanently(tx *gorm.DB, id uuid.UUID, cause error, ceiling int) error {
	return s.repo.MarkFailedTerminal(tx, id, cause, ceiling)
}

// SortedLanes returns the distinct lanes present in a batch, in a stable
// order. Useful for building one message per lane.
func SortedLanes(events []models.OutboxEvent) []enums.OutboxLane {
	seen := map[enums.OutboxLane]bool{}
	for _, e := range events {
		seen[e.Lane] = true
	}
	lanes := make([]enums.OutboxLane, 0, len(seen))
	for lane := range seen {
		lanes = append(lanes, lane)
	}
	sort.Slice(lanes, func(i, j int) bool { return lanes[i] < lanes[j] })
	return lanes
}
