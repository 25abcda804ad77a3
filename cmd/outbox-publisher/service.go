package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/pkg/config"
	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/logger"
	"github.com/skuforge/catalog-engine/pkg/outbox"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultMaxAttempts    = 10
	defaultPublishTimeout = 15 * time.Second
	publishRetryBase      = 200 * time.Millisecond
	publishRetryJitter    = 100 * time.Millisecond
	publishRetries        = 2
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
	TopicForLane(lane string) string
}

type outboxSource interface {
	FetchPendingBatch(ctx context.Context, limit int) ([]outbox.ModelBatch, error)
	MarkSuccess(ctx context.Context, id uuid.UUID) error
	MarkError(ctx context.Context, id uuid.UUID, cause error) error
	FailPermanently(tx *gorm.DB, id uuid.UUID, cause error, ceiling int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// ServiceParams wire the publisher loop.
type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Outbox           outboxSource
	DLQRepository    dlqRepository
	PublisherFactory publisherFactory
}

// Service drains claimed outbox events into the per-lane Pub/Sub topics.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	pubsub       pubSubClient
	source       outboxSource
	dlq          dlqRepository
	factory      publisherFactory
	publishers   map[string]publisher
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service is required")
	}
	if params.DLQRepository == nil {
		return nil, errors.New("dlq repository is required")
	}

	factory := params.PublisherFactory
	if factory == nil {
		factory = func(topic string) publisher {
			pub := params.PubSub.Publisher(topic)
			if pub == nil {
				return nil
			}
			return &gcpPublisher{Publisher: pub}
		}
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		pubsub:       params.PubSub,
		source:       params.Outbox,
		dlq:          params.DLQRepository,
		factory:      factory,
		publishers:   map[string]publisher{},
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	return nil
}

// Run polls the outbox until the context is canceled. An empty claim sleeps
// one poll interval; a non-empty claim loops immediately to drain backlog.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
		}
		if processed && err == nil {
			continue
		}
		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return err
		}
	}
}

// processBatch claims one model-grouped batch and dispatches it, keeping all
// lanes of one model adjacent so downstream channels see a model's content,
// price and stock updates close together.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	batches, err := s.source.FetchPendingBatch(ctx, s.batchSize)
	if err != nil {
		return false, fmt.Errorf("claim pending events: %w", err)
	}
	if len(batches) == 0 {
		return false, nil
	}

	for _, batch := range batches {
		for i := range batch.Events {
			s.dispatch(ctx, batch.Events[i])
		}
	}
	return true, nil
}

func (s *Service) dispatch(ctx context.Context, event models.OutboxEvent) {
	logCtx := s.logg.WithFields(ctx, s.eventFields(event))

	topic := s.pubsub.TopicForLane(event.Lane.String())
	if topic == "" {
		s.deadLetter(logCtx, event, fmt.Errorf("no topic configured for lane %s", event.Lane))
		return
	}
	pub := s.publisherFor(topic)
	if pub == nil {
		s.deadLetter(logCtx, event, fmt.Errorf("publisher unavailable for topic %s", topic))
		return
	}

	err := s.publish(ctx, pub, event)
	if err == nil {
		if markErr := s.source.MarkSuccess(ctx, event.ID); markErr != nil {
			s.logg.Error(logCtx, "failed to mark event published", markErr)
			return
		}
		s.logg.Info(s.logg.WithField(logCtx, "topic", topic), "outbox event published")
		return
	}

	if isPermanentPublishError(err) {
		s.deadLetter(logCtx, event, err)
		return
	}
	if event.RetryCount+1 >= s.maxAttempts {
		s.deadLetter(logCtx, event, fmt.Errorf("max publish attempts reached: %w", err))
		return
	}
	s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "outbox publish failed, will retry")
	if markErr := s.source.MarkError(ctx, event.ID, err); markErr != nil {
		s.logg.Error(logCtx, "failed to record publish error", markErr)
	}
}

// publish sends one message, retrying transient failures with jittered
// exponential backoff before handing the event back to the outbox.
func (s *Service) publish(ctx context.Context, pub publisher, event models.OutboxEvent) error {
	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":    event.ID.String(),
			"entity_type": event.EntityType.String(),
			"entity_id":   event.EntityID.String(),
			"model_id":    event.ModelID.String(),
			"channel_id":  event.ChannelID.String(),
			"lane":        event.Lane.String(),
			"created_at":  event.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	backoff := retry.WithMaxRetries(publishRetries, retry.WithJitter(publishRetryJitter, retry.NewExponential(publishRetryBase)))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
		defer cancel()
		result := pub.Publish(publishCtx, msg)
		if result == nil {
			return fmt.Errorf("publisher returned no result")
		}
		if _, err := result.Get(publishCtx); err != nil {
			if isPermanentPublishError(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}

// deadLetter parks the event permanently: DLQ row plus terminal mark, both in
// one transaction.
func (s *Service) deadLetter(ctx context.Context, event models.OutboxEvent, cause error) {
	s.logg.Warn(s.logg.WithField(ctx, "error", cause.Error()), "outbox event will not be retried")
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		msg := cause.Error()
		entry := models.OutboxDLQ{
			EventID:      event.ID,
			EntityType:   event.EntityType,
			EntityID:     event.EntityID,
			ModelID:      event.ModelID,
			ChannelID:    event.ChannelID,
			Lane:         event.Lane,
			Payload:      event.Payload,
			ErrorMessage: &msg,
			AttemptCount: event.RetryCount,
			FailedAt:     time.Now().UTC(),
		}
		if err := s.dlq.InsertTx(tx, entry); err != nil {
			return err
		}
		return s.source.FailPermanently(tx, event.ID, cause, s.maxAttempts)
	})
	if err != nil {
		s.logg.Error(ctx, "failed to dead-letter outbox event", err)
	}
}

func isPermanentPublishError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.Unauthenticated, codes.FailedPrecondition:
		return true
	default:
		return false
	}
}

func (s *Service) publisherFor(topic string) publisher {
	if pub, ok := s.publishers[topic]; ok {
		return pub
	}
	pub := s.factory(topic)
	if pub != nil {
		s.publishers[topic] = pub
	}
	return pub
}

func (s *Service) eventFields(event models.OutboxEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":   event.ID.String(),
		"entity_type": event.EntityType,
		"entity_id":   event.EntityID.String(),
		"model_id":    event.ModelID.String(),
		"channel_id":  event.ChannelID.String(),
		"lane":        event.Lane,
		"retry_count": event.RetryCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
