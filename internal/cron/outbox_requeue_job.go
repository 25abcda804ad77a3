package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/skuforge/catalog-engine/pkg/logger"
)

const (
	defaultMaxAttempts   = 10
	defaultStaleClaimAge = 10 * time.Minute
)

// OutboxRequeueJobParams configure the failed-event requeue sweep.
type OutboxRequeueJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    outboxRequeueRepo
	MaxAttempts   int
	StaleClaimAge time.Duration
}

type outboxRequeueRepo interface {
	RequeueFailed(ctx context.Context, tx *gorm.DB, maxRetries int) (int64, error)
	ReleaseStaleProcessing(ctx context.Context, olderThan time.Duration) (int64, error)
}

// NewOutboxRequeueJob builds the cron job that returns retryable failed
// events to pending and releases claims stuck in processing.
func NewOutboxRequeueJob(params OutboxRequeueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	maxAttempts := params.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	staleAge := params.StaleClaimAge
	if staleAge <= 0 {
		staleAge = defaultStaleClaimAge
	}
	return &outboxRequeueJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		maxAttempts: maxAttempts,
		staleAge:    staleAge,
	}, nil
}

type outboxRequeueJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxRequeueRepo
	maxAttempts int
	staleAge    time.Duration
}

func (j *outboxRequeueJob) Name() string { return "outbox-requeue" }

func (j *outboxRequeueJob) Run(ctx context.Context) error {
	released, err := j.repo.ReleaseStaleProcessing(ctx, j.staleAge)
	if err != nil {
		return fmt.Errorf("release stale processing: %w", err)
	}

	var requeued int64
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.RequeueFailed(ctx, tx, j.maxAttempts)
		if err != nil {
			return err
		}
		requeued = rows
		return nil
	})
	if err != nil {
		return fmt.Errorf("requeue failed events: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"released":      released,
		"requeued":      requeued,
		"max_attempts":  j.maxAttempts,
		"stale_age_sec": int64(j.staleAge.Seconds()),
	})
	j.logg.Info(logCtx, "outbox requeue sweep complete")
	return nil
}
