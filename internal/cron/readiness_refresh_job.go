package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/skuforge/catalog-engine/pkg/logger"
)

const (
	defaultStaleMaxAge  = 24 * time.Hour
	defaultRefreshLimit = 200
)

// ReadinessRefreshJobParams configure the stale readiness re-evaluation.
type ReadinessRefreshJobParams struct {
	Logger    *logger.Logger
	Refresher readinessRefresher
	MaxAge    time.Duration
	Limit     int
}

type readinessRefresher interface {
	RefreshStale(ctx context.Context, maxAge time.Duration, limit int) (int, error)
}

// NewReadinessRefreshJob builds the cron job that re-evaluates readiness
// records whose last evaluation is older than the configured age.
func NewReadinessRefreshJob(params ReadinessRefreshJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Refresher == nil {
		return nil, fmt.Errorf("readiness refresher required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = defaultStaleMaxAge
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultRefreshLimit
	}
	return &readinessRefreshJob{
		logg:      params.Logger,
		refresher: params.Refresher,
		maxAge:    maxAge,
		limit:     limit,
	}, nil
}

type readinessRefreshJob struct {
	logg      *logger.Logger
	refresher readinessRefresher
	maxAge    time.Duration
	limit     int
}

func (j *readinessRefreshJob) Name() string { return "readiness-refresh" }

func (j *readinessRefreshJob) Run(ctx context.Context) error {
	refreshed, err := j.refresher.RefreshStale(ctx, j.maxAge, j.limit)
	if err != nil {
		return fmt.Errorf("refresh stale readiness: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"refreshed":   refreshed,
		"max_age_sec": int64(j.maxAge.Seconds()),
		"limit":       j.limit,
	})
	j.logg.Info(logCtx, "readiness refresh complete")
	return nil
}
