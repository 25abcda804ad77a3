package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/skuforge/catalog-engine/internal/exploder"
	"github.com/skuforge/catalog-engine/pkg/logger"
)

const defaultExplosionBatch = 50

// ExplosionJobParams configure the bundle explosion sweep.
type ExplosionJobParams struct {
	Logger    *logger.Logger
	Exploder  bundleExploder
	BatchSize int
}

type bundleExploder interface {
	FindCandidateModels(ctx context.Context, limit int) ([]uuid.UUID, error)
	ExplodeModel(ctx context.Context, modelID uuid.UUID) (exploder.Stats, error)
}

// NewExplosionJob builds the cron job that materializes size variants
// for models whose offers still carry unexploded bundles.
func NewExplosionJob(params ExplosionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Exploder == nil {
		return nil, fmt.Errorf("exploder required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultExplosionBatch
	}
	return &explosionJob{
		logg:      params.Logger,
		exploder:  params.Exploder,
		batchSize: batchSize,
	}, nil
}

type explosionJob struct {
	logg      *logger.Logger
	exploder  bundleExploder
	batchSize int
}

func (j *explosionJob) Name() string { return "variant-explosion" }

func (j *explosionJob) Run(ctx context.Context) error {
	candidates, err := j.exploder.FindCandidateModels(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("find explosion candidates: %w", err)
	}

	var errs []error
	total := exploder.Stats{}
	failed := 0
	for _, modelID := range candidates {
		stats, err := j.exploder.ExplodeModel(ctx, modelID)
		if err != nil {
			failed++
			modelCtx := j.logg.WithModelID(ctx, modelID.String())
			j.logg.Error(modelCtx, "bundle explosion failed for model", err)
			errs = append(errs, fmt.Errorf("explode model %s: %w", modelID, err))
			continue
		}
		total.Created += stats.Created
		total.Updated += stats.Updated
		total.Deleted += stats.Deleted
		total.SizesFound += stats.SizesFound
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates":       len(candidates),
		"failed":           failed,
		"variants_created": total.Created,
		"variants_updated": total.Updated,
		"variants_deleted": total.Deleted,
	})
	j.logg.Info(logCtx, "bundle explosion sweep complete")
	return multierr.Combine(errs...)
}
