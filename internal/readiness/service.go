package readiness

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/internal/media"
	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
	"github.com/skuforge/catalog-engine/pkg/errors"
	"github.com/skuforge/catalog-engine/pkg/logger"
	"github.com/skuforge/catalog-engine/pkg/redis"
)

const cacheTTL = 24 * time.Hour

type cachedEvaluation struct {
	IsReady bool `json:"isReady"`
	Score   int  `json:"score"`
}

// Service evaluates models against channel policies. Results are persisted
// to readiness_records and mirrored into Redis; the cache is best-effort
// and never fails an evaluation.
type Service struct {
	repo    *Repository
	catalog *catalog.Repository
	images  *media.Registrar
	cache   *redis.Client
	logg    *logger.Logger
}

func NewService(repo *Repository, catalogRepo *catalog.Repository, images *media.Registrar, cache *redis.Client, logg *logger.Logger) *Service {
	return &Service{repo: repo, catalog: catalogRepo, images: images, cache: cache, logg: logg}
}

// Evaluate scores one (model, channel) pair. With persist set the result is
// written to the readiness record and the cache.
func (s *Service) Evaluate(ctx context.Context, modelID, channelID uuid.UUID, persist bool) (Evaluation, error) {
	model, err := s.catalog.FindModelDetail(ctx, modelID)
	if err != nil {
		return Evaluation{}, errors.Wrap(errors.CodeData, err, "readiness: load model")
	}

	policy, err := s.repo.FindPolicy(ctx, channelID, model.Family)
	if err != nil {
		return Evaluation{}, errors.Wrap(errors.CodeData, err, "readiness: load policy")
	}

	facts, err := s.gatherFacts(ctx, model)
	if err != nil {
		return Evaluation{}, err
	}

	eval := Score(policy, facts)
	if persist {
		if err := s.persist(ctx, modelID, channelID, eval); err != nil {
			return Evaluation{}, err
		}
	}
	return eval, nil
}

// EvaluateAllChannels evaluates and persists the model against every active
// channel.
func (s *Service) EvaluateAllChannels(ctx context.Context, modelID uuid.UUID) error {
	channels, err := s.repo.ListActiveChannels(ctx)
	if err != nil {
		return errors.Wrap(errors.CodeData, err, "readiness: list channels")
	}
	for _, channel := range channels {
		if _, err := s.Evaluate(ctx, modelID, channel.ID, true); err != nil {
			return err
		}
	}
	return nil
}

// IsReady answers the readiness query from the cheapest source available:
// Redis, then the persisted record, then a live evaluation.
func (s *Service) IsReady(ctx context.Context, modelID, channelID uuid.UUID) (bool, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, redis.ReadinessKey(modelID.String(), channelID.String()))
		if err == nil {
			var cached cachedEvaluation
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached.IsReady, nil
			}
		} else if err != redis.Nil {
			s.logg.Warn(ctx, "readiness cache read failed")
		}
	}

	record, err := s.repo.FindRecord(ctx, modelID, channelID)
	if err != nil {
		return false, errors.Wrap(errors.CodeData, err, "readiness: load record")
	}
	if record != nil {
		s.writeCache(ctx, modelID, channelID, cachedEvaluation{IsReady: record.IsReady, Score: record.Score})
		return record.IsReady, nil
	}

	eval, err := s.Evaluate(ctx, modelID, channelID, true)
	if err != nil {
		return false, err
	}
	return eval.IsReady, nil
}

// RefreshStale re-evaluates records older than maxAge, returning how many
// were refreshed.
func (s *Service) RefreshStale(ctx context.Context, maxAge time.Duration, limit int) (int, error) {
	records, err := s.repo.ListStaleRecords(ctx, time.Now().Add(-maxAge), limit)
	if err != nil {
		return 0, errors.Wrap(errors.CodeData, err, "readiness: list stale records")
	}

	refreshed := 0
	for _, record := range records {
		if _, err := s.Evaluate(ctx, record.ModelID, record.ChannelID, true); err != nil {
			s.logg.Error(s.logg.WithModelID(ctx, record.ModelID.String()), "stale readiness refresh failed", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

func (s *Service) gatherFacts(ctx context.Context, model *models.Model) (ModelFacts, error) {
	imageCount, err := s.images.CountImages(ctx, enums.EntityModel, model.ID)
	if err != nil {
		return ModelFacts{}, err
	}

	variants, err := s.catalog.ListVariantsByModel(ctx, model.ID)
	if err != nil {
		return ModelFacts{}, errors.Wrap(errors.CodeData, err, "readiness: list variants")
	}
	hasBarcode := false
	for i := range variants {
		if variants[i].GTIN != nil && *variants[i].GTIN != "" {
			hasBarcode = true
			break
		}
	}

	descriptionLength := 0
	if model.Description != nil {
		descriptionLength = len(*model.Description)
	}

	return ModelFacts{
		HasBrand:          model.Brand != nil && model.Brand.Name != "",
		HasPrice:          model.MinPrice != nil,
		HasBarcode:        hasBarcode,
		ImageCount:        imageCount,
		DescriptionLength: descriptionLength,
		Attributes:        model.Attributes,
	}, nil
}

func (s *Service) persist(ctx context.Context, modelID, channelID uuid.UUID, eval Evaluation) error {
	missing := eval.MissingFields
	if missing == nil {
		missing = []string{}
	}
	record := &models.ReadinessRecord{
		ModelID:       modelID,
		ChannelID:     channelID,
		IsReady:       eval.IsReady,
		Score:         eval.Score,
		MissingFields: pq.StringArray(missing),
		EvaluatedAt:   time.Now().UTC(),
	}
	if err := s.repo.UpsertRecord(ctx, record); err != nil {
		return errors.Wrap(errors.CodeData, err, "readiness: upsert record")
	}

	s.writeCache(ctx, modelID, channelID, cachedEvaluation{IsReady: eval.IsReady, Score: eval.Score})
	return nil
}

func (s *Service) writeCache(ctx context.Context, modelID, channelID uuid.UUID, value cachedEvaluation) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	key := redis.ReadinessKey(modelID.String(), channelID.String())
	if err := s.cache.Set(ctx, key, data, cacheTTL); err != nil {
		s.logg.Warn(ctx, "readiness cache write failed")
	}
}
