package matching

import (
	"context"

	"github.com/google/uuid"

	"github.com/skuforge/catalog-engine/internal/catalog"
	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/enums"
	"github.com/skuforge/catalog-engine/pkg/errors"
	"github.com/skuforge/catalog-engine/pkg/logger"
)

// Result describes where an incoming record should land. VariantID is the
// nil UUID when only the model could be resolved and the caller has to
// create or pick the variant itself.
type Result struct {
	Found       bool
	ModelID     uuid.UUID
	VariantID   uuid.UUID
	Matcher     enums.Matcher
	Confidence  float64
	NeedsReview bool
}

// HasVariant reports whether the match resolved down to a concrete variant.
func (r Result) HasVariant() bool {
	return r.VariantID != uuid.Nil
}

// Candidate is one existing model offered to the inference fallback.
type Candidate struct {
	ModelID uuid.UUID
	Name    string
}

// Pick is the inference fallback's answer: the index into the candidate
// slice, or -1 for no match, with the picker's own confidence estimate.
type Pick struct {
	Index      int
	Confidence float64
}

// CandidatePicker resolves ambiguous records against a bounded candidate
// list. Implementations must respect the context deadline; any error is
// treated as "no match" by the engine.
type CandidatePicker interface {
	PickCandidate(ctx context.Context, record catalog.ProductRecord, candidates []Candidate) (Pick, error)
}

type Engine struct {
	repo          *catalog.Repository
	picker        CandidatePicker
	logg          *logger.Logger
	maxCandidates int
}

// NewEngine builds the matching engine. picker may be nil, in which case
// records that fail the deterministic stages create a new model.
func NewEngine(repo *catalog.Repository, picker CandidatePicker, logg *logger.Logger, maxCandidates int) *Engine {
	if maxCandidates <= 0 {
		maxCandidates = 20
	}
	return &Engine{repo: repo, picker: picker, logg: logg, maxCandidates: maxCandidates}
}

// WithTx returns an engine bound to the given transaction.
func (e *Engine) WithTx(repo *catalog.Repository) *Engine {
	return &Engine{repo: repo, picker: e.picker, logg: e.logg, maxCandidates: e.maxCandidates}
}

// Match runs the identifier cascade for one record: GTIN, then manufacturer
// part number, then the composite brand+name comparison, and finally the
// inference fallback. The first stage that produces a hit wins. categoryID
// narrows the inference candidate pool when the record's category is known.
func (e *Engine) Match(ctx context.Context, record catalog.ProductRecord, brandID uuid.UUID, categoryID *uuid.UUID) (Result, error) {
	if gtin, ok := NormalizeGTIN(record.GTIN); ok {
		variant, err := e.repo.FindVariantByGTIN(ctx, gtin)
		if err != nil {
			return Result{}, errors.Wrap(errors.CodeData, err, "matching: gtin lookup")
		}
		if variant != nil {
			return Result{
				Found:      true,
				ModelID:    variant.ModelID,
				VariantID:  variant.ID,
				Matcher:    enums.MatcherGTIN,
				Confidence: 1.0,
			}, nil
		}
	}

	if mpn := catalog.CleanMPN(record.MPN); mpn != "" {
		variant, err := e.repo.FindVariantByMPN(ctx, brandID, mpn)
		if err != nil {
			return Result{}, errors.Wrap(errors.CodeData, err, "matching: mpn lookup")
		}
		if variant != nil {
			return Result{
				Found:      true,
				ModelID:    variant.ModelID,
				VariantID:  variant.ID,
				Matcher:    enums.MatcherMPN,
				Confidence: 0.95,
			}, nil
		}
	}

	normalized := catalog.NormalizeName(record.Name)
	model, err := e.repo.FindModelByBrandAndName(ctx, brandID, normalized)
	if err != nil {
		return Result{}, errors.Wrap(errors.CodeData, err, "matching: composite lookup")
	}
	if model != nil {
		return Result{
			Found:      true,
			ModelID:    model.ID,
			Matcher:    enums.MatcherComposite,
			Confidence: 0.98,
		}, nil
	}

	siblings, err := e.repo.ListModelsByBrand(ctx, brandID)
	if err != nil {
		return Result{}, errors.Wrap(errors.CodeData, err, "matching: brand scan")
	}

	best, bestScore := bestCandidate(normalized, siblings)
	switch {
	case best != nil && bestScore >= AutoThreshold:
		return Result{
			Found:      true,
			ModelID:    best.ID,
			Matcher:    enums.MatcherComposite,
			Confidence: bestScore,
		}, nil
	case best != nil && bestScore >= ReviewThreshold:
		return Result{
			Found:       true,
			ModelID:     best.ID,
			Matcher:     enums.MatcherComposite,
			Confidence:  bestScore,
			NeedsReview: true,
		}, nil
	}

	if res, ok := e.infer(ctx, record, brandID, categoryID); ok {
		return res, nil
	}

	return Result{Matcher: enums.MatcherNone}, nil
}

// bestCandidate returns the most similar model by normalized name, or nil
// when nothing clears the similarity floor.
func bestCandidate(normalized string, siblings []models.Model) (*models.Model, float64) {
	var best *models.Model
	bestScore := 0.0
	for i := range siblings {
		score := Similarity(normalized, siblings[i].NormalizedName)
		if score >= SimilarityFloor && score > bestScore {
			best = &siblings[i]
			bestScore = score
		}
	}
	return best, bestScore
}

// infer hands a bounded candidate pool to the inference picker. The pool is
// built from models sharing the brand and, when known, the category, with no
// name-similarity precondition: the fallback exists for records whose names
// the deterministic stages could not relate. Strictly best-effort: a nil
// picker, an empty pool, an error, or a low-confidence pick all mean no
// match.
func (e *Engine) infer(ctx context.Context, record catalog.ProductRecord, brandID uuid.UUID, categoryID *uuid.UUID) (Result, bool) {
	if e.picker == nil {
		return Result{}, false
	}

	pool, err := e.repo.ListInferenceCandidates(ctx, brandID, categoryID, e.maxCandidates)
	if err != nil {
		e.logg.Error(ctx, "inference candidate lookup failed, record treated as unmatched", err)
		return Result{}, false
	}
	candidates := make([]Candidate, 0, len(pool))
	for i := range pool {
		candidates = append(candidates, Candidate{ModelID: pool[i].ID, Name: pool[i].Name})
	}
	if len(candidates) == 0 {
		return Result{}, false
	}

	pick, err := e.picker.PickCandidate(ctx, record, candidates)
	if err != nil {
		e.logg.Error(ctx, "inference fallback failed, record treated as unmatched", err)
		return Result{}, false
	}
	if pick.Index < 0 || pick.Index >= len(candidates) || pick.Confidence < ReviewThreshold {
		return Result{}, false
	}

	return Result{
		Found:       true,
		ModelID:     candidates[pick.Index].ModelID,
		Matcher:     enums.MatcherInference,
		Confidence:  pick.Confidence,
		NeedsReview: pick.Confidence < AutoThreshold,
	}, true
}
