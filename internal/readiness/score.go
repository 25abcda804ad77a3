package readiness

import (
	"math"

	"github.com/skuforge/catalog-engine/pkg/db/models"
	"github.com/skuforge/catalog-engine/pkg/db/types"
)

// Required checks gate publication outright; recommended checks only affect
// the score.
const (
	requiredWeight    = 80.0
	recommendedWeight = 20.0
)

// ModelFacts is the readiness-relevant projection of one model.
type ModelFacts struct {
	HasBrand          bool
	HasPrice          bool
	HasBarcode        bool
	ImageCount        int
	DescriptionLength int
	Attributes        types.AttributeMap
}

// Evaluation is the outcome of scoring one (model, channel) pair.
type Evaluation struct {
	IsReady       bool
	Score         int
	MissingFields []string
}

// Score evaluates the facts against a channel policy. A nil policy means the
// channel imposes nothing and the model is trivially ready. Readiness
// requires every required check to pass; the score alone never gates.
func Score(policy *models.ChannelRequirement, facts ModelFacts) Evaluation {
	if policy == nil {
		return Evaluation{IsReady: true, Score: 100}
	}

	var (
		missing             []string
		reqTotal, reqPassed int
		recTotal, recPassed int
	)

	required := func(name string, ok bool) {
		reqTotal++
		if ok {
			reqPassed++
		} else {
			missing = append(missing, "required:"+name)
		}
	}
	recommended := func(name string, ok bool) {
		recTotal++
		if ok {
			recPassed++
		} else {
			missing = append(missing, "recommended:"+name)
		}
	}

	if policy.MinImages > 0 {
		required("images", facts.ImageCount >= policy.MinImages)
	}
	if policy.MinDescriptionLength > 0 {
		required("description", facts.DescriptionLength >= policy.MinDescriptionLength)
	}
	if policy.RequireBarcode {
		required("barcode", facts.HasBarcode)
	}
	if policy.RequireBrand {
		required("brand", facts.HasBrand)
	}
	if policy.RequirePrice {
		required("price", facts.HasPrice)
	}
	for _, key := range policy.RequiredAttributes {
		required("attr:"+key, hasAttribute(facts.Attributes, key))
	}
	for _, key := range policy.RecommendedAttributes {
		recommended("attr:"+key, hasAttribute(facts.Attributes, key))
	}

	score := requiredWeight*fraction(reqPassed, reqTotal) + recommendedWeight*fraction(recPassed, recTotal)

	return Evaluation{
		IsReady:       reqPassed == reqTotal,
		Score:         int(math.Round(score)),
		MissingFields: missing,
	}
}

// fraction defaults to 1 when a category has no checks configured, so its
// full weight is granted.
func fraction(passed, total int) float64 {
	if total == 0 {
		return 1
	}
	return float64(passed) / float64(total)
}

func hasAttribute(attrs types.AttributeMap, key string) bool {
	value, ok := attrs[key]
	return ok && !value.IsZero()
}
