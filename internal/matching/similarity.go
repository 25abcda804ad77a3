package matching

// Similarity thresholds for the fuzzy name comparison. Candidates below the
// floor are discarded outright; scores at or above AutoThreshold are accepted
// without review, and scores in [ReviewThreshold, AutoThreshold) are accepted
// provisionally and flagged for manual confirmation.
const (
	SimilarityFloor = 0.30
	ReviewThreshold = 0.60
	AutoThreshold   = 0.95
)

// Similarity computes the trigram Dice coefficient between two normalized
// names. Both inputs are expected to already be lowercased and
// whitespace-collapsed.
func Similarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ta)+len(tb))
}

func trigrams(s string) map[string]struct{} {
	padded := "  " + s + " "
	set := make(map[string]struct{}, len(padded))
	for i := 0; i+3 <= len(padded); i++ {
		set[padded[i:i+3]] = struct{}{}
	}
	return set
}
