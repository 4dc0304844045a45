package qid

// Tier is a coarse confidence label used to colour extracted fields.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Lower bounds (inclusive) of the high and medium tiers.
const (
	HighConfidence   = 0.9
	MediumConfidence = 0.7
)

// Classify maps an OCR confidence score to a Tier. Scores are not clamped:
// anything at or above 0.9 is high, negative values and NaN are low.
func Classify(score float64) Tier {
	switch {
	case score >= HighConfidence:
		return TierHigh
	case score >= MediumConfidence:
		return TierMedium
	default:
		return TierLow
	}
}

// ClassifyAll classifies every score in scores, keyed by the same field name.
func ClassifyAll(scores map[string]float64) map[string]Tier {
	tiers := make(map[string]Tier, len(scores))
	for field, score := range scores {
		tiers[field] = Classify(score)
	}
	return tiers
}
