package domain

// Category is the discrete risk bucket of a clamped score
type Category string

const (
	CategorySafe      Category = "Safe"
	CategoryCaution   Category = "Caution"
	CategoryDangerous Category = "Dangerous"
	// CategoryExtreme is never stored in ClassifiedResult.Category; see Severity
	CategoryExtreme Category = "Extreme"
)

// Score band upper bounds, inclusive
const (
	SafeMaxScore    = 35
	CautionMaxScore = 70
	MaxScore        = 100
)

// ClampScore bounds a raw score to [0, 100]
func ClampScore(raw int) int {
	return min(max(raw, 0), MaxScore)
}

// CategoryFor converts a clamped score to its category
func CategoryFor(score int) Category {
	switch {
	case score <= SafeMaxScore:
		return CategorySafe
	case score <= CautionMaxScore:
		return CategoryCaution
	default:
		return CategoryDangerous
	}
}

// Classify clamps the raw score and buckets it. It does not look at the result's source.
func Classify(result ScoreResult) ClassifiedResult {
	score := ClampScore(result.RawScore)

	rationales := make([]string, len(result.Rationales))
	copy(rationales, result.Rationales)

	return ClassifiedResult{
		Score:      score,
		RawScore:   result.RawScore,
		Category:   CategoryFor(score),
		Extreme:    result.RawScore > MaxScore,
		Rationales: rationales,
		Source:     result.Source,
	}
}

// Severity is the category with pre-clamp severity preserved
func (r ClassifiedResult) Severity() Category {
	if r.Extreme {
		return CategoryExtreme
	}
	return r.Category
}
