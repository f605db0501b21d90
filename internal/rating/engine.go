package rating

import (
	"math"

	"github.com/jwillikers/content-rating/internal/domain"
)

// cleanDamping divides the clean-word total when sizing the rating
// denominator, so long mostly-clean texts do not drown a handful of
// offensive words.
const cleanDamping = 10

// Rate computes per-category and overall ratings from the text totals and
// the user's effective categories. A text with no offensive words rates 1
// everywhere.
func Rate(totals Totals, categories []domain.Category) *domain.RatingResult {
	result := &domain.RatingResult{
		Overall:            domain.MinRating,
		CategoryRatings:    make(map[string]int, len(categories)),
		CategoryWordCounts: totals.CategoryWordCounts,
		OffensiveSentences: totals.OffensiveSentences,
		CleanWords:         totals.CleanWords,
		OffensiveWords:     totals.OffensiveWords,
	}

	if totals.OffensiveWords == 0 || len(categories) == 0 {
		for _, c := range categories {
			result.CategoryRatings[c.Name] = domain.MinRating
		}
		return result
	}

	base := totals.CleanWords / cleanDamping
	if totals.OffensiveWords > base {
		base = totals.OffensiveWords
	}
	denom := base + totals.OffensiveWords

	weightedSum := 0
	for _, c := range categories {
		result.CategoryRatings[c.Name] = categoryRating(totals.StrongCount(c.Name), denom)
		weightedSum += int(c.Weight) * result.CategoryRatings[c.Name]
	}

	if weightedSum > 0 {
		overall := (10 * weightedSum) / (10 * len(categories))
		result.Overall = clampRating(overall)
	}
	return result
}

// categoryRating quantizes the offensive ratio of one category onto the
// 1-10 scale. The modulo keeps the value in range; a ratio of exactly 10.0
// wraps to 1, matching the historical scoring rule.
func categoryRating(strongCount, denom int) int {
	if denom == 0 {
		return domain.MinRating
	}
	ratio := float64(strongCount) / float64(denom) * 10
	return int(math.Floor(ratio))%10 + 1
}

func clampRating(rating int) int {
	if rating < domain.MinRating {
		return domain.MinRating
	}
	if rating > domain.MaxRating {
		return domain.MaxRating
	}
	return rating
}
