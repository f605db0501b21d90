package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwillikers/content-rating/internal/classifier"
	"github.com/jwillikers/content-rating/internal/domain"
)

func categories(pairs ...any) []domain.Category {
	cats := make([]domain.Category, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		cats = append(cats, domain.Category{
			Name:   pairs[i].(string),
			Weight: pairs[i+1].(domain.Weight),
		})
	}
	return cats
}

func TestCategoryRating(t *testing.T) {
	tests := []struct {
		name        string
		strongCount int
		denom       int
		want        int
	}{
		{name: "zero denominator", strongCount: 0, denom: 0, want: 1},
		{name: "no occurrences", strongCount: 0, denom: 2, want: 1},
		{name: "half offensive", strongCount: 1, denom: 2, want: 6},
		{name: "one tenth", strongCount: 1, denom: 10, want: 2},
		{name: "near saturation", strongCount: 9, denom: 10, want: 10},
		// The historical quantization wraps a ratio of exactly 10.0 back
		// to 1 instead of capping at 10.
		{name: "exact saturation wraps", strongCount: 10, denom: 10, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categoryRating(tt.strongCount, tt.denom))
		})
	}
}

func TestRateSingleStrongWord(t *testing.T) {
	// One strong profanity word against nine clean words: denominator is
	// max(floor(9/10), 1) + 1 = 2, so the profanity rating lands on 6.
	totals := Totals{
		CleanWords:     9,
		OffensiveWords: 1,
		CategoryWordCounts: map[string]map[string]int{
			"profanity": {"damn": 1},
		},
		OffensiveSentences: map[int][]string{0: {"profanity"}},
	}

	result := Rate(totals, categories("profanity", domain.WeightModerate))

	assert.Equal(t, 6, result.CategoryRatings["profanity"])
	// overall = floor(10 * 2*6 / (10*1)) = 12, clamped to 10.
	assert.Equal(t, 10, result.Overall)
	assert.Equal(t, 9, result.CleanWords)
	assert.Equal(t, 1, result.OffensiveWords)
}

func TestRateCleanText(t *testing.T) {
	totals := Totals{
		CleanWords:         42,
		CategoryWordCounts: map[string]map[string]int{},
		OffensiveSentences: map[int][]string{},
	}

	result := Rate(totals, categories(
		"profanity", domain.WeightModerate,
		"violence", domain.WeightSlight,
	))

	assert.Equal(t, domain.MinRating, result.Overall)
	assert.Equal(t, domain.MinRating, result.CategoryRatings["profanity"])
	assert.Equal(t, domain.MinRating, result.CategoryRatings["violence"])
}

func TestRateEmptyText(t *testing.T) {
	result := Rate(Aggregate(nil), categories("profanity", domain.WeightModerate))

	assert.Equal(t, domain.MinRating, result.Overall)
	assert.Equal(t, domain.MinRating, result.CategoryRatings["profanity"])
	assert.Empty(t, result.OffensiveSentences)
}

func TestRateZeroWeightCategoriesRateButDoNotCount(t *testing.T) {
	// An innocuous-weight category still gets its own rating, it just
	// contributes nothing to the overall score.
	totals := Totals{
		CleanWords:     9,
		OffensiveWords: 1,
		CategoryWordCounts: map[string]map[string]int{
			"profanity": {"damn": 1},
		},
		OffensiveSentences: map[int][]string{0: {"profanity"}},
	}

	result := Rate(totals, categories("profanity", domain.WeightInnocuous))

	assert.Equal(t, 6, result.CategoryRatings["profanity"])
	assert.Equal(t, domain.MinRating, result.Overall)
}

func TestRateMultipleCategories(t *testing.T) {
	totals := Totals{
		CleanWords:     40,
		OffensiveWords: 4,
		CategoryWordCounts: map[string]map[string]int{
			"profanity": {"damn": 2, "hell": 1},
			"violence":  {"kill": 1},
		},
		OffensiveSentences: map[int][]string{0: {"profanity"}, 2: {"profanity", "violence"}},
	}

	// denom = max(floor(40/10), 4) + 4 = 8.
	result := Rate(totals, categories(
		"profanity", domain.WeightModerate,
		"violence", domain.WeightHeavy,
	))

	// profanity: floor(3/8*10) = 3 -> 4; violence: floor(1/8*10) = 1 -> 2.
	assert.Equal(t, 4, result.CategoryRatings["profanity"])
	assert.Equal(t, 2, result.CategoryRatings["violence"])
	// overall = floor(10*(2*4 + 3*2)/(10*2)) = 7.
	assert.Equal(t, 7, result.Overall)
}

func TestAggregateFoldsSentences(t *testing.T) {
	annotations := []classifier.Annotation{
		{
			Position:       0,
			TokenCount:     5,
			CleanWords:     4,
			OffensiveWords: 1,
			StrongCounts:   map[string]map[string]int{"profanity": {"damn": 1}},
			Categories:     []string{"profanity"},
		},
		{
			Position:     1,
			TokenCount:   3,
			CleanWords:   3,
			StrongCounts: map[string]map[string]int{},
		},
		{
			Position:       2,
			TokenCount:     4,
			CleanWords:     2,
			OffensiveWords: 2,
			StrongCounts: map[string]map[string]int{
				"profanity": {"damn": 1},
				"violence":  {"kill": 1},
			},
			Categories: []string{"profanity", "violence"},
		},
	}

	totals := Aggregate(annotations)

	assert.Equal(t, 9, totals.CleanWords)
	assert.Equal(t, 3, totals.OffensiveWords)
	assert.Equal(t, 2, totals.CategoryWordCounts["profanity"]["damn"])
	assert.Equal(t, 1, totals.CategoryWordCounts["violence"]["kill"])
	require.Len(t, totals.OffensiveSentences, 2)
	assert.Equal(t, []string{"profanity"}, totals.OffensiveSentences[0])
	assert.Equal(t, []string{"profanity", "violence"}, totals.OffensiveSentences[2])
	assert.Equal(t, 2, totals.StrongCount("profanity"))
}

func TestRatingResultWordCounts(t *testing.T) {
	result := &domain.RatingResult{
		CategoryWordCounts: map[string]map[string]int{
			"profanity": {"damn": 2},
			"violence":  {"kill": 1, "damn": 2},
		},
	}

	counts := result.WordCounts()
	assert.Equal(t, 2, counts["damn"])
	assert.Equal(t, 1, counts["kill"])
}
