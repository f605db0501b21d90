// Package rating turns classified sentences into 1-10 ratings and manages
// each user's retained rating history.
package rating

import (
	"github.com/jwillikers/content-rating/internal/classifier"
)

// Totals is the text-level aggregation of the sentence annotations.
type Totals struct {
	CleanWords     int
	OffensiveWords int
	// CategoryWordCounts maps category -> word -> occurrences counted as
	// strong across the whole text.
	CategoryWordCounts map[string]map[string]int
	// OffensiveSentences maps sentence position -> offensive category
	// names. Clean sentences have no entry.
	OffensiveSentences map[int][]string
}

// StrongCount returns the total strong occurrences tallied for a category.
func (t *Totals) StrongCount(category string) int {
	total := 0
	for _, count := range t.CategoryWordCounts[category] {
		total += count
	}
	return total
}

// Aggregate folds per-sentence annotations into text totals, consuming
// sentences in order.
func Aggregate(annotations []classifier.Annotation) Totals {
	totals := Totals{
		CategoryWordCounts: make(map[string]map[string]int),
		OffensiveSentences: make(map[int][]string),
	}

	for i := range annotations {
		a := &annotations[i]
		totals.CleanWords += a.CleanWords
		totals.OffensiveWords += a.OffensiveWords

		for category, words := range a.StrongCounts {
			counts, ok := totals.CategoryWordCounts[category]
			if !ok {
				counts = make(map[string]int)
				totals.CategoryWordCounts[category] = counts
			}
			for word, count := range words {
				counts[word] += count
			}
		}

		if a.Offensive() {
			totals.OffensiveSentences[a.Position] = a.Categories
		}
	}
	return totals
}
