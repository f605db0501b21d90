package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwillikers/content-rating/internal/domain"
	"github.com/jwillikers/content-rating/internal/tokenizer"
)

// testLexicon is an in-memory Lexicon for classifier tests.
type testLexicon struct {
	words map[string]*domain.Word
}

func (l *testLexicon) LookupWord(name string) (*domain.Word, bool) {
	w, ok := l.words[name]
	return w, ok
}

func (l *testLexicon) WordNames() []string {
	names := make([]string, 0, len(l.words))
	for name := range l.words {
		names = append(names, name)
	}
	return names
}

func newTestLexicon(words ...*domain.Word) *testLexicon {
	byName := make(map[string]*domain.Word, len(words))
	for _, w := range words {
		byName[w.Name] = w
	}
	return &testLexicon{words: byName}
}

func strongWord(name, category string) *domain.Word {
	return &domain.Word{
		Name: name,
		Features: []domain.WordFeature{
			{Category: category, Strength: domain.StrengthStrong, Weight: domain.WeightModerate},
		},
	}
}

func weakWord(name, category string) *domain.Word {
	return &domain.Word{
		Name: name,
		Features: []domain.WordFeature{
			{Category: category, Strength: domain.StrengthWeak, Weight: domain.WeightSlight},
		},
	}
}

func sentence(position int, words ...string) tokenizer.Sentence {
	tokens := make([]tokenizer.Token, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, tokenizer.Token{Text: w})
	}
	return tokenizer.Sentence{Position: position, Tokens: tokens}
}

func TestClassifyCleanSentence(t *testing.T) {
	lexicon := newTestLexicon(strongWord("damn", "profanity"))
	c := New(lexicon, nil, nil)

	annotations := c.Classify([]tokenizer.Sentence{
		sentence(0, "what", "a", "lovely", "day"),
	})

	require.Len(t, annotations, 1)
	assert.Equal(t, 4, annotations[0].CleanWords)
	assert.Equal(t, 0, annotations[0].OffensiveWords)
	assert.False(t, annotations[0].Offensive())
}

func TestClassifyStrongWord(t *testing.T) {
	lexicon := newTestLexicon(strongWord("damn", "profanity"))
	c := New(lexicon, nil, nil)

	annotations := c.Classify([]tokenizer.Sentence{
		sentence(0, "well", "damn", "that", "hurt"),
	})

	require.Len(t, annotations, 1)
	a := annotations[0]
	assert.Equal(t, 3, a.CleanWords)
	assert.Equal(t, 1, a.OffensiveWords)
	assert.Equal(t, []string{"profanity"}, a.Categories)
	assert.Equal(t, 1, a.StrongCounts["profanity"]["damn"])
}

func TestClassifyWeakDensityPromotion(t *testing.T) {
	// Five tokens, two weak words, zero strong: weakRatio 0.40 promotes
	// both weak occurrences to strong and resets the weak state.
	lexicon := newTestLexicon(weakWord("fight", "violence"), weakWord("hit", "violence"))
	c := New(lexicon, nil, nil)

	annotations := c.Classify([]tokenizer.Sentence{
		sentence(0, "they", "fight", "and", "hit", "hard"),
	})

	require.Len(t, annotations, 1)
	a := annotations[0]
	assert.Equal(t, 2, a.OffensiveWords)
	assert.Equal(t, 3, a.CleanWords)
	assert.Equal(t, []string{"violence"}, a.Categories)
	assert.Equal(t, 1, a.StrongCounts["violence"]["fight"])
	assert.Equal(t, 1, a.StrongCounts["violence"]["hit"])
}

func TestClassifyWeakBelowDensityStaysClean(t *testing.T) {
	// One weak word in ten tokens: ratio 0.10 below the threshold, no
	// strong words either, so the weak word reads as clean.
	lexicon := newTestLexicon(weakWord("fight", "violence"))
	c := New(lexicon, nil, nil)

	annotations := c.Classify([]tokenizer.Sentence{
		sentence(0, "a", "b", "c", "d", "e", "f", "g", "h", "i", "fight"),
	})

	require.Len(t, annotations, 1)
	a := annotations[0]
	assert.Equal(t, 0, a.OffensiveWords)
	assert.Equal(t, 10, a.CleanWords)
	assert.False(t, a.Offensive())
	assert.Empty(t, a.StrongCounts["violence"])
}

func TestClassifyStrongRepeatPromotesWeak(t *testing.T) {
	// Two strong words alongside one weak word promotes the weak word even
	// though its density is below the threshold.
	lexicon := newTestLexicon(
		strongWord("damn", "profanity"),
		strongWord("hell", "profanity"),
		weakWord("fight", "violence"),
	)
	c := New(lexicon, nil, nil)

	annotations := c.Classify([]tokenizer.Sentence{
		sentence(0, "damn", "hell", "fight", "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m"),
	})

	require.Len(t, annotations, 1)
	a := annotations[0]
	assert.Equal(t, 3, a.OffensiveWords)
	assert.Equal(t, []string{"profanity", "violence"}, a.Categories)
	assert.Equal(t, 1, a.StrongCounts["violence"]["fight"])
}

func TestClassifySingleStrongDoesNotPromote(t *testing.T) {
	lexicon := newTestLexicon(
		strongWord("damn", "profanity"),
		weakWord("fight", "violence"),
	)
	c := New(lexicon, nil, nil)

	annotations := c.Classify([]tokenizer.Sentence{
		sentence(0, "damn", "fight", "a", "b", "c", "d", "e", "f", "g", "h", "i", "j"),
	})

	require.Len(t, annotations, 1)
	a := annotations[0]
	assert.Equal(t, 1, a.OffensiveWords)
	assert.Equal(t, []string{"profanity"}, a.Categories)
	assert.Empty(t, a.StrongCounts["violence"])
}

func TestClassifyMultiCategoryWord(t *testing.T) {
	word := &domain.Word{
		Name: "screw",
		Features: []domain.WordFeature{
			{Category: "profanity", Strength: domain.StrengthStrong, Weight: domain.WeightModerate},
			{Category: "sexual", Strength: domain.StrengthStrong, Weight: domain.WeightHeavy},
		},
	}
	c := New(newTestLexicon(word), nil, nil)

	annotations := c.Classify([]tokenizer.Sentence{
		sentence(0, "screw", "this"),
	})

	require.Len(t, annotations, 1)
	a := annotations[0]
	assert.Equal(t, 1, a.OffensiveWords)
	assert.Equal(t, []string{"profanity", "sexual"}, a.Categories)
	assert.Equal(t, 1, a.StrongCounts["profanity"]["screw"])
	assert.Equal(t, 1, a.StrongCounts["sexual"]["screw"])
}

func TestClassifyEmptyInput(t *testing.T) {
	c := New(newTestLexicon(strongWord("damn", "profanity")), nil, nil)

	assert.Empty(t, c.Classify(nil))
	annotations := c.Classify([]tokenizer.Sentence{sentence(0)})
	require.Len(t, annotations, 1)
	assert.Equal(t, 0, annotations[0].CleanWords)
	assert.Equal(t, 0, annotations[0].OffensiveWords)
}

func TestClassifyEmptyLexicon(t *testing.T) {
	c := New(newTestLexicon(), nil, nil)

	annotations := c.Classify([]tokenizer.Sentence{
		sentence(0, "anything", "goes"),
	})

	require.Len(t, annotations, 1)
	assert.Equal(t, 2, annotations[0].CleanWords)
	assert.False(t, annotations[0].Offensive())
}

func TestClassifyPositionsPreserved(t *testing.T) {
	lexicon := newTestLexicon(strongWord("damn", "profanity"))
	c := New(lexicon, nil, nil)

	annotations := c.Classify([]tokenizer.Sentence{
		sentence(0, "fine", "words"),
		sentence(1, "damn", "it"),
	})

	require.Len(t, annotations, 2)
	assert.Equal(t, 0, annotations[0].Position)
	assert.Equal(t, 1, annotations[1].Position)
	assert.False(t, annotations[0].Offensive())
	assert.True(t, annotations[1].Offensive())
}

func TestPromotionNeverReducesOffensiveCount(t *testing.T) {
	lexicon := newTestLexicon(
		strongWord("kill", "violence"),
		weakWord("fight", "violence"),
	)
	c := New(lexicon, nil, nil)

	// Growing a sentence by one weak word must never lower its
	// offensive-word count, whether or not promotion fires.
	words := []string{"kill", "kill", "they", "will"}
	prev := 0
	for i := 0; i < 4; i++ {
		annotations := c.Classify([]tokenizer.Sentence{sentence(0, words...)})
		require.Len(t, annotations, 1)

		offensive := annotations[0].OffensiveWords
		assert.GreaterOrEqual(t, offensive, prev,
			"offensive count dropped after adding a weak word: %v", words)
		assert.GreaterOrEqual(t, offensive, 2, "strong words must always count")

		prev = offensive
		words = append(words, "fight")
	}

	// With two strong tokens present, the first weak word already promotes.
	annotations := c.Classify([]tokenizer.Sentence{
		sentence(0, "kill", "kill", "they", "will", "fight"),
	})
	require.Len(t, annotations, 1)
	assert.Equal(t, 3, annotations[0].OffensiveWords)
	assert.Equal(t, 1, annotations[0].StrongCounts["violence"]["fight"])
}
