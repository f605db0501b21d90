package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwillikers/content-rating/internal/domain"
)

// fakeCorrector records lookups and rewrites one fixed word.
type fakeCorrector struct {
	known     map[string]bool
	corrected []string
}

func (c *fakeCorrector) Known(word string) bool {
	return c.known[word]
}

func (c *fakeCorrector) Correct(word string) string {
	c.corrected = append(c.corrected, word)
	if word == "dman" {
		return "damn"
	}
	return word
}

func tokenTexts(sentences []Sentence) [][]string {
	out := make([][]string, 0, len(sentences))
	for _, s := range sentences {
		texts := make([]string, 0, len(s.Tokens))
		for _, tok := range s.Tokens {
			texts = append(texts, tok.Text)
		}
		out = append(out, texts)
	}
	return out
}

func TestTokenizeEmptyInput(t *testing.T) {
	tok := New(nil, nil, nil)

	for _, input := range []string{"", "   ", "\n\t"} {
		sentences, err := tok.Tokenize(input, domain.ContentTypeSong)
		require.NoError(t, err)
		assert.Empty(t, sentences)
	}
}

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	tok := New(nil, nil, nil)

	sentences, err := tok.Tokenize("This Is Fine. And THIS too.", domain.ContentTypeBook)
	require.NoError(t, err)
	require.Len(t, sentences, 2)

	assert.Equal(t, 0, sentences[0].Position)
	assert.Equal(t, 1, sentences[1].Position)
	texts := tokenTexts(sentences)
	assert.Equal(t, []string{"this", "is", "fine"}, texts[0])
	assert.Equal(t, []string{"and", "this", "too"}, texts[1])
}

func TestTokenizeDropsPunctuationOnlyTokens(t *testing.T) {
	tok := New(nil, nil, nil)

	sentences, err := tok.Tokenize("well -- really !?", domain.ContentTypeSong)
	require.NoError(t, err)
	require.Len(t, sentences, 1)
	assert.Equal(t, []string{"well", "really"}, tokenTexts(sentences)[0])
}

func TestTokenizeKeepsTagsOnTokens(t *testing.T) {
	tok := New(nil, nil, nil)

	sentences, err := tok.Tokenize("dogs bark loudly", domain.ContentTypeSong)
	require.NoError(t, err)
	require.Len(t, sentences, 1)
	for _, token := range sentences[0].Tokens {
		assert.NotEmpty(t, token.Tag)
	}
}

func TestCollapseElongation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "soooooo", want: "sooo"},
		{in: "sooo", want: "sooo"},
		{in: "so", want: "so"},
		{in: "aaaabbbb", want: "aaabbb"},
		{in: "", want: ""},
		{in: "heyyyyy", want: "heyyy"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, collapseElongation(tt.in))
		})
	}
}

func TestTokenizeCorrectsOnlyNoisyContentTypes(t *testing.T) {
	corrector := &fakeCorrector{known: map[string]bool{"it": true, "hurts": true}}
	tok := New(corrector, nil, nil)

	// Transcribed content types skip the correction pass entirely.
	sentences, err := tok.Tokenize("dman it hurts", domain.ContentTypeSong)
	require.NoError(t, err)
	assert.Equal(t, []string{"dman", "it", "hurts"}, tokenTexts(sentences)[0])
	assert.Empty(t, corrector.corrected)

	sentences, err = tok.Tokenize("dman it hurts", domain.ContentTypeWebsite)
	require.NoError(t, err)
	assert.Equal(t, []string{"damn", "it", "hurts"}, tokenTexts(sentences)[0])
	assert.Equal(t, []string{"dman"}, corrector.corrected)
}

func TestTokenizeKnownWordsNotCorrected(t *testing.T) {
	corrector := &fakeCorrector{known: map[string]bool{"fine": true, "words": true}}
	tok := New(corrector, nil, nil)

	_, err := tok.Tokenize("fine words", domain.ContentTypeDocument)
	require.NoError(t, err)
	assert.Empty(t, corrector.corrected)
}

func TestNeedsSpellCorrection(t *testing.T) {
	assert.False(t, NeedsSpellCorrection(domain.ContentTypeSong))
	assert.False(t, NeedsSpellCorrection(domain.ContentTypeMovie))
	assert.False(t, NeedsSpellCorrection(domain.ContentTypeBook))
	assert.True(t, NeedsSpellCorrection(domain.ContentTypeWebsite))
	assert.True(t, NeedsSpellCorrection(domain.ContentTypeDocument))
}
