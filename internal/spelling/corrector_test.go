package spelling

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCorrector(t *testing.T) *Corrector {
	t.Helper()
	return NewCorrectorFromReader(strings.NewReader(
		"the 1000\nday 500\nlovely 200\nspelling 120\nword 100\nwords 80\nhello 60\n"))
}

func TestKnown(t *testing.T) {
	c := testCorrector(t)

	assert.True(t, c.Known("the"))
	assert.True(t, c.Known("LOVELY"))
	assert.False(t, c.Known("zzzz"))
}

func TestCorrectKnownWordUnchanged(t *testing.T) {
	c := testCorrector(t)

	assert.Equal(t, "hello", c.Correct("hello"))
	assert.Equal(t, "the", c.Correct("The"))
}

func TestCorrectSingleEdit(t *testing.T) {
	c := testCorrector(t)

	tests := []struct {
		in   string
		want string
	}{
		{in: "teh", want: "the"},   // transpose
		{in: "dayy", want: "day"},  // delete
		{in: "wrd", want: "word"},  // insert
		{in: "dord", want: "word"}, // replace
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Correct(tt.in))
		})
	}
}

func TestCorrectPrefersHigherFrequency(t *testing.T) {
	c := NewCorrectorFromReader(strings.NewReader("cat 10\nhat 900\n"))

	// Both are one edit from "dat"; the more frequent word wins.
	assert.Equal(t, "hat", c.Correct("dat"))
}

func TestCorrectDoubleEdit(t *testing.T) {
	c := testCorrector(t)

	// Two inserts away from "lovely" and no dictionary word is closer.
	assert.Equal(t, "lovely", c.Correct("lvly"))
}

func TestCorrectUnfixableReturnsInput(t *testing.T) {
	c := testCorrector(t)

	assert.Equal(t, "qqqqqqqqqq", c.Correct("qqqqqqqqqq"))
}

func TestTrainAddsWords(t *testing.T) {
	c := testCorrector(t)
	require.False(t, c.Known("ballad"))

	c.Train("a ballad, a BALLAD!")

	assert.True(t, c.Known("ballad"))
}

func TestEmbeddedCorpusLoads(t *testing.T) {
	c := NewCorrector()

	assert.Greater(t, c.Len(), 100)
	assert.True(t, c.Known("the"))
}
