// Package spelling implements a frequency-dictionary spelling corrector.
// An unknown token is replaced by its highest-probability correction within
// edit distance two, the classic noisy-channel approach. The dictionary is
// seeded from an embedded domain corpus and can be extended at runtime.
package spelling

import (
	"bufio"
	"embed"
	"io"
	"strconv"
	"strings"
	"unicode"
)

//go:embed corpus.txt
var corpusFS embed.FS

const letters = "abcdefghijklmnopqrstuvwxyz"

// Corrector holds a word frequency dictionary and suggests corrections for
// unknown words. It is immutable after construction and safe for concurrent
// readers.
type Corrector struct {
	freq map[string]int
}

// NewCorrector builds a corrector seeded with the embedded domain corpus.
func NewCorrector() *Corrector {
	c := &Corrector{freq: make(map[string]int)}
	f, err := corpusFS.Open("corpus.txt")
	if err != nil {
		// The corpus is compiled in; a failure here is a build defect.
		panic("spelling: embedded corpus missing: " + err.Error())
	}
	defer f.Close()
	c.loadFrequencies(f)
	return c
}

// NewCorrectorFromReader builds a corrector from a caller-supplied frequency
// list, one "word count" pair per line.
func NewCorrectorFromReader(r io.Reader) *Corrector {
	c := &Corrector{freq: make(map[string]int)}
	c.loadFrequencies(r)
	return c
}

func (c *Corrector) loadFrequencies(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		word := strings.ToLower(fields[0])
		count := 1
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
				count = n
			}
		}
		c.freq[word] += count
	}
}

// Train adds every word of the given text to the frequency dictionary.
// Call it during setup to bias the dictionary toward the content domain;
// it is not safe to call concurrently with Correct.
func (c *Corrector) Train(text string) {
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	}) {
		c.freq[word]++
	}
}

// Known reports whether the word appears in the frequency dictionary.
func (c *Corrector) Known(word string) bool {
	_, ok := c.freq[strings.ToLower(word)]
	return ok
}

// Len returns the number of distinct dictionary words.
func (c *Corrector) Len() int {
	return len(c.freq)
}

// Correct returns the most probable spelling of word. Known words are
// returned unchanged. For unknown words, candidates at edit distance one are
// preferred over distance two; ties break by corpus frequency. A word with
// no known candidate is returned as is.
func (c *Corrector) Correct(word string) string {
	lower := strings.ToLower(word)
	if _, ok := c.freq[lower]; ok {
		return lower
	}

	if best := c.mostFrequent(edits1(lower)); best != "" {
		return best
	}

	// Edit distance two: expand lazily from the distance-one set.
	var best string
	bestCount := 0
	for _, e1 := range edits1(lower) {
		for _, e2 := range edits1(e1) {
			if count, ok := c.freq[e2]; ok && count > bestCount {
				best, bestCount = e2, count
			}
		}
	}
	if best != "" {
		return best
	}
	return lower
}

func (c *Corrector) mostFrequent(candidates []string) string {
	var best string
	bestCount := 0
	for _, cand := range candidates {
		if count, ok := c.freq[cand]; ok && count > bestCount {
			best, bestCount = cand, count
		}
	}
	return best
}

// edits1 returns every string at edit distance one from word: deletions,
// transpositions, replacements, and insertions over a-z.
func edits1(word string) []string {
	edits := make([]string, 0, (len(word)+1)*(len(letters)+1)+2*len(word))

	for i := 0; i <= len(word); i++ {
		left, right := word[:i], word[i:]

		if len(right) > 0 {
			// Deletion.
			edits = append(edits, left+right[1:])
		}
		if len(right) > 1 {
			// Transposition.
			edits = append(edits, left+string(right[1])+string(right[0])+right[2:])
		}
		for _, r := range letters {
			if len(right) > 0 {
				// Replacement.
				edits = append(edits, left+string(r)+right[1:])
			}
			// Insertion.
			edits = append(edits, left+string(r)+right)
		}
	}
	return edits
}
