// Package tokenizer turns raw text into an ordered sequence of tagged
// sentences ready for classification. It lower-cases the input, segments it
// into sentences, tokenizes and part-of-speech tags each sentence, collapses
// character elongation ("soooo" style obfuscation), drops tokens that carry
// no letter or digit, and optionally runs spelling correction for content
// types sourced from noisy free text.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwillikers/content-rating/internal/domain"
	"github.com/jwillikers/content-rating/internal/logging"
	"github.com/jwillikers/content-rating/internal/telemetry"
)

// maxRepeat is the longest run of one character kept in a token. Runs
// beyond it are elongation, not spelling.
const maxRepeat = 3

// needsSpellCorrection gates the correction pass per content type. Website
// and document text is typed or scraped free text; songs, movies, and books
// arrive transcribed.
var needsSpellCorrection = map[domain.ContentType]bool{
	domain.ContentTypeSong:     false,
	domain.ContentTypeMovie:    false,
	domain.ContentTypeBook:     false,
	domain.ContentTypeWebsite:  true,
	domain.ContentTypeDocument: true,
}

// NeedsSpellCorrection reports whether the tokenizer corrects spelling for
// the given content type.
func NeedsSpellCorrection(t domain.ContentType) bool {
	return needsSpellCorrection[t]
}

// Token is a single word with its part-of-speech tag.
type Token struct {
	Text string
	Tag  string
}

// Sentence is one sentence of the input text with its 0-based position.
type Sentence struct {
	Position int
	Tokens   []Token
}

// Corrector suggests spelling corrections for unknown tokens.
type Corrector interface {
	Known(word string) bool
	Correct(word string) string
}

// Tokenizer segments, tags, and normalizes raw text.
type Tokenizer struct {
	corrector Corrector
	lower     cases.Caser
	logger    logging.Logger
	telemetry *telemetry.Provider
}

// New creates a Tokenizer. The corrector may be nil, which disables the
// spelling pass for every content type.
func New(corrector Corrector, logger logging.Logger, tp *telemetry.Provider) *Tokenizer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Tokenizer{
		corrector: corrector,
		lower:     cases.Lower(language.English),
		logger:    logger,
		telemetry: tp,
	}
}

// Tokenize turns raw text into an ordered slice of sentences. Empty or
// whitespace-only input yields an empty slice, never an error.
func (t *Tokenizer) Tokenize(text string, contentType domain.ContentType) ([]Sentence, error) {
	text = strings.TrimSpace(t.lower.String(text))
	if text == "" {
		return []Sentence{}, nil
	}

	seg, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("segment text: %w", err)
	}

	correct := t.corrector != nil && needsSpellCorrection[contentType]

	sentences := make([]Sentence, 0, len(seg.Sentences()))
	for i, sent := range seg.Sentences() {
		tokens, tokErr := t.tokenizeSentence(sent.Text, correct)
		if tokErr != nil {
			return nil, tokErr
		}
		sentences = append(sentences, Sentence{Position: i, Tokens: tokens})
	}

	t.logger.Debug("tokenized text",
		logging.Int("sentences", len(sentences)),
		logging.String("content_type", contentType.String()),
		logging.Bool("spell_corrected", correct),
	)
	return sentences, nil
}

// tokenizeSentence tokenizes and tags one sentence, then normalizes its
// tokens. Correction replaces a token only when the collapsed form is still
// unknown to the frequency dictionary.
func (t *Tokenizer) tokenizeSentence(sentence string, correct bool) ([]Token, error) {
	doc, err := prose.NewDocument(sentence,
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("tokenize sentence: %w", err)
	}

	raw := doc.Tokens()
	tokens := make([]Token, 0, len(raw))
	for _, tok := range raw {
		word := collapseElongation(tok.Text)
		if !hasLetterOrDigit(word) {
			continue
		}
		if correct && !t.corrector.Known(word) {
			if fixed := t.corrector.Correct(word); fixed != word {
				word = fixed
				if t.telemetry != nil && t.telemetry.Metrics != nil {
					t.telemetry.Metrics.SpellCorrections.Inc()
				}
			}
		}
		tokens = append(tokens, Token{Text: word, Tag: tok.Tag})
	}
	return tokens, nil
}

// collapseElongation reduces any run of more than maxRepeat identical runes
// to exactly maxRepeat, so "soooooo" and "sooo" normalize identically.
func collapseElongation(word string) string {
	var b strings.Builder
	b.Grow(len(word))

	var prev rune
	run := 0
	for _, r := range word {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run <= maxRepeat {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// hasLetterOrDigit reports whether the token carries at least one letter or
// digit. Pure punctuation and symbol tokens are discarded.
func hasLetterOrDigit(word string) bool {
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
