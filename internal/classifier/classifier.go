// Package classifier annotates tokenized sentences against a user's
// effective offensive dictionary. It tallies clean and offensive words per
// sentence, tracks strong word occurrences per category, and applies the
// weak-word promotion rule. An Aho-Corasick automaton built from the
// dictionary prefilters sentences that cannot contain any dictionary word.
package classifier

import (
	"sort"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/jwillikers/content-rating/internal/domain"
	"github.com/jwillikers/content-rating/internal/logging"
	"github.com/jwillikers/content-rating/internal/telemetry"
	"github.com/jwillikers/content-rating/internal/tokenizer"
)

// Promotion thresholds. A sentence dense in weak words, or one that pairs
// weak words with repeated strong words, treats its weak words as strong.
const (
	weakDensityThreshold  = 0.20
	strongRepeatThreshold = 1
)

// Lexicon is the dictionary surface the classifier reads. A dictionary
// view for one user satisfies it.
type Lexicon interface {
	LookupWord(name string) (*domain.Word, bool)
	WordNames() []string
}

// Annotation is the classification outcome of one sentence.
type Annotation struct {
	Position       int
	TokenCount     int
	CleanWords     int
	OffensiveWords int
	// StrongCounts maps category -> word -> occurrences counted as strong,
	// promotion already applied.
	StrongCounts map[string]map[string]int
	// Categories lists the offensive category names found in the sentence,
	// sorted. Empty for a clean sentence.
	Categories []string
}

// Offensive reports whether the sentence contains any offensive category.
func (a *Annotation) Offensive() bool {
	return len(a.Categories) > 0
}

// SentenceClassifier classifies sentences against one effective dictionary.
// Build one per rating request; it is read-only after construction.
type SentenceClassifier struct {
	lexicon   Lexicon
	matcher   *ahocorasick.Matcher
	logger    logging.Logger
	telemetry *telemetry.Provider
}

// New builds a classifier over the lexicon, constructing the prefilter
// automaton from its word list.
func New(lexicon Lexicon, logger logging.Logger, tp *telemetry.Provider) *SentenceClassifier {
	if logger == nil {
		logger = logging.Nop()
	}

	var matcher *ahocorasick.Matcher
	if words := lexicon.WordNames(); len(words) > 0 {
		matcher = ahocorasick.NewStringMatcher(words)
	}

	return &SentenceClassifier{
		lexicon:   lexicon,
		matcher:   matcher,
		logger:    logger,
		telemetry: tp,
	}
}

// Classify annotates every sentence in order.
func (c *SentenceClassifier) Classify(sentences []tokenizer.Sentence) []Annotation {
	annotations := make([]Annotation, 0, len(sentences))
	for i := range sentences {
		annotations = append(annotations, c.classifySentence(&sentences[i]))
	}
	return annotations
}

func (c *SentenceClassifier) classifySentence(sentence *tokenizer.Sentence) Annotation {
	annotation := Annotation{
		Position:     sentence.Position,
		TokenCount:   len(sentence.Tokens),
		StrongCounts: make(map[string]map[string]int),
	}

	// Prefilter: a sentence without any dictionary substring is all clean.
	if !c.mayContainDictionaryWord(sentence) {
		annotation.CleanWords = len(sentence.Tokens)
		return annotation
	}

	state := newSentenceState()
	for _, token := range sentence.Tokens {
		word, ok := c.lexicon.LookupWord(token.Text)
		if !ok {
			state.clean++
			continue
		}
		state.addWord(word)
	}
	state.finish(&annotation)

	if c.telemetry != nil && c.telemetry.Metrics != nil {
		c.telemetry.Metrics.SentencesProcessed.Inc()
		c.telemetry.Metrics.TokensProcessed.Add(float64(annotation.TokenCount))
		if state.promoted {
			c.telemetry.Metrics.PromotionsApplied.Inc()
		}
	}

	return annotation
}

// mayContainDictionaryWord runs the automaton over the joined sentence. A
// false result is definitive; a true result still requires exact per-token
// lookup because the automaton matches substrings.
func (c *SentenceClassifier) mayContainDictionaryWord(sentence *tokenizer.Sentence) bool {
	if c.matcher == nil {
		return false
	}
	if len(sentence.Tokens) == 0 {
		return false
	}

	var sb strings.Builder
	for i, token := range sentence.Tokens {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(token.Text)
	}
	return len(c.matcher.Match([]byte(sb.String()))) > 0
}

// sentenceState accumulates one sentence's tallies before promotion.
type sentenceState struct {
	clean          int
	strongTokens   int
	weakOnlyTokens int
	weakPairs      int
	strong         map[string]map[string]int
	weak           map[string]map[string]int
	offensive      map[string]bool
	promoted       bool
}

func newSentenceState() *sentenceState {
	return &sentenceState{
		strong:    make(map[string]map[string]int),
		weak:      make(map[string]map[string]int),
		offensive: make(map[string]bool),
	}
}

// addWord applies one resolved dictionary word's features to the tallies.
func (s *sentenceState) addWord(word *domain.Word) {
	hasStrong := false
	hasWeak := false

	for _, feature := range word.Features {
		switch feature.Strength {
		case domain.StrengthStrong:
			bump(s.strong, feature.Category, word.Name)
			s.offensive[feature.Category] = true
			hasStrong = true
		case domain.StrengthWeak:
			bump(s.weak, feature.Category, word.Name)
			s.weakPairs++
			hasWeak = true
		}
	}

	switch {
	case hasStrong:
		s.strongTokens++
	case hasWeak:
		s.weakOnlyTokens++
	default:
		// A word row with no features behaves like an unknown token.
		s.clean++
	}
}

// finish applies the promotion rule and writes the final annotation.
func (s *sentenceState) finish(annotation *Annotation) {
	tokens := annotation.TokenCount
	var weakRatio float64
	if tokens > 0 {
		weakRatio = float64(s.weakPairs) / float64(tokens)
	}

	if s.weakPairs > 0 && (weakRatio >= weakDensityThreshold || s.strongTokens > strongRepeatThreshold) {
		s.promoted = true
		for category, words := range s.weak {
			for word, count := range words {
				bumpBy(s.strong, category, word, count)
			}
			s.offensive[category] = true
		}
		s.weak = nil
		annotation.OffensiveWords = s.strongTokens + s.weakOnlyTokens
		annotation.CleanWords = s.clean
	} else {
		// Unpromoted weak words read as clean.
		annotation.OffensiveWords = s.strongTokens
		annotation.CleanWords = s.clean + s.weakOnlyTokens
	}

	annotation.StrongCounts = s.strong
	annotation.Categories = make([]string, 0, len(s.offensive))
	for category := range s.offensive {
		annotation.Categories = append(annotation.Categories, category)
	}
	sort.Strings(annotation.Categories)
}

func bump(m map[string]map[string]int, category, word string) {
	bumpBy(m, category, word, 1)
}

func bumpBy(m map[string]map[string]int, category, word string, n int) {
	words, ok := m[category]
	if !ok {
		words = make(map[string]int)
		m[category] = words
	}
	words[word] += n
}
