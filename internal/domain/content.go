package domain

import "time"

// ContentType is the media category of a rated text. It governs whether the
// tokenizer runs spelling correction: website and document text arrives as
// noisy free text, the other types are transcribed sources.
type ContentType int

// Media types, in the wire order used by the original tables.
const (
	ContentTypeSong ContentType = iota
	ContentTypeMovie
	ContentTypeBook
	ContentTypeWebsite
	ContentTypeDocument
)

var contentTypeNames = map[ContentType]string{
	ContentTypeSong:     "song",
	ContentTypeMovie:    "movie",
	ContentTypeBook:     "book",
	ContentTypeWebsite:  "website",
	ContentTypeDocument: "document",
}

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	_, ok := contentTypeNames[t]
	return ok
}

func (t ContentType) String() string {
	if name, ok := contentTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseContentType resolves a media type name to its enum value.
func ParseContentType(name string) (ContentType, bool) {
	for t, n := range contentTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Content identifies a rated piece of media.
type Content struct {
	ID      int64       `db:"id"      json:"id"`
	Title   string      `db:"title"   json:"title"`
	Creator string      `db:"creator" json:"creator"`
	Media   ContentType `db:"media"   json:"media"`
}

// CategoryRating is one category's 1-10 rating within a content rating.
// Rows are shared: every (category, rating) pair exists at most once and is
// linked by however many content ratings produced it.
type CategoryRating struct {
	ID         int64  `db:"id"            json:"id"`
	CategoryID int64  `db:"category_id"   json:"category_id"`
	Category   string `db:"category_name" json:"category"`
	Rating     int    `db:"rating"        json:"rating"`
}

// WordCount records how many times a dictionary word occurred in a rated
// text. Like CategoryRating, (word, count) rows are shared across ratings.
type WordCount struct {
	ID     int64  `db:"id"        json:"id"`
	WordID int64  `db:"word_id"   json:"word_id"`
	Word   string `db:"word_name" json:"word"`
	Count  int    `db:"count"     json:"count"`
}

// ContentRating is a persisted rating of one piece of content: the overall
// 1-10 rating plus per-category ratings and word occurrence counts.
type ContentRating struct {
	ID              int64            `db:"id"         json:"id"`
	UUID            string           `db:"uuid"       json:"uuid"`
	ContentID       int64            `db:"content_id" json:"content_id"`
	Content         Content          `db:"-"          json:"content"`
	Rating          int              `db:"rating"     json:"rating"`
	CategoryRatings []CategoryRating `db:"-"          json:"category_ratings,omitempty"`
	WordCounts      []WordCount      `db:"-"          json:"word_counts,omitempty"`
	Created         time.Time        `db:"created"    json:"created"`
	Updated         time.Time        `db:"updated"    json:"updated"`
}

// RatingResult is what the rating engine returns to its callers: the overall
// rating, per-category ratings, per-category word occurrence counts, and the
// offensive categories found in each sentence. Storage and presentation
// collaborators build ContentRating records from it.
type RatingResult struct {
	Overall            int                       `json:"overall"`
	CategoryRatings    map[string]int            `json:"category_ratings"`
	CategoryWordCounts map[string]map[string]int `json:"category_word_counts"`
	OffensiveSentences map[int][]string          `json:"offensive_sentences"`
	CleanWords         int                       `json:"clean_words"`
	OffensiveWords     int                       `json:"offensive_words"`
}

// WordCounts flattens the per-category occurrence counts into a single
// word -> count map, ignoring categories. A word classified in several
// categories reports a single count.
func (r *RatingResult) WordCounts() map[string]int {
	counts := make(map[string]int)
	for _, words := range r.CategoryWordCounts {
		for word, count := range words {
			counts[word] = count
		}
	}
	return counts
}

// Rating bounds. Every overall and per-category rating falls in this range.
const (
	MinRating = 1
	MaxRating = 10
)
