// Package domain contains the core entities of the content rating engine.
package domain

// Weight is the offensiveness severity of a category or word feature.
type Weight int

// Weight levels, ordered from harmless to severe.
const (
	WeightInnocuous Weight = iota
	WeightSlight
	WeightModerate
	WeightHeavy
)

// weightNames maps weights to their display names.
var weightNames = map[Weight]string{
	WeightInnocuous: "innocuous",
	WeightSlight:    "slight",
	WeightModerate:  "moderate",
	WeightHeavy:     "heavy",
}

// Valid reports whether w is within the allowed 0-3 range.
func (w Weight) Valid() bool {
	return w >= WeightInnocuous && w <= WeightHeavy
}

func (w Weight) String() string {
	if name, ok := weightNames[w]; ok {
		return name
	}
	return "unknown"
}

// Strength is the severity tier of a word within a category.
type Strength string

// Strength tiers. Weak words can be promoted to strong by the
// sentence-level density rules.
const (
	StrengthStrong Strength = "strong"
	StrengthWeak   Strength = "weak"
)

// Valid reports whether s is a known strength tier.
func (s Strength) Valid() bool {
	return s == StrengthStrong || s == StrengthWeak
}

// Origin distinguishes shared immutable reference rows from user-created
// variants.
type Origin string

// Row origins.
const (
	OriginDefault Origin = "default"
	OriginCustom  Origin = "custom"
)

// Category is a named axis of offensiveness (profanity, violence, ...) with
// a severity weight. Default categories are immutable shared reference data;
// custom rows are created lazily on the first per-user weight edit.
type Category struct {
	ID     int64  `db:"id"     json:"id"`
	Name   string `db:"name"   json:"name"`
	Weight Weight `db:"weight" json:"weight"`
	Origin Origin `db:"origin" json:"origin"`
}

// WordFeature is one classification of a word: the category it offends, the
// strong/weak tier, and the severity weight. Exactly one row exists per
// distinct (category, strength, weight) signature; words and users that need
// the same classification share the row.
type WordFeature struct {
	ID         int64    `db:"id"            json:"id"`
	CategoryID int64    `db:"category_id"   json:"category_id"`
	Category   string   `db:"category_name" json:"category"`
	Strength   Strength `db:"strength"      json:"strength"`
	Weight     Weight   `db:"weight"        json:"weight"`
	Origin     Origin   `db:"origin"        json:"origin"`
}

// Word is a lexical item in the offensive dictionary together with its
// classifications. Features holds the features linked to the word; when the
// word was resolved for a particular user it holds only that user's
// effective features.
type Word struct {
	ID       int64         `db:"id"     json:"id"`
	Name     string        `db:"name"   json:"name"`
	Origin   Origin        `db:"origin" json:"origin"`
	Features []WordFeature `db:"-"      json:"features,omitempty"`
}

// UserStorage is the per-user overlay: the categories, words, and word
// features the user currently uses, plus up to five retained content
// ratings. A fresh storage references every default row.
type UserStorage struct {
	UserID     int64    `db:"user_id" json:"user_id"`
	Categories []Category
	Words      []Word
	Ratings    []ContentRating
}

// MaxRetainedRatings is the per-user cap on stored content ratings. The
// oldest rating by updated timestamp is evicted before a new one is saved.
const MaxRetainedRatings = 5
