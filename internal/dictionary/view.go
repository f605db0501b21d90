package dictionary

import (
	"context"
	"fmt"
	"sort"

	"github.com/jwillikers/content-rating/internal/domain"
)

// View is a snapshot of one user's effective dictionary: the categories and
// words that classification resolves against. It is immutable and safe for
// concurrent readers.
type View struct {
	categories []domain.Category
	words      map[string]*domain.Word
}

// NewView builds a view from resolved categories and words.
func NewView(categories []domain.Category, words []domain.Word) *View {
	byName := make(map[string]*domain.Word, len(words))
	for i := range words {
		byName[words[i].Name] = &words[i]
	}
	return &View{categories: categories, words: byName}
}

// LookupWord resolves a token against the effective dictionary.
func (v *View) LookupWord(name string) (*domain.Word, bool) {
	w, ok := v.words[name]
	return w, ok
}

// Categories returns the effective categories ordered by name.
func (v *View) Categories() []domain.Category {
	return v.categories
}

// CategoryNames returns the effective category names ordered by name.
func (v *View) CategoryNames() []string {
	names := make([]string, 0, len(v.categories))
	for _, c := range v.categories {
		names = append(names, c.Name)
	}
	return names
}

// CategoryWeight returns the effective weight of a category, or
// WeightInnocuous when the user does not use the category.
func (v *View) CategoryWeight(name string) domain.Weight {
	for _, c := range v.categories {
		if c.Name == name {
			return c.Weight
		}
	}
	return domain.WeightInnocuous
}

// WordNames returns every dictionary word in the view, sorted. The
// classifier builds its prefilter automaton from this list.
func (v *View) WordNames() []string {
	names := make([]string, 0, len(v.words))
	for name := range v.words {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ViewForUser loads the user's effective dictionary. A user without a
// storage overlay sees the default dictionary.
func (s *Service) ViewForUser(ctx context.Context, userID int64) (*View, error) {
	repos := s.store.Repos()

	exists, err := repos.Users.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user storage: %w", err)
	}
	if !exists {
		return s.defaultView(ctx)
	}

	categories, err := repos.Categories.ForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user categories: %w", err)
	}
	words, err := repos.Words.ForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user words: %w", err)
	}
	return NewView(categories, words), nil
}

// defaultView loads the shared default dictionary, used for identities that
// have no storage overlay.
func (s *Service) defaultView(ctx context.Context) (*View, error) {
	repos := s.store.Repos()

	categories, err := repos.Categories.Defaults(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default categories: %w", err)
	}
	words, err := repos.Words.DefaultsWithFeatures(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default words: %w", err)
	}
	return NewView(categories, words), nil
}
