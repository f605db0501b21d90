package dictionary

import (
	"context"
	"fmt"

	"github.com/jwillikers/content-rating/internal/domain"
	"github.com/jwillikers/content-rating/internal/logging"
)

// SeedCategory is one default category to install.
type SeedCategory struct {
	Name   string
	Weight domain.Weight
}

// SeedWord is one default word together with its classification features,
// each keyed by category name.
type SeedWord struct {
	Name     string
	Features []SeedFeature
}

// SeedFeature is one default (category, strength, weight) feature of a word.
type SeedFeature struct {
	Category string
	Strength domain.Strength
	Weight   domain.Weight
}

// SeedDefaults installs the default dictionary. Rows are get-or-created by
// signature, so reseeding an already populated database is idempotent and
// never duplicates or disturbs user customizations.
func (s *Service) SeedDefaults(ctx context.Context, categories []SeedCategory, words []SeedWord) error {
	return s.store.InTx(ctx, func(repos Repositories) error {
		byName := make(map[string]int64, len(categories))
		for _, sc := range categories {
			if !sc.Weight.Valid() {
				return fmt.Errorf("category %q: %w", sc.Name, domain.ErrInvalidWeight)
			}
			category, err := repos.Categories.GetOrCreate(ctx, sc.Name, sc.Weight, domain.OriginDefault)
			if err != nil {
				return fmt.Errorf("seed category %q: %w", sc.Name, err)
			}
			byName[sc.Name] = category.ID
		}

		for _, sw := range words {
			word, err := repos.Words.GetOrCreate(ctx, sw.Name, domain.OriginDefault)
			if err != nil {
				return fmt.Errorf("seed word %q: %w", sw.Name, err)
			}
			for _, sf := range sw.Features {
				categoryID, ok := byName[sf.Category]
				if !ok {
					return fmt.Errorf("word %q references unknown category %q", sw.Name, sf.Category)
				}
				if !sf.Strength.Valid() {
					return fmt.Errorf("word %q: %w", sw.Name, domain.ErrInvalidStrength)
				}
				if !sf.Weight.Valid() {
					return fmt.Errorf("word %q: %w", sw.Name, domain.ErrInvalidWeight)
				}
				feature, err := repos.Words.GetOrCreateFeature(ctx, categoryID, sf.Strength, sf.Weight, domain.OriginDefault)
				if err != nil {
					return fmt.Errorf("seed feature for %q in %q: %w", sw.Name, sf.Category, err)
				}
				if err := repos.Words.LinkFeature(ctx, word.ID, feature.ID); err != nil {
					return fmt.Errorf("link feature for %q: %w", sw.Name, err)
				}
			}
		}

		s.logger.Info("default dictionary seeded",
			logging.Int("categories", len(categories)),
			logging.Int("words", len(words)),
		)
		return nil
	})
}
