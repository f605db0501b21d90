package dictionary

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwillikers/content-rating/internal/domain"
	"github.com/jwillikers/content-rating/internal/logging"
	"github.com/jwillikers/content-rating/internal/telemetry"
)

// Service owns dictionary reads, per-user weight edits, and the row
// lifecycle. All mutations run inside a transaction under a striped lock
// scoped to the edited (user, word-or-category) key, so concurrent edits
// never create duplicate signature rows or delete a row another edit just
// started referencing. Races that slip through the store's isolation
// surface as domain.ErrConflict, which callers may retry.
type Service struct {
	store     Store
	locks     KeyMutex
	userLocks KeyMutex
	logger    logging.Logger
	telemetry *telemetry.Provider
}

// NewService creates a dictionary service over the given store.
func NewService(store Store, logger logging.Logger, tp *telemetry.Provider) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{store: store, logger: logger, telemetry: tp}
}

// GetWordWeight resolves the effective weight of (word, category) for the
// user: the user-owned feature when present, else the default one.
func (s *Service) GetWordWeight(ctx context.Context, userID int64, wordName, categoryName string) (domain.Weight, error) {
	feature, err := s.resolveFeature(ctx, userID, wordName, categoryName)
	if err != nil {
		return 0, err
	}
	return feature.Weight, nil
}

// GetCategoryWeight resolves the effective weight of a category for the
// user: the user-owned row when present, else the default one.
func (s *Service) GetCategoryWeight(ctx context.Context, userID int64, categoryName string) (domain.Weight, error) {
	repos := s.store.Repos()
	category, err := repos.Categories.GetForUser(ctx, userID, categoryName)
	if errors.Is(err, domain.ErrNotFound) {
		category, err = repos.Categories.GetDefault(ctx, categoryName)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve category %q: %w", categoryName, err)
	}
	return category.Weight, nil
}

// UpdateUserWordWeight changes the user's effective weight for (word,
// category). Equal weight is a no-op. Otherwise the user is relinked to a
// feature row with the same (category, strength) and the new weight,
// get-or-created so signatures stay unique, and the old row is deleted when
// it was custom and no storage references it anymore.
func (s *Service) UpdateUserWordWeight(ctx context.Context, userID int64, wordName, categoryName string, newWeight domain.Weight) error {
	if !newWeight.Valid() {
		return domain.ErrInvalidWeight
	}

	mu := s.locks.Lock(fmt.Sprintf("word:%d:%s:%s", userID, wordName, categoryName))
	defer mu.Unlock()

	var changed bool
	err := s.store.InTx(ctx, func(repos Repositories) error {
		word, err := repos.Words.GetByName(ctx, wordName)
		if err != nil {
			return fmt.Errorf("resolve word %q: %w", wordName, err)
		}
		category, err := s.effectiveCategory(ctx, repos, userID, categoryName)
		if err != nil {
			return err
		}

		// The user link can be gone when an edit to another word dropped a
		// shared default row; the default feature then still governs.
		current, err := repos.Words.FeatureForUser(ctx, userID, word.ID, category.ID)
		if errors.Is(err, domain.ErrNotFound) {
			current, err = repos.Words.DefaultFeature(ctx, word.ID, category.ID)
		}
		if err != nil {
			return fmt.Errorf("resolve feature for user %d: %w", userID, err)
		}
		if current.Weight == newWeight {
			return nil
		}
		changed = true

		replacement, err := repos.Words.GetOrCreateFeature(ctx, current.CategoryID, current.Strength, newWeight, domain.OriginCustom)
		if err != nil {
			return fmt.Errorf("get or create feature: %w", err)
		}
		if err = repos.Words.LinkFeature(ctx, word.ID, replacement.ID); err != nil {
			return fmt.Errorf("link feature to word: %w", err)
		}
		if err = repos.Words.LinkFeatureToUser(ctx, userID, replacement.ID); err != nil {
			return fmt.Errorf("link feature to user: %w", err)
		}
		if err = repos.Words.UnlinkFeatureFromUser(ctx, userID, current.ID); err != nil {
			return fmt.Errorf("unlink old feature: %w", err)
		}
		return s.deleteFeatureIfOrphaned(ctx, repos, current)
	})
	if err != nil {
		s.recordConflict(err)
		return err
	}
	if !changed {
		return nil
	}

	s.telemetry.RecordDictionaryEdit("word")
	s.logger.Info("word weight updated",
		logging.Int64("user_id", userID),
		logging.String("word", wordName),
		logging.String("category", categoryName),
		logging.Int("weight", int(newWeight)),
	)
	return nil
}

// UpdateUserCategoryWeight changes the user's effective weight for a
// category, following the same get-or-create, relink, orphan-delete pattern
// as word edits.
func (s *Service) UpdateUserCategoryWeight(ctx context.Context, userID int64, categoryName string, newWeight domain.Weight) error {
	if !newWeight.Valid() {
		return domain.ErrInvalidWeight
	}

	mu := s.locks.Lock(fmt.Sprintf("category:%d:%s", userID, categoryName))
	defer mu.Unlock()

	var changed bool
	err := s.store.InTx(ctx, func(repos Repositories) error {
		current, err := repos.Categories.GetForUser(ctx, userID, categoryName)
		if err != nil {
			return fmt.Errorf("resolve category %q for user %d: %w", categoryName, userID, err)
		}
		if current.Weight == newWeight {
			return nil
		}
		changed = true

		replacement, err := repos.Categories.GetOrCreate(ctx, categoryName, newWeight, domain.OriginCustom)
		if err != nil {
			return fmt.Errorf("get or create category: %w", err)
		}
		if err = repos.Categories.Link(ctx, userID, replacement.ID); err != nil {
			return fmt.Errorf("link category to user: %w", err)
		}
		if err = repos.Categories.Unlink(ctx, userID, current.ID); err != nil {
			return fmt.Errorf("unlink old category: %w", err)
		}
		return s.deleteCategoryIfOrphaned(ctx, repos, current)
	})
	if err != nil {
		s.recordConflict(err)
		return err
	}
	if !changed {
		return nil
	}

	s.telemetry.RecordDictionaryEdit("category")
	s.logger.Info("category weight updated",
		logging.Int64("user_id", userID),
		logging.String("category", categoryName),
		logging.Int("weight", int(newWeight)),
	)
	return nil
}

// CreateUserStorage initializes a user's overlay with every default
// category, word, and word feature, mirroring the shared dictionary at
// creation time.
func (s *Service) CreateUserStorage(ctx context.Context, userID int64) error {
	mu := s.userLocks.Lock(fmt.Sprintf("storage:%d", userID))
	defer mu.Unlock()

	return s.store.InTx(ctx, func(repos Repositories) error {
		exists, err := repos.Users.Exists(ctx, userID)
		if err != nil {
			return fmt.Errorf("check user storage: %w", err)
		}
		if exists {
			return nil
		}
		if err = repos.Users.Create(ctx, userID); err != nil {
			return fmt.Errorf("create user storage: %w", err)
		}

		categories, err := repos.Categories.Defaults(ctx)
		if err != nil {
			return fmt.Errorf("load default categories: %w", err)
		}
		for _, c := range categories {
			if err = repos.Categories.Link(ctx, userID, c.ID); err != nil {
				return fmt.Errorf("link default category %q: %w", c.Name, err)
			}
		}

		words, err := repos.Words.DefaultsWithFeatures(ctx)
		if err != nil {
			return fmt.Errorf("load default words: %w", err)
		}
		for _, w := range words {
			if err = repos.Words.Link(ctx, userID, w.ID); err != nil {
				return fmt.Errorf("link default word %q: %w", w.Name, err)
			}
		}

		features, err := repos.Words.DefaultFeatures(ctx)
		if err != nil {
			return fmt.Errorf("load default features: %w", err)
		}
		for _, f := range features {
			if err = repos.Words.LinkFeatureToUser(ctx, userID, f.ID); err != nil {
				return fmt.Errorf("link default feature %d: %w", f.ID, err)
			}
		}
		return nil
	})
}

// DeleteUserStorage removes a user's overlay and cascades over everything
// the user exclusively owned, leaf records first: rating children, ratings,
// word features, words, categories. Default rows always survive.
func (s *Service) DeleteUserStorage(ctx context.Context, userID int64) error {
	mu := s.userLocks.Lock(fmt.Sprintf("storage:%d", userID))
	defer mu.Unlock()

	err := s.store.InTx(ctx, func(repos Repositories) error {
		exists, err := repos.Users.Exists(ctx, userID)
		if err != nil {
			return fmt.Errorf("check user storage: %w", err)
		}
		if !exists {
			return domain.ErrNoUserStorage
		}

		if err = s.dropUserRatings(ctx, repos, userID); err != nil {
			return err
		}
		if err = s.dropUserFeatures(ctx, repos, userID); err != nil {
			return err
		}
		if err = s.dropUserWords(ctx, repos, userID); err != nil {
			return err
		}
		if err = s.dropUserCategories(ctx, repos, userID); err != nil {
			return err
		}
		if err = repos.Users.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user storage row: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.telemetry != nil && s.telemetry.Metrics != nil {
		s.telemetry.Metrics.CascadesExecuted.Inc()
	}
	s.logger.Info("user storage deleted", logging.Int64("user_id", userID))
	return nil
}

// resolveFeature returns the user's effective feature for (word, category),
// falling back to the default feature when the user has no overlay link.
func (s *Service) resolveFeature(ctx context.Context, userID int64, wordName, categoryName string) (*domain.WordFeature, error) {
	repos := s.store.Repos()

	word, err := repos.Words.GetByName(ctx, wordName)
	if err != nil {
		return nil, fmt.Errorf("resolve word %q: %w", wordName, err)
	}
	category, err := s.effectiveCategory(ctx, repos, userID, categoryName)
	if err != nil {
		return nil, err
	}

	feature, err := repos.Words.FeatureForUser(ctx, userID, word.ID, category.ID)
	if errors.Is(err, domain.ErrNotFound) {
		feature, err = repos.Words.DefaultFeature(ctx, word.ID, category.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve feature (%s, %s): %w", wordName, categoryName, err)
	}
	return feature, nil
}

// recordConflict counts edits that lost a race and surfaced
// domain.ErrConflict. Callers still see the error and may retry.
func (s *Service) recordConflict(err error) {
	if !errors.Is(err, domain.ErrConflict) {
		return
	}
	if s.telemetry != nil && s.telemetry.Metrics != nil {
		s.telemetry.Metrics.DictionaryConflicts.Inc()
	}
}

// effectiveCategory resolves the category features are keyed by. Word
// features always reference the default category row regardless of the
// user's weight override.
func (s *Service) effectiveCategory(ctx context.Context, repos Repositories, userID int64, name string) (*domain.Category, error) {
	category, err := repos.Categories.GetDefault(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		category, err = repos.Categories.GetForUser(ctx, userID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve category %q: %w", name, err)
	}
	return category, nil
}

func (s *Service) deleteFeatureIfOrphaned(ctx context.Context, repos Repositories, feature *domain.WordFeature) error {
	if feature.Origin == domain.OriginDefault {
		return nil
	}
	refs, err := repos.Words.FeatureUserRefCount(ctx, feature.ID)
	if err != nil {
		return fmt.Errorf("count feature references: %w", err)
	}
	if refs > 0 {
		return nil
	}
	if err := repos.Words.DeleteFeature(ctx, feature.ID); err != nil {
		return fmt.Errorf("delete orphaned feature %d: %w", feature.ID, err)
	}
	s.telemetry.RecordOrphanDelete("feature")
	return nil
}

func (s *Service) deleteCategoryIfOrphaned(ctx context.Context, repos Repositories, category *domain.Category) error {
	if category.Origin == domain.OriginDefault {
		return nil
	}
	users, features, ratings, err := repos.Categories.RefCounts(ctx, category.ID)
	if err != nil {
		return fmt.Errorf("count category references: %w", err)
	}
	if users > 0 || features > 0 || ratings > 0 {
		return nil
	}
	if err := repos.Categories.Delete(ctx, category.ID); err != nil {
		return fmt.Errorf("delete orphaned category %d: %w", category.ID, err)
	}
	s.telemetry.RecordOrphanDelete("category")
	return nil
}

// dropUserRatings detaches and, where orphaned, deletes the user's content
// ratings together with their shared children.
func (s *Service) dropUserRatings(ctx context.Context, repos Repositories, userID int64) error {
	ratings, err := repos.Ratings.ForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list user ratings: %w", err)
	}
	for i := range ratings {
		if err := DeleteRatingForUser(ctx, repos, userID, &ratings[i]); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRatingForUser detaches one rating from the user and deletes the
// rating plus any now-orphaned children when no other storage references
// it. Shared with the history retention eviction path.
func DeleteRatingForUser(ctx context.Context, repos Repositories, userID int64, rating *domain.ContentRating) error {
	if err := repos.Ratings.DetachFromUser(ctx, userID, rating.ID); err != nil {
		return fmt.Errorf("detach rating %d: %w", rating.ID, err)
	}
	refs, err := repos.Ratings.UserRefCount(ctx, rating.ID)
	if err != nil {
		return fmt.Errorf("count rating references: %w", err)
	}
	if refs > 0 {
		return nil
	}

	categoryRatings, wordCounts, err := repos.Ratings.ChildIDs(ctx, rating.ID)
	if err != nil {
		return fmt.Errorf("list rating children: %w", err)
	}
	if err = repos.Ratings.UnlinkChildren(ctx, rating.ID); err != nil {
		return fmt.Errorf("unlink rating children: %w", err)
	}

	// Leaves before owners: children, then the rating, then the content.
	for _, id := range categoryRatings {
		if err = DeleteCategoryRatingIfOrphaned(ctx, repos, id); err != nil {
			return err
		}
	}
	for _, id := range wordCounts {
		if err = DeleteWordCountIfOrphaned(ctx, repos, id); err != nil {
			return err
		}
	}
	if err = repos.Ratings.Delete(ctx, rating.ID); err != nil {
		return fmt.Errorf("delete rating %d: %w", rating.ID, err)
	}

	contentRefs, err := repos.Ratings.ContentRefCount(ctx, rating.ContentID)
	if err != nil {
		return fmt.Errorf("count content references: %w", err)
	}
	if contentRefs == 0 {
		if err = repos.Ratings.DeleteContent(ctx, rating.ContentID); err != nil {
			return fmt.Errorf("delete content %d: %w", rating.ContentID, err)
		}
	}
	return nil
}

// DeleteCategoryRatingIfOrphaned removes a shared category rating row
// once nothing links it.
func DeleteCategoryRatingIfOrphaned(ctx context.Context, repos Repositories, id int64) error {
	refs, err := repos.Ratings.CategoryRatingRefCount(ctx, id)
	if err != nil {
		return fmt.Errorf("count category rating references: %w", err)
	}
	if refs > 0 {
		return nil
	}
	if err := repos.Ratings.DeleteCategoryRating(ctx, id); err != nil {
		return fmt.Errorf("delete category rating %d: %w", id, err)
	}
	return nil
}

// DeleteWordCountIfOrphaned removes a shared word count row once nothing
// links it.
func DeleteWordCountIfOrphaned(ctx context.Context, repos Repositories, id int64) error {
	refs, err := repos.Ratings.WordCountRefCount(ctx, id)
	if err != nil {
		return fmt.Errorf("count word count references: %w", err)
	}
	if refs > 0 {
		return nil
	}
	if err := repos.Ratings.DeleteWordCount(ctx, id); err != nil {
		return fmt.Errorf("delete word count %d: %w", id, err)
	}
	return nil
}

func (s *Service) dropUserFeatures(ctx context.Context, repos Repositories, userID int64) error {
	featureIDs, err := repos.Users.FeatureIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("list user features: %w", err)
	}
	for _, id := range featureIDs {
		if err := repos.Words.UnlinkFeatureFromUser(ctx, userID, id); err != nil {
			return fmt.Errorf("unlink feature %d: %w", id, err)
		}
		feature, err := repos.Words.FeatureByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return fmt.Errorf("resolve feature %d: %w", id, err)
		}
		if err := s.deleteFeatureIfOrphaned(ctx, repos, feature); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) dropUserWords(ctx context.Context, repos Repositories, userID int64) error {
	wordIDs, err := repos.Users.WordIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("list user words: %w", err)
	}
	for _, id := range wordIDs {
		if err := repos.Words.Unlink(ctx, userID, id); err != nil {
			return fmt.Errorf("unlink word %d: %w", id, err)
		}
		word, err := repos.Words.ByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return fmt.Errorf("resolve word %d: %w", id, err)
		}
		if word.Origin == domain.OriginDefault {
			continue
		}
		users, wordCounts, err := repos.Words.RefCounts(ctx, id)
		if err != nil {
			return fmt.Errorf("count word references: %w", err)
		}
		if users > 0 || wordCounts > 0 {
			continue
		}
		if err := repos.Words.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete orphaned word %d: %w", id, err)
		}
		s.telemetry.RecordOrphanDelete("word")
	}
	return nil
}

func (s *Service) dropUserCategories(ctx context.Context, repos Repositories, userID int64) error {
	categoryIDs, err := repos.Users.CategoryIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("list user categories: %w", err)
	}
	for _, id := range categoryIDs {
		if err := repos.Categories.Unlink(ctx, userID, id); err != nil {
			return fmt.Errorf("unlink category %d: %w", id, err)
		}
	}
	// Second pass after all unlinks so shared custom rows are not kept
	// alive by links this same cascade is about to remove.
	for _, id := range categoryIDs {
		category, err := repos.Categories.ByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return fmt.Errorf("resolve category %d: %w", id, err)
		}
		if err := s.deleteCategoryIfOrphaned(ctx, repos, category); err != nil {
			return err
		}
	}
	return nil
}
