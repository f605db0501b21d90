package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/jwillikers/content-rating/internal/classifier"
	"github.com/jwillikers/content-rating/internal/config"
	"github.com/jwillikers/content-rating/internal/dictionary"
	"github.com/jwillikers/content-rating/internal/domain"
	"github.com/jwillikers/content-rating/internal/logging"
	"github.com/jwillikers/content-rating/internal/telemetry"
	"github.com/jwillikers/content-rating/internal/tokenizer"
)

// ErrInvalidContentType indicates an unknown media type on a rating request.
var ErrInvalidContentType = errors.New("invalid content type")

// Service runs the rating pipeline and persists rating history. Each
// request gets its own classifier built from the user's effective
// dictionary; the service itself is safe for concurrent use.
type Service struct {
	tokenizer  *tokenizer.Tokenizer
	dictionary *dictionary.Service
	store      dictionary.Store
	limiter    *rate.Limiter
	userLocks  dictionary.KeyMutex
	logger     logging.Logger
	telemetry  *telemetry.Provider
}

// NewService wires the pipeline. A submissions-per-second setting of zero
// or below disables rate limiting.
func NewService(
	tok *tokenizer.Tokenizer,
	dict *dictionary.Service,
	store dictionary.Store,
	cfg config.RatingConfig,
	logger logging.Logger,
	tp *telemetry.Provider,
) *Service {
	if logger == nil {
		logger = logging.Nop()
	}

	var limiter *rate.Limiter
	if cfg.SubmissionsPerSecond > 0 {
		burst := cfg.SubmissionBurst
		if burst < 1 {
			burst = cfg.SubmissionsPerSecond
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.SubmissionsPerSecond), burst)
	}

	return &Service{
		tokenizer:  tok,
		dictionary: dict,
		store:      store,
		limiter:    limiter,
		logger:     logger,
		telemetry:  tp,
	}
}

// RateText runs tokenize, classify, aggregate, rate over the text using
// the user's effective dictionary.
func (s *Service) RateText(ctx context.Context, userID int64, text string, contentType domain.ContentType) (*domain.RatingResult, error) {
	if !contentType.Valid() {
		return nil, ErrInvalidContentType
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	ctx, span := s.telemetry.StartSpan(ctx, "rating.rate_text")
	defer span.End()

	start := time.Now()

	view, err := s.dictionary.ViewForUser(ctx, userID)
	if err != nil {
		s.recordFailure()
		return nil, fmt.Errorf("load dictionary view: %w", err)
	}

	sentences, err := s.tokenizer.Tokenize(text, contentType)
	if err != nil {
		s.recordFailure()
		return nil, fmt.Errorf("tokenize text: %w", err)
	}

	annotations := classifier.New(view, s.logger, s.telemetry).Classify(sentences)
	result := Rate(Aggregate(annotations), view.Categories())

	s.telemetry.RecordRating(contentType.String(), time.Since(start))
	s.logger.Debug("text rated",
		logging.Int64("user_id", userID),
		logging.String("content_type", contentType.String()),
		logging.Int("sentences", len(sentences)),
		logging.Int("overall", result.Overall),
	)
	return result, nil
}

func (s *Service) recordFailure() {
	if s.telemetry != nil && s.telemetry.Metrics != nil {
		s.telemetry.Metrics.RatingsFailed.Inc()
	}
}

// SaveRating persists a rating result to the user's history. Re-rating the
// same content updates the existing row; otherwise the oldest retained
// rating is evicted once the user holds domain.MaxRetainedRatings.
func (s *Service) SaveRating(ctx context.Context, userID int64, content domain.Content, result *domain.RatingResult) (*domain.ContentRating, error) {
	if !content.Media.Valid() {
		return nil, ErrInvalidContentType
	}

	mu := s.userLocks.Lock(fmt.Sprintf("history:%d", userID))
	defer mu.Unlock()

	var saved *domain.ContentRating
	err := s.store.InTx(ctx, func(repos dictionary.Repositories) error {
		exists, err := repos.Users.Exists(ctx, userID)
		if err != nil {
			return fmt.Errorf("check user storage: %w", err)
		}
		if !exists {
			return domain.ErrNoUserStorage
		}

		stored, err := repos.Ratings.GetOrCreateContent(ctx, content)
		if err != nil {
			return fmt.Errorf("get or create content: %w", err)
		}

		existing, err := repos.Ratings.FindForContent(ctx, userID, stored.ID)
		switch {
		case err == nil:
			saved, err = s.updateRating(ctx, repos, userID, existing, stored, result)
			return err
		case errors.Is(err, domain.ErrNotFound):
			saved, err = s.insertRating(ctx, repos, userID, stored, result)
			return err
		default:
			return fmt.Errorf("find existing rating: %w", err)
		}
	})
	if err != nil {
		return nil, err
	}

	if s.telemetry != nil && s.telemetry.Metrics != nil {
		s.telemetry.Metrics.RatingsSaved.Inc()
	}
	s.logger.Info("rating saved",
		logging.Int64("user_id", userID),
		logging.String("title", content.Title),
		logging.Int("rating", saved.Rating),
	)
	return saved, nil
}

// insertRating stores a new rating, evicting the oldest retained one when
// the user is at the retention cap.
func (s *Service) insertRating(ctx context.Context, repos dictionary.Repositories, userID int64, content *domain.Content, result *domain.RatingResult) (*domain.ContentRating, error) {
	count, err := repos.Ratings.CountForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count user ratings: %w", err)
	}
	for ; count >= domain.MaxRetainedRatings; count-- {
		oldest, err := repos.Ratings.OldestForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("find oldest rating: %w", err)
		}
		if err = dictionary.DeleteRatingForUser(ctx, repos, userID, oldest); err != nil {
			return nil, err
		}
		if s.telemetry != nil && s.telemetry.Metrics != nil {
			s.telemetry.Metrics.RatingsEvicted.Inc()
		}
	}

	rating := &domain.ContentRating{
		ContentID: content.ID,
		Content:   *content,
		Rating:    result.Overall,
	}
	if err = repos.Ratings.Insert(ctx, rating); err != nil {
		return nil, err
	}
	if err = s.linkChildren(ctx, repos, userID, rating, result); err != nil {
		return nil, err
	}
	if err = repos.Ratings.AttachToUser(ctx, userID, rating.ID); err != nil {
		return nil, fmt.Errorf("attach rating: %w", err)
	}
	return rating, nil
}

// updateRating refreshes an existing rating in place: new overall value,
// bumped updated timestamp, and children relinked to the new result.
func (s *Service) updateRating(ctx context.Context, repos dictionary.Repositories, userID int64, existing *domain.ContentRating, content *domain.Content, result *domain.RatingResult) (*domain.ContentRating, error) {
	if err := repos.Ratings.UpdateRating(ctx, existing.ID, result.Overall); err != nil {
		return nil, err
	}

	categoryRatings, wordCounts, err := repos.Ratings.ChildIDs(ctx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("list rating children: %w", err)
	}
	if err = repos.Ratings.UnlinkChildren(ctx, existing.ID); err != nil {
		return nil, fmt.Errorf("unlink rating children: %w", err)
	}

	existing.Rating = result.Overall
	existing.Content = *content
	existing.CategoryRatings = nil
	existing.WordCounts = nil
	if err = s.linkChildren(ctx, repos, userID, existing, result); err != nil {
		return nil, err
	}

	// Former children may have lost their last reference.
	for _, id := range categoryRatings {
		if err = dictionary.DeleteCategoryRatingIfOrphaned(ctx, repos, id); err != nil {
			return nil, err
		}
	}
	for _, id := range wordCounts {
		if err = dictionary.DeleteWordCountIfOrphaned(ctx, repos, id); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

// linkChildren get-or-creates the shared category rating and word count
// rows for the result and links them to the rating.
func (s *Service) linkChildren(ctx context.Context, repos dictionary.Repositories, userID int64, rating *domain.ContentRating, result *domain.RatingResult) error {
	for name, value := range result.CategoryRatings {
		category, err := repos.Categories.GetDefault(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			category, err = repos.Categories.GetForUser(ctx, userID, name)
		}
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return fmt.Errorf("resolve category %q: %w", name, err)
		}

		child, err := repos.Ratings.GetOrCreateCategoryRating(ctx, category.ID, value)
		if err != nil {
			return fmt.Errorf("get or create category rating: %w", err)
		}
		if err = repos.Ratings.LinkCategoryRating(ctx, rating.ID, child.ID); err != nil {
			return fmt.Errorf("link category rating: %w", err)
		}
		rating.CategoryRatings = append(rating.CategoryRatings, *child)
	}

	for name, count := range result.WordCounts() {
		word, err := repos.Words.GetByName(ctx, name)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return fmt.Errorf("resolve word %q: %w", name, err)
		}

		child, err := repos.Ratings.GetOrCreateWordCount(ctx, word.ID, count)
		if err != nil {
			return fmt.Errorf("get or create word count: %w", err)
		}
		if err = repos.Ratings.LinkWordCount(ctx, rating.ID, child.ID); err != nil {
			return fmt.Errorf("link word count: %w", err)
		}
		rating.WordCounts = append(rating.WordCounts, *child)
	}
	return nil
}

// UserRatings returns the user's retained ratings newest-first.
func (s *Service) UserRatings(ctx context.Context, userID int64) ([]domain.ContentRating, error) {
	return s.store.Repos().Ratings.ForUser(ctx, userID)
}

// RatingAt returns the user's rating at the given newest-first position.
func (s *Service) RatingAt(ctx context.Context, userID int64, position int) (*domain.ContentRating, error) {
	ratings, err := s.UserRatings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= len(ratings) {
		return nil, domain.ErrNotFound
	}
	return &ratings[position], nil
}
