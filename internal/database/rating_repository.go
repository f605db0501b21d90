package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwillikers/content-rating/internal/dictionary"
	"github.com/jwillikers/content-rating/internal/domain"
)

// RatingRepository manages persisted content ratings, their shared child
// rows, and their attachment to user storages.
type RatingRepository struct {
	ext sqlx.ExtContext
}

var _ dictionary.RatingRepository = (*RatingRepository)(nil)

// GetOrCreateContent finds the content identified by (title, creator,
// media) or creates it.
func (r *RatingRepository) GetOrCreateContent(ctx context.Context, content domain.Content) (*domain.Content, error) {
	query := r.ext.Rebind(`
		SELECT id, title, creator, media
		FROM contents
		WHERE title = ? AND creator = ? AND media = ?
	`)

	var found domain.Content
	err := sqlx.GetContext(ctx, r.ext, &found, query, content.Title, content.Creator, content.Media)
	if err == nil {
		return &found, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}

	id, err := insertReturningID(ctx, r.ext,
		`INSERT INTO contents (title, creator, media) VALUES (?, ?, ?)`,
		content.Title, content.Creator, content.Media,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create content: %w", err)
	}
	content.ID = id
	return &content, nil
}

// FindForContent returns the user's existing rating of the content, or
// domain.ErrNotFound.
func (r *RatingRepository) FindForContent(ctx context.Context, userID, contentID int64) (*domain.ContentRating, error) {
	query := r.ext.Rebind(`
		SELECT cr.id, cr.uuid, cr.content_id, cr.rating, cr.created, cr.updated
		FROM content_ratings cr
		JOIN user_ratings ur ON ur.rating_id = cr.id
		WHERE ur.user_id = ? AND cr.content_id = ?
	`)

	var rating domain.ContentRating
	err := sqlx.GetContext(ctx, r.ext, &rating, query, userID, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find rating: %w", err)
	}
	return &rating, nil
}

// Insert stores a new rating row, generating its UUID and timestamps when
// unset.
func (r *RatingRepository) Insert(ctx context.Context, rating *domain.ContentRating) error {
	if rating.UUID == "" {
		rating.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rating.Created.IsZero() {
		rating.Created = now
	}
	if rating.Updated.IsZero() {
		rating.Updated = now
	}

	id, err := insertReturningID(ctx, r.ext,
		`INSERT INTO content_ratings (uuid, content_id, rating, created, updated) VALUES (?, ?, ?, ?, ?)`,
		rating.UUID, rating.ContentID, rating.Rating, rating.Created, rating.Updated,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rating: %w", err)
	}
	rating.ID = id
	return nil
}

// UpdateRating sets a new overall rating and bumps updated.
func (r *RatingRepository) UpdateRating(ctx context.Context, ratingID int64, rating int) error {
	query := r.ext.Rebind(`UPDATE content_ratings SET rating = ?, updated = ? WHERE id = ?`)

	if _, err := r.ext.ExecContext(ctx, query, rating, time.Now().UTC(), ratingID); err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	return nil
}

// GetOrCreateCategoryRating finds the shared (category, rating) row or
// creates it.
func (r *RatingRepository) GetOrCreateCategoryRating(ctx context.Context, categoryID int64, rating int) (*domain.CategoryRating, error) {
	query := r.ext.Rebind(`
		SELECT cr.id, cr.category_id, c.name AS category_name, cr.rating
		FROM category_ratings cr
		JOIN categories c ON c.id = cr.category_id
		WHERE cr.category_id = ? AND cr.rating = ?
	`)

	var found domain.CategoryRating
	err := sqlx.GetContext(ctx, r.ext, &found, query, categoryID, rating)
	if err == nil {
		return &found, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get category rating: %w", err)
	}

	id, err := insertReturningID(ctx, r.ext,
		`INSERT INTO category_ratings (category_id, rating) VALUES (?, ?)`,
		categoryID, rating,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category rating: %w", err)
	}
	return &domain.CategoryRating{ID: id, CategoryID: categoryID, Rating: rating}, nil
}

// GetOrCreateWordCount finds the shared (word, count) row or creates it.
func (r *RatingRepository) GetOrCreateWordCount(ctx context.Context, wordID int64, count int) (*domain.WordCount, error) {
	query := r.ext.Rebind(`
		SELECT wc.id, wc.word_id, w.name AS word_name, wc.count
		FROM word_counts wc
		JOIN words w ON w.id = wc.word_id
		WHERE wc.word_id = ? AND wc.count = ?
	`)

	var found domain.WordCount
	err := sqlx.GetContext(ctx, r.ext, &found, query, wordID, count)
	if err == nil {
		return &found, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get word count: %w", err)
	}

	id, err := insertReturningID(ctx, r.ext,
		`INSERT INTO word_counts (word_id, count) VALUES (?, ?)`,
		wordID, count,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create word count: %w", err)
	}
	return &domain.WordCount{ID: id, WordID: wordID, Count: count}, nil
}

// LinkCategoryRating attaches a category rating child to a rating.
func (r *RatingRepository) LinkCategoryRating(ctx context.Context, ratingID, categoryRatingID int64) error {
	query := r.ext.Rebind(`
		INSERT INTO content_rating_categories (rating_id, category_rating_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`)

	if _, err := r.ext.ExecContext(ctx, query, ratingID, categoryRatingID); err != nil {
		return fmt.Errorf("failed to link category rating: %w", err)
	}
	return nil
}

// LinkWordCount attaches a word count child to a rating.
func (r *RatingRepository) LinkWordCount(ctx context.Context, ratingID, wordCountID int64) error {
	query := r.ext.Rebind(`
		INSERT INTO content_rating_word_counts (rating_id, word_count_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`)

	if _, err := r.ext.ExecContext(ctx, query, ratingID, wordCountID); err != nil {
		return fmt.Errorf("failed to link word count: %w", err)
	}
	return nil
}

// ChildIDs returns the category rating and word count rows linked to the
// rating.
func (r *RatingRepository) ChildIDs(ctx context.Context, ratingID int64) (categoryRatings, wordCounts []int64, err error) {
	crQuery := r.ext.Rebind(`SELECT category_rating_id FROM content_rating_categories WHERE rating_id = ? ORDER BY category_rating_id`)
	if err = sqlx.SelectContext(ctx, r.ext, &categoryRatings, crQuery, ratingID); err != nil {
		return nil, nil, fmt.Errorf("failed to list category rating children: %w", err)
	}

	wcQuery := r.ext.Rebind(`SELECT word_count_id FROM content_rating_word_counts WHERE rating_id = ? ORDER BY word_count_id`)
	if err = sqlx.SelectContext(ctx, r.ext, &wordCounts, wcQuery, ratingID); err != nil {
		return nil, nil, fmt.Errorf("failed to list word count children: %w", err)
	}
	return categoryRatings, wordCounts, nil
}

// UnlinkChildren removes all child links of the rating.
func (r *RatingRepository) UnlinkChildren(ctx context.Context, ratingID int64) error {
	crQuery := r.ext.Rebind(`DELETE FROM content_rating_categories WHERE rating_id = ?`)
	if _, err := r.ext.ExecContext(ctx, crQuery, ratingID); err != nil {
		return fmt.Errorf("failed to unlink category ratings: %w", err)
	}

	wcQuery := r.ext.Rebind(`DELETE FROM content_rating_word_counts WHERE rating_id = ?`)
	if _, err := r.ext.ExecContext(ctx, wcQuery, ratingID); err != nil {
		return fmt.Errorf("failed to unlink word counts: %w", err)
	}
	return nil
}

// CategoryRatingRefCount returns the number of ratings linking the child.
func (r *RatingRepository) CategoryRatingRefCount(ctx context.Context, categoryRatingID int64) (int, error) {
	query := r.ext.Rebind(`SELECT COUNT(*) FROM content_rating_categories WHERE category_rating_id = ?`)

	var count int
	if err := sqlx.GetContext(ctx, r.ext, &count, query, categoryRatingID); err != nil {
		return 0, fmt.Errorf("failed to count category rating references: %w", err)
	}
	return count, nil
}

// WordCountRefCount returns the number of ratings linking the child.
func (r *RatingRepository) WordCountRefCount(ctx context.Context, wordCountID int64) (int, error) {
	query := r.ext.Rebind(`SELECT COUNT(*) FROM content_rating_word_counts WHERE word_count_id = ?`)

	var count int
	if err := sqlx.GetContext(ctx, r.ext, &count, query, wordCountID); err != nil {
		return 0, fmt.Errorf("failed to count word count references: %w", err)
	}
	return count, nil
}

// DeleteCategoryRating removes the shared category rating row.
func (r *RatingRepository) DeleteCategoryRating(ctx context.Context, categoryRatingID int64) error {
	query := r.ext.Rebind(`DELETE FROM category_ratings WHERE id = ?`)

	if _, err := r.ext.ExecContext(ctx, query, categoryRatingID); err != nil {
		return fmt.Errorf("failed to delete category rating: %w", err)
	}
	return nil
}

// DeleteWordCount removes the shared word count row.
func (r *RatingRepository) DeleteWordCount(ctx context.Context, wordCountID int64) error {
	query := r.ext.Rebind(`DELETE FROM word_counts WHERE id = ?`)

	if _, err := r.ext.ExecContext(ctx, query, wordCountID); err != nil {
		return fmt.Errorf("failed to delete word count: %w", err)
	}
	return nil
}

// AttachToUser links a rating into the user's storage. Idempotent.
func (r *RatingRepository) AttachToUser(ctx context.Context, userID, ratingID int64) error {
	query := r.ext.Rebind(`
		INSERT INTO user_ratings (user_id, rating_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`)

	if _, err := r.ext.ExecContext(ctx, query, userID, ratingID); err != nil {
		return fmt.Errorf("failed to attach rating: %w", err)
	}
	return nil
}

// DetachFromUser removes a rating from the user's storage.
func (r *RatingRepository) DetachFromUser(ctx context.Context, userID, ratingID int64) error {
	query := r.ext.Rebind(`
		DELETE FROM user_ratings
		WHERE user_id = ? AND rating_id = ?
	`)

	if _, err := r.ext.ExecContext(ctx, query, userID, ratingID); err != nil {
		return fmt.Errorf("failed to detach rating: %w", err)
	}
	return nil
}

// UserRefCount returns the number of user storages holding the rating.
func (r *RatingRepository) UserRefCount(ctx context.Context, ratingID int64) (int, error) {
	query := r.ext.Rebind(`SELECT COUNT(*) FROM user_ratings WHERE rating_id = ?`)

	var count int
	if err := sqlx.GetContext(ctx, r.ext, &count, query, ratingID); err != nil {
		return 0, fmt.Errorf("failed to count rating references: %w", err)
	}
	return count, nil
}

// CountForUser returns how many ratings the user currently retains.
func (r *RatingRepository) CountForUser(ctx context.Context, userID int64) (int, error) {
	query := r.ext.Rebind(`SELECT COUNT(*) FROM user_ratings WHERE user_id = ?`)

	var count int
	if err := sqlx.GetContext(ctx, r.ext, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count user ratings: %w", err)
	}
	return count, nil
}

// OldestForUser returns the user's rating with the oldest updated
// timestamp.
func (r *RatingRepository) OldestForUser(ctx context.Context, userID int64) (*domain.ContentRating, error) {
	query := r.ext.Rebind(`
		SELECT cr.id, cr.uuid, cr.content_id, cr.rating, cr.created, cr.updated
		FROM content_ratings cr
		JOIN user_ratings ur ON ur.rating_id = cr.id
		WHERE ur.user_id = ?
		ORDER BY cr.updated ASC, cr.id ASC
		LIMIT 1
	`)

	var rating domain.ContentRating
	err := sqlx.GetContext(ctx, r.ext, &rating, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get oldest rating: %w", err)
	}
	return &rating, nil
}

// ForUser returns the user's ratings newest-first with content and children
// populated.
func (r *RatingRepository) ForUser(ctx context.Context, userID int64) ([]domain.ContentRating, error) {
	query := r.ext.Rebind(`
		SELECT cr.id, cr.uuid, cr.content_id, cr.rating, cr.created, cr.updated
		FROM content_ratings cr
		JOIN user_ratings ur ON ur.rating_id = cr.id
		WHERE ur.user_id = ?
		ORDER BY cr.updated DESC, cr.id DESC
	`)

	var ratings []domain.ContentRating
	if err := sqlx.SelectContext(ctx, r.ext, &ratings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user ratings: %w", err)
	}

	for i := range ratings {
		if err := r.populate(ctx, &ratings[i]); err != nil {
			return nil, err
		}
	}
	return ratings, nil
}

// populate loads the content row and child rows of one rating.
func (r *RatingRepository) populate(ctx context.Context, rating *domain.ContentRating) error {
	contentQuery := r.ext.Rebind(`SELECT id, title, creator, media FROM contents WHERE id = ?`)
	if err := sqlx.GetContext(ctx, r.ext, &rating.Content, contentQuery, rating.ContentID); err != nil {
		return fmt.Errorf("failed to get rating content: %w", err)
	}

	crQuery := r.ext.Rebind(`
		SELECT cr.id, cr.category_id, c.name AS category_name, cr.rating
		FROM category_ratings cr
		JOIN categories c ON c.id = cr.category_id
		JOIN content_rating_categories link ON link.category_rating_id = cr.id
		WHERE link.rating_id = ?
		ORDER BY c.name
	`)
	if err := sqlx.SelectContext(ctx, r.ext, &rating.CategoryRatings, crQuery, rating.ID); err != nil {
		return fmt.Errorf("failed to list rating categories: %w", err)
	}

	wcQuery := r.ext.Rebind(`
		SELECT wc.id, wc.word_id, w.name AS word_name, wc.count
		FROM word_counts wc
		JOIN words w ON w.id = wc.word_id
		JOIN content_rating_word_counts link ON link.word_count_id = wc.id
		WHERE link.rating_id = ?
		ORDER BY w.name
	`)
	if err := sqlx.SelectContext(ctx, r.ext, &rating.WordCounts, wcQuery, rating.ID); err != nil {
		return fmt.Errorf("failed to list rating word counts: %w", err)
	}
	return nil
}

// Delete removes the rating row.
func (r *RatingRepository) Delete(ctx context.Context, ratingID int64) error {
	query := r.ext.Rebind(`DELETE FROM content_ratings WHERE id = ?`)

	if _, err := r.ext.ExecContext(ctx, query, ratingID); err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	return nil
}

// ContentRefCount returns the number of ratings referencing the content.
func (r *RatingRepository) ContentRefCount(ctx context.Context, contentID int64) (int, error) {
	query := r.ext.Rebind(`SELECT COUNT(*) FROM content_ratings WHERE content_id = ?`)

	var count int
	if err := sqlx.GetContext(ctx, r.ext, &count, query, contentID); err != nil {
		return 0, fmt.Errorf("failed to count content references: %w", err)
	}
	return count, nil
}

// DeleteContent removes the content row.
func (r *RatingRepository) DeleteContent(ctx context.Context, contentID int64) error {
	query := r.ext.Rebind(`DELETE FROM contents WHERE id = ?`)

	if _, err := r.ext.ExecContext(ctx, query, contentID); err != nil {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}
