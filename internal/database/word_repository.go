package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwillikers/content-rating/internal/dictionary"
	"github.com/jwillikers/content-rating/internal/domain"
)

// WordRepository handles database operations for word and word feature
// rows, their links to each other, and their user links.
type WordRepository struct {
	ext sqlx.ExtContext
}

var _ dictionary.WordRepository = (*WordRepository)(nil)

// featureColumns selects a feature row joined with its category name.
const featureColumns = `
	f.id, f.category_id, c.name AS category_name, f.strength, f.weight, f.origin
`

// ForUser returns the user's effective words, each carrying only that
// user's effective features.
func (r *WordRepository) ForUser(ctx context.Context, userID int64) ([]domain.Word, error) {
	wordQuery := r.ext.Rebind(`
		SELECT w.id, w.name, w.origin
		FROM words w
		JOIN user_words uw ON uw.word_id = w.id
		WHERE uw.user_id = ?
		ORDER BY w.name
	`)

	var words []domain.Word
	if err := sqlx.SelectContext(ctx, r.ext, &words, wordQuery, userID); err != nil {
		return nil, fmt.Errorf("failed to list user words: %w", err)
	}
	if len(words) == 0 {
		return words, nil
	}

	featureQuery := r.ext.Rebind(`
		SELECT wfl.word_id, ` + featureColumns + `
		FROM word_features f
		JOIN categories c ON c.id = f.category_id
		JOIN word_feature_links wfl ON wfl.feature_id = f.id
		JOIN user_word_features uwf ON uwf.feature_id = f.id
		WHERE uwf.user_id = ?
		ORDER BY wfl.word_id, c.name
	`)

	rows, err := r.ext.QueryxContext(ctx, featureQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user word features: %w", err)
	}
	byWord, err := collectWordFeatures(rows)
	if err != nil {
		return nil, err
	}

	// Default features are shared between words, so editing one word can
	// drop the user's link to a row another word still needs. Any (word,
	// category) without a user-linked feature falls back to the word's
	// default feature, like the single-feature read path does.
	defaultQuery := r.ext.Rebind(`
		SELECT wfl.word_id, ` + featureColumns + `
		FROM word_features f
		JOIN categories c ON c.id = f.category_id
		JOIN word_feature_links wfl ON wfl.feature_id = f.id
		JOIN user_words uw ON uw.word_id = wfl.word_id
		WHERE uw.user_id = ? AND f.origin = ?
		ORDER BY wfl.word_id, c.name
	`)

	rows, err = r.ext.QueryxContext(ctx, defaultQuery, userID, domain.OriginDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to list default word features: %w", err)
	}
	defaults, err := collectWordFeatures(rows)
	if err != nil {
		return nil, err
	}
	for wordID, features := range defaults {
		for _, f := range features {
			if !hasCategoryFeature(byWord[wordID], f.CategoryID) {
				byWord[wordID] = append(byWord[wordID], f)
			}
		}
	}

	for i := range words {
		words[i].Features = byWord[words[i].ID]
	}
	return words, nil
}

func hasCategoryFeature(features []domain.WordFeature, categoryID int64) bool {
	for _, f := range features {
		if f.CategoryID == categoryID {
			return true
		}
	}
	return false
}

// collectWordFeatures drains rows of (word_id, feature columns) into a
// per-word feature map, closing the rows.
func collectWordFeatures(rows *sqlx.Rows) (map[int64][]domain.WordFeature, error) {
	defer func() {
		_ = rows.Close()
	}()

	byWord := make(map[int64][]domain.WordFeature)
	for rows.Next() {
		var (
			wordID  int64
			feature domain.WordFeature
		)
		if err := rows.Scan(
			&wordID,
			&feature.ID,
			&feature.CategoryID,
			&feature.Category,
			&feature.Strength,
			&feature.Weight,
			&feature.Origin,
		); err != nil {
			return nil, fmt.Errorf("failed to scan word feature: %w", err)
		}
		byWord[wordID] = append(byWord[wordID], feature)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word features: %w", err)
	}
	return byWord, nil
}

// DefaultsWithFeatures returns all default words, each carrying its default
// features.
func (r *WordRepository) DefaultsWithFeatures(ctx context.Context) ([]domain.Word, error) {
	wordQuery := r.ext.Rebind(`
		SELECT id, name, origin
		FROM words
		WHERE origin = ?
		ORDER BY name
	`)

	var words []domain.Word
	if err := sqlx.SelectContext(ctx, r.ext, &words, wordQuery, domain.OriginDefault); err != nil {
		return nil, fmt.Errorf("failed to list default words: %w", err)
	}
	if len(words) == 0 {
		return words, nil
	}

	featureQuery := r.ext.Rebind(`
		SELECT wfl.word_id, ` + featureColumns + `
		FROM word_features f
		JOIN categories c ON c.id = f.category_id
		JOIN word_feature_links wfl ON wfl.feature_id = f.id
		WHERE f.origin = ?
		ORDER BY wfl.word_id, c.name
	`)

	rows, err := r.ext.QueryxContext(ctx, featureQuery, domain.OriginDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to list default features: %w", err)
	}
	byWord, err := collectWordFeatures(rows)
	if err != nil {
		return nil, err
	}

	for i := range words {
		words[i].Features = byWord[words[i].ID]
	}
	return words, nil
}

// GetByName resolves a word row by its unique name.
func (r *WordRepository) GetByName(ctx context.Context, name string) (*domain.Word, error) {
	query := r.ext.Rebind(`SELECT id, name, origin FROM words WHERE name = ?`)

	var word domain.Word
	err := sqlx.GetContext(ctx, r.ext, &word, query, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get word: %w", err)
	}
	return &word, nil
}

// ByID resolves a word row by primary key.
func (r *WordRepository) ByID(ctx context.Context, wordID int64) (*domain.Word, error) {
	query := r.ext.Rebind(`SELECT id, name, origin FROM words WHERE id = ?`)

	var word domain.Word
	err := sqlx.GetContext(ctx, r.ext, &word, query, wordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get word: %w", err)
	}
	return &word, nil
}

// GetOrCreate finds the word by name or creates it with the origin.
func (r *WordRepository) GetOrCreate(ctx context.Context, name string, origin domain.Origin) (*domain.Word, error) {
	word, err := r.GetByName(ctx, name)
	if err == nil {
		return word, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	id, err := insertReturningID(ctx, r.ext,
		`INSERT INTO words (name, origin) VALUES (?, ?)`,
		name, origin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create word: %w", err)
	}
	return &domain.Word{ID: id, Name: name, Origin: origin}, nil
}

// Link attaches the word to the user's storage. Idempotent.
func (r *WordRepository) Link(ctx context.Context, userID, wordID int64) error {
	query := r.ext.Rebind(`
		INSERT INTO user_words (user_id, word_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`)

	if _, err := r.ext.ExecContext(ctx, query, userID, wordID); err != nil {
		return fmt.Errorf("failed to link word: %w", err)
	}
	return nil
}

// Unlink detaches the word from the user's storage.
func (r *WordRepository) Unlink(ctx context.Context, userID, wordID int64) error {
	query := r.ext.Rebind(`
		DELETE FROM user_words
		WHERE user_id = ? AND word_id = ?
	`)

	if _, err := r.ext.ExecContext(ctx, query, userID, wordID); err != nil {
		return fmt.Errorf("failed to unlink word: %w", err)
	}
	return nil
}

// RefCounts returns the number of user storages and word count rows
// referencing the word.
func (r *WordRepository) RefCounts(ctx context.Context, wordID int64) (users, wordCounts int, err error) {
	query := r.ext.Rebind(`
		SELECT
			(SELECT COUNT(*) FROM user_words WHERE word_id = ?) AS users,
			(SELECT COUNT(*) FROM word_counts WHERE word_id = ?) AS word_counts
	`)

	row := r.ext.QueryRowxContext(ctx, query, wordID, wordID)
	if err = row.Scan(&users, &wordCounts); err != nil {
		return 0, 0, fmt.Errorf("failed to count word references: %w", err)
	}
	return users, wordCounts, nil
}

// Delete removes the word row and its feature links.
func (r *WordRepository) Delete(ctx context.Context, wordID int64) error {
	linkQuery := r.ext.Rebind(`DELETE FROM word_feature_links WHERE word_id = ?`)
	if _, err := r.ext.ExecContext(ctx, linkQuery, wordID); err != nil {
		return fmt.Errorf("failed to delete word feature links: %w", err)
	}

	query := r.ext.Rebind(`DELETE FROM words WHERE id = ?`)
	if _, err := r.ext.ExecContext(ctx, query, wordID); err != nil {
		return fmt.Errorf("failed to delete word: %w", err)
	}
	return nil
}

// FeatureForUser resolves the user's effective feature of a word in a
// category: the feature linked to both the word and the user's storage.
func (r *WordRepository) FeatureForUser(ctx context.Context, userID, wordID, categoryID int64) (*domain.WordFeature, error) {
	query := r.ext.Rebind(`
		SELECT ` + featureColumns + `
		FROM word_features f
		JOIN categories c ON c.id = f.category_id
		JOIN word_feature_links wfl ON wfl.feature_id = f.id
		JOIN user_word_features uwf ON uwf.feature_id = f.id
		WHERE uwf.user_id = ? AND wfl.word_id = ? AND f.category_id = ?
	`)

	var feature domain.WordFeature
	err := sqlx.GetContext(ctx, r.ext, &feature, query, userID, wordID, categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user word feature: %w", err)
	}
	return &feature, nil
}

// DefaultFeature resolves the default feature of a word in a category.
func (r *WordRepository) DefaultFeature(ctx context.Context, wordID, categoryID int64) (*domain.WordFeature, error) {
	query := r.ext.Rebind(`
		SELECT ` + featureColumns + `
		FROM word_features f
		JOIN categories c ON c.id = f.category_id
		JOIN word_feature_links wfl ON wfl.feature_id = f.id
		WHERE wfl.word_id = ? AND f.category_id = ? AND f.origin = ?
	`)

	var feature domain.WordFeature
	err := sqlx.GetContext(ctx, r.ext, &feature, query, wordID, categoryID, domain.OriginDefault)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get default word feature: %w", err)
	}
	return &feature, nil
}

// GetOrCreateFeature finds the feature with this (category, strength,
// weight) signature or creates it with the given origin.
func (r *WordRepository) GetOrCreateFeature(ctx context.Context, categoryID int64, strength domain.Strength, weight domain.Weight, origin domain.Origin) (*domain.WordFeature, error) {
	query := r.ext.Rebind(`
		SELECT ` + featureColumns + `
		FROM word_features f
		JOIN categories c ON c.id = f.category_id
		WHERE f.category_id = ? AND f.strength = ? AND f.weight = ?
	`)

	var feature domain.WordFeature
	err := sqlx.GetContext(ctx, r.ext, &feature, query, categoryID, strength, weight)
	if err == nil {
		return &feature, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get word feature: %w", err)
	}

	id, err := insertReturningID(ctx, r.ext,
		`INSERT INTO word_features (category_id, strength, weight, origin) VALUES (?, ?, ?, ?)`,
		categoryID, strength, weight, origin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create word feature: %w", err)
	}
	return &domain.WordFeature{
		ID:         id,
		CategoryID: categoryID,
		Strength:   strength,
		Weight:     weight,
		Origin:     origin,
	}, nil
}

// FeatureByID resolves a feature row by primary key.
func (r *WordRepository) FeatureByID(ctx context.Context, featureID int64) (*domain.WordFeature, error) {
	query := r.ext.Rebind(`
		SELECT ` + featureColumns + `
		FROM word_features f
		JOIN categories c ON c.id = f.category_id
		WHERE f.id = ?
	`)

	var feature domain.WordFeature
	err := sqlx.GetContext(ctx, r.ext, &feature, query, featureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get word feature: %w", err)
	}
	return &feature, nil
}

// LinkFeature attaches a feature to a word. Idempotent.
func (r *WordRepository) LinkFeature(ctx context.Context, wordID, featureID int64) error {
	query := r.ext.Rebind(`
		INSERT INTO word_feature_links (word_id, feature_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`)

	if _, err := r.ext.ExecContext(ctx, query, wordID, featureID); err != nil {
		return fmt.Errorf("failed to link word feature: %w", err)
	}
	return nil
}

// LinkFeatureToUser attaches a feature to the user's storage. Idempotent.
func (r *WordRepository) LinkFeatureToUser(ctx context.Context, userID, featureID int64) error {
	query := r.ext.Rebind(`
		INSERT INTO user_word_features (user_id, feature_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`)

	if _, err := r.ext.ExecContext(ctx, query, userID, featureID); err != nil {
		return fmt.Errorf("failed to link feature to user: %w", err)
	}
	return nil
}

// UnlinkFeatureFromUser detaches a feature from the user's storage.
func (r *WordRepository) UnlinkFeatureFromUser(ctx context.Context, userID, featureID int64) error {
	query := r.ext.Rebind(`
		DELETE FROM user_word_features
		WHERE user_id = ? AND feature_id = ?
	`)

	if _, err := r.ext.ExecContext(ctx, query, userID, featureID); err != nil {
		return fmt.Errorf("failed to unlink feature from user: %w", err)
	}
	return nil
}

// FeatureUserRefCount returns the number of user storages referencing the
// feature.
func (r *WordRepository) FeatureUserRefCount(ctx context.Context, featureID int64) (int, error) {
	query := r.ext.Rebind(`SELECT COUNT(*) FROM user_word_features WHERE feature_id = ?`)

	var count int
	if err := sqlx.GetContext(ctx, r.ext, &count, query, featureID); err != nil {
		return 0, fmt.Errorf("failed to count feature references: %w", err)
	}
	return count, nil
}

// DeleteFeature removes the feature row and its word links.
func (r *WordRepository) DeleteFeature(ctx context.Context, featureID int64) error {
	linkQuery := r.ext.Rebind(`DELETE FROM word_feature_links WHERE feature_id = ?`)
	if _, err := r.ext.ExecContext(ctx, linkQuery, featureID); err != nil {
		return fmt.Errorf("failed to delete feature links: %w", err)
	}

	query := r.ext.Rebind(`DELETE FROM word_features WHERE id = ?`)
	if _, err := r.ext.ExecContext(ctx, query, featureID); err != nil {
		return fmt.Errorf("failed to delete word feature: %w", err)
	}
	return nil
}

// DefaultFeatures returns all default features.
func (r *WordRepository) DefaultFeatures(ctx context.Context) ([]domain.WordFeature, error) {
	query := r.ext.Rebind(`
		SELECT ` + featureColumns + `
		FROM word_features f
		JOIN categories c ON c.id = f.category_id
		WHERE f.origin = ?
		ORDER BY f.id
	`)

	var features []domain.WordFeature
	if err := sqlx.SelectContext(ctx, r.ext, &features, query, domain.OriginDefault); err != nil {
		return nil, fmt.Errorf("failed to list default features: %w", err)
	}
	return features, nil
}
