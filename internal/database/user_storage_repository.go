package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwillikers/content-rating/internal/dictionary"
)

// UserStorageRepository manages the per-user storage rows and lists the
// dictionary rows a storage references.
type UserStorageRepository struct {
	ext sqlx.ExtContext
}

var _ dictionary.UserStorageRepository = (*UserStorageRepository)(nil)

// Create inserts the storage row for the user.
func (r *UserStorageRepository) Create(ctx context.Context, userID int64) error {
	query := r.ext.Rebind(`INSERT INTO user_storage (user_id) VALUES (?)`)

	if _, err := r.ext.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to create user storage: %w", err)
	}
	return nil
}

// Exists reports whether the user has a storage row.
func (r *UserStorageRepository) Exists(ctx context.Context, userID int64) (bool, error) {
	query := r.ext.Rebind(`SELECT COUNT(*) FROM user_storage WHERE user_id = ?`)

	var count int
	if err := sqlx.GetContext(ctx, r.ext, &count, query, userID); err != nil {
		return false, fmt.Errorf("failed to check user storage: %w", err)
	}
	return count > 0, nil
}

// Delete removes only the storage row itself.
func (r *UserStorageRepository) Delete(ctx context.Context, userID int64) error {
	query := r.ext.Rebind(`DELETE FROM user_storage WHERE user_id = ?`)

	if _, err := r.ext.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete user storage: %w", err)
	}
	return nil
}

// FeatureIDs lists the word feature rows the user's storage references.
func (r *UserStorageRepository) FeatureIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := r.ext.Rebind(`SELECT feature_id FROM user_word_features WHERE user_id = ? ORDER BY feature_id`)

	var ids []int64
	if err := sqlx.SelectContext(ctx, r.ext, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user feature ids: %w", err)
	}
	return ids, nil
}

// WordIDs lists the word rows the user's storage references.
func (r *UserStorageRepository) WordIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := r.ext.Rebind(`SELECT word_id FROM user_words WHERE user_id = ? ORDER BY word_id`)

	var ids []int64
	if err := sqlx.SelectContext(ctx, r.ext, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user word ids: %w", err)
	}
	return ids, nil
}

// CategoryIDs lists the category rows the user's storage references.
func (r *UserStorageRepository) CategoryIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := r.ext.Rebind(`SELECT category_id FROM user_categories WHERE user_id = ? ORDER BY category_id`)

	var ids []int64
	if err := sqlx.SelectContext(ctx, r.ext, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user category ids: %w", err)
	}
	return ids, nil
}
