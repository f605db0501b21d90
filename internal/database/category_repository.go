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

// CategoryRepository handles database operations for category rows and
// their user links.
type CategoryRepository struct {
	ext sqlx.ExtContext
}

var _ dictionary.CategoryRepository = (*CategoryRepository)(nil)

// Defaults returns all default categories ordered by name.
func (r *CategoryRepository) Defaults(ctx context.Context) ([]domain.Category, error) {
	query := r.ext.Rebind(`
		SELECT id, name, weight, origin
		FROM categories
		WHERE origin = ?
		ORDER BY name
	`)

	var categories []domain.Category
	if err := sqlx.SelectContext(ctx, r.ext, &categories, query, domain.OriginDefault); err != nil {
		return nil, fmt.Errorf("failed to list default categories: %w", err)
	}
	return categories, nil
}

// ForUser returns the categories linked to the user's storage.
func (r *CategoryRepository) ForUser(ctx context.Context, userID int64) ([]domain.Category, error) {
	query := r.ext.Rebind(`
		SELECT c.id, c.name, c.weight, c.origin
		FROM categories c
		JOIN user_categories uc ON uc.category_id = c.id
		WHERE uc.user_id = ?
		ORDER BY c.name
	`)

	var categories []domain.Category
	if err := sqlx.SelectContext(ctx, r.ext, &categories, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user categories: %w", err)
	}
	return categories, nil
}

// GetForUser resolves the user's effective category by name.
func (r *CategoryRepository) GetForUser(ctx context.Context, userID int64, name string) (*domain.Category, error) {
	query := r.ext.Rebind(`
		SELECT c.id, c.name, c.weight, c.origin
		FROM categories c
		JOIN user_categories uc ON uc.category_id = c.id
		WHERE uc.user_id = ? AND c.name = ?
	`)

	var category domain.Category
	err := sqlx.GetContext(ctx, r.ext, &category, query, userID, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user category: %w", err)
	}
	return &category, nil
}

// GetDefault resolves the default category by name.
func (r *CategoryRepository) GetDefault(ctx context.Context, name string) (*domain.Category, error) {
	query := r.ext.Rebind(`
		SELECT id, name, weight, origin
		FROM categories
		WHERE name = ? AND origin = ?
	`)

	var category domain.Category
	err := sqlx.GetContext(ctx, r.ext, &category, query, name, domain.OriginDefault)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get default category: %w", err)
	}
	return &category, nil
}

// ByID resolves a category row by primary key.
func (r *CategoryRepository) ByID(ctx context.Context, categoryID int64) (*domain.Category, error) {
	query := r.ext.Rebind(`
		SELECT id, name, weight, origin
		FROM categories
		WHERE id = ?
	`)

	var category domain.Category
	err := sqlx.GetContext(ctx, r.ext, &category, query, categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}

// GetOrCreate finds the category with this (name, weight) signature or
// creates it with the given origin.
func (r *CategoryRepository) GetOrCreate(ctx context.Context, name string, weight domain.Weight, origin domain.Origin) (*domain.Category, error) {
	query := r.ext.Rebind(`
		SELECT id, name, weight, origin
		FROM categories
		WHERE name = ? AND weight = ?
	`)

	var category domain.Category
	err := sqlx.GetContext(ctx, r.ext, &category, query, name, weight)
	if err == nil {
		return &category, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	id, err := insertReturningID(ctx, r.ext,
		`INSERT INTO categories (name, weight, origin) VALUES (?, ?, ?)`,
		name, weight, origin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &domain.Category{ID: id, Name: name, Weight: weight, Origin: origin}, nil
}

// Link attaches the category to the user's storage. Idempotent.
func (r *CategoryRepository) Link(ctx context.Context, userID, categoryID int64) error {
	query := r.ext.Rebind(`
		INSERT INTO user_categories (user_id, category_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING
	`)

	if _, err := r.ext.ExecContext(ctx, query, userID, categoryID); err != nil {
		return fmt.Errorf("failed to link category: %w", err)
	}
	return nil
}

// Unlink detaches the category from the user's storage.
func (r *CategoryRepository) Unlink(ctx context.Context, userID, categoryID int64) error {
	query := r.ext.Rebind(`
		DELETE FROM user_categories
		WHERE user_id = ? AND category_id = ?
	`)

	if _, err := r.ext.ExecContext(ctx, query, userID, categoryID); err != nil {
		return fmt.Errorf("failed to unlink category: %w", err)
	}
	return nil
}

// RefCounts returns the number of user storages, word features, and
// category ratings referencing the category.
func (r *CategoryRepository) RefCounts(ctx context.Context, categoryID int64) (users, features, ratings int, err error) {
	query := r.ext.Rebind(`
		SELECT
			(SELECT COUNT(*) FROM user_categories WHERE category_id = ?) AS users,
			(SELECT COUNT(*) FROM word_features WHERE category_id = ?) AS features,
			(SELECT COUNT(*) FROM category_ratings WHERE category_id = ?) AS ratings
	`)

	row := r.ext.QueryRowxContext(ctx, query, categoryID, categoryID, categoryID)
	if err = row.Scan(&users, &features, &ratings); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count category references: %w", err)
	}
	return users, features, ratings, nil
}

// Delete removes the category row.
func (r *CategoryRepository) Delete(ctx context.Context, categoryID int64) error {
	query := r.ext.Rebind(`DELETE FROM categories WHERE id = ?`)

	if _, err := r.ext.ExecContext(ctx, query, categoryID); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// insertReturningID inserts one row and returns its generated primary key,
// using RETURNING on PostgreSQL and the last insert id elsewhere.
func insertReturningID(ctx context.Context, ext sqlx.ExtContext, query string, args ...any) (int64, error) {
	if ext.DriverName() == "postgres" {
		var id int64
		if err := sqlx.GetContext(ctx, ext, &id, ext.Rebind(query+" RETURNING id"), args...); err != nil {
			return 0, err
		}
		return id, nil
	}

	res, err := ext.ExecContext(ctx, ext.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
