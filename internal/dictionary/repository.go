// Package dictionary implements the shared, per-user customizable offensive
// dictionary: effective-view resolution for classification, weight edits
// with get-or-create row sharing, and the reference-counted lifecycle of
// default versus custom rows.
package dictionary

import (
	"context"

	"github.com/jwillikers/content-rating/internal/domain"
)

// CategoryRepository provides access to category rows and their user links.
type CategoryRepository interface {
	// Defaults returns all default categories ordered by name.
	Defaults(ctx context.Context) ([]domain.Category, error)
	// ForUser returns the user's effective categories ordered by name.
	ForUser(ctx context.Context, userID int64) ([]domain.Category, error)
	// GetForUser resolves the user's effective category by name.
	GetForUser(ctx context.Context, userID int64, name string) (*domain.Category, error)
	// GetDefault resolves the default category by name.
	GetDefault(ctx context.Context, name string) (*domain.Category, error)
	// ByID resolves a category row by primary key.
	ByID(ctx context.Context, categoryID int64) (*domain.Category, error)
	// GetOrCreate finds the category with this (name, weight) signature or
	// creates it with the given origin.
	GetOrCreate(ctx context.Context, name string, weight domain.Weight, origin domain.Origin) (*domain.Category, error)
	// Link attaches the category to the user's storage.
	Link(ctx context.Context, userID, categoryID int64) error
	// Unlink detaches the category from the user's storage.
	Unlink(ctx context.Context, userID, categoryID int64) error
	// RefCounts returns the number of user storages, word features, and
	// category ratings referencing the category.
	RefCounts(ctx context.Context, categoryID int64) (users, features, ratings int, err error)
	// Delete removes the category row.
	Delete(ctx context.Context, categoryID int64) error
}

// WordRepository provides access to word and word feature rows, their links
// to each other, and their user links.
type WordRepository interface {
	// ForUser returns the user's effective words, each carrying only that
	// user's effective features, ordered by word name.
	ForUser(ctx context.Context, userID int64) ([]domain.Word, error)
	// DefaultsWithFeatures returns all default words, each carrying its
	// default features, ordered by word name.
	DefaultsWithFeatures(ctx context.Context) ([]domain.Word, error)
	// GetByName resolves a word row by its unique name.
	GetByName(ctx context.Context, name string) (*domain.Word, error)
	// ByID resolves a word row by primary key.
	ByID(ctx context.Context, wordID int64) (*domain.Word, error)
	// GetOrCreate finds the word by name or creates it with the origin.
	GetOrCreate(ctx context.Context, name string, origin domain.Origin) (*domain.Word, error)
	// Link attaches the word to the user's storage.
	Link(ctx context.Context, userID, wordID int64) error
	// Unlink detaches the word from the user's storage.
	Unlink(ctx context.Context, userID, wordID int64) error
	// RefCounts returns the number of user storages and word count rows
	// referencing the word.
	RefCounts(ctx context.Context, wordID int64) (users, wordCounts int, err error)
	// Delete removes the word row and its feature links.
	Delete(ctx context.Context, wordID int64) error

	// FeatureForUser resolves the user's effective feature of a word in a
	// category: the feature linked to both the word and the user's storage.
	FeatureForUser(ctx context.Context, userID, wordID, categoryID int64) (*domain.WordFeature, error)
	// DefaultFeature resolves the default feature of a word in a category.
	DefaultFeature(ctx context.Context, wordID, categoryID int64) (*domain.WordFeature, error)
	// GetOrCreateFeature finds the feature with this (category, strength,
	// weight) signature or creates it with the given origin.
	GetOrCreateFeature(ctx context.Context, categoryID int64, strength domain.Strength, weight domain.Weight, origin domain.Origin) (*domain.WordFeature, error)
	// LinkFeature attaches a feature to a word. Idempotent.
	LinkFeature(ctx context.Context, wordID, featureID int64) error
	// LinkFeatureToUser attaches a feature to the user's storage. Idempotent.
	LinkFeatureToUser(ctx context.Context, userID, featureID int64) error
	// UnlinkFeatureFromUser detaches a feature from the user's storage.
	UnlinkFeatureFromUser(ctx context.Context, userID, featureID int64) error
	// FeatureByID resolves a feature row by primary key.
	FeatureByID(ctx context.Context, featureID int64) (*domain.WordFeature, error)
	// FeatureUserRefCount returns the number of user storages referencing
	// the feature.
	FeatureUserRefCount(ctx context.Context, featureID int64) (int, error)
	// DeleteFeature removes the feature row and its word links.
	DeleteFeature(ctx context.Context, featureID int64) error
	// DefaultFeatures returns all default features.
	DefaultFeatures(ctx context.Context) ([]domain.WordFeature, error)
}

// UserStorageRepository manages the per-user storage rows.
type UserStorageRepository interface {
	Create(ctx context.Context, userID int64) error
	Exists(ctx context.Context, userID int64) (bool, error)
	// Delete removes only the storage row itself; the cascade over owned
	// rows is driven by the dictionary service.
	Delete(ctx context.Context, userID int64) error
	// FeatureIDs, WordIDs, and CategoryIDs list the rows the user's
	// storage references.
	FeatureIDs(ctx context.Context, userID int64) ([]int64, error)
	WordIDs(ctx context.Context, userID int64) ([]int64, error)
	CategoryIDs(ctx context.Context, userID int64) ([]int64, error)
}

// RatingRepository manages persisted content ratings, their shared child
// rows, and their attachment to user storages.
type RatingRepository interface {
	GetOrCreateContent(ctx context.Context, content domain.Content) (*domain.Content, error)
	// FindForContent returns the user's existing rating of the content,
	// or domain.ErrNotFound.
	FindForContent(ctx context.Context, userID, contentID int64) (*domain.ContentRating, error)
	Insert(ctx context.Context, rating *domain.ContentRating) error
	// UpdateRating sets a new overall rating and bumps updated.
	UpdateRating(ctx context.Context, ratingID int64, rating int) error

	GetOrCreateCategoryRating(ctx context.Context, categoryID int64, rating int) (*domain.CategoryRating, error)
	GetOrCreateWordCount(ctx context.Context, wordID int64, count int) (*domain.WordCount, error)
	LinkCategoryRating(ctx context.Context, ratingID, categoryRatingID int64) error
	LinkWordCount(ctx context.Context, ratingID, wordCountID int64) error
	// ChildIDs returns the category rating and word count rows linked to
	// the rating.
	ChildIDs(ctx context.Context, ratingID int64) (categoryRatings, wordCounts []int64, err error)
	// UnlinkChildren removes all child links of the rating.
	UnlinkChildren(ctx context.Context, ratingID int64) error
	CategoryRatingRefCount(ctx context.Context, categoryRatingID int64) (int, error)
	WordCountRefCount(ctx context.Context, wordCountID int64) (int, error)
	DeleteCategoryRating(ctx context.Context, categoryRatingID int64) error
	DeleteWordCount(ctx context.Context, wordCountID int64) error

	AttachToUser(ctx context.Context, userID, ratingID int64) error
	DetachFromUser(ctx context.Context, userID, ratingID int64) error
	UserRefCount(ctx context.Context, ratingID int64) (int, error)
	CountForUser(ctx context.Context, userID int64) (int, error)
	// OldestForUser returns the user's rating with the oldest updated
	// timestamp, or domain.ErrNotFound.
	OldestForUser(ctx context.Context, userID int64) (*domain.ContentRating, error)
	// ForUser returns the user's ratings newest-first, children populated.
	ForUser(ctx context.Context, userID int64) ([]domain.ContentRating, error)
	Delete(ctx context.Context, ratingID int64) error
	ContentRefCount(ctx context.Context, contentID int64) (int, error)
	DeleteContent(ctx context.Context, contentID int64) error
}

// Repositories bundles the repository set backed by one store or one
// transaction.
type Repositories struct {
	Categories CategoryRepository
	Words      WordRepository
	Users      UserStorageRepository
	Ratings    RatingRepository
}

// Store opens transactions over the backing repositories. Reads outside a
// transaction use the plain repository set.
type Store interface {
	Repos() Repositories
	// InTx runs fn inside a transaction, committing on nil and rolling
	// back otherwise. Serialization failures surface as domain.ErrConflict.
	InTx(ctx context.Context, fn func(repos Repositories) error) error
}
