package database_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwillikers/content-rating/internal/database"
	"github.com/jwillikers/content-rating/internal/dictionary"
	"github.com/jwillikers/content-rating/internal/domain"
)

func newMockRepos(t *testing.T) (dictionary.Repositories, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := database.NewStore(sqlx.NewDb(db, "postgres"), nil)
	return store.Repos(), mock
}

func TestCategoryRepositoryGetDefault(t *testing.T) {
	repos, mock := newMockRepos(t)
	ctx := context.Background()

	testCases := []struct {
		name      string
		setupMock func()
		want      *domain.Category
		wantErr   error
	}{
		{
			name: "returns the default row",
			setupMock: func() {
				rows := sqlmock.NewRows([]string{"id", "name", "weight", "origin"}).
					AddRow(3, "profanity", 2, "default")
				mock.ExpectQuery(`SELECT id, name, weight, origin\s+FROM categories`).
					WithArgs("profanity", "default").
					WillReturnRows(rows)
			},
			want: &domain.Category{ID: 3, Name: "profanity", Weight: domain.WeightModerate, Origin: domain.OriginDefault},
		},
		{
			name: "maps missing row to ErrNotFound",
			setupMock: func() {
				mock.ExpectQuery(`SELECT id, name, weight, origin\s+FROM categories`).
					WithArgs("unknown", "default").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMock()

			name := "profanity"
			if tc.wantErr != nil {
				name = "unknown"
			}
			got, err := repos.Categories.GetDefault(ctx, name)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepositoryGetOrCreateInserts(t *testing.T) {
	repos, mock := newMockRepos(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT id, name, weight, origin\s+FROM categories`).
		WithArgs("profanity", 3).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO categories \(name, weight, origin\) VALUES \(\$1, \$2, \$3\) RETURNING id`).
		WithArgs("profanity", 3, "custom").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	got, err := repos.Categories.GetOrCreate(ctx, "profanity", domain.WeightHeavy, domain.OriginCustom)
	require.NoError(t, err)
	assert.Equal(t, int64(11), got.ID)
	assert.Equal(t, domain.OriginCustom, got.Origin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepositoryRefCounts(t *testing.T) {
	repos, mock := newMockRepos(t)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"users", "features", "ratings"}).AddRow(2, 1, 0)
	mock.ExpectQuery(`SELECT\s+\(SELECT COUNT\(\*\) FROM user_categories`).
		WithArgs(int64(5), int64(5), int64(5)).
		WillReturnRows(rows)

	users, features, ratings, err := repos.Categories.RefCounts(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, users)
	assert.Equal(t, 1, features)
	assert.Equal(t, 0, ratings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWordRepositoryGetByName(t *testing.T) {
	repos, mock := newMockRepos(t)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{"id", "name", "origin"}).AddRow(7, "damn", "default")
	mock.ExpectQuery(`SELECT id, name, origin FROM words WHERE name = \$1`).
		WithArgs("damn").
		WillReturnRows(rows)

	word, err := repos.Words.GetByName(ctx, "damn")
	require.NoError(t, err)
	assert.Equal(t, int64(7), word.ID)
	assert.Equal(t, "damn", word.Name)

	mock.ExpectQuery(`SELECT id, name, origin FROM words WHERE name = \$1`).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err = repos.Words.GetByName(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWordRepositoryLinkFeatureIdempotent(t *testing.T) {
	repos, mock := newMockRepos(t)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO word_feature_links`).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repos.Words.LinkFeature(ctx, 1, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryFindForContentNotFound(t *testing.T) {
	repos, mock := newMockRepos(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT cr.id, cr.uuid, cr.content_id, cr.rating, cr.created, cr.updated`).
		WithArgs(int64(1), int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := repos.Ratings.FindForContent(ctx, 1, 9)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRatingRepositoryInsertGeneratesIdentity(t *testing.T) {
	repos, mock := newMockRepos(t)
	ctx := context.Background()

	mock.ExpectQuery(`INSERT INTO content_ratings`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

	rating := &domain.ContentRating{ContentID: 4, Rating: 6}
	require.NoError(t, repos.Ratings.Insert(ctx, rating))

	assert.Equal(t, int64(21), rating.ID)
	assert.NotEmpty(t, rating.UUID)
	assert.False(t, rating.Created.IsZero())
	assert.False(t, rating.Updated.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserStorageRepositoryExists(t *testing.T) {
	repos, mock := newMockRepos(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM user_storage WHERE user_id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repos.Users.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
