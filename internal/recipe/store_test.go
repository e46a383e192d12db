package recipe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS recipes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS reviews").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MigrateError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS recipes").WillReturnError(errors.New("permission denied"))

	err := store.Migrate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipes table")
}

func TestPostgresStore_CreateRecipe(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO recipes").
		WithArgs("Tomato Soup", "Joy of Cooking", "88", []byte(`["2 cans tomatoes","1 onion"]`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("6f1c1a3e-8f7e-4d0e-9a57-3f0b3c9d2b11", created))

	r, err := store.CreateRecipe(context.Background(), NewRecipe{
		Title:       "Tomato Soup",
		Cookbook:    "  Joy of Cooking ",
		Page:        "88 ",
		Ingredients: []string{"2 cans tomatoes", "1 onion"},
	})
	require.NoError(t, err)

	assert.Equal(t, "6f1c1a3e-8f7e-4d0e-9a57-3f0b3c9d2b11", r.ID)
	assert.Equal(t, "Joy of Cooking", r.Cookbook)
	assert.Equal(t, "88", r.Page)
	assert.Equal(t, []string{"2 cans tomatoes", "1 onion"}, r.Ingredients)
	assert.Equal(t, created, r.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRecipeNilIngredients(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO recipes").
		WithArgs("Toast", "Basics", "1", []byte(`[]`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("id-1", time.Now()))

	r, err := store.CreateRecipe(context.Background(), NewRecipe{Title: "Toast", Cookbook: "Basics", Page: "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, r.Ingredients)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRecipes(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "title", "cookbook", "page", "ingredients", "created_at"}).
		AddRow("b", "Bread", "Flour Water Salt Yeast", "44", []byte(`["500g flour","350g water","10g salt"]`), now).
		AddRow("a", "Soup", "Joy of Cooking", "12", []byte(`null`), now.Add(-time.Hour))
	mock.ExpectQuery("SELECT id, title, cookbook, page, ingredients, created_at FROM recipes ORDER BY created_at DESC").
		WillReturnRows(rows)

	recipes, err := store.ListRecipes(context.Background())
	require.NoError(t, err)
	require.Len(t, recipes, 2)

	assert.Equal(t, "Bread", recipes[0].Title)
	assert.Equal(t, []string{"500g flour", "350g water", "10g salt"}, recipes[0].Ingredients)
	assert.Equal(t, []string{}, recipes[1].Ingredients)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteRecipe(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM recipes").WithArgs("id-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM recipes").WithArgs("id-2").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.DeleteRecipe(context.Background(), "id-1"))
	assert.ErrorIs(t, store.DeleteRecipe(context.Background(), "id-2"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateReview(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Now()

	mock.ExpectQuery("INSERT INTO reviews").
		WithArgs("recipe-1", "Ana", 5, "Lovely").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("review-1", created))
	mock.ExpectQuery("INSERT INTO reviews").
		WithArgs("recipe-1", "Ben", 3, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("review-2", created))

	rv, err := store.CreateReview(context.Background(), "recipe-1", NewReview{Author: " Ana ", Rating: 5, Comment: "Lovely "})
	require.NoError(t, err)
	assert.Equal(t, "review-1", rv.ID)
	require.NotNil(t, rv.Comment)
	assert.Equal(t, "Lovely", *rv.Comment)

	rv, err = store.CreateReview(context.Background(), "recipe-1", NewReview{Author: "Ben", Rating: 3, Comment: "  "})
	require.NoError(t, err)
	assert.Nil(t, rv.Comment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateReviewUnknownRecipe(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO reviews").WillReturnError(&pq.Error{Code: fkViolation})

	_, err := store.CreateReview(context.Background(), "missing", NewReview{Author: "Ana", Rating: 4})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_ListReviews(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, recipe_id, author, rating, comment, created_at FROM reviews WHERE recipe_id").
		WithArgs("recipe-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "recipe_id", "author", "rating", "comment", "created_at"}).
			AddRow("r1", "recipe-1", "Ana", 5, "Great", now).
			AddRow("r2", "recipe-1", "Ben", 2, nil, now.Add(time.Minute)))

	reviews, err := store.ListReviewsForRecipe(context.Background(), "recipe-1")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	require.NotNil(t, reviews[0].Comment)
	assert.Equal(t, "Great", *reviews[0].Comment)
	assert.Nil(t, reviews[1].Comment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteReview(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM reviews").WithArgs("r1").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, store.DeleteReview(context.Background(), "r1"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
