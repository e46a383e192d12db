package recipe

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store defines the interface for recipe and review data operations.
type Store interface {
	CreateRecipe(ctx context.Context, r NewRecipe) (*Recipe, error)
	ListRecipes(ctx context.Context) ([]*Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
	CreateReview(ctx context.Context, recipeID string, r NewReview) (*Review, error)
	ListReviews(ctx context.Context) ([]*Review, error)
	ListReviewsForRecipe(ctx context.Context, recipeID string) ([]*Review, error)
	DeleteReview(ctx context.Context, id string) error
}

// pq error code for foreign_key_violation.
const fkViolation = "23503"

var schema = []struct {
	name string
	ddl  string
}{
	{"recipes", `
	CREATE TABLE IF NOT EXISTS recipes (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title TEXT NOT NULL,
		cookbook TEXT NOT NULL,
		page TEXT NOT NULL,
		ingredients JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`},
	{"reviews", `
	CREATE TABLE IF NOT EXISTS reviews (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		recipe_id UUID NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
		author TEXT NOT NULL,
		rating SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`},
}

// PostgresStore implements Store for PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to the database and creates the tables if they do not exist.
func NewPostgresStore(ctx context.Context, dataSourceName string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := NewStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an existing connection without touching the schema.
func NewStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the recipes and reviews tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, t := range schema {
		if _, err := s.db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// CreateRecipe inserts a recipe and returns it with its generated id and timestamp.
func (s *PostgresStore) CreateRecipe(ctx context.Context, in NewRecipe) (*Recipe, error) {
	in = in.Normalize()
	ingredientsJSON, err := json.Marshal(in.Ingredients)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ingredients: %w", err)
	}

	r := &Recipe{
		Title:       in.Title,
		Cookbook:    in.Cookbook,
		Page:        in.Page,
		Ingredients: in.Ingredients,
	}
	err = s.db.QueryRowxContext(ctx,
		"INSERT INTO recipes (title, cookbook, page, ingredients) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		in.Title,
		in.Cookbook,
		in.Page,
		ingredientsJSON,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save recipe: %w", err)
	}
	return r, nil
}

// ListRecipes returns every recipe, newest first.
func (s *PostgresStore) ListRecipes(ctx context.Context) ([]*Recipe, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT id, title, cookbook, page, ingredients, created_at FROM recipes ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to get recipes: %w", err)
	}
	defer rows.Close()

	recipes := []*Recipe{}
	for rows.Next() {
		var r Recipe
		var ingredientsJSON []byte
		if err := rows.Scan(&r.ID, &r.Title, &r.Cookbook, &r.Page, &ingredientsJSON, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		if err := json.Unmarshal(ingredientsJSON, &r.Ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients: %w", err)
		}
		if r.Ingredients == nil {
			r.Ingredients = []string{}
		}
		recipes = append(recipes, &r)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return recipes, nil
}

// DeleteRecipe removes a recipe. Its reviews are removed by the foreign key cascade.
func (s *PostgresStore) DeleteRecipe(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "DELETE FROM recipes WHERE id = $1", id)
}

// CreateReview inserts a review for an existing recipe.
func (s *PostgresStore) CreateReview(ctx context.Context, recipeID string, in NewReview) (*Review, error) {
	in = in.Normalize()
	rv := &Review{
		RecipeID: recipeID,
		Author:   in.Author,
		Rating:   in.Rating,
		Comment:  in.commentOrNil(),
	}
	err := s.db.QueryRowxContext(ctx,
		"INSERT INTO reviews (recipe_id, author, rating, comment) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		recipeID,
		rv.Author,
		rv.Rating,
		rv.Comment,
	).Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == fkViolation {
			return nil, fmt.Errorf("recipe %s: %w", recipeID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to save review: %w", err)
	}
	return rv, nil
}

// ListReviews returns every review, oldest first.
func (s *PostgresStore) ListReviews(ctx context.Context) ([]*Review, error) {
	return s.queryReviews(ctx, "SELECT id, recipe_id, author, rating, comment, created_at FROM reviews ORDER BY created_at ASC")
}

// ListReviewsForRecipe returns the reviews of one recipe, oldest first.
func (s *PostgresStore) ListReviewsForRecipe(ctx context.Context, recipeID string) ([]*Review, error) {
	return s.queryReviews(ctx, "SELECT id, recipe_id, author, rating, comment, created_at FROM reviews WHERE recipe_id = $1 ORDER BY created_at ASC", recipeID)
}

// DeleteReview removes a review.
func (s *PostgresStore) DeleteReview(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "DELETE FROM reviews WHERE id = $1", id)
}

func (s *PostgresStore) queryReviews(ctx context.Context, query string, args ...any) ([]*Review, error) {
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*Review{}
	for rows.Next() {
		var rv Review
		var comment sql.NullString
		if err := rows.Scan(&rv.ID, &rv.RecipeID, &rv.Author, &rv.Rating, &comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		if comment.Valid {
			rv.Comment = &comment.String
		}
		reviews = append(reviews, &rv)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return reviews, nil
}

func (s *PostgresStore) deleteByID(ctx context.Context, query, id string) error {
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
