package recipe

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used for local development and tests.
// Recipes and reviews are kept in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	recipes []*Recipe
	reviews []*Review
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// CreateRecipe stores a copy of the recipe under a fresh id.
func (m *MemoryStore) CreateRecipe(ctx context.Context, in NewRecipe) (*Recipe, error) {
	in = in.Normalize()
	r := &Recipe{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Cookbook:    in.Cookbook,
		Page:        in.Page,
		Ingredients: slices.Clone(in.Ingredients),
		CreatedAt:   m.now().UTC(),
	}

	m.mu.Lock()
	m.recipes = append(m.recipes, r)
	m.mu.Unlock()

	out := *r
	return &out, nil
}

// ListRecipes returns every recipe, newest first.
func (m *MemoryStore) ListRecipes(ctx context.Context) ([]*Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Recipe, 0, len(m.recipes))
	for i := len(m.recipes) - 1; i >= 0; i-- {
		r := *m.recipes[i]
		r.Ingredients = slices.Clone(r.Ingredients)
		out = append(out, &r)
	}
	return out, nil
}

// DeleteRecipe removes a recipe and its reviews.
func (m *MemoryStore) DeleteRecipe(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := slices.IndexFunc(m.recipes, func(r *Recipe) bool { return r.ID == id })
	if idx < 0 {
		return ErrNotFound
	}
	m.recipes = slices.Delete(m.recipes, idx, idx+1)
	m.reviews = slices.DeleteFunc(m.reviews, func(rv *Review) bool { return rv.RecipeID == id })
	return nil
}

// CreateReview stores a review for an existing recipe.
func (m *MemoryStore) CreateReview(ctx context.Context, recipeID string, in NewReview) (*Review, error) {
	in = in.Normalize()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.ContainsFunc(m.recipes, func(r *Recipe) bool { return r.ID == recipeID }) {
		return nil, fmt.Errorf("recipe %s: %w", recipeID, ErrNotFound)
	}
	rv := &Review{
		ID:        uuid.NewString(),
		RecipeID:  recipeID,
		Author:    in.Author,
		Rating:    in.Rating,
		Comment:   in.commentOrNil(),
		CreatedAt: m.now().UTC(),
	}
	m.reviews = append(m.reviews, rv)

	out := *rv
	return &out, nil
}

// ListReviews returns every review, oldest first.
func (m *MemoryStore) ListReviews(ctx context.Context) ([]*Review, error) {
	return m.filterReviews(func(*Review) bool { return true }), nil
}

// ListReviewsForRecipe returns the reviews of one recipe, oldest first.
func (m *MemoryStore) ListReviewsForRecipe(ctx context.Context, recipeID string) ([]*Review, error) {
	return m.filterReviews(func(rv *Review) bool { return rv.RecipeID == recipeID }), nil
}

// DeleteReview removes a review.
func (m *MemoryStore) DeleteReview(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := slices.IndexFunc(m.reviews, func(rv *Review) bool { return rv.ID == id })
	if idx < 0 {
		return ErrNotFound
	}
	m.reviews = slices.Delete(m.reviews, idx, idx+1)
	return nil
}

func (m *MemoryStore) filterReviews(keep func(*Review) bool) []*Review {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*Review{}
	for _, rv := range m.reviews {
		if keep(rv) {
			c := *rv
			out = append(out, &c)
		}
	}
	return out
}
