package recipe

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a recipe or review does not exist.
var ErrNotFound = errors.New("not found")

// Recipe represents a cataloged cookbook recipe.
type Recipe struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Cookbook    string    `json:"cookbook" db:"cookbook"`
	Page        string    `json:"page" db:"page"`
	Ingredients []string  `json:"ingredients"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Review is a family member's rating of a recipe.
type Review struct {
	ID        string    `json:"id" db:"id"`
	RecipeID  string    `json:"recipe_id" db:"recipe_id"`
	Author    string    `json:"author" db:"author"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewRecipe holds the fields supplied when a recipe is created.
type NewRecipe struct {
	Title       string   `json:"title"`
	Cookbook    string   `json:"cookbook"`
	Page        string   `json:"page"`
	Ingredients []string `json:"ingredients"`
}

// NewReview holds the fields supplied when a review is created.
type NewReview struct {
	Author  string `json:"author"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ValidationError reports which field of an input was rejected.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Normalize trims the metadata fields and guarantees a non-nil ingredient list.
// Ingredient order is left untouched.
func (n NewRecipe) Normalize() NewRecipe {
	n.Title = strings.TrimSpace(n.Title)
	n.Cookbook = strings.TrimSpace(n.Cookbook)
	n.Page = strings.TrimSpace(n.Page)
	if n.Ingredients == nil {
		n.Ingredients = []string{}
	}
	return n
}

// Validate checks that a recipe has a title, a cookbook and a page.
func (n NewRecipe) Validate() error {
	switch {
	case strings.TrimSpace(n.Title) == "":
		return &ValidationError{Field: "title", Message: "Please provide a recipe title."}
	case strings.TrimSpace(n.Cookbook) == "":
		return &ValidationError{Field: "cookbook", Message: "Please enter the cookbook name."}
	case strings.TrimSpace(n.Page) == "":
		return &ValidationError{Field: "page", Message: "Please enter the page number."}
	}
	return nil
}

// Normalize trims the author and comment.
func (n NewReview) Normalize() NewReview {
	n.Author = strings.TrimSpace(n.Author)
	n.Comment = strings.TrimSpace(n.Comment)
	return n
}

// Validate checks the rating range and that an author is set.
func (n NewReview) Validate() error {
	if n.Rating < 1 || n.Rating > 5 {
		return &ValidationError{Field: "rating", Message: "Please select a rating."}
	}
	if strings.TrimSpace(n.Author) == "" {
		return &ValidationError{Field: "author", Message: "Please select your name first."}
	}
	return nil
}

// commentOrNil maps an empty comment to NULL.
func (n NewReview) commentOrNil() *string {
	if n.Comment == "" {
		return nil
	}
	c := n.Comment
	return &c
}
