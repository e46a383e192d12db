package recipe

import (
	"sort"
	"strings"
)

// Filter narrows a recipe listing. Both fields are optional and combine with AND.
type Filter struct {
	// Term matches case-insensitively against the title, the cookbook or any ingredient.
	Term string
	// Cookbook must equal the recipe's cookbook exactly.
	Cookbook string
}

// Matches reports whether r satisfies the filter.
func (f Filter) Matches(r *Recipe) bool {
	if f.Cookbook != "" && r.Cookbook != f.Cookbook {
		return false
	}
	term := strings.ToLower(f.Term)
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(r.Title), term) || strings.Contains(strings.ToLower(r.Cookbook), term) {
		return true
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing), term) {
			return true
		}
	}
	return false
}

// Search returns the recipes matching f, keeping their order.
func Search(recipes []*Recipe, f Filter) []*Recipe {
	matched := make([]*Recipe, 0, len(recipes))
	for _, r := range recipes {
		if f.Matches(r) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Cookbooks returns the distinct cookbook names, sorted.
func Cookbooks(recipes []*Recipe) []string {
	seen := make(map[string]struct{}, len(recipes))
	names := make([]string, 0, len(recipes))
	for _, r := range recipes {
		if _, ok := seen[r.Cookbook]; ok {
			continue
		}
		seen[r.Cookbook] = struct{}{}
		names = append(names, r.Cookbook)
	}
	sort.Strings(names)
	return names
}

// Summary is a recipe together with its rating aggregate.
type Summary struct {
	Recipe
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
}

// Summarize attaches review counts and mean ratings to each recipe.
func Summarize(recipes []*Recipe, reviews []*Review) []Summary {
	type agg struct{ count, total int }
	byRecipe := make(map[string]*agg)
	for _, rv := range reviews {
		a, ok := byRecipe[rv.RecipeID]
		if !ok {
			a = &agg{}
			byRecipe[rv.RecipeID] = a
		}
		a.count++
		a.total += rv.Rating
	}

	out := make([]Summary, 0, len(recipes))
	for _, r := range recipes {
		s := Summary{Recipe: *r}
		if a, ok := byRecipe[r.ID]; ok {
			s.ReviewCount = a.count
			s.AverageRating = float64(a.total) / float64(a.count)
		}
		out = append(out, s)
	}
	return out
}
