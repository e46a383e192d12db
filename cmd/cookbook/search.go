package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"cookbookindex/internal/recipe"
)

func (a *app) searchCommand() *cobra.Command {
	var cookbook string

	cmd := &cobra.Command{
		Use:     "search [term]",
		Aliases: []string{"list"},
		Short:   "Search recipes by title, ingredient or cookbook",
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			term := strings.Join(args, " ")
			summaries, err := a.client().ListRecipes(ctx, recipe.Filter{
				Term:     term,
				Cookbook: cookbook,
			})
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(a.out, "No recipes found.")
				return nil
			}
			for _, s := range summaries {
				a.printSummary(s, term)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cookbook, "cookbook", "", "only recipes from this cookbook")
	return cmd
}

func (a *app) printSummary(s recipe.Summary, term string) {
	rating := "no reviews"
	if s.ReviewCount > 0 {
		rating = fmt.Sprintf("%.1f/5 from %d", s.AverageRating, s.ReviewCount)
	}
	fmt.Fprintf(a.out, "%s  %s | %s p.%s | %s\n", s.ID, highlight(s.Title, term), highlight(s.Cookbook, term), s.Page, rating)
	if len(s.Ingredients) > 0 {
		ings := make([]string, len(s.Ingredients))
		for i, ing := range s.Ingredients {
			ings[i] = highlight(ing, term)
		}
		fmt.Fprintf(a.out, "    %s\n", strings.Join(ings, ", "))
	}
}

// highlight wraps every case-insensitive match of term in text with [ ].
func highlight(text, term string) string {
	if term == "" {
		return text
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(term))
	return re.ReplaceAllString(text, "[$0]")
}

func (a *app) cookbooksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cookbooks",
		Short: "List the cookbooks that have recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			books, err := a.client().Cookbooks(ctx)
			if err != nil {
				return err
			}
			for _, b := range books {
				fmt.Fprintln(a.out, b)
			}
			return nil
		},
	}
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <recipe-id>",
		Short: "Delete a recipe and its reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := a.client().DeleteRecipe(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted.")
			return nil
		},
	}
}
