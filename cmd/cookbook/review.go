package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cookbookindex/internal/recipe"
)

var (
	errNoActiveMember = errors.New("no active family member; run 'cookbook family add <name>' first")
	errNotAuthor      = errors.New("only the author can delete a review")
)

func (a *app) reviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Rate recipes as the active family member",
	}
	cmd.AddCommand(a.reviewAddCommand(), a.reviewListCommand(), a.reviewDeleteCommand())
	return cmd
}

func (a *app) reviewAddCommand() *cobra.Command {
	var rating int
	var comment string

	cmd := &cobra.Command{
		Use:   "add <recipe-id>",
		Short: "Review a recipe",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.loadFamily()
			if err != nil {
				return err
			}
			if session.Active == "" {
				return errNoActiveMember
			}

			in := recipe.NewReview{Author: session.Active, Rating: rating, Comment: comment}
			if err := in.Validate(); err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			rv, err := a.client().CreateReview(ctx, args[0], in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved %d-star review by %s (%s)\n", rv.Rating, rv.Author, rv.ID)
			return nil
		},
	}
	cmd.Flags().IntVar(&rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&comment, "comment", "", "optional comment")
	return cmd
}

func (a *app) reviewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [recipe-id]",
		Short: "List reviews, for one recipe or all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			c := a.client()
			var reviews []*recipe.Review
			var err error
			if len(args) == 1 {
				reviews, err = c.ListReviews(ctx, args[0])
			} else {
				reviews, err = c.ListAllReviews(ctx)
			}
			if err != nil {
				return err
			}
			if len(reviews) == 0 {
				fmt.Fprintln(a.out, "No reviews yet.")
				return nil
			}
			for _, rv := range reviews {
				line := fmt.Sprintf("%s  %s %s %s", rv.ID, rv.Author, strings.Repeat("*", rv.Rating), rv.RecipeID)
				if rv.Comment != nil {
					line += "  " + *rv.Comment
				}
				fmt.Fprintln(a.out, line)
			}
			return nil
		},
	}
}

func (a *app) reviewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <review-id>",
		Short: "Delete one of your reviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.loadFamily()
			if err != nil {
				return err
			}
			if session.Active == "" {
				return errNoActiveMember
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			c := a.client()
			reviews, err := c.ListAllReviews(ctx)
			if err != nil {
				return err
			}
			var target *recipe.Review
			for _, rv := range reviews {
				if rv.ID == args[0] {
					target = rv
					break
				}
			}
			if target == nil {
				return fmt.Errorf("review %s: %w", args[0], recipe.ErrNotFound)
			}
			if target.Author != session.Active {
				return errNotAuthor
			}

			if err := c.DeleteReview(ctx, target.ID); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Deleted.")
			return nil
		},
	}
}
