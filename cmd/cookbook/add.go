package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cookbookindex/internal/capture"
	"cookbookindex/internal/client"
	"cookbookindex/internal/draft"
)

func (a *app) addCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a recipe from a photo or by hand",
	}
	cmd.AddCommand(a.addPhotoCommand(), a.addManualCommand())
	return cmd
}

func (a *app) addPhotoCommand() *cobra.Command {
	var cookbook, page string
	var maxWidth uint

	cmd := &cobra.Command{
		Use:   "photo <file>",
		Short: "Extract a recipe from a photo or PDF of a cookbook page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			c := a.client()
			w := draft.New(c, c)
			w.SetCaptureOptions(capture.Options{MaxWidth: maxWidth})

			fmt.Fprintln(a.out, "Extracting recipe...")
			res, err := w.ExtractFile(ctx, args[0])
			switch {
			case errors.Is(err, draft.ErrNoRecipeFound):
				return fmt.Errorf("%w; use 'cookbook add manual' instead", err)
			case errors.Is(err, client.ErrExtraction), errors.Is(err, draft.ErrExtractionFailed):
				return draft.ErrExtractionFailed
			case err != nil:
				return fmt.Errorf("error reading file: %w", err)
			}

			fmt.Fprintf(a.out, "Found: %s\n", res.Title)
			for _, ing := range res.Ingredients {
				fmt.Fprintf(a.out, "  - %s\n", ing)
			}

			return a.finish(cmd, w, cookbook, page)
		},
	}
	cmd.Flags().StringVar(&cookbook, "cookbook", "", "cookbook name")
	cmd.Flags().StringVar(&page, "page", "", "page number")
	cmd.Flags().UintVar(&maxWidth, "max-width", 0, "downscale JPEG/PNG images wider than this many pixels (0 keeps the original)")
	return cmd
}

func (a *app) addManualCommand() *cobra.Command {
	var title, ingredients, cookbook, page string

	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Enter a recipe by hand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if title == "" {
				title = a.prompt("Title")
			}
			if !cmd.Flags().Changed("ingredients") {
				ingredients = a.promptLines("Ingredients")
			}

			c := a.client()
			w := draft.New(c, c)
			w.EnterManual(title, strings.ReplaceAll(ingredients, `\n`, "\n"))
			return a.finish(cmd, w, cookbook, page)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "recipe title")
	cmd.Flags().StringVar(&ingredients, "ingredients", "", `ingredients, one per line (a literal \n also separates)`)
	cmd.Flags().StringVar(&cookbook, "cookbook", "", "cookbook name")
	cmd.Flags().StringVar(&page, "page", "", "page number")
	return cmd
}

// finish asks for any missing metadata and saves the draft.
func (a *app) finish(cmd *cobra.Command, w *draft.Workflow, cookbook, page string) error {
	if strings.TrimSpace(cookbook) == "" {
		cookbook = a.prompt("Cookbook")
	}
	if strings.TrimSpace(page) == "" {
		page = a.prompt("Page")
	}
	w.SetMetadata(cookbook, page)

	ctx, cancel := a.context(cmd)
	defer cancel()

	saved, err := w.Save(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %q (%s p.%s) as %s\n", saved.Title, saved.Cookbook, saved.Page, saved.ID)
	return nil
}
