package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cookbookindex/internal/family"
)

func (a *app) familyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "family",
		Short: "Manage family members and who is active",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List family members",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.loadFamily()
				if err != nil {
					return err
				}
				if len(s.Members) == 0 {
					fmt.Fprintln(a.out, "No family members yet.")
					return nil
				}
				for _, m := range s.Members {
					marker := " "
					if m == s.Active {
						marker = "*"
					}
					fmt.Fprintf(a.out, "%s %s\n", marker, m)
				}
				return nil
			},
		},
		a.familyEdit("add <name>", "Add a family member", (*family.Session).Add),
		a.familyEdit("remove <name>", "Remove a family member", (*family.Session).Remove),
		a.familyEdit("use <name>", "Switch the active family member", (*family.Session).Switch),
	)
	return cmd
}

// familyEdit builds a command that applies op to the stored session and saves it.
func (a *app) familyEdit(use, short string, op func(*family.Session, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadFamily()
			if err != nil {
				return err
			}
			if err := op(s, args[0]); err != nil {
				return err
			}
			if err := s.Save(a.familyFile); err != nil {
				return err
			}
			if s.Active == "" {
				fmt.Fprintln(a.out, "No active family member.")
				return nil
			}
			fmt.Fprintf(a.out, "Active: %s\n", s.Active)
			return nil
		},
	}
}
