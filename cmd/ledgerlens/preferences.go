package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func preferencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preferences",
		Short: "Inspect and manage learned preferences",
	}

	cmd.AddCommand(preferencesListCmd())
	cmd.AddCommand(preferencesClearCmd())

	return cmd
}

func preferencesListCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all learned preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			prefs, err := store.ListPreferences(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list preferences: %w", err)
			}

			if output == "json" {
				return printJSON(os.Stdout, prefs)
			}

			if len(prefs) == 0 {
				fmt.Println("No preferences stored yet. Corrections create them.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MERCHANT\tCATEGORY\tSUBCATEGORY\tUSES\tLAST USED")
			for _, pref := range prefs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					pref.MerchantName, pref.UserCategory, pref.UserSubcategory,
					pref.UsageCount, pref.LastUsedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json)")

	return cmd
}

func preferencesClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all learned preferences",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				return fmt.Errorf("refusing to delete all preferences without --force")
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ClearPreferences(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear preferences: %w", err)
			}
			fmt.Println("All preferences cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm deletion")

	return cmd
}
