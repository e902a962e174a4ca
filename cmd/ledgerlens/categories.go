package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ledgerlens/ledgerlens/internal/knowledge"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Show and manage the category taxonomy",
	}

	cmd.AddCommand(categoriesShowCmd())
	cmd.AddCommand(categoriesSetCustomCmd())
	cmd.AddCommand(categoriesResetCmd())

	return cmd
}

func categoriesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active taxonomy",
		Long: `Show prints the custom taxonomy when one is installed, otherwise the
built-in default taxonomy.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tables, err := knowledge.Load()
			if err != nil {
				return fmt.Errorf("failed to load knowledge tables: %w", err)
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			custom, err := store.GetCustomTaxonomy(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to load custom taxonomy: %w", err)
			}

			taxonomy := tables.DefaultTaxonomy()
			source := "default"
			if custom != nil && !custom.IsEmpty() {
				taxonomy = custom.Categories
				source = fmt.Sprintf("custom, updated %s", custom.UpdatedAt.Format("2006-01-02"))
			}

			fmt.Printf("Taxonomy (%s):\n", source)
			names := make([]string, 0, len(taxonomy))
			for name := range taxonomy {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  %s\n", name)
				for _, sub := range taxonomy[name] {
					fmt.Printf("    - %s\n", sub)
				}
			}
			return nil
		},
	}
}

func categoriesSetCustomCmd() *cobra.Command {
	var filePath string

	cmd := &cobra.Command{
		Use:   "set-custom",
		Short: "Install a custom taxonomy from a YAML file",
		Long: `Set-custom installs a user-defined taxonomy. The file maps category names
to subcategory lists:

  Coffee Habit:
    - Espresso
    - Beans
  Home Lab:
    - Hardware
    - Subscriptions`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", filePath, err)
			}

			var categories map[string][]string
			if err := yaml.Unmarshal(data, &categories); err != nil {
				return fmt.Errorf("failed to parse taxonomy file: %w", err)
			}

			taxonomy := model.CustomTaxonomy{
				UpdatedAt:  time.Now().UTC(),
				Categories: categories,
			}
			if err := taxonomy.Validate(); err != nil {
				return fmt.Errorf("invalid taxonomy: %w", err)
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveCustomTaxonomy(cmd.Context(), taxonomy); err != nil {
				return fmt.Errorf("failed to save taxonomy: %w", err)
			}
			fmt.Printf("Installed custom taxonomy with %d categories.\n", len(categories))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "YAML taxonomy file (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func categoriesResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove the custom taxonomy and return to the default",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteCustomTaxonomy(cmd.Context()); err != nil {
				return fmt.Errorf("failed to remove custom taxonomy: %w", err)
			}
			fmt.Println("Custom taxonomy removed; default taxonomy is active.")
			return nil
		},
	}
}
