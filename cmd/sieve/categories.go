package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/calloway/ledgersieve/internal/cli"
	"github.com/calloway/ledgersieve/internal/model"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage expense categories",
	}

	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesAddCmd())
	cmd.AddCommand(categoriesDeleteCmd())

	return cmd
}

func categoriesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, _ := cmd.Flags().GetString("owner")

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer closeStorage(store)

			categories, err := store.GetCategories(cmd.Context(), ownerID)
			if err != nil {
				return fmt.Errorf("failed to list categories: %w", err)
			}

			if len(categories) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No categories found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, cli.TitleStyle.Render("ID\tNAME\tDESCRIPTION"))
			for _, c := range categories {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Name, c.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("owner", "", "owner ID (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func categoriesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, _ := cmd.Flags().GetString("owner")
			description, _ := cmd.Flags().GetString("description")

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer closeStorage(store)

			category := &model.Category{
				ID:          uuid.NewString(),
				OwnerID:     ownerID,
				Name:        args[0],
				Description: description,
			}
			if err := store.CreateCategory(cmd.Context(), category); err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Created category %q (%s)", category.Name, category.ID)))
			return nil
		},
	}

	cmd.Flags().String("owner", "", "owner ID (required)")
	cmd.Flags().String("description", "", "category description")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func categoriesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a category and its links and rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage()
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.DeleteCategory(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete category: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render("Category deleted"))
			return nil
		},
	}
}
