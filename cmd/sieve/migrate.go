package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calloway/ledgersieve/internal/cli"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run pending database migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			// initStorage migrates as part of opening the database.
			store, err := initStorage()
			if err != nil {
				return err
			}
			defer closeStorage(store)

			fmt.Println(cli.SuccessStyle.Render("Database is up to date"))
			return nil
		},
	}
}
