package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/calloway/ledgersieve/internal/cli"
	"github.com/calloway/ledgersieve/internal/importer"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import transactions from CSV files",
		Long: `Import transactions from one or more CSV files with date, description,
and amount columns. Rows whose amount cannot be parsed are skipped.
Already-imported transactions are left untouched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("owner", "", "owner ID to import transactions under (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ownerID, _ := cmd.Flags().GetString("owner")

	store, err := initStorage()
	if err != nil {
		return err
	}
	defer closeStorage(store)

	imp := importer.New(store, slog.Default())

	bar := progressbar.NewOptions(len(args),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Importing files"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	var imported, skipped int
	for _, path := range args {
		result, err := imp.ImportFile(cmd.Context(), ownerID, path)
		if err != nil {
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("failed to import %s: %w", path, err)
		}
		imported += result.Imported
		skipped += result.Skipped
		_ = bar.Add(1)
	}
	fmt.Fprintln(os.Stderr)

	fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Imported %d transactions (%d rows skipped)", imported, skipped)))

	// Classify what we just imported so new transactions are categorized and
	// flagged without a separate apply step.
	if imported > 0 {
		if err := newPipeline(store).Run(cmd.Context(), ownerID); err != nil {
			return fmt.Errorf("imported, but classification failed: %w", err)
		}
		fmt.Println(cli.SuccessStyle.Render("Classification complete"))
	}
	return nil
}
