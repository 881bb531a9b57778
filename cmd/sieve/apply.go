package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calloway/ledgersieve/internal/cli"
)

func applyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply categorization rules and recompute anomaly flags",
		Long: `Run the classification pipeline for an owner: every rule is
evaluated against every transaction (in rule order), matching rules link
their category, and anomaly flags are recomputed from the post-rules
state of the ledger.`,
		RunE: runApply,
	}

	cmd.Flags().String("owner", "", "owner ID whose transactions to classify (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func runApply(cmd *cobra.Command, _ []string) error {
	ownerID, _ := cmd.Flags().GetString("owner")

	store, err := initStorage()
	if err != nil {
		return err
	}
	defer closeStorage(store)

	p := newPipeline(store)
	if err := p.Run(cmd.Context(), ownerID); err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	fmt.Println(cli.SuccessStyle.Render("Classification complete"))
	return nil
}
