package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/calloway/ledgersieve/internal/cli"
	"github.com/calloway/ledgersieve/internal/model"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review and approve flagged transactions",
	}

	cmd.AddCommand(reviewListCmd())
	cmd.AddCommand(reviewApproveCmd())

	return cmd
}

func reviewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions flagged for review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, _ := cmd.Flags().GetString("owner")

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer closeStorage(store)

			transactions, err := store.GetTransactionsNeedingReview(cmd.Context(), ownerID)
			if err != nil {
				return fmt.Errorf("failed to list flagged transactions: %w", err)
			}

			if len(transactions) == 0 {
				fmt.Println(cli.SuccessStyle.Render("Nothing to review."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, cli.TitleStyle.Render("ID\tDATE\tAMOUNT\tDESCRIPTION\tFLAGS"))
			for _, t := range transactions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					t.ID, formatDate(&t), t.Amount.StringFixed(2), t.Description,
					cli.FlagStyle.Render(formatFlags(t.Flags)))
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("owner", "", "owner ID (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func reviewApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve [id...]",
		Short: "Approve flagged transactions",
		Long: `Mark flagged transactions as reviewed. Approval clears their flags and
excludes them from future anomaly detection.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage()
			if err != nil {
				return err
			}
			defer closeStorage(store)

			for _, id := range args {
				if err := store.ApproveTransaction(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to approve transaction %s: %w", id, err)
				}
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Approved %d transactions", len(args))))
			return nil
		},
	}
}

func formatDate(t *model.Transaction) string {
	if !t.HasDate() {
		return "-"
	}
	return t.Date.Format("2006-01-02")
}

func formatFlags(flags []model.FlagKind) string {
	if len(flags) == 0 {
		return "-"
	}
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, ",")
}
