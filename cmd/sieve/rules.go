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

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesDeleteCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ownerID, _ := cmd.Flags().GetString("owner")

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer closeStorage(store)

			ruleSet, err := store.GetCategorizationRules(cmd.Context(), ownerID)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if len(ruleSet) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No rules found."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, cli.TitleStyle.Render("POS\tID\tNAME\tCONDITION\tCATEGORY"))
			for _, r := range ruleSet {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					r.Position, r.ID, r.Name, describeCondition(r), r.CategoryID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().String("owner", "", "owner ID (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func describeCondition(r model.CategorizationRule) string {
	switch {
	case r.ConditionType == model.ConditionAI:
		return "ai"
	case r.OptionalConditionValue != nil:
		return fmt.Sprintf("%s %s %s..%s", r.ConditionType, r.ConditionSubtype, r.ConditionValue, *r.OptionalConditionValue)
	default:
		return fmt.Sprintf("%s %s %s", r.ConditionType, r.ConditionSubtype, r.ConditionValue)
	}
}

func rulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a categorization rule",
		Long: `Add a rule linking transactions to a category. Condition types are
description, amount, date, and ai. New rules are appended to the end of
the evaluation order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, _ := cmd.Flags().GetString("owner")
			categoryID, _ := cmd.Flags().GetString("category")
			condType, _ := cmd.Flags().GetString("type")
			condSubtype, _ := cmd.Flags().GetString("subtype")
			condValue, _ := cmd.Flags().GetString("value")
			condValue2, _ := cmd.Flags().GetString("value2")
			prompt, _ := cmd.Flags().GetString("prompt")

			store, err := initStorage()
			if err != nil {
				return err
			}
			defer closeStorage(store)

			rule := &model.CategorizationRule{
				ID:               uuid.NewString(),
				OwnerID:          ownerID,
				Name:             args[0],
				ConditionType:    model.ConditionType(condType),
				ConditionSubtype: model.ConditionSubtype(condSubtype),
				ConditionValue:   condValue,
				CategoryID:       categoryID,
			}
			if condValue2 != "" {
				rule.OptionalConditionValue = &condValue2
			}
			if prompt != "" {
				rule.AIPrompt = &prompt
			}

			if err := store.CreateCategorizationRule(cmd.Context(), rule); err != nil {
				return fmt.Errorf("failed to create rule: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Created rule %q at position %d", rule.Name, rule.Position)))
			return nil
		},
	}

	cmd.Flags().String("owner", "", "owner ID (required)")
	cmd.Flags().String("category", "", "category ID to link on match (required)")
	cmd.Flags().String("type", "", "condition type: description, amount, date, ai (required)")
	cmd.Flags().String("subtype", "", "condition subtype, e.g. contains, equals, greater_than, between")
	cmd.Flags().String("value", "", "condition value")
	cmd.Flags().String("value2", "", "second bound for between/not_between conditions")
	cmd.Flags().String("prompt", "", "judge prompt for ai conditions")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a rule and the links it created",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage()
			if err != nil {
				return err
			}
			defer closeStorage(store)

			if err := store.DeleteCategorizationRule(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render("Rule deleted"))
			return nil
		},
	}
}
