package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/calloway/ledgersieve/internal/common"
	"github.com/calloway/ledgersieve/internal/model"
)

// GetCategorizationRules returns an owner's rules in evaluation order.
// Position is an explicit persisted field; evaluation order never depends on
// storage row order.
func (s *SQLiteStorage) GetCategorizationRules(ctx context.Context, ownerID string) ([]model.CategorizationRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	return s.getCategorizationRulesTx(ctx, s.db, ownerID)
}

func (s *SQLiteStorage) getCategorizationRulesTx(ctx context.Context, q queryable, ownerID string) ([]model.CategorizationRule, error) {
	query := `
		SELECT id, owner_id, name, condition_type, condition_subtype,
		       condition_value, optional_condition_value, ai_prompt,
		       category_id, position, created_at, updated_at
		FROM categorization_rules
		WHERE owner_id = ?
		ORDER BY position ASC, created_at ASC`

	rows, err := q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ruleSet []model.CategorizationRule
	for rows.Next() {
		var rule model.CategorizationRule
		var conditionType, conditionSubtype string
		var optionalValue, aiPrompt sql.NullString

		if err := rows.Scan(
			&rule.ID,
			&rule.OwnerID,
			&rule.Name,
			&conditionType,
			&conditionSubtype,
			&rule.ConditionValue,
			&optionalValue,
			&aiPrompt,
			&rule.CategoryID,
			&rule.Position,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rule.ConditionType = model.ConditionType(conditionType)
		rule.ConditionSubtype = model.ConditionSubtype(conditionSubtype)
		if optionalValue.Valid {
			v := optionalValue.String
			rule.OptionalConditionValue = &v
		}
		if aiPrompt.Valid {
			v := aiPrompt.String
			rule.AIPrompt = &v
		}
		ruleSet = append(ruleSet, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	slog.Debug("retrieved rules", "owner_id", ownerID, "count", len(ruleSet))
	return ruleSet, nil
}

// CreateCategorizationRule creates a rule. When Position is zero it is placed
// after the owner's existing rules.
func (s *SQLiteStorage) CreateCategorizationRule(ctx context.Context, rule *model.CategorizationRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	return s.createCategorizationRuleTx(ctx, s.db, rule)
}

func (s *SQLiteStorage) createCategorizationRuleTx(ctx context.Context, q queryable, rule *model.CategorizationRule) error {
	// Referenced category must exist; rules pointing nowhere are an
	// integrity error, not a configuration error.
	if _, err := s.getCategoryByIDTx(ctx, q, rule.CategoryID); err != nil {
		return fmt.Errorf("%w: %s", common.ErrMissingCategory, rule.CategoryID)
	}

	if rule.Position == 0 {
		var maxPosition sql.NullInt64
		err := q.QueryRowContext(ctx,
			`SELECT MAX(position) FROM categorization_rules WHERE owner_id = ?`,
			rule.OwnerID).Scan(&maxPosition)
		if err != nil {
			return fmt.Errorf("failed to determine rule position: %w", err)
		}
		rule.Position = int(maxPosition.Int64) + 1
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO categorization_rules (
			id, owner_id, name, condition_type, condition_subtype,
			condition_value, optional_condition_value, ai_prompt,
			category_id, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID,
		rule.OwnerID,
		rule.Name,
		string(rule.ConditionType),
		string(rule.ConditionSubtype),
		rule.ConditionValue,
		nullableString(rule.OptionalConditionValue),
		nullableString(rule.AIPrompt),
		rule.CategoryID,
		rule.Position,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// DeleteCategorizationRule removes a rule and every category link it created.
// User-added links to the same category survive.
func (s *SQLiteStorage) DeleteCategorizationRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.deleteCategorizationRuleTx(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStorage) deleteCategorizationRuleTx(ctx context.Context, q queryable, id string) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM transaction_categories WHERE rule_id = ? AND added_by = ?`,
		id, string(model.AddedByRule)); err != nil {
		return fmt.Errorf("failed to delete rule links: %w", err)
	}

	result, err := q.ExecContext(ctx, `DELETE FROM categorization_rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
