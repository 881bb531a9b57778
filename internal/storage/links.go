package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/calloway/ledgersieve/internal/common"
	"github.com/calloway/ledgersieve/internal/model"
)

// InsertTransactionCategory creates a transaction-category link. The unique
// index on (transaction_id, category_id) is the backstop; the rule engine's
// skip check is expected to prevent duplicates before they reach storage.
func (s *SQLiteStorage) InsertTransactionCategory(ctx context.Context, link *model.TransactionCategoryLink) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateLink(link); err != nil {
		return err
	}
	return s.insertTransactionCategoryTx(ctx, s.db, link)
}

func (s *SQLiteStorage) insertTransactionCategoryTx(ctx context.Context, q queryable, link *model.TransactionCategoryLink) error {
	var exists int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE id = ?`, link.TransactionID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check transaction: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", common.ErrMissingTransaction, link.TransactionID)
	}

	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM categories WHERE id = ?`, link.CategoryID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check category: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", common.ErrMissingCategory, link.CategoryID)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO transaction_categories (id, transaction_id, category_id, added_by, rule_id)
		VALUES (?, ?, ?, ?, ?)`,
		link.ID,
		link.TransactionID,
		link.CategoryID,
		string(link.AddedBy),
		nullableString(link.RuleID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("link (%s, %s): %w", link.TransactionID, link.CategoryID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

// GetLinksByTransaction returns a transaction's category links in insertion
// order.
func (s *SQLiteStorage) GetLinksByTransaction(ctx context.Context, transactionID string) ([]model.TransactionCategoryLink, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}
	return s.getLinksByTransactionTx(ctx, s.db, transactionID)
}

func (s *SQLiteStorage) getLinksByTransactionTx(ctx context.Context, q queryable, transactionID string) ([]model.TransactionCategoryLink, error) {
	query := `
		SELECT id, transaction_id, category_id, added_by, rule_id, created_at
		FROM transaction_categories
		WHERE transaction_id = ?
		ORDER BY created_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var links []model.TransactionCategoryLink
	for rows.Next() {
		link, scanErr := scanLink(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}
	return links, nil
}

// scanLink scans one transaction-category link row.
func scanLink(rows *sql.Rows) (model.TransactionCategoryLink, error) {
	var link model.TransactionCategoryLink
	var addedBy string
	var ruleID sql.NullString

	if err := rows.Scan(
		&link.ID,
		&link.TransactionID,
		&link.CategoryID,
		&addedBy,
		&ruleID,
		&link.CreatedAt,
	); err != nil {
		return model.TransactionCategoryLink{}, fmt.Errorf("failed to scan link: %w", err)
	}

	link.AddedBy = model.LinkSource(addedBy)
	if ruleID.Valid {
		v := ruleID.String
		link.RuleID = &v
	}
	return link, nil
}
