package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/calloway/ledgersieve/internal/common"
	"github.com/calloway/ledgersieve/internal/model"
)

// SaveTransactions saves multiple transactions to the database.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.saveTransactionsTx(ctx, tx, transactions); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, q queryable, transactions []model.Transaction) error {
	stmt := `
		INSERT OR IGNORE INTO transactions (
			id, owner_id, amount, description, date,
			is_flagged, flags, was_approved
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	for _, txn := range transactions {
		flagsJSON, err := marshalFlags(txn.Flags)
		if err != nil {
			return fmt.Errorf("failed to encode flags for transaction %s: %w", txn.ID, err)
		}

		var date any
		if txn.HasDate() {
			date = txn.Date.UTC()
		}

		_, err = q.ExecContext(ctx, stmt,
			txn.ID,
			txn.OwnerID,
			txn.Amount.String(),
			txn.Description,
			date,
			boolToInt(txn.IsFlagged),
			flagsJSON,
			boolToInt(txn.WasApproved),
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}

	return nil
}

// GetTransactionsByOwner retrieves all of an owner's transactions with their
// category links attached, in insertion order.
func (s *SQLiteStorage) GetTransactionsByOwner(ctx context.Context, ownerID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	return s.getTransactionsByOwnerTx(ctx, s.db, ownerID, false)
}

// GetTransactionsNeedingReview retrieves flagged, unapproved transactions for
// the review UI.
func (s *SQLiteStorage) GetTransactionsNeedingReview(ctx context.Context, ownerID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	return s.getTransactionsByOwnerTx(ctx, s.db, ownerID, true)
}

func (s *SQLiteStorage) getTransactionsByOwnerTx(ctx context.Context, q queryable, ownerID string, needingReview bool) ([]model.Transaction, error) {
	query := `
		SELECT id, owner_id, amount, description, date,
		       is_flagged, flags, was_approved, created_at, updated_at
		FROM transactions
		WHERE owner_id = ?`
	if needingReview {
		query += ` AND is_flagged = 1 AND was_approved = 0`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	if err := s.attachLinks(ctx, q, ownerID, transactions); err != nil {
		return nil, err
	}

	slog.Debug("retrieved transactions", "owner_id", ownerID, "count", len(transactions))
	return transactions, nil
}

// attachLinks loads the owner's transaction-category links in one query and
// attaches them to the loaded transactions.
func (s *SQLiteStorage) attachLinks(ctx context.Context, q queryable, ownerID string, transactions []model.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	query := `
		SELECT tc.id, tc.transaction_id, tc.category_id, tc.added_by, tc.rule_id, tc.created_at
		FROM transaction_categories tc
		JOIN transactions t ON t.id = tc.transaction_id
		WHERE t.owner_id = ?
		ORDER BY tc.created_at ASC, tc.id ASC`

	rows, err := q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return fmt.Errorf("failed to query links: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byTransaction := make(map[string][]model.TransactionCategoryLink)
	for rows.Next() {
		link, scanErr := scanLink(rows)
		if scanErr != nil {
			return scanErr
		}
		byTransaction[link.TransactionID] = append(byTransaction[link.TransactionID], link)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating links: %w", err)
	}

	for i := range transactions {
		transactions[i].Categories = byTransaction[transactions[i].ID]
	}
	return nil
}

// GetTransactionByID retrieves a single transaction with its links.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getTransactionByIDTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getTransactionByIDTx(ctx context.Context, q queryable, id string) (*model.Transaction, error) {
	query := `
		SELECT id, owner_id, amount, description, date,
		       is_flagged, flags, was_approved, created_at, updated_at
		FROM transactions
		WHERE id = ?`

	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query transaction: %w", err)
		}
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}

	txn, err := scanTransaction(rows)
	if err != nil {
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to close rows: %w", err)
	}

	links, err := s.getLinksByTransactionTx(ctx, q, id)
	if err != nil {
		return nil, err
	}
	txn.Categories = links
	return &txn, nil
}

// ApproveTransaction marks a transaction as human-reviewed, clearing its
// flags. Approval is sticky: the detector skips approved transactions on every
// later run.
func (s *SQLiteStorage) ApproveTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	return s.approveTransactionTx(ctx, s.db, id)
}

func (s *SQLiteStorage) approveTransactionTx(ctx context.Context, q queryable, id string) error {
	result, err := q.ExecContext(ctx, `
		UPDATE transactions
		SET was_approved = 1, is_flagged = 0, flags = '[]', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to approve transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	return nil
}

// ReplaceTransactionFlags sets the transaction's flag set to exactly the given
// set, clearing flags that no longer apply. IsFlagged is derived: true iff the
// new set is non-empty.
func (s *SQLiteStorage) ReplaceTransactionFlags(ctx context.Context, id string, flags []model.FlagKind) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateFlags(flags); err != nil {
		return err
	}
	return s.replaceTransactionFlagsTx(ctx, s.db, id, flags)
}

func (s *SQLiteStorage) replaceTransactionFlagsTx(ctx context.Context, q queryable, id string, flags []model.FlagKind) error {
	flagsJSON, err := marshalFlags(flags)
	if err != nil {
		return fmt.Errorf("failed to encode flags: %w", err)
	}

	result, err := q.ExecContext(ctx, `
		UPDATE transactions
		SET flags = ?, is_flagged = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, flagsJSON, boolToInt(len(flags) > 0), id)
	if err != nil {
		return fmt.Errorf("failed to replace flags: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrMissingTransaction)
	}
	return nil
}

// scanTransaction scans one transaction row without its links.
func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var txn model.Transaction
	var amount string
	var date sql.NullTime
	var isFlagged, wasApproved int
	var flagsJSON string

	if err := rows.Scan(
		&txn.ID,
		&txn.OwnerID,
		&amount,
		&txn.Description,
		&date,
		&isFlagged,
		&flagsJSON,
		&wasApproved,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	); err != nil {
		return model.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("stored amount %q is not a decimal: %w", amount, err)
	}
	txn.Amount = parsed

	if date.Valid {
		txn.Date = date.Time
	}
	txn.IsFlagged = isFlagged != 0
	txn.WasApproved = wasApproved != 0

	if flagsJSON != "" {
		if err := json.Unmarshal([]byte(flagsJSON), &txn.Flags); err != nil {
			return model.Transaction{}, fmt.Errorf("stored flags %q are not valid JSON: %w", flagsJSON, err)
		}
	}
	return txn, nil
}

func marshalFlags(flags []model.FlagKind) (string, error) {
	if flags == nil {
		flags = []model.FlagKind{}
	}
	encoded, err := json.Marshal(flags)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
