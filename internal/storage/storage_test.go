package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calloway/ledgersieve/internal/common"
	"github.com/calloway/ledgersieve/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func storedTxn(id, description, amount, date string) model.Transaction {
	txn := model.Transaction{
		ID:          id,
		OwnerID:     "owner-1",
		Description: description,
		Amount:      decimal.RequireFromString(amount),
	}
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			panic(err)
		}
		txn.Date = parsed
	}
	return txn
}

func createTestCategory(t *testing.T, store *SQLiteStorage, id, name string) {
	t.Helper()
	require.NoError(t, store.CreateCategory(context.Background(), &model.Category{
		ID:      id,
		OwnerID: "owner-1",
		Name:    name,
	}))
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestSaveAndGetTransactions(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	saved := []model.Transaction{
		storedTxn("t1", "coffee", "4.50", "2024-03-01"),
		storedTxn("t2", "rent", "2500.00", ""),
	}
	require.NoError(t, store.SaveTransactions(ctx, saved))

	got, err := store.GetTransactionsByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "coffee", got[0].Description)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("4.50")))
	assert.True(t, got[0].HasDate())

	assert.Equal(t, "t2", got[1].ID)
	assert.False(t, got[1].HasDate(), "absent dates round-trip as absent")
	assert.False(t, got[1].IsFlagged)
	assert.Empty(t, got[1].Flags)
}

func TestSaveTransactionsIgnoresExisting(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "original", "10", "2024-03-01"),
	}))
	// Same ID again with different content: the original row wins.
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "changed", "99", "2024-03-01"),
	}))

	got, err := store.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Description)
}

func TestGetTransactionByIDNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetTransactionByID(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestReplaceTransactionFlags(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "coffee", "4.50", "2024-03-01"),
	}))

	require.NoError(t, store.ReplaceTransactionFlags(ctx, "t1",
		[]model.FlagKind{model.FlagDuplicate, model.FlagUncategorized}))

	got, err := store.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.IsFlagged)
	assert.Equal(t, []model.FlagKind{model.FlagDuplicate, model.FlagUncategorized}, got.Flags)

	// An empty replacement clears everything, including the derived bit.
	require.NoError(t, store.ReplaceTransactionFlags(ctx, "t1", nil))

	got, err = store.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, got.IsFlagged)
	assert.Empty(t, got.Flags)
}

func TestReplaceTransactionFlagsMissingTransaction(t *testing.T) {
	store := newTestStorage(t)

	err := store.ReplaceTransactionFlags(context.Background(), "missing", []model.FlagKind{model.FlagDuplicate})
	require.ErrorIs(t, err, common.ErrMissingTransaction)
}

func TestReplaceTransactionFlagsRejectsUnknownKind(t *testing.T) {
	store := newTestStorage(t)

	err := store.ReplaceTransactionFlags(context.Background(), "t1", []model.FlagKind{"suspicious"})
	require.ErrorIs(t, err, ErrInvalidFlag)
}

func TestApproveTransaction(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "coffee", "4.50", "2024-03-01"),
	}))
	require.NoError(t, store.ReplaceTransactionFlags(ctx, "t1", []model.FlagKind{model.FlagDuplicate}))

	require.NoError(t, store.ApproveTransaction(ctx, "t1"))

	got, err := store.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.WasApproved)
	assert.False(t, got.IsFlagged)
	assert.Empty(t, got.Flags)
}

func TestGetTransactionsNeedingReview(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "clean", "10", "2024-03-01"),
		storedTxn("t2", "flagged", "10", "2024-03-01"),
		storedTxn("t3", "approved", "10", "2024-03-01"),
	}))
	require.NoError(t, store.ReplaceTransactionFlags(ctx, "t2", []model.FlagKind{model.FlagDuplicate}))
	require.NoError(t, store.ReplaceTransactionFlags(ctx, "t3", []model.FlagKind{model.FlagDuplicate}))
	require.NoError(t, store.ApproveTransaction(ctx, "t3"))

	review, err := store.GetTransactionsNeedingReview(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, review, 1)
	assert.Equal(t, "t2", review[0].ID)
}

func TestCategoryCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestCategory(t, store, "cat-1", "Dining")
	createTestCategory(t, store, "cat-2", "Rent")

	categories, err := store.GetCategories(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Dining", categories[0].Name, "categories come back ordered by name")

	got, err := store.GetCategoryByID(ctx, "cat-2")
	require.NoError(t, err)
	assert.Equal(t, "Rent", got.Name)

	require.NoError(t, store.DeleteCategory(ctx, "cat-2"))
	_, err = store.GetCategoryByID(ctx, "cat-2")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateCategoryDuplicateName(t *testing.T) {
	store := newTestStorage(t)

	createTestCategory(t, store, "cat-1", "Dining")
	err := store.CreateCategory(context.Background(), &model.Category{
		ID:      "cat-2",
		OwnerID: "owner-1",
		Name:    "Dining",
	})
	require.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestDeleteCategoryCascades(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestCategory(t, store, "cat-1", "Dining")
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "coffee", "4.50", "2024-03-01"),
	}))
	require.NoError(t, store.InsertTransactionCategory(ctx, &model.TransactionCategoryLink{
		ID:            "link-1",
		TransactionID: "t1",
		CategoryID:    "cat-1",
		AddedBy:       model.AddedByUser,
	}))
	require.NoError(t, store.CreateCategorizationRule(ctx, &model.CategorizationRule{
		ID:               "rule-1",
		OwnerID:          "owner-1",
		Name:             "coffee rule",
		ConditionType:    model.ConditionDescription,
		ConditionSubtype: model.SubtypeContains,
		ConditionValue:   "coffee",
		CategoryID:       "cat-1",
	}))

	require.NoError(t, store.DeleteCategory(ctx, "cat-1"))

	links, err := store.GetLinksByTransaction(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, links)

	ruleSet, err := store.GetCategorizationRules(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, ruleSet)
}

func TestRulePositionAssignmentAndOrder(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestCategory(t, store, "cat-1", "Dining")

	first := &model.CategorizationRule{
		ID: "rule-a", OwnerID: "owner-1", Name: "first",
		ConditionType: model.ConditionDescription, ConditionSubtype: model.SubtypeContains,
		ConditionValue: "coffee", CategoryID: "cat-1",
	}
	second := &model.CategorizationRule{
		ID: "rule-b", OwnerID: "owner-1", Name: "second",
		ConditionType: model.ConditionDescription, ConditionSubtype: model.SubtypeContains,
		ConditionValue: "tea", CategoryID: "cat-1",
	}
	pinned := &model.CategorizationRule{
		ID: "rule-c", OwnerID: "owner-1", Name: "pinned",
		ConditionType: model.ConditionDescription, ConditionSubtype: model.SubtypeContains,
		ConditionValue: "juice", CategoryID: "cat-1", Position: 10,
	}
	appended := &model.CategorizationRule{
		ID: "rule-d", OwnerID: "owner-1", Name: "appended",
		ConditionType: model.ConditionDescription, ConditionSubtype: model.SubtypeContains,
		ConditionValue: "soda", CategoryID: "cat-1",
	}

	require.NoError(t, store.CreateCategorizationRule(ctx, first))
	require.NoError(t, store.CreateCategorizationRule(ctx, second))
	require.NoError(t, store.CreateCategorizationRule(ctx, pinned))
	require.NoError(t, store.CreateCategorizationRule(ctx, appended))

	assert.Equal(t, 1, first.Position, "new rules append to the end")
	assert.Equal(t, 2, second.Position)
	assert.Equal(t, 11, appended.Position, "appending continues after an explicit position")

	ruleSet, err := store.GetCategorizationRules(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, ruleSet, 4)
	assert.Equal(t, "rule-a", ruleSet[0].ID)
	assert.Equal(t, "rule-b", ruleSet[1].ID)
	assert.Equal(t, "rule-c", ruleSet[2].ID)
	assert.Equal(t, "rule-d", ruleSet[3].ID)
}

func TestCreateRuleMissingCategory(t *testing.T) {
	store := newTestStorage(t)

	err := store.CreateCategorizationRule(context.Background(), &model.CategorizationRule{
		ID: "rule-1", OwnerID: "owner-1", Name: "dangling",
		ConditionType: model.ConditionDescription, ConditionSubtype: model.SubtypeContains,
		ConditionValue: "x", CategoryID: "cat-gone",
	})
	require.ErrorIs(t, err, common.ErrMissingCategory)
}

func TestDeleteRuleRemovesOnlyItsLinks(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestCategory(t, store, "cat-1", "Dining")
	createTestCategory(t, store, "cat-2", "Coffee")
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "coffee", "4.50", "2024-03-01"),
	}))
	require.NoError(t, store.CreateCategorizationRule(ctx, &model.CategorizationRule{
		ID: "rule-1", OwnerID: "owner-1", Name: "coffee rule",
		ConditionType: model.ConditionDescription, ConditionSubtype: model.SubtypeContains,
		ConditionValue: "coffee", CategoryID: "cat-2",
	}))

	ruleID := "rule-1"
	require.NoError(t, store.InsertTransactionCategory(ctx, &model.TransactionCategoryLink{
		ID: "link-rule", TransactionID: "t1", CategoryID: "cat-2",
		AddedBy: model.AddedByRule, RuleID: &ruleID,
	}))
	require.NoError(t, store.InsertTransactionCategory(ctx, &model.TransactionCategoryLink{
		ID: "link-user", TransactionID: "t1", CategoryID: "cat-1",
		AddedBy: model.AddedByUser,
	}))

	require.NoError(t, store.DeleteCategorizationRule(ctx, "rule-1"))

	links, err := store.GetLinksByTransaction(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "link-user", links[0].ID, "user-added links survive rule deletion")
}

func TestInsertLinkUniquePerCategory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestCategory(t, store, "cat-1", "Dining")
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "coffee", "4.50", "2024-03-01"),
	}))

	link := func(id string) *model.TransactionCategoryLink {
		return &model.TransactionCategoryLink{
			ID: id, TransactionID: "t1", CategoryID: "cat-1", AddedBy: model.AddedByUser,
		}
	}
	require.NoError(t, store.InsertTransactionCategory(ctx, link("link-1")))

	err := store.InsertTransactionCategory(ctx, link("link-2"))
	require.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestInsertLinkMissingReferences(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestCategory(t, store, "cat-1", "Dining")

	err := store.InsertTransactionCategory(ctx, &model.TransactionCategoryLink{
		ID: "link-1", TransactionID: "t-gone", CategoryID: "cat-1", AddedBy: model.AddedByUser,
	})
	require.ErrorIs(t, err, common.ErrMissingTransaction)

	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "coffee", "4.50", "2024-03-01"),
	}))
	err = store.InsertTransactionCategory(ctx, &model.TransactionCategoryLink{
		ID: "link-2", TransactionID: "t1", CategoryID: "cat-gone", AddedBy: model.AddedByUser,
	})
	require.ErrorIs(t, err, common.ErrMissingCategory)
}

func TestTransactionLinksAttachOnLoad(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	createTestCategory(t, store, "cat-1", "Dining")
	require.NoError(t, store.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "coffee", "4.50", "2024-03-01"),
		storedTxn("t2", "rent", "2500", "2024-03-01"),
	}))
	require.NoError(t, store.InsertTransactionCategory(ctx, &model.TransactionCategoryLink{
		ID: "link-1", TransactionID: "t1", CategoryID: "cat-1", AddedBy: model.AddedByUser,
	}))

	got, err := store.GetTransactionsByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got[0].Categories, 1)
	assert.Equal(t, "cat-1", got[0].Categories[0].CategoryID)
	assert.Empty(t, got[1].Categories)
}

func TestBeginTxRollback(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, tx.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "coffee", "4.50", "2024-03-01"),
	}))
	require.NoError(t, tx.Rollback())

	_, err = store.GetTransactionByID(ctx, "t1")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestBeginTxCommit(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveTransactions(ctx, []model.Transaction{
		storedTxn("t1", "coffee", "4.50", "2024-03-01"),
	}))
	require.NoError(t, tx.Commit())

	got, err := store.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "coffee", got.Description)
}

func TestTransactionRefusesNesting(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	tx, err := store.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	_, err = tx.BeginTx(ctx)
	require.Error(t, err)
	require.Error(t, tx.Migrate(ctx))
	require.Error(t, tx.Close())
}
