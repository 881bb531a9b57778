// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/calloway/ledgersieve/internal/model"
)

// Storage defines the contract for our persistence layer. The classification
// core treats storage as an opaque collaborator: it reads transactions and
// rules, and writes category links and flag sets.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactionsByOwner(ctx context.Context, ownerID string) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionsNeedingReview(ctx context.Context, ownerID string) ([]model.Transaction, error)
	ApproveTransaction(ctx context.Context, id string) error
	ReplaceTransactionFlags(ctx context.Context, id string, flags []model.FlagKind) error

	// Category operations
	GetCategories(ctx context.Context, ownerID string) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, id string) error

	// Rule operations, ordered by position
	GetCategorizationRules(ctx context.Context, ownerID string) ([]model.CategorizationRule, error)
	CreateCategorizationRule(ctx context.Context, rule *model.CategorizationRule) error
	DeleteCategorizationRule(ctx context.Context, id string) error

	// Link operations
	InsertTransactionCategory(ctx context.Context, link *model.TransactionCategoryLink) error
	GetLinksByTransaction(ctx context.Context, transactionID string) ([]model.TransactionCategoryLink, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction. It exposes the same
// operations as Storage so a run's writes for one transaction ID can be
// applied atomically.
type Transaction interface {
	Commit() error
	Rollback() error
	Storage
}
