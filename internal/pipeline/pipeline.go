// Package pipeline coordinates the classification run: rule application first,
// anomaly detection second, with results reconciled against stored state.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/calloway/ledgersieve/internal/anomaly"
	"github.com/calloway/ledgersieve/internal/model"
	"github.com/calloway/ledgersieve/internal/rules"
	"github.com/calloway/ledgersieve/internal/service"
)

// Pipeline runs the classification cycle for one owner. Invoked after
// transaction import and after rule changes; safe to call repeatedly because
// rule application skips already-linked categories and flag sets are
// recomputed from scratch each run.
type Pipeline struct {
	storage  service.Storage
	engine   *rules.Engine
	detector *anomaly.Detector
	logger   *slog.Logger
}

// New creates a classification pipeline.
func New(storage service.Storage, engine *rules.Engine, detector *anomaly.Detector, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		storage:  storage,
		engine:   engine,
		detector: detector,
		logger:   logger,
	}
}

// Run fetches the owner's rules and transactions, applies the rule engine,
// persists the new category links, then recomputes and replaces anomaly
// flags. The two phases are sequential because uncategorized detection
// depends on the links created in the same run. A failure on one transaction
// is logged and skipped; the run continues for the rest of the batch.
func (p *Pipeline) Run(ctx context.Context, ownerID string) error {
	ruleSet, err := p.storage.GetCategorizationRules(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	categories, err := p.storage.GetCategories(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}

	transactions, err := p.storage.GetTransactionsByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to load transactions: %w", err)
	}

	if len(transactions) == 0 {
		p.logger.Info("no transactions to classify", "owner_id", ownerID)
		return nil
	}

	p.logger.Info("starting classification run",
		"owner_id", ownerID,
		"rules", len(ruleSet),
		"transactions", len(transactions))

	links := p.engine.Apply(ctx, ruleSet, categories, transactions)
	p.persistLinks(ctx, links)

	// Re-fetch so uncategorized detection sees the links just written.
	transactions, err = p.storage.GetTransactionsByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to reload transactions: %w", err)
	}

	flagSets := p.detector.Detect(transactions)
	p.persistFlags(ctx, transactions, flagSets)

	p.logger.Info("classification run complete",
		"owner_id", ownerID,
		"new_links", len(links))
	return nil
}

// persistLinks writes the run's new links, one storage transaction per
// affected transaction ID so a concurrent reader never observes a partially
// applied link set.
func (p *Pipeline) persistLinks(ctx context.Context, links []model.TransactionCategoryLink) {
	byTransaction := make(map[string][]model.TransactionCategoryLink)
	var order []string
	for _, link := range links {
		if _, ok := byTransaction[link.TransactionID]; !ok {
			order = append(order, link.TransactionID)
		}
		byTransaction[link.TransactionID] = append(byTransaction[link.TransactionID], link)
	}

	for _, txnID := range order {
		if err := p.persistTransactionLinks(ctx, byTransaction[txnID]); err != nil {
			p.logger.Error("failed to persist links for transaction",
				"transaction_id", txnID,
				"error", err)
		}
	}
}

func (p *Pipeline) persistTransactionLinks(ctx context.Context, links []model.TransactionCategoryLink) error {
	tx, err := p.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for i := range links {
		if err := tx.InsertTransactionCategory(ctx, &links[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert link for category %s: %w", links[i].CategoryID, err)
		}
	}

	return tx.Commit()
}

// persistFlags replaces each transaction's flag set with the recomputed one,
// skipping transactions whose set is unchanged. Approved transactions have no
// entry in flagSets and are left untouched.
func (p *Pipeline) persistFlags(ctx context.Context, transactions []model.Transaction, flagSets map[string][]model.FlagKind) {
	for _, txn := range transactions {
		set, ok := flagSets[txn.ID]
		if !ok {
			continue
		}
		if sameFlags(txn.Flags, set) {
			continue
		}
		if err := p.storage.ReplaceTransactionFlags(ctx, txn.ID, set); err != nil {
			p.logger.Error("failed to replace flags for transaction",
				"transaction_id", txn.ID,
				"error", err)
		}
	}
}

// sameFlags compares flag sets ignoring order.
func sameFlags(a, b []model.FlagKind) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[model.FlagKind]int, len(a))
	for _, f := range a {
		counts[f]++
	}
	for _, f := range b {
		counts[f]--
		if counts[f] < 0 {
			return false
		}
	}
	return true
}
