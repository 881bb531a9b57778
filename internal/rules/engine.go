package rules

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calloway/ledgersieve/internal/judge"
	"github.com/calloway/ledgersieve/internal/model"
)

// Engine applies an ordered rule set to a batch of transactions. Rules are
// evaluated in ascending position order; every matching rule whose category is
// not yet linked contributes a link. This deliberately deviates from
// first-match-wins: all matching rules apply, and the per-transaction category
// set accumulated during the run keeps any category from being linked twice.
type Engine struct {
	judge        judge.Judge
	logger       *slog.Logger
	maxWorkers   int
	judgeTimeout time.Duration
}

// Config holds configuration options for the rule engine.
type Config struct {
	MaxWorkers   int
	JudgeTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxWorkers:   5,
		JudgeTimeout: 15 * time.Second,
	}
}

// New creates a rule engine with default configuration.
func New(j judge.Judge, logger *slog.Logger) *Engine {
	return NewWithConfig(j, logger, DefaultConfig())
}

// NewWithConfig creates a rule engine with custom configuration.
func NewWithConfig(j judge.Judge, logger *slog.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 1
	}
	if cfg.JudgeTimeout <= 0 {
		cfg.JudgeTimeout = 15 * time.Second
	}
	return &Engine{
		judge:        j,
		logger:       logger,
		maxWorkers:   cfg.MaxWorkers,
		judgeTimeout: cfg.JudgeTimeout,
	}
}

// Apply evaluates every rule against every transaction and returns the new
// category links to persist. Transactions are processed concurrently; the rule
// chain within one transaction stays strictly ordered because later rules
// consult the category set accumulated by earlier ones. Re-running Apply on
// unchanged input yields no new links.
func (e *Engine) Apply(ctx context.Context, ruleSet []model.CategorizationRule, categories []model.Category, transactions []model.Transaction) []model.TransactionCategoryLink {
	if len(ruleSet) == 0 || len(transactions) == 0 {
		return nil
	}

	ordered := make([]model.CategorizationRule, len(ruleSet))
	copy(ordered, ruleSet)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	categoryByID := make(map[string]model.Category, len(categories))
	for _, cat := range categories {
		categoryByID[cat.ID] = cat
	}

	results := make([][]model.TransactionCategoryLink, len(transactions))
	sem := make(chan struct{}, e.maxWorkers)
	var wg sync.WaitGroup

	for i, txn := range transactions {
		wg.Add(1)
		go func(idx int, transaction model.Transaction) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			results[idx] = e.applyToTransaction(ctx, ordered, categoryByID, transaction)
		}(i, txn)
	}

	wg.Wait()

	var links []model.TransactionCategoryLink
	for _, r := range results {
		links = append(links, r...)
	}
	return links
}

// applyToTransaction walks the ordered rule set for a single transaction.
func (e *Engine) applyToTransaction(ctx context.Context, ordered []model.CategorizationRule, categoryByID map[string]model.Category, txn model.Transaction) []model.TransactionCategoryLink {
	existing := txn.CategoryIDs()

	var links []model.TransactionCategoryLink
	for _, rule := range ordered {
		if rule.CategoryID == "" {
			continue
		}
		// Skip rules whose category is already linked, whether from storage
		// or from an earlier rule in this run. This keeps re-runs idempotent
		// and avoids re-judging AI rules that are already satisfied.
		if existing[rule.CategoryID] {
			continue
		}

		if !e.ruleMatches(ctx, rule, categoryByID, txn) {
			continue
		}

		ruleID := rule.ID
		links = append(links, model.TransactionCategoryLink{
			ID:            uuid.NewString(),
			TransactionID: txn.ID,
			CategoryID:    rule.CategoryID,
			AddedBy:       model.AddedByRule,
			RuleID:        &ruleID,
		})
		existing[rule.CategoryID] = true
	}
	return links
}

// ruleMatches resolves one rule, settling Indeterminate results through the
// judge. A judge failure is logged and treated as a normal negative result; it
// never aborts the rest of the rule chain.
func (e *Engine) ruleMatches(ctx context.Context, rule model.CategorizationRule, categoryByID map[string]model.Category, txn model.Transaction) bool {
	switch Evaluate(rule, txn) {
	case Match:
		return true
	case NoMatch:
		return false
	case Indeterminate:
	}

	category, ok := categoryByID[rule.CategoryID]
	if !ok {
		e.logger.Warn("ai rule references missing category",
			"rule_id", rule.ID,
			"category_id", rule.CategoryID)
		return false
	}

	date := ""
	if txn.HasDate() {
		date = txn.Date.Format(time.RFC3339)
	}

	judgeCtx, cancel := context.WithTimeout(ctx, e.judgeTimeout)
	defer cancel()

	resp, err := e.judge.Judge(judgeCtx, judge.Request{
		TransactionDate:        date,
		TransactionDescription: txn.Description,
		TransactionAmount:      txn.Amount.String(),
		CategoryName:           category.Name,
		CategoryDescription:    category.Description,
		Prompt:                 derefString(rule.AIPrompt),
	})
	if err != nil {
		// Fail closed: never assign a category on an uncertain AI signal.
		e.logger.Warn("ai judgment failed, treating as no match",
			"rule_id", rule.ID,
			"transaction_id", txn.ID,
			"error", err)
		return false
	}

	return resp.Decision == judge.DecisionApply
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
