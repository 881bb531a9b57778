package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calloway/ledgersieve/internal/judge"
	"github.com/calloway/ledgersieve/internal/model"
)

func descriptionRule(id, value, categoryID string, position int) model.CategorizationRule {
	return model.CategorizationRule{
		ID:               id,
		OwnerID:          "owner-1",
		Name:             id,
		ConditionType:    model.ConditionDescription,
		ConditionSubtype: model.SubtypeContains,
		ConditionValue:   value,
		CategoryID:       categoryID,
		Position:         position,
	}
}

func aiRule(id, prompt, categoryID string, position int) model.CategorizationRule {
	return model.CategorizationRule{
		ID:            id,
		OwnerID:       "owner-1",
		Name:          id,
		ConditionType: model.ConditionAI,
		AIPrompt:      &prompt,
		CategoryID:    categoryID,
		Position:      position,
	}
}

func TestApplyAllMatchingRulesContribute(t *testing.T) {
	engine := New(judge.NewMockJudge(), nil)

	ruleSet := []model.CategorizationRule{
		descriptionRule("rule-coffee", "coffee", "cat-dining", 1),
		descriptionRule("rule-bottle", "bottle", "cat-recurring", 2),
		descriptionRule("rule-grocery", "grocery", "cat-grocery", 3),
	}
	txn := testTxn("Blue Bottle coffee", "4.50", "2024-03-01")

	links := engine.Apply(context.Background(), ruleSet, nil, []model.Transaction{txn})

	// Both matching rules apply, not just the first.
	require.Len(t, links, 2)
	assert.Equal(t, "cat-dining", links[0].CategoryID)
	assert.Equal(t, "cat-recurring", links[1].CategoryID)
	for _, link := range links {
		assert.Equal(t, txn.ID, link.TransactionID)
		assert.Equal(t, model.AddedByRule, link.AddedBy)
		require.NotNil(t, link.RuleID)
	}
	assert.Equal(t, "rule-coffee", *links[0].RuleID)
}

func TestApplySkipsAlreadyLinkedCategories(t *testing.T) {
	engine := New(judge.NewMockJudge(), nil)

	ruleSet := []model.CategorizationRule{
		descriptionRule("rule-coffee", "coffee", "cat-dining", 1),
	}
	txn := testTxn("Blue Bottle coffee", "4.50", "2024-03-01")
	txn.Categories = []model.TransactionCategoryLink{
		{ID: "link-1", TransactionID: txn.ID, CategoryID: "cat-dining", AddedBy: model.AddedByUser},
	}

	links := engine.Apply(context.Background(), ruleSet, nil, []model.Transaction{txn})
	assert.Empty(t, links, "a category already linked must not be linked again")
}

func TestApplyDeduplicatesWithinSingleRun(t *testing.T) {
	engine := New(judge.NewMockJudge(), nil)

	// Two rules targeting the same category; only the earlier one links it.
	ruleSet := []model.CategorizationRule{
		descriptionRule("rule-b", "bottle", "cat-dining", 2),
		descriptionRule("rule-a", "coffee", "cat-dining", 1),
	}
	txn := testTxn("Blue Bottle coffee", "4.50", "2024-03-01")

	links := engine.Apply(context.Background(), ruleSet, nil, []model.Transaction{txn})

	require.Len(t, links, 1)
	require.NotNil(t, links[0].RuleID)
	assert.Equal(t, "rule-a", *links[0].RuleID, "rules apply in position order, not input order")
}

func TestApplyAIRuleUsesJudge(t *testing.T) {
	mock := judge.NewMockJudge()
	mock.DecideFn = func(req judge.Request) (judge.Response, error) {
		if req.TransactionDescription == "Team lunch at Luigi's" {
			return judge.Response{Decision: judge.DecisionApply}, nil
		}
		return judge.Response{Decision: judge.DecisionDoNotApply}, nil
	}
	engine := New(mock, nil)

	categories := []model.Category{
		{ID: "cat-meals", OwnerID: "owner-1", Name: "Business Meals", Description: "Client and team meals"},
	}
	ruleSet := []model.CategorizationRule{
		aiRule("rule-ai", "Is this a business meal?", "cat-meals", 1),
	}
	lunch := testTxn("Team lunch at Luigi's", "84.00", "2024-03-01")
	lunch.ID = "txn-lunch"
	rent := testTxn("Monthly rent", "2500.00", "2024-03-01")
	rent.ID = "txn-rent"

	links := engine.Apply(context.Background(), ruleSet, categories, []model.Transaction{lunch, rent})

	require.Len(t, links, 1)
	assert.Equal(t, "txn-lunch", links[0].TransactionID)
	assert.Equal(t, 2, mock.CallCount())

	// The judge sees the category context, not just the prompt.
	for _, call := range mock.Calls() {
		assert.Equal(t, "Business Meals", call.CategoryName)
		assert.Equal(t, "Is this a business meal?", call.Prompt)
	}
}

func TestApplyJudgeFailureFailsClosed(t *testing.T) {
	mock := judge.NewMockJudge()
	mock.Err = errors.New("upstream timeout")
	engine := New(mock, nil)

	categories := []model.Category{{ID: "cat-meals", Name: "Business Meals"}}
	ruleSet := []model.CategorizationRule{
		aiRule("rule-ai", "Is this a business meal?", "cat-meals", 1),
		descriptionRule("rule-coffee", "lunch", "cat-dining", 2),
	}
	txn := testTxn("Team lunch", "84.00", "2024-03-01")

	links := engine.Apply(context.Background(), ruleSet, categories, []model.Transaction{txn})

	// The failed AI rule contributes nothing, but the rest of the chain runs.
	require.Len(t, links, 1)
	assert.Equal(t, "cat-dining", links[0].CategoryID)
}

func TestApplyAIRuleMissingCategoryIsNoMatch(t *testing.T) {
	mock := judge.NewMockJudge()
	engine := New(mock, nil)

	ruleSet := []model.CategorizationRule{
		aiRule("rule-ai", "Is this a business meal?", "cat-gone", 1),
	}
	txn := testTxn("Team lunch", "84.00", "2024-03-01")

	links := engine.Apply(context.Background(), ruleSet, nil, []model.Transaction{txn})

	assert.Empty(t, links)
	assert.Equal(t, 0, mock.CallCount(), "a dangling category reference must not reach the judge")
}

func TestApplySecondRunAddsNothing(t *testing.T) {
	engine := New(judge.NewMockJudge(), nil)

	ruleSet := []model.CategorizationRule{
		descriptionRule("rule-coffee", "coffee", "cat-dining", 1),
	}
	txn := testTxn("Blue Bottle coffee", "4.50", "2024-03-01")

	first := engine.Apply(context.Background(), ruleSet, nil, []model.Transaction{txn})
	require.Len(t, first, 1)

	// Simulate persistence, then re-run on the updated state.
	txn.Categories = first
	second := engine.Apply(context.Background(), ruleSet, nil, []model.Transaction{txn})
	assert.Empty(t, second)
}

func TestApplyAIRuleSkippedWhenAlreadyLinked(t *testing.T) {
	mock := judge.NewMockJudge()
	engine := New(mock, nil)

	categories := []model.Category{{ID: "cat-meals", Name: "Business Meals"}}
	ruleSet := []model.CategorizationRule{
		aiRule("rule-ai", "Is this a business meal?", "cat-meals", 1),
	}
	txn := testTxn("Team lunch", "84.00", "2024-03-01")
	txn.Categories = []model.TransactionCategoryLink{
		{ID: "link-1", TransactionID: txn.ID, CategoryID: "cat-meals", AddedBy: model.AddedByUser},
	}

	links := engine.Apply(context.Background(), ruleSet, categories, []model.Transaction{txn})

	assert.Empty(t, links)
	assert.Equal(t, 0, mock.CallCount(), "a satisfied AI rule must not be re-judged")
}

func TestApplyEmptyInputs(t *testing.T) {
	engine := New(judge.NewMockJudge(), nil)

	assert.Nil(t, engine.Apply(context.Background(), nil, nil, []model.Transaction{testTxn("x", "1", "")}))
	assert.Nil(t, engine.Apply(context.Background(), []model.CategorizationRule{descriptionRule("r", "x", "c", 1)}, nil, nil))
}

func TestApplyManyTransactionsPreservesPerTransactionResults(t *testing.T) {
	engine := NewWithConfig(judge.NewMockJudge(), nil, Config{MaxWorkers: 3})

	ruleSet := []model.CategorizationRule{
		descriptionRule("rule-coffee", "coffee", "cat-dining", 1),
	}

	transactions := make([]model.Transaction, 20)
	for i := range transactions {
		txn := testTxn("coffee run", "4.50", "2024-03-01")
		txn.ID = string(rune('a' + i))
		transactions[i] = txn
	}

	links := engine.Apply(context.Background(), ruleSet, nil, transactions)

	require.Len(t, links, len(transactions))
	seen := make(map[string]bool)
	for _, link := range links {
		seen[link.TransactionID] = true
	}
	assert.Len(t, seen, len(transactions))
}
