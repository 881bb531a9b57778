package rules

import (
	"strings"

	"github.com/calloway/ledgersieve/internal/model"
)

// Evaluate resolves a rule against a transaction. It never fails: a malformed
// condition resolves to NoMatch. AI conditions return Indeterminate; they are
// settled by the engine through the judge.
func Evaluate(rule model.CategorizationRule, txn model.Transaction) MatchResult {
	cond, err := ParseCondition(rule)
	if err != nil {
		return NoMatch
	}
	return evaluateCondition(cond, txn)
}

func evaluateCondition(cond Condition, txn model.Transaction) MatchResult {
	switch c := cond.(type) {
	case DescriptionCondition:
		return evaluateDescription(c, txn)
	case AmountCondition:
		return evaluateAmount(c, txn)
	case DateCondition:
		return evaluateDate(c, txn)
	case AICondition:
		return Indeterminate
	}
	return NoMatch
}

func evaluateDescription(c DescriptionCondition, txn model.Transaction) MatchResult {
	// An absent description never matches, not even not_equals.
	if txn.Description == "" {
		return NoMatch
	}

	description := strings.ToLower(txn.Description)
	value := strings.ToLower(c.Value)

	switch c.Op {
	case model.SubtypeContains:
		return boolResult(strings.Contains(description, value))
	case model.SubtypeEquals:
		return boolResult(description == value)
	case model.SubtypeNotEquals:
		return boolResult(description != value)
	}
	return NoMatch
}

func evaluateAmount(c AmountCondition, txn model.Transaction) MatchResult {
	// Cmp compares exact decimal values, so "10.00" equals "10".
	cmp := txn.Amount.Cmp(c.Threshold)

	switch c.Op {
	case model.SubtypeGreaterThan:
		return boolResult(cmp > 0)
	case model.SubtypeLessThan:
		return boolResult(cmp < 0)
	case model.SubtypeEquals:
		return boolResult(cmp == 0)
	case model.SubtypeGreaterThanOrEqual:
		return boolResult(cmp >= 0)
	case model.SubtypeLessThanOrEqual:
		return boolResult(cmp <= 0)
	}
	return NoMatch
}

func evaluateDate(c DateCondition, txn model.Transaction) MatchResult {
	if !txn.HasDate() {
		return NoMatch
	}

	switch c.Op {
	case model.SubtypeBefore:
		return boolResult(txn.Date.Before(c.Start))
	case model.SubtypeAfter:
		return boolResult(txn.Date.After(c.Start))
	case model.SubtypeBetween:
		// Inclusive of both bounds.
		return boolResult(!txn.Date.Before(c.Start) && !txn.Date.After(c.End))
	case model.SubtypeNotBetween:
		return boolResult(txn.Date.Before(c.Start) || txn.Date.After(c.End))
	}
	return NoMatch
}

func boolResult(matched bool) MatchResult {
	if matched {
		return Match
	}
	return NoMatch
}
