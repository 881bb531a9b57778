// Package rules implements the categorization rule engine: it evaluates an
// ordered set of user-defined rules against transactions and produces the
// category links to persist.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/calloway/ledgersieve/internal/model"
)

// MatchResult is the outcome of evaluating one rule against one transaction.
type MatchResult int

// Match result constants. Indeterminate is returned only for AI conditions,
// which the engine resolves through the judge.
const (
	NoMatch MatchResult = iota
	Match
	Indeterminate
)

// Condition is the typed form of a rule's stored condition fields. Exactly one
// variant exists per condition type; evaluation switches exhaustively over
// them instead of probing an all-optional flat record.
type Condition interface {
	conditionType() model.ConditionType
}

// DescriptionCondition tests the transaction description against a value.
type DescriptionCondition struct {
	Op    model.ConditionSubtype
	Value string
}

func (DescriptionCondition) conditionType() model.ConditionType { return model.ConditionDescription }

// AmountCondition compares the transaction amount against an exact decimal
// threshold.
type AmountCondition struct {
	Op        model.ConditionSubtype
	Threshold decimal.Decimal
}

func (AmountCondition) conditionType() model.ConditionType { return model.ConditionAmount }

// DateCondition compares the transaction date against one instant, or against
// an inclusive [Start, End] range for the range operators.
type DateCondition struct {
	Start time.Time
	End   time.Time
	Op    model.ConditionSubtype
}

func (DateCondition) conditionType() model.ConditionType { return model.ConditionDate }

// AICondition delegates the decision to the judge, using the target category
// as context.
type AICondition struct {
	Prompt     string
	CategoryID string
}

func (AICondition) conditionType() model.ConditionType { return model.ConditionAI }

// ParseCondition converts a stored rule into its typed condition. A malformed
// operand (unparseable number or date, missing range bound, missing prompt) is
// a configuration error; callers treat it as NoMatch, never as a failure.
func ParseCondition(rule model.CategorizationRule) (Condition, error) {
	switch rule.ConditionType {
	case model.ConditionDescription:
		switch rule.ConditionSubtype {
		case model.SubtypeContains, model.SubtypeEquals, model.SubtypeNotEquals:
			return DescriptionCondition{Op: rule.ConditionSubtype, Value: rule.ConditionValue}, nil
		}
		return nil, fmt.Errorf("subtype %q is not valid for description conditions", rule.ConditionSubtype)

	case model.ConditionAmount:
		switch rule.ConditionSubtype {
		case model.SubtypeGreaterThan, model.SubtypeLessThan, model.SubtypeEquals,
			model.SubtypeGreaterThanOrEqual, model.SubtypeLessThanOrEqual:
		default:
			return nil, fmt.Errorf("subtype %q is not valid for amount conditions", rule.ConditionSubtype)
		}
		threshold, err := decimal.NewFromString(strings.TrimSpace(rule.ConditionValue))
		if err != nil {
			return nil, fmt.Errorf("amount condition value %q is not a decimal: %w", rule.ConditionValue, err)
		}
		return AmountCondition{Op: rule.ConditionSubtype, Threshold: threshold}, nil

	case model.ConditionDate:
		start, err := parseConditionDate(rule.ConditionValue)
		if err != nil {
			return nil, fmt.Errorf("date condition value %q: %w", rule.ConditionValue, err)
		}
		switch rule.ConditionSubtype {
		case model.SubtypeBefore, model.SubtypeAfter:
			return DateCondition{Op: rule.ConditionSubtype, Start: start}, nil
		case model.SubtypeBetween, model.SubtypeNotBetween:
			if rule.OptionalConditionValue == nil || strings.TrimSpace(*rule.OptionalConditionValue) == "" {
				return nil, fmt.Errorf("subtype %q requires a second date bound", rule.ConditionSubtype)
			}
			end, endErr := parseConditionDate(*rule.OptionalConditionValue)
			if endErr != nil {
				return nil, fmt.Errorf("date condition bound %q: %w", *rule.OptionalConditionValue, endErr)
			}
			return DateCondition{Op: rule.ConditionSubtype, Start: start, End: end}, nil
		}
		return nil, fmt.Errorf("subtype %q is not valid for date conditions", rule.ConditionSubtype)

	case model.ConditionAI:
		if rule.AIPrompt == nil || strings.TrimSpace(*rule.AIPrompt) == "" {
			return nil, fmt.Errorf("ai condition requires a prompt")
		}
		if rule.CategoryID == "" {
			return nil, fmt.Errorf("ai condition requires a target category")
		}
		return AICondition{Prompt: *rule.AIPrompt, CategoryID: rule.CategoryID}, nil
	}

	return nil, fmt.Errorf("unknown condition type %q", rule.ConditionType)
}

// parseConditionDate accepts RFC 3339 timestamps and bare calendar dates.
func parseConditionDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("not a recognized date")
}
