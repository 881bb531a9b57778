package model

import "time"

// ConditionType indicates which transaction attribute a rule inspects.
type ConditionType string

// Condition type constants.
const (
	ConditionDescription ConditionType = "description"
	ConditionAmount      ConditionType = "amount"
	ConditionDate        ConditionType = "date"
	ConditionAI          ConditionType = "ai"
)

// ConditionSubtype is the comparison operator applied within a condition type.
type ConditionSubtype string

// Condition subtype constants.
const (
	SubtypeContains           ConditionSubtype = "contains"
	SubtypeEquals             ConditionSubtype = "equals"
	SubtypeNotEquals          ConditionSubtype = "not_equals"
	SubtypeGreaterThan        ConditionSubtype = "greater_than"
	SubtypeLessThan           ConditionSubtype = "less_than"
	SubtypeGreaterThanOrEqual ConditionSubtype = "greater_than_or_equal"
	SubtypeLessThanOrEqual    ConditionSubtype = "less_than_or_equal"
	SubtypeBefore             ConditionSubtype = "before"
	SubtypeAfter              ConditionSubtype = "after"
	SubtypeBetween            ConditionSubtype = "between"
	SubtypeNotBetween         ConditionSubtype = "not_between"
)

// CategorizationRule assigns a category to transactions whose attributes
// satisfy its condition. Rules are evaluated in ascending Position order;
// the position is persisted explicitly so that evaluation order never
// depends on storage-returned row order.
type CategorizationRule struct {
	CreatedAt              time.Time
	UpdatedAt              time.Time
	ID                     string
	OwnerID                string
	Name                   string
	ConditionType          ConditionType
	ConditionSubtype       ConditionSubtype
	ConditionValue         string
	OptionalConditionValue *string
	AIPrompt               *string
	CategoryID             string
	Position               int
}
