// Package judge decides whether an AI-based rule condition applies to a
// transaction by asking a remote text-classification service.
package judge

import (
	"context"
)

// Decision is the judge's verdict for one (transaction, rule) pair.
type Decision string

// Decision constants.
const (
	DecisionApply      Decision = "apply"
	DecisionDoNotApply Decision = "do_not_apply"
)

// Request carries everything the remote service needs to judge one rule
// against one transaction.
type Request struct {
	TransactionDate        string // ISO-8601
	TransactionDescription string
	TransactionAmount      string // decimal as string, never float
	CategoryName           string
	CategoryDescription    string
	Prompt                 string // the rule's free-text criterion
}

// Response contains the decision plus optional explanation text.
type Response struct {
	Decision    Decision
	Explanation string
}

// Judge defines the interface for AI rule judgment providers. Implementations
// must respect the context deadline; callers treat any returned error as
// DecisionDoNotApply (fail-closed).
type Judge interface {
	Judge(ctx context.Context, req Request) (Response, error)
}
