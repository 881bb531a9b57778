package judge

import (
	"context"
	"strings"
	"sync"
)

// MockJudge is a deterministic test implementation of the Judge interface.
// It decides by substring match between the transaction description and the
// prompt, and records every call for assertions.
type MockJudge struct {
	// DecideFn overrides the default behavior when set.
	DecideFn func(req Request) (Response, error)
	// Err is returned from every call when set.
	Err   error
	calls []Request
	mu    sync.Mutex
}

// NewMockJudge creates a new mock judge.
func NewMockJudge() *MockJudge {
	return &MockJudge{calls: make([]Request, 0)}
}

// Judge records the call and returns a deterministic decision.
func (m *MockJudge) Judge(_ context.Context, req Request) (Response, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.Err != nil {
		return Response{}, m.Err
	}
	if m.DecideFn != nil {
		return m.DecideFn(req)
	}

	if strings.Contains(strings.ToLower(req.TransactionDescription), strings.ToLower(req.Prompt)) {
		return Response{Decision: DecisionApply}, nil
	}
	return Response{Decision: DecisionDoNotApply}, nil
}

// Calls returns a copy of all recorded requests.
func (m *MockJudge) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of judgments requested so far.
func (m *MockJudge) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
