package judge

import (
	"context"
	"fmt"

	"github.com/calloway/ledgersieve/internal/common"
)

// ErrNotConfigured is returned by Disabled for every request.
var ErrNotConfigured = fmt.Errorf("%w: set judge.api_key or OPENROUTER_API_KEY", common.ErrJudgeUnavailable)

// Disabled is the Judge used when no API key is configured. Every request
// fails, which the rule engine treats as "do not apply".
type Disabled struct{}

// Judge always returns ErrNotConfigured.
func (Disabled) Judge(_ context.Context, _ Request) (Response, error) {
	return Response{}, ErrNotConfigured
}
