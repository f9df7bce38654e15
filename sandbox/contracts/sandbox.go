package contracts

import "context"

// IExecutionSandbox runs model-produced code against a prepared variable set
// and returns the combined textual output.
type IExecutionSandbox interface {
	Execute(ctx context.Context, code string, vars map[string]any) (string, error)
}
