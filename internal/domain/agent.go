package domain

import (
	"context"
	"encoding/json"
)

// Tool is a capability the reasoning engine may invoke by name during a task.
// Call returns human-readable text; an error is returned only for
// configuration-fatal conditions, which abort the run.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON schema of the tool arguments
	Parameters() map[string]interface{}
	Call(ctx context.Context, arguments json.RawMessage) (string, error)
}

// ReasoningRequest is one task handed to the reasoning engine
type ReasoningRequest struct {
	Role           string
	Goal           string
	Backstory      string
	Task           string
	ExpectedOutput string
	// Context is the output of the preceding task, empty for the first one
	Context    string
	Tools      []Tool
	JSONOutput bool
}
