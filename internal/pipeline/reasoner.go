// internal/pipeline/reasoner.go
package pipeline

import "context"

// Request is everything a stage exposes to the reasoning collaborator.
type Request struct {
	RunID          string
	StageID        string
	Role           string
	Goal           string
	ExpectedOutput string
	ToolOutputs    ToolOutputs
	Derived        map[string]interface{}
	Input          StageInput
}

// Reasoner realizes a stage's goal. Output text is opaque to the pipeline and
// identical requests may yield different text.
type Reasoner interface {
	Reason(ctx context.Context, req Request) (string, error)
}

// ReasonerFunc adapts a function to the Reasoner interface.
type ReasonerFunc func(ctx context.Context, req Request) (string, error)

func (f ReasonerFunc) Reason(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
