package agent

import (
	"context"

	"github.com/dirkdd/onevice/pkg/model"
)

// Result is the candidate response produced by one agent pass.
type Result struct {
	Draft      string
	Entities   []model.Entity
	Confidence float64
	Sources    []string
}

// Agent is a specialized query handler bound to one business domain.
// Implementations never panic or return an error across this boundary for
// domain failures; they degrade to a zero-confidence Result with an error
// entity. The error return is reserved for context cancellation.
type Agent interface {
	Name() model.AgentName
	Process(ctx context.Context, state *model.AgentState, memoryContext []*model.MemoryRecord) (*Result, error)
}

// Failure builds the zero-confidence result agents return on
// unrecoverable internal failure.
func Failure(reason string) *Result {
	return &Result{
		Confidence: 0,
		Entities: []model.Entity{
			{Key: "error", Value: reason, Type: "error_marker"},
		},
	}
}

// Failed reports whether a result carries the error marker.
func Failed(r *Result) bool {
	if r == nil {
		return true
	}
	for _, e := range r.Entities {
		if e.Type == "error_marker" {
			return true
		}
	}
	return false
}
