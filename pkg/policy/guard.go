package policy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/open-policy-agent/opa/v1/rego"
)

// Guard evaluates optional Rego deny-policies layered over the compiled-in
// routing rules. A nil Guard means only the static rules apply.
type Guard struct {
	query *rego.PreparedEvalQuery
}

// GuardInput is the document handed to the routing policy.
type GuardInput struct {
	Role      string `json:"role"`
	Agent     string `json:"agent"`
	Query     string `json:"query"`
	UserID    string `json:"user_id"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Retries   int    `json:"retries"`
}

// LoadGuard loads all .rego files from policyDir and prepares the
// data.routing query. Returns nil when the directory holds no policies.
func LoadGuard(ctx context.Context, policyDir string) (*Guard, error) {
	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to glob policy files")
	}
	if len(files) == 0 {
		return nil, nil
	}

	options := make([]func(*rego.Rego), 0, len(files)+1)
	options = append(options, rego.Query("data.routing"))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read policy file", goerr.V("path", file))
		}
		options = append(options, rego.Module(file, string(data)))
	}

	prepared, err := rego.New(options...).PrepareForEval(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to prepare routing query")
	}

	return &Guard{query: &prepared}, nil
}

// Denials evaluates the policy against the input and returns the deny
// reasons, empty when the transition is allowed. A nil guard allows
// everything.
func (g *Guard) Denials(ctx context.Context, input GuardInput) ([]string, error) {
	if g == nil || g.query == nil {
		return nil, nil
	}

	rs, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate routing policy")
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return nil, nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return nil, nil
	}
	rawDeny, ok := data["deny"].([]any)
	if !ok {
		return nil, nil
	}

	denials := make([]string, 0, len(rawDeny))
	for _, d := range rawDeny {
		if reason, ok := d.(string); ok {
			denials = append(denials, reason)
		}
	}
	return denials, nil
}
