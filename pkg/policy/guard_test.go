package policy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dirkdd/onevice/pkg/policy"
	"github.com/m-mizutani/gt"
)

func TestGuardDenials(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	routingPolicy := `package routing

deny contains "bidding is locked during quarter close" if {
	input.agent == "bidding_support"
	input.role != "leadership"
}
`
	gt.NoError(t, os.WriteFile(filepath.Join(tmpDir, "routing.rego"), []byte(routingPolicy), 0644))

	guard, err := policy.LoadGuard(ctx, tmpDir)
	gt.NoError(t, err)
	gt.True(t, guard != nil)

	denials, err := guard.Denials(ctx, policy.GuardInput{Role: "director", Agent: "bidding_support"})
	gt.NoError(t, err)
	gt.Equal(t, denials, []string{"bidding is locked during quarter close"})

	denials, err = guard.Denials(ctx, policy.GuardInput{Role: "leadership", Agent: "bidding_support"})
	gt.NoError(t, err)
	gt.Equal(t, len(denials), 0)
}

func TestGuardEmptyDir(t *testing.T) {
	guard, err := policy.LoadGuard(context.Background(), t.TempDir())
	gt.NoError(t, err)
	gt.True(t, guard == nil)

	// A nil guard allows everything.
	denials, err := guard.Denials(context.Background(), policy.GuardInput{Agent: "bidding_support"})
	gt.NoError(t, err)
	gt.Equal(t, len(denials), 0)
}
