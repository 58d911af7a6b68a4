package agent_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dirkdd/onevice/pkg/agent"
	"github.com/dirkdd/onevice/pkg/model"
	"github.com/dirkdd/onevice/pkg/research"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type fakeSource struct {
	name    string
	payload map[string]any
	err     error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(_ context.Context, _ map[string]string) (map[string]any, error) {
	return s.payload, s.err
}

func biddingState(role model.Role, query string) *model.AgentState {
	claims := &model.AuthClaims{UserID: "u1", Role: role, RawRole: role.String()}
	state := model.NewAgentState(claims, "s1", "t1", query)
	state.QueryType = model.AgentBiddingSupport
	return state
}

func TestSplitBudgetExactSum(t *testing.T) {
	for _, total := range []int64{0, 1, 99, 10_000_00, 27_500_000, 123_456_789} {
		b := agent.SplitBudget(total)
		gt.Equal(t, b.Total(), total)
		gt.True(t, b.AboveTheLine >= 0)
		gt.True(t, b.Contingency >= 0)
	}
}

func TestBiddingProcess(t *testing.T) {
	client := research.New([]research.Source{
		&fakeSource{name: agent.SourceUnionRates, payload: map[string]any{"crew_day_rate": 650.0}},
	})
	a := agent.NewBiddingSupport(client, time.Second)

	state := biddingState(model.RoleLeadership, "Estimate a 3-day union shoot in Atlanta")
	result, err := a.Process(context.Background(), state, nil)
	gt.NoError(t, err)
	gt.False(t, agent.Failed(result))

	gt.Equal(t, result.Confidence, 0.85)
	gt.Equal(t, result.Sources, []string{agent.SourceUnionRates})
	gt.True(t, strings.Contains(result.Draft, "3-day union shoot"))
	gt.True(t, strings.Contains(result.Draft, "atlanta"))

	// Figures are wrapped in budget markers for the security filter.
	gt.True(t, strings.Contains(result.Draft, "[[budgets]]"))
	gt.True(t, strings.Contains(result.Draft, "[[/budgets]]"))
}

func TestBiddingProjectScopedMarkers(t *testing.T) {
	client := research.New([]research.Source{
		&fakeSource{name: agent.SourceUnionRates, payload: map[string]any{"crew_day_rate": 500.0}},
	})
	a := agent.NewBiddingSupport(client, time.Second)

	state := biddingState(model.RoleDirector, "Estimate a 2-day shoot")
	state.Context = map[string]any{"project": "atlas"}

	result, err := a.Process(context.Background(), state, nil)
	gt.NoError(t, err)
	gt.True(t, strings.Contains(result.Draft, "[[budgets:atlas]]"))
}

func TestBiddingRateLookupFailure(t *testing.T) {
	client := research.New([]research.Source{
		&fakeSource{name: agent.SourceUnionRates, err: goerr.New("rate service down")},
	})
	a := agent.NewBiddingSupport(client, time.Second)

	state := biddingState(model.RoleLeadership, "Estimate a 3-day shoot")
	result, err := a.Process(context.Background(), state, nil)
	gt.NoError(t, err)
	gt.True(t, agent.Failed(result))
	gt.Equal(t, result.Confidence, 0.0)
}

func TestBiddingMissingDuration(t *testing.T) {
	client := research.New([]research.Source{
		&fakeSource{name: agent.SourceUnionRates, payload: map[string]any{"crew_day_rate": 650.0}},
	})
	a := agent.NewBiddingSupport(client, time.Second)

	state := biddingState(model.RoleLeadership, "How much would a shoot cost")
	result, err := a.Process(context.Background(), state, nil)
	gt.NoError(t, err)
	gt.True(t, agent.Failed(result))
}
