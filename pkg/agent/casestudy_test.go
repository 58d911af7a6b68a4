package agent_test

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/dirkdd/onevice/pkg/agent"
	"github.com/dirkdd/onevice/pkg/model"
	"github.com/m-mizutani/gt"
)

func caseStudyState(query string) *model.AgentState {
	claims := &model.AuthClaims{UserID: "u1", Role: model.RoleLeadership}
	state := model.NewAgentState(claims, "s1", "t1", query)
	state.QueryType = model.AgentCaseStudy
	return state
}

func projectRows() []map[string]any {
	return []map[string]any{
		{
			"project_id": "p1", "title": "Neon Nights", "project_type": "music video",
			"genre": "hip-hop", "budget_tier": "tier_3", "client": "label-a",
			"summary": "performance-driven video, downtown locations",
		},
		{
			"project_id": "p2", "title": "Harvest Table", "project_type": "commercial",
			"genre": "food", "budget_tier": "tier_2", "client": "brand-b",
			"summary": "30-second spot for a restaurant chain",
		},
		{
			"project_id": "p3", "title": "Long Haul", "project_type": "documentary",
			"genre": "sports", "budget_tier": "tier_4", "client": "network-c",
			"summary": "feature-length trucking documentary",
		},
	}
}

func TestCaseStudyRanking(t *testing.T) {
	w := &fakeWarehouse{rows: projectRows()}
	a := agent.NewCaseStudy(w, 2)

	state := caseStudyState("show me a music video case study around $250,000")
	result, err := a.Process(context.Background(), state, nil)
	gt.NoError(t, err)
	gt.False(t, agent.Failed(result))

	// The music video at tier_3 matches both constrained dimensions.
	gt.True(t, strings.HasPrefix(result.Draft, "Closest past projects:\n1. Neon Nights"))
	gt.Equal(t, result.Confidence, 1.0)
	gt.Equal(t, result.Sources, []string{"past_projects"})
	gt.Equal(t, len(result.Entities), 2)
}

func TestCaseStudyVagueQuery(t *testing.T) {
	w := &fakeWarehouse{rows: projectRows()}
	a := agent.NewCaseStudy(w, 3)

	result, err := a.Process(context.Background(), caseStudyState("what have we done before"), nil)
	gt.NoError(t, err)
	gt.False(t, agent.Failed(result))

	// Unconstrained queries rank everything neutral.
	gt.True(t, math.Abs(result.Confidence-0.7) < 1e-9)
	gt.Equal(t, len(result.Entities), 3)
}

func TestCaseStudyEmptyWarehouse(t *testing.T) {
	w := &fakeWarehouse{}
	a := agent.NewCaseStudy(w, 3)

	result, err := a.Process(context.Background(), caseStudyState("music video examples"), nil)
	gt.NoError(t, err)
	gt.True(t, agent.Failed(result))
}
