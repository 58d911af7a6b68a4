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

func salesState(query string) *model.AgentState {
	claims := &model.AuthClaims{UserID: "u1", Role: model.RoleSalesperson}
	state := model.NewAgentState(claims, "s1", "t1", query)
	state.QueryType = model.AgentSalesIntelligence
	return state
}

func TestSalesEnrichment(t *testing.T) {
	client := research.New([]research.Source{
		&fakeSource{name: agent.SourcePersonEnrichment, payload: map[string]any{"title": "VP of Marketing"}},
		&fakeSource{name: agent.SourceCompanyEnrichment, payload: map[string]any{"industry": "beverage"}},
	})
	a := agent.NewSalesIntelligence(client, time.Second)

	result, err := a.Process(context.Background(), salesState("Tell me about Jordan Reyes before the pitch"), nil)
	gt.NoError(t, err)
	gt.False(t, agent.Failed(result))

	gt.True(t, result.Confidence > 0.85)
	gt.True(t, strings.Contains(result.Draft, "VP of Marketing"))
	gt.Equal(t, result.Sources, []string{agent.SourcePersonEnrichment, agent.SourceCompanyEnrichment})
	gt.Equal(t, result.Entities[0].Value, "Jordan Reyes")
}

func TestSalesAllSourcesDown(t *testing.T) {
	client := research.New([]research.Source{
		&fakeSource{name: agent.SourcePersonEnrichment, err: goerr.New("down")},
		&fakeSource{name: agent.SourceCompanyEnrichment, err: goerr.New("down")},
	})
	a := agent.NewSalesIntelligence(client, time.Second)

	result, err := a.Process(context.Background(), salesState("Tell me about Jordan Reyes"), nil)
	gt.NoError(t, err)

	// Degraded, not failed: a partial answer from query parsing alone.
	gt.False(t, agent.Failed(result))
	gt.Equal(t, result.Confidence, 0.3)
	gt.True(t, strings.Contains(result.Draft, "external enrichment unavailable"))
}

func TestSalesMemoryContext(t *testing.T) {
	client := research.New([]research.Source{
		&fakeSource{name: agent.SourcePersonEnrichment, payload: map[string]any{"title": "producer"}},
		&fakeSource{name: agent.SourceCompanyEnrichment, payload: map[string]any{}},
	})
	a := agent.NewSalesIntelligence(client, time.Second)

	memoryContext := []*model.MemoryRecord{
		{Key: "profile", Value: map[string]any{"interests": []string{"documentary"}}},
	}

	result, err := a.Process(context.Background(), salesState("Research Casey Wong for me"), memoryContext)
	gt.NoError(t, err)
	gt.True(t, strings.Contains(result.Draft, "Known interests on file"))
}

func TestSalesNoSubject(t *testing.T) {
	client := research.New(nil)
	a := agent.NewSalesIntelligence(client, time.Second)

	result, err := a.Process(context.Background(), salesState("tell me something useful"), nil)
	gt.NoError(t, err)
	gt.True(t, agent.Failed(result))
}
