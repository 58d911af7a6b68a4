package model_test

import (
	"testing"
	"time"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestParseRole(t *testing.T) {
	cases := map[string]model.Role{
		"leadership":        model.RoleLeadership,
		"director":          model.RoleDirector,
		"salesperson":       model.RoleSalesperson,
		"creative_director": model.RoleCreativeDirector,
	}
	for raw, want := range cases {
		role, err := model.ParseRole(raw)
		gt.NoError(t, err)
		gt.Equal(t, role, want)
	}

	for _, raw := range []string{"", "admin", "Leadership", "unknown"} {
		role, err := model.ParseRole(raw)
		gt.Error(t, err)
		gt.Equal(t, role, model.RoleUnknown)
	}
}

func TestParseInbound(t *testing.T) {
	raw := []byte(`{
		"message_id": "m1",
		"type": "agent_query",
		"data": {"agent": "sales_intelligence", "query": "who is the client", "context": {"target": "Acme"}, "options": {"chunk_size": 64}}
	}`)

	msg, err := model.ParseInbound(raw)
	gt.NoError(t, err)
	gt.Equal(t, msg.MessageID, "m1")
	gt.Equal(t, msg.Data.Agent, "sales_intelligence")
	gt.Equal(t, msg.Data.Context["target"], "Acme")
	gt.Equal(t, msg.Data.Options.ChunkSize, 64)
}

func TestParseInboundRejects(t *testing.T) {
	cases := map[string]string{
		"bad json":    `{`,
		"wrong type":  `{"message_id": "m1", "type": "agent_typing", "data": {"query": "x"}}`,
		"empty query": `{"message_id": "m1", "type": "agent_query", "data": {"query": ""}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := model.ParseInbound([]byte(raw))
			gt.Error(t, err)
		})
	}
}

func TestVisitAgent(t *testing.T) {
	claims := &model.AuthClaims{UserID: "u1", Role: model.RoleLeadership}
	state := model.NewAgentState(claims, "s1", "t1", "query")

	state.VisitAgent(model.AgentSalesIntelligence)
	state.VisitAgent(model.AgentSalesIntelligence)
	gt.Equal(t, state.AgentHistory, []model.AgentName{model.AgentSalesIntelligence})

	// Retries of the same agent are recorded per round.
	state.RetryCount = 1
	state.VisitAgent(model.AgentSalesIntelligence)
	gt.Equal(t, len(state.AgentHistory), 2)
}

func TestNamespaceSemantics(t *testing.T) {
	gt.True(t, model.ProfileNamespace("u1").Upserts())
	gt.False(t, model.EpisodeNamespace("u1").Upserts())
	gt.False(t, model.KnowledgeNamespace("production").Upserts())
	gt.Equal(t, model.EpisodeNamespace("u1").Path(), "episodes/u1")
}

func TestElapsed(t *testing.T) {
	claims := &model.AuthClaims{UserID: "u1", Role: model.RoleLeadership}
	state := model.NewAgentState(claims, "s1", "t1", "query")
	state.StartedAt = time.Now().Add(-time.Second)
	gt.True(t, state.Elapsed() >= time.Second)
}
