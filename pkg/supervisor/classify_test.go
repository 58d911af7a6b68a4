package supervisor

import (
	"testing"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestClassifyDomains(t *testing.T) {
	cases := []struct {
		query string
		want  model.AgentName
	}{
		{"who is the marketing lead at the client company", model.AgentSalesIntelligence},
		{"show me a case study from a similar project", model.AgentCaseStudy},
		{"find an available union cinematographer", model.AgentTalentDiscovery},
		{"put together a bid estimate for a 3-day shoot", model.AgentBiddingSupport},
	}

	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			got, score := classify(tc.query)
			gt.Equal(t, got, tc.want)
			gt.True(t, score >= 1)
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	query := "find a comparable case study and an available editor"

	first, firstScore := classify(query)
	for i := 0; i < 50; i++ {
		got, score := classify(query)
		gt.Equal(t, got, first)
		gt.Equal(t, score, firstScore)
	}
}

func TestClassifyTieBreakOrder(t *testing.T) {
	// One keyword from each domain; the fixed agent order decides.
	got, score := classify("research a reference for the crew bid")
	gt.Equal(t, got, model.AgentSalesIntelligence)
	gt.Equal(t, score, 1)
}

func TestClassifyNoMatch(t *testing.T) {
	_, score := classify("hello there")
	gt.Equal(t, score, 0)
}
