package supervisor

import (
	"strings"

	"github.com/dirkdd/onevice/pkg/model"
)

// domainKeywords score a query against each agent domain. Multi-word
// phrases count like single keywords.
var domainKeywords = map[model.AgentName][]string{
	model.AgentSalesIntelligence: {
		"who is", "background", "company", "contact", "pitch", "lead",
		"client", "research", "profile", "relationship",
	},
	model.AgentCaseStudy: {
		"case study", "case studies", "past project", "similar project",
		"portfolio", "example", "reference", "comparable", "we did",
	},
	model.AgentTalentDiscovery: {
		"find", "talent", "crew", "director", "directors", "editor",
		"cinematographer", "availability", "available", "union",
		"specialization", "hire",
	},
	model.AgentBiddingSupport: {
		"bid", "bidding", "estimate", "quote", "budget breakdown",
		"cost out", "shoot", "rate card", "day rate",
	},
}

// classify scores the query against every agent domain and returns the
// winner with its keyword-match count. Ties favor the higher match count;
// equal counts resolve in fixed agent order, so classification is fully
// deterministic.
func classify(query string) (model.AgentName, int) {
	lower := strings.ToLower(query)

	var best model.AgentName
	bestScore := -1
	for _, name := range model.AgentNames {
		score := 0
		for _, kw := range domainKeywords[name] {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = name
			bestScore = score
		}
	}
	return best, bestScore
}
