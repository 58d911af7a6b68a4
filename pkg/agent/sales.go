package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/dirkdd/onevice/pkg/research"
	"github.com/dirkdd/onevice/pkg/utils/logging"
)

// Research source names the sales agent consults.
const (
	SourcePersonEnrichment  = "person_enrichment"
	SourceCompanyEnrichment = "company_enrichment"
)

// SalesIntelligence researches people and organizations mentioned in the
// query, enriching them from external sources. Source failures degrade
// the result instead of failing the episode.
type SalesIntelligence struct {
	research      *research.Client
	lookupTimeout time.Duration
}

// NewSalesIntelligence creates the sales research agent.
func NewSalesIntelligence(client *research.Client, lookupTimeout time.Duration) *SalesIntelligence {
	if lookupTimeout <= 0 {
		lookupTimeout = 5 * time.Second
	}
	return &SalesIntelligence{research: client, lookupTimeout: lookupTimeout}
}

func (a *SalesIntelligence) Name() model.AgentName {
	return model.AgentSalesIntelligence
}

func (a *SalesIntelligence) Process(ctx context.Context, state *model.AgentState, memoryContext []*model.MemoryRecord) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := properNouns(state.Query)
	if target := contextString(state, "target"); target != "" {
		names = append([]string{target}, names...)
	}
	if len(names) == 0 {
		return Failure("no person or organization found in query"), nil
	}

	reqs := make([]research.Request, 0, len(names)*2)
	entities := make([]model.Entity, 0, len(names))
	for _, name := range names {
		entities = append(entities, model.Entity{Key: "subject", Value: name, Type: "name"})
		reqs = append(reqs,
			research.Request{Source: SourcePersonEnrichment, Params: map[string]string{"name": name}},
			research.Request{Source: SourceCompanyEnrichment, Params: map[string]string{"name": name}},
		)
	}

	outcomes := a.research.FetchAll(ctx, a.lookupTimeout, reqs)

	var draft strings.Builder
	draft.WriteString("Sales intelligence findings:\n")

	var sources []string
	succeeded := 0
	for _, o := range outcomes {
		if o.Err != nil {
			logging.From(ctx).Warn("enrichment lookup failed", "source", o.Source, "error", o.Err)
			continue
		}
		succeeded++
		sources = appendUnique(sources, o.Source)
		for k, v := range o.Result {
			draft.WriteString(fmt.Sprintf("- %s: %v\n", k, v))
		}
	}

	for _, rec := range memoryContext {
		if interests, ok := rec.Value["interests"]; ok {
			draft.WriteString(fmt.Sprintf("\nKnown interests on file: %v\n", interests))
			break
		}
	}

	if succeeded == 0 {
		// All sources down: partial result from query parsing alone.
		draft.WriteString("- external enrichment unavailable; based on query context only\n")
		return &Result{
			Draft:      draft.String(),
			Entities:   entities,
			Confidence: 0.3,
			Sources:    nil,
		}, nil
	}

	confidence := 0.5 + 0.4*float64(succeeded)/float64(len(outcomes))
	return &Result{
		Draft:      draft.String(),
		Entities:   entities,
		Confidence: confidence,
		Sources:    sources,
	}, nil
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
