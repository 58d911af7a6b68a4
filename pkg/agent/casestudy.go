package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dirkdd/onevice/pkg/adapter"
	"github.com/dirkdd/onevice/pkg/model"
	"github.com/dirkdd/onevice/pkg/utils/logging"
)

// DefaultCaseStudyLimit is the default number of matches returned.
const DefaultCaseStudyLimit = 3

const caseStudyQuery = `SELECT project_id, title, project_type, genre, budget_tier, client, summary
FROM past_projects
ORDER BY completed_at DESC
LIMIT 200`

// projectTypes recognized in query text, checked in order.
var projectTypes = []string{"music video", "commercial", "documentary", "feature", "short film", "brand film"}

// CaseStudy ranks past projects by similarity to the requested
// type/budget-tier/genre profile and returns the top matches.
type CaseStudy struct {
	warehouse adapter.Warehouse
	limit     int
}

// NewCaseStudy creates the case study agent. limit <= 0 selects the
// default.
func NewCaseStudy(warehouse adapter.Warehouse, limit int) *CaseStudy {
	if limit <= 0 {
		limit = DefaultCaseStudyLimit
	}
	return &CaseStudy{warehouse: warehouse, limit: limit}
}

func (a *CaseStudy) Name() model.AgentName {
	return model.AgentCaseStudy
}

// match is one scored candidate project.
type match struct {
	row        map[string]any
	similarity float64
}

func (a *CaseStudy) Process(ctx context.Context, state *model.AgentState, _ []*model.MemoryRecord) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := a.warehouse.Query(ctx, caseStudyQuery, nil)
	if err != nil {
		logging.From(ctx).Warn("case study warehouse query failed", "error", err)
		return Failure("past-project data unavailable"), nil
	}
	if len(rows) == 0 {
		return Failure("no past projects on record"), nil
	}

	wantType := detectProjectType(state.Query, state)
	wantGenre := contextString(state, "genre")
	wantTier := budgetTier(budgetCeiling(state.Query))

	matches := make([]match, 0, len(rows))
	for _, row := range rows {
		matches = append(matches, match{row: row, similarity: similarity(row, wantType, wantGenre, wantTier)})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].similarity > matches[j].similarity })
	if len(matches) > a.limit {
		matches = matches[:a.limit]
	}

	var draft strings.Builder
	draft.WriteString("Closest past projects:\n")
	entities := make([]model.Entity, 0, len(matches))
	var best float64
	for i, m := range matches {
		title, _ := m.row["title"].(string)
		summary, _ := m.row["summary"].(string)
		draft.WriteString(fmt.Sprintf("%d. %s (similarity %.2f)\n   %s\n", i+1, title, m.similarity, summary))
		entities = append(entities, model.Entity{Key: "project", Value: title, Type: "case_study"})
		if m.similarity > best {
			best = m.similarity
		}
	}

	return &Result{
		Draft:      draft.String(),
		Entities:   entities,
		Confidence: 0.4 + 0.6*best,
		Sources:    []string{"past_projects"},
	}, nil
}

func detectProjectType(query string, state *model.AgentState) string {
	if t := contextString(state, "project_type"); t != "" {
		return t
	}
	lower := strings.ToLower(query)
	for _, t := range projectTypes {
		if strings.Contains(lower, t) {
			return t
		}
	}
	return ""
}

// budgetTier maps a dollar ceiling onto the warehouse tier labels.
func budgetTier(ceiling float64) string {
	switch {
	case ceiling == 0:
		return ""
	case ceiling < 50_000:
		return "tier_1"
	case ceiling < 100_000:
		return "tier_2"
	case ceiling < 300_000:
		return "tier_3"
	default:
		return "tier_4"
	}
}

// similarity scores one row against the requested profile, in [0,1].
// Unconstrained dimensions score neutral so a vague query still ranks.
func similarity(row map[string]any, wantType, wantGenre, wantTier string) float64 {
	dims := 0
	score := 0.0

	compare := func(want string, field string) {
		if want == "" {
			return
		}
		dims++
		if got, _ := row[field].(string); strings.EqualFold(got, want) {
			score++
		}
	}

	compare(wantType, "project_type")
	compare(wantGenre, "genre")
	compare(wantTier, "budget_tier")

	if dims == 0 {
		return 0.5
	}
	return score / float64(dims)
}
