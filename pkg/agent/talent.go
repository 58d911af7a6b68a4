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

const talentQuery = `SELECT talent_id, name, role, union_status, specializations, day_rate, availability
FROM talent_profiles
WHERE role = @role OR @role = ''
LIMIT 500`

// DefaultTalentLimit is the default number of candidates returned.
const DefaultTalentLimit = 5

// Availability tri-state. Missing or unrecognized data is reported as
// unknown, never assumed available.
const (
	AvailabilityAvailable = "available"
	AvailabilityBusy      = "busy"
	AvailabilityUnknown   = "unknown"
)

// talentRoles recognized in query text.
var talentRoles = []string{"director", "producer", "editor", "cinematographer", "colorist", "composer"}

// TalentDiscovery searches crew and talent profiles. Hard filters (union
// status, budget ceiling) exclude candidates before any ranking happens.
type TalentDiscovery struct {
	warehouse adapter.Warehouse
	limit     int
}

// NewTalentDiscovery creates the talent discovery agent.
func NewTalentDiscovery(warehouse adapter.Warehouse, limit int) *TalentDiscovery {
	if limit <= 0 {
		limit = DefaultTalentLimit
	}
	return &TalentDiscovery{warehouse: warehouse, limit: limit}
}

func (a *TalentDiscovery) Name() model.AgentName {
	return model.AgentTalentDiscovery
}

type candidate struct {
	row          map[string]any
	availability string
	score        float64
}

func (a *TalentDiscovery) Process(ctx context.Context, state *model.AgentState, _ []*model.MemoryRecord) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	role := detectRole(state)
	rows, err := a.warehouse.Query(ctx, talentQuery, map[string]any{"role": role})
	if err != nil {
		logging.From(ctx).Warn("talent warehouse query failed", "error", err)
		return Failure("talent data unavailable"), nil
	}

	union := unionRequirement(state.Query)
	ceiling := budgetCeiling(state.Query)
	specialization := contextString(state, "specialization")

	candidates := make([]candidate, 0, len(rows))
	for _, row := range rows {
		if !passesHardFilters(row, union, ceiling) {
			continue
		}
		candidates = append(candidates, candidate{
			row:          row,
			availability: availabilityOf(row),
			score:        specializationScore(row, specialization, state.Query),
		})
	}

	if len(candidates) == 0 {
		return Failure("no candidates match the hard criteria"), nil
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > a.limit {
		candidates = candidates[:a.limit]
	}

	var draft strings.Builder
	draft.WriteString("Matching talent:\n")
	entities := make([]model.Entity, 0, len(candidates))
	for i, c := range candidates {
		name, _ := c.row["name"].(string)
		unionStatus, _ := c.row["union_status"].(string)
		draft.WriteString(fmt.Sprintf("%d. %s (%s, availability: %s)\n", i+1, name, unionStatus, c.availability))
		entities = append(entities, model.Entity{Key: "talent", Value: name, Type: "candidate"})
	}

	return &Result{
		Draft:      draft.String(),
		Entities:   entities,
		Confidence: 0.75,
		Sources:    []string{"talent_profiles"},
	}, nil
}

func detectRole(state *model.AgentState) string {
	if r := contextString(state, "role"); r != "" {
		return r
	}
	lower := strings.ToLower(state.Query)
	for _, r := range talentRoles {
		// Match plural forms too ("union directors").
		if strings.Contains(lower, r) {
			return r
		}
	}
	return ""
}

// passesHardFilters drops candidates failing any absolute criterion.
func passesHardFilters(row map[string]any, union string, ceiling float64) bool {
	status, _ := row["union_status"].(string)
	switch union {
	case "union":
		if strings.EqualFold(status, "Non-Union") || status == "" {
			return false
		}
	case "non-union":
		if !strings.EqualFold(status, "Non-Union") {
			return false
		}
	}

	if ceiling > 0 {
		if rate, ok := asFloat(row["day_rate"]); ok && rate > ceiling {
			return false
		}
	}

	return true
}

// availabilityOf maps stored availability data onto the tri-state.
func availabilityOf(row map[string]any) string {
	status, _ := row["availability"].(string)
	switch strings.ToLower(status) {
	case AvailabilityAvailable:
		return AvailabilityAvailable
	case AvailabilityBusy, "booked":
		return AvailabilityBusy
	default:
		return AvailabilityUnknown
	}
}

func specializationScore(row map[string]any, specialization, query string) float64 {
	specs, _ := row["specializations"].(string)
	if specs == "" {
		return 0.2
	}

	lower := strings.ToLower(specs)
	score := 0.2
	if specialization != "" && strings.Contains(lower, strings.ToLower(specialization)) {
		score += 0.5
	}
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len(word) > 4 && strings.Contains(lower, word) {
			score += 0.1
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
