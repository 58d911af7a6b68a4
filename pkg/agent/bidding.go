package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/dirkdd/onevice/pkg/research"
	"github.com/dirkdd/onevice/pkg/utils/logging"
)

// SourceUnionRates is the rate card collaborator consulted for labor
// rates. The rate data itself is owned elsewhere.
const SourceUnionRates = "union_rates"

// Budget share of each bucket in basis points. Contingency absorbs the
// remainder so the four buckets always sum exactly to the total.
const (
	shareAboveTheLine = 2000
	shareBelowTheLine = 5500
	sharePost         = 1500
)

// Breakdown is a production budget split into the four fixed buckets.
// All amounts are in cents.
type Breakdown struct {
	AboveTheLine   int64
	BelowTheLine   int64
	PostProduction int64
	Contingency    int64
}

// Total returns the exact sum of the four buckets.
func (b Breakdown) Total() int64 {
	return b.AboveTheLine + b.BelowTheLine + b.PostProduction + b.Contingency
}

// SplitBudget divides totalCents across the four buckets. The first
// three take their fixed shares rounded down; contingency takes the
// remainder.
func SplitBudget(totalCents int64) Breakdown {
	atl := totalCents * shareAboveTheLine / 10000
	btl := totalCents * shareBelowTheLine / 10000
	post := totalCents * sharePost / 10000
	return Breakdown{
		AboveTheLine:   atl,
		BelowTheLine:   btl,
		PostProduction: post,
		Contingency:    totalCents - atl - btl - post,
	}
}

// BiddingSupport estimates production budgets from externally supplied
// union rate data. The supervisor restricts this agent to Leadership and
// Director roles; other roles never reach it.
type BiddingSupport struct {
	research      *research.Client
	lookupTimeout time.Duration
}

// NewBiddingSupport creates the bidding analysis agent.
func NewBiddingSupport(client *research.Client, lookupTimeout time.Duration) *BiddingSupport {
	if lookupTimeout <= 0 {
		lookupTimeout = 5 * time.Second
	}
	return &BiddingSupport{research: client, lookupTimeout: lookupTimeout}
}

func (a *BiddingSupport) Name() model.AgentName {
	return model.AgentBiddingSupport
}

func (a *BiddingSupport) Process(ctx context.Context, state *model.AgentState, _ []*model.MemoryRecord) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	days := contextInt(state, "duration_days", detectDays(state.Query))
	crew := contextInt(state, "crew_size", 20)
	location := contextString(state, "location")
	if location == "" {
		location = detectLocation(state.Query)
	}
	union := unionRequirement(state.Query) != "non-union"

	if days <= 0 {
		return Failure("shoot duration could not be determined"), nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.lookupTimeout)
	defer cancel()

	params := map[string]string{
		"location": location,
		"union":    strconv.FormatBool(union),
	}
	rates, err := a.research.Fetch(lookupCtx, SourceUnionRates, params)
	if err != nil {
		logging.From(ctx).Warn("union rate lookup failed", "error", err)
		return Failure("union rate data unavailable"), nil
	}

	dayRate, ok := asFloat(rates["crew_day_rate"])
	if !ok || dayRate <= 0 {
		return Failure("rate card is missing crew day rate"), nil
	}

	laborCents := int64(dayRate * 100 * float64(crew) * float64(days))
	// Labor is the below-the-line anchor; gross up to the full budget.
	totalCents := laborCents * 10000 / shareBelowTheLine
	breakdown := SplitBudget(totalCents)

	project := contextString(state, "project")
	draft := renderBreakdown(breakdown, days, crew, location, union, project)

	return &Result{
		Draft: draft,
		Entities: []model.Entity{
			{Key: "total_budget_cents", Value: strconv.FormatInt(breakdown.Total(), 10), Type: "amount"},
			{Key: "location", Value: location, Type: "location"},
		},
		Confidence: 0.85,
		Sources:    []string{SourceUnionRates},
	}, nil
}

// renderBreakdown tags every exact figure as budget-sensitive so the
// security filter controls who sees it.
func renderBreakdown(b Breakdown, days, crew int, location string, union bool, project string) string {
	tag := "budgets"
	if project != "" {
		tag = "budgets:" + project
	}

	unionLabel := "non-union"
	if union {
		unionLabel = "union"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Bid estimate for a %d-day %s shoot (%s, crew of %d):\n", days, unionLabel, location, crew))
	sb.WriteString(fmt.Sprintf("[[%s]]", tag))
	sb.WriteString(fmt.Sprintf("- Above the line: %s\n", dollars(b.AboveTheLine)))
	sb.WriteString(fmt.Sprintf("- Below the line: %s\n", dollars(b.BelowTheLine)))
	sb.WriteString(fmt.Sprintf("- Post-production: %s\n", dollars(b.PostProduction)))
	sb.WriteString(fmt.Sprintf("- Contingency: %s\n", dollars(b.Contingency)))
	sb.WriteString(fmt.Sprintf("- Total: %s\n", dollars(b.Total())))
	sb.WriteString("[[/budgets]]")
	return sb.String()
}

func dollars(cents int64) string {
	return fmt.Sprintf("$%d", cents/100)
}

var dayPatterns = []string{"-day", " day"}

// detectDays finds a "N-day" or "N day" duration in the query.
func detectDays(query string) int {
	lower := strings.ToLower(query)
	for _, pat := range dayPatterns {
		idx := strings.Index(lower, pat)
		if idx <= 0 {
			continue
		}
		start := idx
		for start > 0 && lower[start-1] >= '0' && lower[start-1] <= '9' {
			start--
		}
		if start == idx {
			continue
		}
		if n, err := strconv.Atoi(lower[start:idx]); err == nil {
			return n
		}
	}
	return 0
}

// knownMarkets maps query mentions to rate card locations.
var knownMarkets = map[string]string{
	"la": "los_angeles", "los angeles": "los_angeles",
	"ny": "new_york", "new york": "new_york", "nyc": "new_york",
	"atlanta": "atlanta", "london": "london",
}

func detectLocation(query string) string {
	lower := strings.ToLower(query)
	for mention, market := range knownMarkets {
		if containsWord(lower, mention) {
			return market
		}
	}
	return "los_angeles"
}

func containsWord(s, word string) bool {
	idx := strings.Index(s, word)
	for idx >= 0 {
		beforeOK := idx == 0 || !isAlnum(s[idx-1])
		afterIdx := idx + len(word)
		afterOK := afterIdx >= len(s) || !isAlnum(s[afterIdx])
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(s[idx+1:], word)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

func contextInt(state *model.AgentState, key string, fallback int) int {
	switch v := state.Context[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
