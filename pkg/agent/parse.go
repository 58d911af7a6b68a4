package agent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dirkdd/onevice/pkg/model"
)

var (
	amountPattern = regexp.MustCompile(`\$\s?(\d[\d,]*(?:\.\d+)?)\s*([kKmM])?`)
	properPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*\b`)
)

// budgetCeiling extracts the largest dollar amount mentioned in the
// query, 0 when none is present.
func budgetCeiling(query string) float64 {
	var ceiling float64
	for _, m := range amountPattern.FindAllStringSubmatch(query, -1) {
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		switch strings.ToLower(m[2]) {
		case "k":
			value *= 1_000
		case "m":
			value *= 1_000_000
		}
		if value > ceiling {
			ceiling = value
		}
	}
	return ceiling
}

// unionRequirement reports whether the query constrains union status:
// "union" / "non-union" / "" for unconstrained.
func unionRequirement(query string) string {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "non-union") || strings.Contains(lower, "non union"):
		return "non-union"
	case strings.Contains(lower, "union"):
		return "union"
	default:
		return ""
	}
}

// properNouns extracts capitalized phrases as candidate person and
// organization names, skipping a leading sentence word.
func properNouns(query string) []string {
	matches := properPattern.FindAllStringIndex(query, -1)
	var names []string
	for _, m := range matches {
		name := query[m[0]:m[1]]
		if m[0] == 0 {
			// Sentence-initial capitalization is not a name signal.
			// Only the leading word is dropped; a name following it
			// ("Research Casey Wong") is kept.
			_, rest, found := strings.Cut(name, " ")
			if !found {
				continue
			}
			name = strings.TrimSpace(rest)
		}
		names = append(names, name)
	}
	return names
}

// contextString reads a string field from the inbound query context,
// falling back to accumulated entities.
func contextString(state *model.AgentState, key string) string {
	if v, ok := state.Context[key].(string); ok {
		return v
	}
	for _, e := range state.Entities {
		if e.Key == key {
			return e.Value
		}
	}
	return ""
}
