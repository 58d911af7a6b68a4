package filter

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/dirkdd/onevice/pkg/policy"
	"github.com/dirkdd/onevice/pkg/utils/logging"
)

// Placeholder replaces spans the caller may not see.
const Placeholder = "[FILTERED]"

// Filter identifiers reported in the applied-filters list.
const (
	FilterBudgetRange = "budget_range"
	FilterError       = "filter_error"
)

// Budget bucket labels. Boundaries are left-inclusive, right-exclusive;
// the top bucket is unbounded.
const (
	BucketUnder50k  = "$0-50k"
	BucketUnder100k = "$50k-100k"
	BucketUnder300k = "$100k-300k"
	BucketOver300k  = "$300k+"
)

const bucketSuffix = " range"

// spanPattern matches sensitivity-tagged spans emitted by agents:
// [[level]]text[[/level]] or [[level:project]]text[[/level]].
var spanPattern = regexp.MustCompile(`(?s)\[\[([a-z_]+)(?::([^\]\[]+))?\]\](.*?)\[\[/([a-z_]+)\]\]`)

// openTagPattern detects dangling markers left by a malformed draft.
var openTagPattern = regexp.MustCompile(`\[\[/?[a-z_]+(?::[^\]\[]+)?\]\]`)

// currencyPattern matches exact monetary amounts like $275,000, $1.2M or
// $45k. Whitespace is matched only as part of the suffix so a plain
// amount never swallows the space before the next word. Bucket labels
// are protected before this pattern runs, so already filtered content is
// left alone.
var currencyPattern = regexp.MustCompile(`\$\s?\d[\d,]*(?:\.\d+)?(?:\s?(?:[kK]|[mM](?:illion)?))?\b`)

var levelsByName = map[string]model.SensitivityLevel{
	"budgets":           model.SensitivityBudgets,
	"contracts":         model.SensitivityContracts,
	"internal_strategy": model.SensitivityInternalStrategy,
	"call_sheets":       model.SensitivityCallSheets,
	"scripts":           model.SensitivityScripts,
	"sales_materials":   model.SensitivitySalesMaterials,
}

// Result is the outcome of one filtering pass.
type Result struct {
	Content        string
	AppliedFilters []string
}

// SecurityFilter applies role-based redaction to agent drafts. Every
// response passes through it before reaching the transport.
type SecurityFilter struct {
	audit AuditSink
}

// New creates a SecurityFilter. A nil sink disables audit emission.
func New(audit AuditSink) *SecurityFilter {
	return &SecurityFilter{audit: audit}
}

// FilterResponse transforms the draft according to the static access
// policy for the caller's role. Parsing problems fail open (content is
// returned unmodified with a filter_error marker); access decisions fail
// closed.
func (f *SecurityFilter) FilterResponse(ctx context.Context, state *model.AgentState, content string) Result {
	result := f.apply(state, content)

	if f.audit != nil {
		event := AuditEvent{
			QueryID:        state.QueryID,
			UserID:         state.UserID,
			Role:           state.Role().String(),
			AppliedFilters: result.AppliedFilters,
		}
		if err := f.audit.Record(ctx, event); err != nil {
			logging.From(ctx).Warn("failed to record audit event",
				"query_id", state.QueryID, "error", err)
		}
	}

	return result
}

func (f *SecurityFilter) apply(state *model.AgentState, content string) Result {
	role := state.Role()

	if role == model.RoleLeadership {
		// Full access: markers are stripped, nothing else changes.
		return Result{Content: stripMarkers(content)}
	}

	applied := make(map[string]bool)
	keeper := &amountKeeper{}

	filtered, ok := redactSpans(content, state, applied, keeper)
	if !ok {
		// Malformed markers: fail open on parsing, keep the marker
		// problem visible in the applied-filters list.
		return Result{Content: content, AppliedFilters: []string{FilterError}}
	}

	filtered, bucketed := bucketAmounts(filtered)
	if bucketed {
		applied[FilterBudgetRange] = true
	}
	filtered = keeper.restore(filtered)

	ids := make([]string, 0, len(applied))
	for id := range applied {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if len(ids) > 0 {
		filtered += transparencyNotice(ids)
	}

	return Result{Content: filtered, AppliedFilters: ids}
}

// redactSpans rewrites every sensitivity-tagged span. Allowed spans keep
// their text; disallowed spans collapse to the placeholder. Returns false
// when the markers are malformed.
func redactSpans(content string, state *model.AgentState, applied map[string]bool, keeper *amountKeeper) (string, bool) {
	malformed := false

	out := spanPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := spanPattern.FindStringSubmatch(match)
		open, project, text, closing := parts[1], parts[2], parts[3], parts[4]
		if open != closing {
			malformed = true
			return match
		}

		level, known := levelsByName[open]
		if !known {
			malformed = true
			return match
		}

		if allowedSpan(state, level, project) {
			if level <= model.SensitivityInternalStrategy {
				// The span-level entitlement covers exact figures, so
				// they must survive the generic budget rewrite.
				return keeper.protect(text)
			}
			return text
		}

		applied["redact_"+open] = true
		return Placeholder
	})

	if malformed {
		return content, false
	}
	if openTagPattern.MatchString(out) {
		// A marker survived outside any balanced pair.
		return content, false
	}
	return out, true
}

// allowedSpan decides access for one tagged span. Directors get
// levels 1-3 only when the span is scoped to one of their assigned
// projects.
func allowedSpan(state *model.AgentState, level model.SensitivityLevel, project string) bool {
	role := state.Role()

	if role == model.RoleDirector && level <= model.SensitivityInternalStrategy {
		return project != "" && state.Claims != nil && state.Claims.HasProject(project)
	}

	return policy.CanAccess(role, level)
}

// stripMarkers removes span tags while keeping the tagged text.
func stripMarkers(content string) string {
	return spanPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := spanPattern.FindStringSubmatch(match)
		return parts[3]
	})
}

// bucketAmounts replaces every exact dollar figure with its fixed range
// label. Existing labels are protected first so the rewrite is
// idempotent.
func bucketAmounts(content string) (string, bool) {
	protected, restore := protectBuckets(content)

	changed := false
	out := currencyPattern.ReplaceAllStringFunc(protected, func(match string) string {
		amount, ok := parseAmount(match)
		if !ok {
			return match
		}
		changed = true
		return bucketLabel(amount) + bucketSuffix
	})

	return restore(out), changed
}

// amountKeeper hides exact figures inside entitled spans from the
// currency pattern and puts them back after bucketing.
type amountKeeper struct {
	kept []string
}

func (k *amountKeeper) protect(text string) string {
	return currencyPattern.ReplaceAllStringFunc(text, func(match string) string {
		k.kept = append(k.kept, match)
		return fmt.Sprintf("\x00amt:%d\x00", len(k.kept)-1)
	})
}

func (k *amountKeeper) restore(content string) string {
	for i, match := range k.kept {
		content = strings.Replace(content, fmt.Sprintf("\x00amt:%d\x00", i), match, 1)
	}
	return content
}

var bucketLabels = []string{BucketUnder50k, BucketUnder100k, BucketUnder300k, BucketOver300k}

// protectBuckets swaps existing bucket labels for placeholders that the
// currency pattern cannot match, and returns the inverse rewrite.
func protectBuckets(content string) (string, func(string) string) {
	for i, label := range bucketLabels {
		content = strings.ReplaceAll(content, label, fmt.Sprintf("\x00bucket:%d\x00", i))
	}
	return content, func(s string) string {
		for i, label := range bucketLabels {
			s = strings.ReplaceAll(s, fmt.Sprintf("\x00bucket:%d\x00", i), label)
		}
		return s
	}
}

// parseAmount converts a matched currency string to whole dollars.
func parseAmount(match string) (float64, bool) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(match), "$"))

	multiplier := 1.0
	lower := strings.ToLower(s)
	switch {
	case strings.HasSuffix(lower, "million"):
		multiplier = 1_000_000
		s = s[:len(s)-len("million")]
	case strings.HasSuffix(lower, "m"):
		multiplier = 1_000_000
		s = s[:len(s)-1]
	case strings.HasSuffix(lower, "k"):
		multiplier = 1_000
		s = s[:len(s)-1]
	}

	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return value * multiplier, true
}

func bucketLabel(amount float64) string {
	switch {
	case amount < 50_000:
		return BucketUnder50k
	case amount < 100_000:
		return BucketUnder100k
	case amount < 300_000:
		return BucketUnder300k
	default:
		return BucketOver300k
	}
}

// transparencyNotice renders the human-readable summary appended to a
// filtered response.
func transparencyNotice(ids []string) string {
	categories := make([]string, 0, len(ids))
	for _, id := range ids {
		switch {
		case id == FilterBudgetRange:
			categories = append(categories, "exact budget figures")
		case strings.HasPrefix(id, "redact_"):
			categories = append(categories, strings.ReplaceAll(strings.TrimPrefix(id, "redact_"), "_", " "))
		}
	}
	if len(categories) == 0 {
		return ""
	}
	return "\n\nNote: some content was adjusted for your access level (" + strings.Join(categories, ", ") + ")."
}
