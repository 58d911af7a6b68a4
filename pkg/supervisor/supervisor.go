package supervisor

import (
	"context"
	"fmt"

	"github.com/dirkdd/onevice/pkg/agent"
	"github.com/dirkdd/onevice/pkg/filter"
	"github.com/dirkdd/onevice/pkg/memory"
	"github.com/dirkdd/onevice/pkg/model"
	"github.com/dirkdd/onevice/pkg/policy"
	"github.com/dirkdd/onevice/pkg/stream"
	"github.com/dirkdd/onevice/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrMemoryUnavailable = goerr.New("memory store unavailable")
	ErrUnknownAgent      = goerr.New("unknown agent")
)

// Fixed responses for the short-circuit paths.
const (
	accessDeniedResponse   = "Access to this analysis is restricted for your role. Please contact leadership if you believe you need it."
	retryExhaustedResponse = "Full data was unavailable for this request; the answer below may be incomplete."
	agentFailedResponse    = "The requested analysis could not be completed because required data was unavailable."
)

// Supervisor runs query episodes through the pipeline:
// Classifying -> Routed -> Filtering -> MemoryPersist -> Complete.
// It is the only component that enforces routing legality, retry bounds
// and the episode-wide time ceiling.
type Supervisor struct {
	agents    map[model.AgentName]agent.Agent
	secFilter *filter.SecurityFilter
	store     memory.Store
	extractor memory.Extractor
	guard     *policy.Guard
	cfg       Config
}

// Input bundles the supervisor dependencies. Extractor and Guard are
// optional; nil disables profile extraction and policy overlay
// respectively.
type Input struct {
	Agents    []agent.Agent
	Filter    *filter.SecurityFilter
	Store     memory.Store
	Extractor memory.Extractor
	Guard     *policy.Guard
	Config    Config
}

// New creates a Supervisor over the given agents.
func New(input Input) (*Supervisor, error) {
	if input.Filter == nil {
		return nil, goerr.New("security filter is required")
	}
	if input.Store == nil {
		return nil, goerr.New("memory store is required")
	}

	agents := make(map[model.AgentName]agent.Agent, len(input.Agents))
	for _, a := range input.Agents {
		agents[a.Name()] = a
	}

	return &Supervisor{
		agents:    agents,
		secFilter: input.Filter,
		store:     input.Store,
		extractor: input.Extractor,
		guard:     input.Guard,
		cfg:       input.Config,
	}, nil
}

// Route decides the next node for the state: an agent name, or the
// security filter node when the episode must short-circuit. It has no
// hidden randomness; identical states yield identical decisions.
func (s *Supervisor) Route(ctx context.Context, state *model.AgentState) model.AgentName {
	if state.QueryType == "" {
		state.QueryType = s.classifyState(state)
	}

	// RetryCount is the number of retries already consumed; the episode
	// gets the initial attempt plus MaxRetries retries.
	if state.RetryCount > s.cfg.MaxRetries {
		return model.NodeSecurityFilter
	}
	if !policy.CanRunAgent(state.Role(), state.QueryType) {
		return model.NodeSecurityFilter
	}

	rule := s.cfg.rule(state.QueryType)
	if !s.fieldsPresent(state, rule.RequiredFields) {
		return model.NodeSecurityFilter
	}
	if state.Elapsed() >= rule.MaxProcessing || state.Elapsed() >= s.cfg.EpisodeCeiling {
		return model.NodeSecurityFilter
	}

	if denials, err := s.guard.Denials(ctx, policy.GuardInput{
		Role:      state.Role().String(),
		Agent:     string(state.QueryType),
		Query:     state.Query,
		UserID:    state.UserID,
		ElapsedMS: state.Elapsed().Milliseconds(),
		Retries:   state.RetryCount,
	}); err != nil {
		logging.From(ctx).Warn("routing guard evaluation failed", "error", err)
	} else if len(denials) > 0 {
		logging.From(ctx).Info("routing denied by policy", "agent", state.QueryType, "denials", denials)
		return model.NodeSecurityFilter
	}

	return state.QueryType
}

// classifyState resolves the target agent from the client hint or the
// keyword classifier, falling back to the default agent under the
// minimum score threshold.
func (s *Supervisor) classifyState(state *model.AgentState) model.AgentName {
	if state.NextAgent != "" {
		if _, ok := s.agents[state.NextAgent]; ok {
			return state.NextAgent
		}
	}

	name, score := classify(state.Query)
	if score < s.cfg.ClassifierThreshold {
		return s.cfg.FallbackAgent
	}
	return name
}

// Run executes one episode to its terminal phase, streaming the response
// through mgr. Only infrastructure failures return an error; every
// domain failure becomes a well-formed response.
func (s *Supervisor) Run(ctx context.Context, state *model.AgentState, mgr *stream.Manager) error {
	logger := logging.From(ctx).With("query_id", state.QueryID, "user_id", state.UserID)

	episodeCtx, cancel := context.WithTimeout(ctx, s.cfg.EpisodeCeiling)
	defer cancel()

	var result *agent.Result

	for {
		next := s.Route(episodeCtx, state)
		if next == model.NodeSecurityFilter {
			break
		}

		state.Phase = model.PhaseRouted
		state.VisitAgent(next)

		var err error
		result, err = s.invoke(episodeCtx, next, state)
		if err != nil {
			// Context cancellation only; treat as a failed attempt.
			logger.Warn("agent invocation canceled", "agent", next, "error", err)
			result = agent.Failure("processing timed out")
		}

		state.Confidence[next] = result.Confidence
		state.Entities = append(state.Entities, result.Entities...)
		state.Sources = append(state.Sources, result.Sources...)

		if !agent.Failed(result) {
			break
		}
		if state.RetryCount >= s.cfg.MaxRetries {
			break
		}
		state.RetryCount++
		logger.Info("retrying after agent failure", "agent", next, "retry", state.RetryCount)
	}

	s.filterPhase(episodeCtx, state, result)

	if err := s.persistPhase(episodeCtx, state); err != nil {
		return goerr.Wrap(ErrMemoryUnavailable, "failed to persist episode", goerr.V("query_id", state.QueryID))
	}

	// Streaming uses the caller's context, not the episode budget: a
	// slow client must not be cut off by the processing ceiling.
	if mgr != nil {
		if err := mgr.Stream(ctx, state); err != nil {
			logger.Warn("stream aborted", "error", err)
			state.Phase = model.PhaseComplete
			return nil
		}
	}

	state.Phase = model.PhaseComplete
	return nil
}

// invoke runs one agent under its processing budget with memory context
// attached.
func (s *Supervisor) invoke(ctx context.Context, name model.AgentName, state *model.AgentState) (*agent.Result, error) {
	a, ok := s.agents[name]
	if !ok {
		return nil, goerr.Wrap(ErrUnknownAgent, "agent not registered", goerr.V("agent", name))
	}

	rule := s.cfg.rule(name)
	agentCtx, cancel := context.WithTimeout(ctx, rule.MaxProcessing)
	defer cancel()

	memoryContext := s.memoryContext(agentCtx, state)
	return a.Process(agentCtx, state, memoryContext)
}

// memoryContext gathers profile and episodic records relevant to the
// query. Lookup failures degrade to an empty context.
func (s *Supervisor) memoryContext(ctx context.Context, state *model.AgentState) []*model.MemoryRecord {
	var records []*model.MemoryRecord
	for _, ns := range []model.Namespace{
		model.ProfileNamespace(state.UserID),
		model.EpisodeNamespace(state.UserID),
	} {
		found, err := s.store.Search(ctx, ns, state.Query, s.cfg.MemoryContextLimit)
		if err != nil {
			logging.From(ctx).Warn("memory search failed", "namespace", ns.Path(), "error", err)
			continue
		}
		records = append(records, found...)
	}
	return records
}

// filterPhase produces the final response text. Every path, including
// the denials, goes through the security filter.
func (s *Supervisor) filterPhase(ctx context.Context, state *model.AgentState, result *agent.Result) {
	state.Phase = model.PhaseFiltering

	switch {
	case !policy.CanRunAgent(state.Role(), state.QueryType):
		state.Draft = accessDeniedResponse
		state.AppliedFilters = []string{"access_denied"}
		state.Response = accessDeniedResponse
		state.AppendMessage("user", state.Query)
		state.AppendMessage("assistant", state.Response)
		return

	case result == nil:
		state.Draft = agentFailedResponse

	case agent.Failed(result):
		state.Draft = retryExhaustedResponse + "\n\n" + result.Draft

	default:
		state.Draft = result.Draft
	}

	filtered := s.secFilter.FilterResponse(ctx, state, state.Draft)
	state.Response = filtered.Content
	state.AppliedFilters = filtered.AppliedFilters

	state.AppendMessage("user", state.Query)
	state.AppendMessage("assistant", state.Response)
}

// persistPhase stores the exchange, a reusable pattern record for
// high-confidence answers, and any extracted profile facts.
func (s *Supervisor) persistPhase(ctx context.Context, state *model.AgentState) error {
	state.Phase = model.PhaseMemoryPersist

	exchange := map[string]any{
		"query":           state.Query,
		"response":        state.Response,
		"agent":           string(state.QueryType),
		"confidence":      state.Confidence[state.QueryType],
		"applied_filters": state.AppliedFilters,
		"agent_history":   agentHistoryStrings(state),
	}

	key := fmt.Sprintf("exchange/%s", state.QueryID)
	if err := s.store.Put(ctx, model.EpisodeNamespace(state.UserID), key, exchange); err != nil {
		return err
	}

	if state.Confidence[state.QueryType] >= s.cfg.PatternConfidence {
		pattern := map[string]any{
			"query":  state.Query,
			"agent":  string(state.QueryType),
			"answer": state.Response,
		}
		patternKey := fmt.Sprintf("pattern/%s", state.QueryID)
		if err := s.store.Put(ctx, model.EpisodeNamespace(state.UserID), patternKey, pattern); err != nil {
			logging.From(ctx).Warn("failed to store pattern record", "error", err)
		}
	}

	if s.extractor != nil {
		if facts, err := s.extractor.Extract(ctx, state.Messages); err == nil && facts != nil {
			if err := s.store.Put(ctx, model.ProfileNamespace(state.UserID), "profile", facts); err != nil {
				logging.From(ctx).Warn("failed to store profile record", "error", err)
			}
		}
	}

	return nil
}

// fieldsPresent checks the required-state-fields guard for a transition.
func (s *Supervisor) fieldsPresent(state *model.AgentState, fields []string) bool {
	for _, f := range fields {
		switch f {
		case "query":
			if state.Query == "" {
				return false
			}
		case "claims":
			if state.Claims == nil {
				return false
			}
		case "role":
			if state.Role() == model.RoleUnknown {
				return false
			}
		case "entities":
			if len(state.Entities) == 0 {
				return false
			}
		default:
			if contextValueMissing(state, f) {
				return false
			}
		}
	}
	return true
}

func contextValueMissing(state *model.AgentState, key string) bool {
	v, ok := state.Context[key]
	if !ok {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}

func agentHistoryStrings(state *model.AgentState) []string {
	names := make([]string, 0, len(state.AgentHistory))
	for _, n := range state.AgentHistory {
		names = append(names, string(n))
	}
	return names
}
