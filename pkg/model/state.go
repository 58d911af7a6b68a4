package model

import (
	"time"

	"github.com/google/uuid"
)

type QueryID string

// NewQueryID generates a new unique QueryID
func NewQueryID() QueryID {
	return QueryID(uuid.New().String())
}

// AgentName identifies a specialized agent or a pipeline pseudo-node.
type AgentName string

const (
	AgentSalesIntelligence AgentName = "sales_intelligence"
	AgentCaseStudy         AgentName = "case_study"
	AgentTalentDiscovery   AgentName = "talent_discovery"
	AgentBiddingSupport    AgentName = "bidding_support"

	// NodeSecurityFilter is the routing target used when an episode
	// short-circuits past agent execution (access denied, retries
	// exhausted).
	NodeSecurityFilter AgentName = "security_filter"
)

// AgentNames lists the four routable agents in classification order.
var AgentNames = []AgentName{
	AgentSalesIntelligence,
	AgentCaseStudy,
	AgentTalentDiscovery,
	AgentBiddingSupport,
}

// Phase is the supervisor state machine position of an episode.
type Phase int

const (
	PhaseClassifying Phase = iota
	PhaseRouted
	PhaseFiltering
	PhaseMemoryPersist
	PhaseComplete
)

var phaseNames = map[Phase]string{
	PhaseClassifying:   "classifying",
	PhaseRouted:        "routed",
	PhaseFiltering:     "filtering",
	PhaseMemoryPersist: "memory_persist",
	PhaseComplete:      "complete",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "invalid"
}

// Message is one turn of the episode conversation. The history is
// append-only.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Entity is a structured fact extracted from a query or an agent result.
type Entity struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

// ChunkCursor tracks streaming progress for an episode.
type ChunkCursor struct {
	Index int // last emitted chunk index, 1-based; 0 before first chunk
	Total int // total chunk count once known, 0 otherwise
}

// AgentState is the aggregate mutated by each pipeline node over the life
// of one query episode. It is created at query start and either discarded
// or persisted to the memory store at the terminal phase.
type AgentState struct {
	QueryID   QueryID
	UserID    string
	SessionID string
	ThreadID  string
	Claims    *AuthClaims

	Query     string
	Context   map[string]any // client-supplied query context
	QueryType AgentName      // empty until classification
	NextAgent AgentName      // routing hint, optional

	Phase        Phase
	Messages     []Message
	AgentHistory []AgentName
	Confidence   map[AgentName]float64
	Entities     []Entity
	Sources      []string

	RetryCount int
	StartedAt  time.Time
	Cursor     ChunkCursor

	// Draft carries the unfiltered agent output between the Routed and
	// Filtering phases. It must never leave the pipeline.
	Draft string
	// Response is the filtered text handed to the streaming manager.
	Response       string
	AppliedFilters []string
}

// NewAgentState creates the initial state for one episode.
func NewAgentState(claims *AuthClaims, sessionID, threadID, query string) *AgentState {
	return &AgentState{
		QueryID:    NewQueryID(),
		UserID:     claims.UserID,
		SessionID:  sessionID,
		ThreadID:   threadID,
		Claims:     claims,
		Query:      query,
		Phase:      PhaseClassifying,
		Confidence: make(map[AgentName]float64),
		StartedAt:  time.Now(),
	}
}

// Role is a shorthand for the claims role, RoleUnknown when claims are
// missing.
func (s *AgentState) Role() Role {
	if s.Claims == nil {
		return RoleUnknown
	}
	return s.Claims.Role
}

// Elapsed returns wall-clock time since episode start.
func (s *AgentState) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}

// VisitAgent appends the agent to the history unless it repeats the last
// entry, so retries of the same agent are recorded once per retry round.
func (s *AgentState) VisitAgent(name AgentName) {
	if n := len(s.AgentHistory); n > 0 && s.AgentHistory[n-1] == name && s.RetryCount == 0 {
		return
	}
	s.AgentHistory = append(s.AgentHistory, name)
}

// AppendMessage records one conversation turn.
func (s *AgentState) AppendMessage(role, content string) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, At: time.Now()})
}
