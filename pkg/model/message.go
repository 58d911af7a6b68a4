package model

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var ErrInvalidMessage = goerr.New("invalid inbound message")

// Message types on the transport boundary.
const (
	MsgTypeAgentQuery       = "agent_query"
	MsgTypeAgentTyping      = "agent_typing"
	MsgTypeResponseChunk    = "agent_response_chunk"
	MsgTypeResponseComplete = "agent_response_complete"
	MsgTypeError            = "error"
)

// QueryOptions carries client-side knobs for one query.
type QueryOptions struct {
	ChunkSize int `json:"chunk_size,omitempty"`
}

// QueryData is the payload of an agent_query message.
type QueryData struct {
	// Agent is an optional routing hint. Absence triggers automatic
	// classification.
	Agent   string         `json:"agent,omitempty"`
	Query   string         `json:"query"`
	Context map[string]any `json:"context,omitempty"`
	Options QueryOptions   `json:"options"`
}

// InboundMessage is a query message from the transport layer.
type InboundMessage struct {
	MessageID string    `json:"message_id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      QueryData `json:"data"`
}

// ParseInbound decodes and validates an inbound transport frame.
func ParseInbound(raw []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, goerr.Wrap(ErrInvalidMessage, "failed to decode frame", goerr.V("cause", err.Error()))
	}
	if msg.Type != MsgTypeAgentQuery {
		return nil, goerr.Wrap(ErrInvalidMessage, "unexpected message type", goerr.V("type", msg.Type))
	}
	if msg.Data.Query == "" {
		return nil, goerr.Wrap(ErrInvalidMessage, "query is empty", goerr.V("message_id", msg.MessageID))
	}
	return &msg, nil
}

// TypingMessage tells the client an agent is working on the query.
type TypingMessage struct {
	Type        string    `json:"type"`
	Agent       AgentName `json:"agent"`
	QueryID     QueryID   `json:"query_id"`
	EstimatedMS int64     `json:"estimated_ms"`
}

// ChunkMessage is one ordered fragment of a streamed response.
type ChunkMessage struct {
	Type        string         `json:"type"`
	Agent       AgentName      `json:"agent"`
	QueryID     QueryID        `json:"query_id"`
	ChunkIndex  int            `json:"chunk_index"`
	TotalChunks int            `json:"total_chunks,omitempty"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CompleteMessage closes a streamed response.
type CompleteMessage struct {
	Type             string   `json:"type"`
	QueryID          QueryID  `json:"query_id"`
	TotalChunks      int      `json:"total_chunks"`
	FinalConfidence  float64  `json:"final_confidence_score"`
	ProcessingTimeMS int64    `json:"processing_time_ms"`
	SourcesUsed      []string `json:"sources_used"`
}

// ErrorMessage reports an episode-fatal infrastructure failure.
type ErrorMessage struct {
	Type       string         `json:"type"`
	ErrorCode  string         `json:"error_code"`
	Message    string         `json:"message"`
	RetryAfter int            `json:"retry_after,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}
