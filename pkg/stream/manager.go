package stream

import (
	"context"
	"time"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Transport delivers outbound messages to one logical client connection.
// Implementations must preserve send order on a single connection.
type Transport interface {
	Send(ctx context.Context, msg any) error
}

// Manager turns a finished response into the typing / chunk / complete
// message sequence on a transport.
type Manager struct {
	transport Transport
	chunkSize int
}

// NewManager creates a streaming manager. chunkSize <= 0 selects the
// default.
func NewManager(transport Transport, chunkSize int) *Manager {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Manager{transport: transport, chunkSize: chunkSize}
}

// Stream emits the full message sequence for the episode's response.
// Cancellation between chunks stops emission immediately; chunks already
// sent stand.
func (m *Manager) Stream(ctx context.Context, state *model.AgentState) error {
	typing := model.TypingMessage{
		Type:        model.MsgTypeAgentTyping,
		Agent:       state.QueryType,
		QueryID:     state.QueryID,
		EstimatedMS: estimateMillis(state),
	}
	if err := m.transport.Send(ctx, typing); err != nil {
		return goerr.Wrap(err, "failed to send typing notification", goerr.V("query_id", state.QueryID))
	}

	chunker := NewChunker(state.Response, m.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return goerr.Wrap(err, "stream canceled", goerr.V("query_id", state.QueryID), goerr.V("sent", state.Cursor.Index))
		}

		chunk, ok := chunker.Next()
		if !ok {
			break
		}

		msg := model.ChunkMessage{
			Type:        model.MsgTypeResponseChunk,
			Agent:       state.QueryType,
			QueryID:     state.QueryID,
			ChunkIndex:  chunk.Index,
			TotalChunks: chunk.Total,
			Content:     chunk.Content,
		}
		if err := m.transport.Send(ctx, msg); err != nil {
			return goerr.Wrap(err, "failed to send chunk",
				goerr.V("query_id", state.QueryID), goerr.V("chunk_index", chunk.Index))
		}
		state.Cursor = model.ChunkCursor{Index: chunk.Index, Total: chunk.Total}
	}

	complete := model.CompleteMessage{
		Type:             model.MsgTypeResponseComplete,
		QueryID:          state.QueryID,
		TotalChunks:      chunker.Total(),
		FinalConfidence:  state.Confidence[state.QueryType],
		ProcessingTimeMS: state.Elapsed().Milliseconds(),
		SourcesUsed:      state.Sources,
	}
	if err := m.transport.Send(ctx, complete); err != nil {
		return goerr.Wrap(err, "failed to send completion", goerr.V("query_id", state.QueryID))
	}

	return nil
}

// Per-factor estimate weights for the typing notification.
const (
	estimateBase             = 600 * time.Millisecond
	estimatePerSource        = 400 * time.Millisecond
	estimatePerKiloRune      = 150 * time.Millisecond
	estimateFilteringOverlay = 500 * time.Millisecond
)

// estimateMillis predicts completion time from query complexity, the data
// sources consulted, and the caller's role. Every role except Leadership
// pays the filtering overhead.
func estimateMillis(state *model.AgentState) int64 {
	estimate := estimateBase
	estimate += time.Duration(len(state.Sources)) * estimatePerSource
	estimate += time.Duration(len([]rune(state.Response))/1024) * estimatePerKiloRune
	if state.Role() != model.RoleLeadership {
		estimate += estimateFilteringOverlay
	}
	return estimate.Milliseconds()
}
