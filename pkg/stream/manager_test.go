package stream_test

import (
	"context"
	"strings"
	"testing"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/dirkdd/onevice/pkg/stream"
	"github.com/m-mizutani/gt"
)

// orderedTransport records frames and fails the test on any ordering
// violation it observes.
type orderedTransport struct {
	t         *testing.T
	typing    int
	complete  int
	lastChunk int
	contents  []string
	frames    []any
}

func (tr *orderedTransport) Send(_ context.Context, msg any) error {
	tr.frames = append(tr.frames, msg)
	switch m := msg.(type) {
	case model.TypingMessage:
		gt.Equal(tr.t, tr.lastChunk, 0)
		tr.typing++
	case model.ChunkMessage:
		gt.Equal(tr.t, tr.typing, 1)
		gt.Equal(tr.t, tr.complete, 0)
		gt.Equal(tr.t, m.ChunkIndex, tr.lastChunk+1)
		tr.lastChunk = m.ChunkIndex
		tr.contents = append(tr.contents, m.Content)
	case model.CompleteMessage:
		gt.Equal(tr.t, m.TotalChunks, tr.lastChunk)
		tr.complete++
	}
	return nil
}

func testState(response string) *model.AgentState {
	claims := &model.AuthClaims{UserID: "u1", Role: model.RoleLeadership}
	state := model.NewAgentState(claims, "s1", "t1", "query")
	state.QueryType = model.AgentSalesIntelligence
	state.Response = response
	state.Confidence[model.AgentSalesIntelligence] = 0.9
	state.Sources = []string{"person_enrichment"}
	return state
}

func TestStreamSequence(t *testing.T) {
	tr := &orderedTransport{t: t}
	mgr := stream.NewManager(tr, 8)

	state := testState(strings.Repeat("x", 20))
	gt.NoError(t, mgr.Stream(context.Background(), state))

	gt.Equal(t, tr.typing, 1)
	gt.Equal(t, tr.complete, 1)
	gt.Equal(t, tr.lastChunk, 3)
	gt.Equal(t, strings.Join(tr.contents, ""), state.Response)

	last := tr.frames[len(tr.frames)-1]
	complete, ok := last.(model.CompleteMessage)
	gt.True(t, ok)
	gt.Equal(t, complete.FinalConfidence, 0.9)
	gt.Equal(t, complete.SourcesUsed, []string{"person_enrichment"})
	gt.Equal(t, state.Cursor.Index, 3)
}

func TestStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	tr := &cancelingTransport{cancel: cancel, after: 2}
	mgr := stream.NewManager(tr, 4)

	state := testState(strings.Repeat("y", 40))
	err := mgr.Stream(ctx, state)
	gt.Error(t, err)

	// Chunks already sent stand; nothing past the cancellation point.
	gt.Equal(t, tr.chunks, 2)
	gt.Equal(t, state.Cursor.Index, 2)
}

// cancelingTransport cancels the stream context after n chunks.
type cancelingTransport struct {
	cancel context.CancelFunc
	after  int
	chunks int
}

func (tr *cancelingTransport) Send(_ context.Context, msg any) error {
	if _, ok := msg.(model.ChunkMessage); ok {
		tr.chunks++
		if tr.chunks == tr.after {
			tr.cancel()
		}
	}
	return nil
}
