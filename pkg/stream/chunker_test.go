package stream_test

import (
	"strings"
	"testing"

	"github.com/dirkdd/onevice/pkg/stream"
	"github.com/m-mizutani/gt"
)

func TestChunkerOrdering(t *testing.T) {
	content := strings.Repeat("a", 25)
	chunker := stream.NewChunker(content, 10)

	gt.Equal(t, chunker.Total(), 3)

	var rebuilt strings.Builder
	for i := 1; ; i++ {
		chunk, ok := chunker.Next()
		if !ok {
			gt.Equal(t, i, 4)
			break
		}
		gt.Equal(t, chunk.Index, i)
		gt.Equal(t, chunk.Total, 3)
		rebuilt.WriteString(chunk.Content)
	}
	gt.Equal(t, rebuilt.String(), content)

	// Exhausted chunkers never restart.
	_, ok := chunker.Next()
	gt.False(t, ok)
}

func TestChunkerRuneBoundaries(t *testing.T) {
	content := strings.Repeat("ße", 7)
	chunker := stream.NewChunker(content, 4)

	var rebuilt strings.Builder
	for {
		chunk, ok := chunker.Next()
		if !ok {
			break
		}
		gt.True(t, len([]rune(chunk.Content)) <= 4)
		rebuilt.WriteString(chunk.Content)
	}
	gt.Equal(t, rebuilt.String(), content)
}

func TestChunkerEmptyContent(t *testing.T) {
	chunker := stream.NewChunker("", 10)

	gt.Equal(t, chunker.Total(), 1)

	chunk, ok := chunker.Next()
	gt.True(t, ok)
	gt.Equal(t, chunk.Index, 1)
	gt.Equal(t, chunk.Content, "")

	_, ok = chunker.Next()
	gt.False(t, ok)
}
