package stream

// DefaultChunkSize is the chunk size in runes when the client does not
// ask for one.
const DefaultChunkSize = 512

// Chunk is one ordered fragment of a response.
type Chunk struct {
	Index   int // 1-based, strictly increasing
	Total   int
	Content string
}

// Chunker produces the chunks of one response lazily, in order, exactly
// once. It is finite and non-restartable.
type Chunker struct {
	chunks []string
	total  int
	next   int
}

// NewChunker splits content on rune boundaries into chunks of at most
// size runes.
func NewChunker(content string, size int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}

	runes := []rune(content)
	var chunks []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	if len(chunks) == 0 {
		// An empty response still produces one empty chunk so the
		// consumer sees a complete 1..N sequence.
		chunks = []string{""}
	}

	return &Chunker{chunks: chunks, total: len(chunks)}
}

// Total returns the chunk count.
func (c *Chunker) Total() int {
	return c.total
}

// Next returns the following chunk. The second return is false once the
// sequence is exhausted; the sequence never restarts.
func (c *Chunker) Next() (Chunk, bool) {
	if c.next >= len(c.chunks) {
		return Chunk{}, false
	}
	c.next++
	return Chunk{
		Index:   c.next,
		Total:   c.total,
		Content: c.chunks[c.next-1],
	}, true
}
