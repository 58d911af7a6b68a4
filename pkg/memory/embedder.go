package memory

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/dirkdd/onevice/pkg/adapter"
	"github.com/m-mizutani/goerr/v2"
)

// Embedder converts text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// geminiEmbedder uses the Gemini embedding model.
type geminiEmbedder struct {
	gemini adapter.Gemini
}

// NewGeminiEmbedder creates an Embedder backed by the Gemini adapter.
func NewGeminiEmbedder(gemini adapter.Gemini) Embedder {
	return &geminiEmbedder{gemini: gemini}
}

func (e *geminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.gemini.Embedding(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed text")
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, goerr.New("empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}

const localEmbedderDim = 256

// localEmbedder produces deterministic token-hash embeddings. It is used
// by local runs and tests where no LLM backend is available; similarity
// degrades to token overlap.
type localEmbedder struct{}

// NewLocalEmbedder creates the deterministic offline Embedder.
func NewLocalEmbedder() Embedder {
	return &localEmbedder{}
}

func (e *localEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, localEmbedderDim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%localEmbedderDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// cosine computes cosine similarity between two vectors, 0 when either is
// zero or the dimensions mismatch.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
