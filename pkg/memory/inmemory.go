package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// inMemoryStore keeps records in per-namespace buckets. Each bucket has
// its own lock, so writes in one namespace never block reads or writes in
// another. Embeddings are computed before the bucket lock is taken; the
// record becomes visible in a single step.
type inMemoryStore struct {
	mu       sync.RWMutex
	buckets  map[string]*bucket
	embedder Embedder
}

type bucket struct {
	mu      sync.RWMutex
	records []*model.MemoryRecord
}

// NewInMemory creates a Store holding records in process memory. Used by
// local runs and tests.
func NewInMemory(embedder Embedder) Store {
	return &inMemoryStore{
		buckets:  make(map[string]*bucket),
		embedder: embedder,
	}
}

func (s *inMemoryStore) bucketFor(ns model.Namespace, create bool) *bucket {
	path := ns.Path()

	s.mu.RLock()
	b, ok := s.buckets[path]
	s.mu.RUnlock()
	if ok || !create {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok = s.buckets[path]; ok {
		return b
	}
	b = &bucket{}
	s.buckets[path] = b
	return b
}

func (s *inMemoryStore) Search(ctx context.Context, ns model.Namespace, queryText string, limit int) ([]*model.MemoryRecord, error) {
	b := s.bucketFor(ns, false)
	if b == nil || limit <= 0 {
		return nil, nil
	}

	query, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed search query", goerr.V("namespace", ns.Path()))
	}

	b.mu.RLock()
	scored := make([]*model.MemoryRecord, 0, len(b.records))
	for _, rec := range b.records {
		c := *rec
		c.Score = cosine(query, rec.Embedding)
		scored = append(scored, &c)
	}
	b.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *inMemoryStore) Put(ctx context.Context, ns model.Namespace, key string, value map[string]any) error {
	embedding, err := s.embedder.Embed(ctx, embeddingText(key, value))
	if err != nil {
		return goerr.Wrap(err, "failed to embed record", goerr.V("namespace", ns.Path()), goerr.V("key", key))
	}

	now := time.Now()
	b := s.bucketFor(ns, true)

	b.mu.Lock()
	defer b.mu.Unlock()

	if ns.Upserts() {
		for _, rec := range b.records {
			if rec.Key == key {
				rec.Value = value
				rec.Embedding = embedding
				rec.UpdatedAt = now
				return nil
			}
		}
	}

	b.records = append(b.records, &model.MemoryRecord{
		ID:        model.NewRecordID(),
		Namespace: ns,
		Key:       key,
		Value:     value,
		Embedding: embedding,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return nil
}

func (s *inMemoryStore) Delete(_ context.Context, ns model.Namespace, key string) error {
	b := s.bucketFor(ns, false)
	if b == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.records[:0]
	for _, rec := range b.records {
		if rec.Key != key {
			kept = append(kept, rec)
		}
	}
	b.records = kept
	return nil
}

// embeddingText flattens a record into the text fed to the embedder.
func embeddingText(key string, value map[string]any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return key
	}
	return key + " " + string(data)
}
