package memory

import (
	"context"

	"github.com/dirkdd/onevice/pkg/model"
)

// Store is the namespaced memory persistence contract shared by all
// agents and the supervisor. Implementations must serialize writes to the
// same (namespace, key) pair while allowing concurrent reads and writes
// across unrelated keys. In-flight writes either complete or leave no
// trace; partial records are never observable.
type Store interface {
	// Search returns up to limit records from the namespace ranked by
	// embedding similarity to queryText. An empty or unknown namespace
	// yields an empty list, never an error.
	Search(ctx context.Context, ns model.Namespace, queryText string, limit int) ([]*model.MemoryRecord, error)

	// Put upserts a record. Profile namespaces replace the existing value
	// for the key; episodic and knowledge namespaces append a new record
	// even when the key already exists.
	Put(ctx context.Context, ns model.Namespace, key string, value map[string]any) error

	// Delete removes the records stored under key. No-op if absent.
	Delete(ctx context.Context, ns model.Namespace, key string) error
}
