package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dirkdd/onevice/pkg/adapter"
	"github.com/dirkdd/onevice/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// AuditEvent records one filtering decision for transparency review.
type AuditEvent struct {
	QueryID        model.QueryID `json:"query_id"`
	UserID         string        `json:"user_id"`
	Role           string        `json:"role"`
	AppliedFilters []string      `json:"applied_filters"`
	At             time.Time     `json:"at"`
}

// AuditSink receives filtering audit events. The sink is a collaborator;
// the filter only consumes this interface.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// storageSink writes one JSON object per event to a storage bucket.
type storageSink struct {
	storage adapter.Storage
}

// NewStorageSink creates an AuditSink backed by object storage.
func NewStorageSink(storage adapter.Storage) AuditSink {
	return &storageSink{storage: storage}
}

func (s *storageSink) Record(ctx context.Context, event AuditEvent) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	key := fmt.Sprintf("audit/%s/%s.json", event.At.Format("2006-01-02"), event.QueryID)
	w, err := s.storage.Put(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to open audit object", goerr.V("key", key))
	}

	if err := json.NewEncoder(w).Encode(event); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to encode audit event", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close audit object", goerr.V("key", key))
	}

	return nil
}
