package research_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dirkdd/onevice/pkg/research"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type stubSource struct {
	name    string
	calls   atomic.Int64
	fail    atomic.Bool
	block   chan struct{}
	payload map[string]any
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, params map[string]string) (map[string]any, error) {
	s.calls.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fail.Load() {
		return nil, goerr.New("source down")
	}
	return s.payload, nil
}

func TestFetchCaching(t *testing.T) {
	src := &stubSource{name: "person_enrichment", payload: map[string]any{"title": "producer"}}
	client := research.New([]research.Source{src})
	ctx := context.Background()
	params := map[string]string{"name": "Jordan Lee"}

	first, err := client.Fetch(ctx, "person_enrichment", params)
	gt.NoError(t, err)
	gt.Equal(t, first["title"], "producer")

	second, err := client.Fetch(ctx, "person_enrichment", params)
	gt.NoError(t, err)
	gt.Equal(t, second["title"], "producer")
	gt.Equal(t, src.calls.Load(), int64(1))

	// Different params miss the cache.
	_, err = client.Fetch(ctx, "person_enrichment", map[string]string{"name": "Alex Kim"})
	gt.NoError(t, err)
	gt.Equal(t, src.calls.Load(), int64(2))
}

func TestFetchStaleFallback(t *testing.T) {
	src := &stubSource{name: "union_rates", payload: map[string]any{"crew_day_rate": 650}}
	client := research.New([]research.Source{src}, research.WithTTL(time.Nanosecond))
	ctx := context.Background()
	params := map[string]string{"market": "atlanta"}

	_, err := client.Fetch(ctx, "union_rates", params)
	gt.NoError(t, err)

	// TTL has lapsed and the source is now failing; the stale entry is
	// still served.
	src.fail.Store(true)
	time.Sleep(time.Millisecond)

	result, err := client.Fetch(ctx, "union_rates", params)
	gt.NoError(t, err)
	gt.Equal(t, result["crew_day_rate"], 650)
}

func TestFetchUnknownSource(t *testing.T) {
	client := research.New(nil)

	_, err := client.Fetch(context.Background(), "nope", nil)
	gt.Error(t, err)
}

func TestFetchAllTimeout(t *testing.T) {
	fast := &stubSource{name: "fast", payload: map[string]any{"ok": true}}
	slow := &stubSource{name: "slow", block: make(chan struct{})}
	client := research.New([]research.Source{fast, slow})

	outcomes := client.FetchAll(context.Background(), 50*time.Millisecond, []research.Request{
		{Source: "fast"},
		{Source: "slow"},
	})

	gt.Equal(t, len(outcomes), 2)
	gt.NoError(t, outcomes[0].Err)
	gt.Equal(t, outcomes[0].Result["ok"], true)
	gt.Error(t, outcomes[1].Err)
}
