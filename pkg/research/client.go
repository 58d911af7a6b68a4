package research

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dirkdd/onevice/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

var ErrSourceNotFound = goerr.New("research source not found")

// DefaultTTL is how long a fetched result stays fresh.
const DefaultTTL = 6 * time.Hour

// Source is one external research or rate-data provider.
type Source interface {
	// Name identifies the source in fetch requests and sources-used lists
	Name() string

	// Fetch retrieves data for the given parameters
	Fetch(ctx context.Context, params map[string]string) (map[string]any, error)
}

type cacheEntry struct {
	result    map[string]any
	fetchedAt time.Time
}

// Client is the uniform gateway to all external sources. Results are
// cached per (source, params); a failed fetch falls back to the cached
// result even past its TTL.
type Client struct {
	sources map[string]Source
	ttl     time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// Option is a functional option for Client
type Option func(*Client)

// WithTTL overrides the cache freshness window
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.ttl = ttl
	}
}

// New creates a research client over the given sources.
func New(sources []Source, opts ...Option) *Client {
	c := &Client{
		sources: make(map[string]Source, len(sources)),
		ttl:     DefaultTTL,
		cache:   make(map[string]cacheEntry),
	}
	for _, s := range sources {
		c.sources[s.Name()] = s
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sources returns the registered source names.
func (c *Client) Sources() []string {
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fetch retrieves data from the named source, serving from cache when
// fresh and falling back to a stale cache entry when the source fails.
func (c *Client) Fetch(ctx context.Context, sourceName string, params map[string]string) (map[string]any, error) {
	source, ok := c.sources[sourceName]
	if !ok {
		return nil, goerr.Wrap(ErrSourceNotFound, "unknown source", goerr.V("source", sourceName))
	}

	key := cacheKey(sourceName, params)

	c.mu.Lock()
	entry, cached := c.cache[key]
	c.mu.Unlock()

	if cached && time.Since(entry.fetchedAt) < c.ttl {
		return entry.result, nil
	}

	result, err := source.Fetch(ctx, params)
	if err != nil {
		if cached {
			logging.From(ctx).Warn("research source failed, serving stale cache",
				"source", sourceName, "age", time.Since(entry.fetchedAt), "error", err)
			return entry.result, nil
		}
		return nil, goerr.Wrap(err, "failed to fetch from source", goerr.V("source", sourceName))
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{result: result, fetchedAt: time.Now()}
	c.mu.Unlock()

	return result, nil
}

// Request is one sub-lookup in a parallel fan-out.
type Request struct {
	Source string
	Params map[string]string
}

// Outcome is the result of one sub-lookup.
type Outcome struct {
	Source string
	Result map[string]any
	Err    error
}

// FetchAll runs the requests in parallel and joins them under the given
// timeout. A sub-lookup that does not return in time is reported as
// failed; it never blocks the caller past the deadline.
func (c *Client) FetchAll(ctx context.Context, timeout time.Duration, reqs []Request) []Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type indexed struct {
		i       int
		outcome Outcome
	}

	outcomes := make([]Outcome, len(reqs))
	done := make(chan indexed, len(reqs))

	for i, req := range reqs {
		go func(i int, req Request) {
			result, err := c.Fetch(ctx, req.Source, req.Params)
			done <- indexed{i: i, outcome: Outcome{Source: req.Source, Result: result, Err: err}}
		}(i, req)
	}

	remaining := make(map[int]Request, len(reqs))
	for i, req := range reqs {
		remaining[i] = req
	}

	for range reqs {
		select {
		case r := <-done:
			outcomes[r.i] = r.outcome
			delete(remaining, r.i)
		case <-ctx.Done():
			for i, req := range remaining {
				outcomes[i] = Outcome{
					Source: req.Source,
					Err:    goerr.Wrap(ctx.Err(), "sub-lookup timed out", goerr.V("source", req.Source)),
				}
			}
			return outcomes
		}
	}
	return outcomes
}

func cacheKey(source string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(source)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(params[k])
	}
	return b.String()
}
