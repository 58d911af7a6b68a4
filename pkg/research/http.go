package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// httpSource is a generic JSON-over-HTTP research source. Company and
// person enrichment providers and the union rate card service all speak
// this shape.
type httpSource struct {
	name       string
	baseURL    string
	apiKey     string
	keyHeader  string
	httpClient *http.Client
}

// HTTPSourceOption is a functional option for NewHTTPSource
type HTTPSourceOption func(*httpSource)

// WithAPIKey sets the API key sent on every request
func WithAPIKey(header, key string) HTTPSourceOption {
	return func(s *httpSource) {
		s.keyHeader = header
		s.apiKey = key
	}
}

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) HTTPSourceOption {
	return func(s *httpSource) {
		s.httpClient = client
	}
}

// NewHTTPSource creates a Source that issues GET requests to baseURL with
// fetch params as query parameters.
func NewHTTPSource(name, baseURL string, opts ...HTTPSourceOption) Source {
	s := &httpSource{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *httpSource) Name() string {
	return s.name
}

func (s *httpSource) Fetch(ctx context.Context, params map[string]string) (map[string]any, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid source URL", goerr.V("source", s.name))
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V("source", s.name))
	}
	if s.apiKey != "" {
		req.Header.Set(s.keyHeader, s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send request", goerr.V("source", s.name))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("source returned error",
			goerr.V("source", s.name),
			goerr.V("status", resp.StatusCode))
	}

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, goerr.Wrap(err, "failed to decode response", goerr.V("source", s.name))
	}

	return result, nil
}
