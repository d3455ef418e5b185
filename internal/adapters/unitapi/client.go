package unitapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the hosted backend used when API_BASE_URL is unset.
const DefaultBaseURL = "https://meialuaback.onrender.com"

// DefaultRadiusMeters is the search radius the website always sent.
const DefaultRadiusMeters = 50000

// Client implements ports.UnitRepository against the unit-search backend
// (GET {baseURL}/api/unidades).
//
// It coordinates:
//   - Query building for coordinate and city searches
//   - Envelope decoding and failure classification
//   - Normalization of legacy field names into domain.HealthUnit
//
// Every call is a single fresh request: no caching and no retry.
// The client is safe for concurrent use.
type Client struct {
	session *http.Client
	baseURL string
	log     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("unit api: parse base url %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("unit api: base url must be http or https")
	}
	if u.Host == "" {
		return nil, fmt.Errorf("unit api: base url %q has no host", base)
	}

	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		session: &http.Client{
			Timeout:   timeout,
			Transport: newLoggingTransport(http.DefaultTransport, log),
		},
		baseURL: base,
		log:     log,
	}, nil
}

// normalize collapses whitespace in user-typed city names.
func (c *Client) normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
