// Package cityimage looks up a landscape photo for a place name.
package cityimage

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/lox/powerweather/internal/httputil"
	"github.com/lox/powerweather/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.unsplash.com"
	DefaultTTL     = 24 * time.Hour
	source         = "unsplash"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Client struct {
	baseURL    string
	accessKey  string
	httpClient *http.Client
	ttl        time.Duration
	now        func() time.Time

	mu    sync.RWMutex
	cache map[string]entry
}

type entry struct {
	url     string
	fetched time.Time
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTTL(d time.Duration) Option {
	return func(c *Client) { c.ttl = d }
}

// NewClient creates an image lookup client. With an empty access key every
// lookup returns no image.
func NewClient(accessKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		accessKey:  accessKey,
		httpClient: httputil.NewClientWithTimeout(10 * time.Second),
		ttl:        DefaultTTL,
		now:        time.Now,
		cache:      make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Enabled() bool {
	return c.accessKey != ""
}

type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// Lookup returns the URL of a skyline photo for place, or "" when none is
// found. Lookup failures are logged and reported as no image.
func (c *Client) Lookup(ctx context.Context, place string) string {
	place = strings.TrimSpace(place)
	if !c.Enabled() || place == "" {
		return ""
	}
	key := strings.ToLower(place)

	c.mu.RLock()
	e, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.fetched) < c.ttl {
		return e.url
	}

	u, err := c.search(ctx, place)
	if err != nil {
		log.Printf("cityimage: lookup %q: %v", place, err)
		return ""
	}

	c.mu.Lock()
	c.cache[key] = entry{url: u, fetched: c.now()}
	c.mu.Unlock()
	return u
}

func (c *Client) search(ctx context.Context, place string) (string, error) {
	q := url.Values{}
	q.Set("query", place+" city skyline")
	q.Set("per_page", "1")
	q.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/photos?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("User-Agent", httputil.UserAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamLatency.WithLabelValues(source, "search").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues(source, "search", "error").Inc()
		return "", fmt.Errorf("search photos: %w", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamCallsTotal.WithLabelValues(source, "search", httputil.StatusClass(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("decode search: %w", err)
	}
	if len(sr.Results) == 0 {
		return "", nil
	}
	return sr.Results[0].URLs.Regular, nil
}
