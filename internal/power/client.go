// Package power fetches point data from the NASA POWER API.
package power

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker"

	"github.com/lox/powerweather/internal/httputil"
	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/metrics"
	"github.com/lox/powerweather/internal/models"
	"github.com/lox/powerweather/internal/store"
)

const (
	DefaultBaseURL   = "https://power.larc.nasa.gov"
	DefaultCommunity = "AG"
	source           = "power"
)

var (
	ErrUpstream = errors.New("power upstream error")
	ErrNoData   = errors.New("power returned no parameter data")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PayloadCache stores raw upstream responses. *store.Store satisfies it.
type PayloadCache interface {
	CachedPayload(key string, maxAge time.Duration) ([]byte, error)
	StorePayload(key, source, endpoint string, payload []byte) error
}

type Request struct {
	Location   models.Location
	Temporal   models.Temporal
	Parameters []models.Parameter
	Start      time.Time
	End        time.Time
}

// DefaultDays is the daily window used when a request gives no start date.
const DefaultDays = 30

// DefaultParameters are fetched when a request names none.
var DefaultParameters = []models.Parameter{
	models.ParamTemperature,
	models.ParamPrecipitation,
	models.ParamWind,
}

// DefaultStart is the first day of the default window ending at end. Daily
// windows cover DefaultDays days; monthly windows start two years earlier.
func DefaultStart(temporal models.Temporal, end time.Time) time.Time {
	if temporal == models.TemporalMonthly {
		return time.Date(end.Year()-2, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return end.AddDate(0, 0, -(DefaultDays - 1))
}

// DefaultRequest is what the dashboard asks for when only a location is
// given. It ends yesterday, the last day POWER publishes. The prefetch job
// uses it too, so both land on the same cache key.
func DefaultRequest(loc models.Location, temporal models.Temporal, now time.Time) Request {
	if temporal == "" {
		temporal = models.TemporalDaily
	}
	end := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -1)
	return Request{
		Location:   loc,
		Temporal:   temporal,
		Parameters: append([]models.Parameter(nil), DefaultParameters...),
		Start:      DefaultStart(temporal, end),
		End:        end,
	}
}

type Client struct {
	baseURL    string
	community  string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
	cache      PayloadCache
	cacheTTL   time.Duration
	maxElapsed time.Duration
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithCache serves repeated requests from cache for up to ttl.
func WithCache(cache PayloadCache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithMaxElapsed bounds the total time spent retrying one request.
func WithMaxElapsed(d time.Duration) Option {
	return func(c *Client) { c.maxElapsed = d }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		community:  DefaultCommunity,
		client:     httputil.NewClient(),
		maxElapsed: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "power",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("power: circuit %s %s -> %s", name, from, to)
		},
	})
	return c
}

// URL builds the request URL. Monthly requests take whole years.
func (c *Client) URL(req Request) string {
	temporal := req.Temporal
	if temporal == "" {
		temporal = models.TemporalDaily
	}
	codes := make([]string, len(req.Parameters))
	for i, p := range req.Parameters {
		codes[i] = string(p)
	}

	start, end := req.Start.Format("20060102"), req.End.Format("20060102")
	if temporal == models.TemporalMonthly {
		start, end = strconv.Itoa(req.Start.Year()), strconv.Itoa(req.End.Year())
	}

	q := url.Values{}
	q.Set("parameters", strings.Join(codes, ","))
	q.Set("community", c.community)
	q.Set("longitude", strconv.FormatFloat(req.Location.Longitude, 'f', 4, 64))
	q.Set("latitude", strconv.FormatFloat(req.Location.Latitude, 'f', 4, 64))
	q.Set("start", start)
	q.Set("end", end)
	q.Set("format", "JSON")
	return fmt.Sprintf("%s/api/temporal/%s/point?%s", c.baseURL, temporal, q.Encode())
}

type parameterInfo struct {
	Units    string `json:"units"`
	LongName string `json:"longname"`
}

type response struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
	Parameter  map[string]map[string]float64 `json:"parameter"`
	Parameters map[string]parameterInfo      `json:"parameters"`
	Messages   []string                      `json:"messages"`
	Errors     []string                      `json:"errors"`
}

// Fetch retrieves the series for req and converts it through the insight
// adapter, so the result never carries the upstream missing sentinel.
func (c *Client) Fetch(ctx context.Context, req Request) (insight.AdaptResult, error) {
	body, err := c.fetchBody(ctx, req)
	if err != nil {
		return insight.AdaptResult{}, err
	}
	grid, units, err := Decode(body)
	if err != nil {
		return insight.AdaptResult{}, err
	}

	temporal := req.Temporal
	if temporal == "" {
		temporal = models.TemporalDaily
	}
	res, err := insight.NewSeries(req.Location, temporal, req.Parameters, grid, units)
	if err != nil {
		return res, err
	}
	for flag, n := range res.Dropped {
		metrics.ReadingsDropped.WithLabelValues(flag).Add(float64(n))
	}
	return res, nil
}

// Decode extracts the parameter grid and units from a POWER response body.
func Decode(body []byte) (insight.Grid, map[models.Parameter]string, error) {
	var data response
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, nil, fmt.Errorf("unmarshal: %w", err)
	}

	raw := data.Properties.Parameter
	if len(raw) == 0 {
		raw = data.Parameter
	}
	if len(raw) == 0 {
		msgs := append(data.Errors, data.Messages...)
		if len(msgs) > 0 {
			return nil, nil, fmt.Errorf("%w: %s", ErrUpstream, strings.Join(msgs, "; "))
		}
		return nil, nil, ErrNoData
	}

	grid := insight.Grid{}
	for code, values := range raw {
		grid[models.Parameter(code)] = values
	}
	units := map[models.Parameter]string{}
	for code, info := range data.Parameters {
		units[models.Parameter(code)] = normalizeUnit(info.Units)
	}
	return grid, units, nil
}

// normalizeUnit maps POWER unit labels onto the symbols used in narratives.
func normalizeUnit(u string) string {
	switch u {
	case "C":
		return "°C"
	case "mm/day", "mm":
		return "mm/day"
	}
	return u
}

func (c *Client) fetchBody(ctx context.Context, req Request) ([]byte, error) {
	if len(req.Parameters) == 0 {
		return nil, fmt.Errorf("%w: no parameters requested", insight.ErrInvalidInput)
	}
	if req.End.Before(req.Start) {
		return nil, fmt.Errorf("%w: end before start", insight.ErrInvalidInput)
	}
	if req.Temporal == "" {
		req.Temporal = models.TemporalDaily
	}

	u := c.URL(req)
	endpoint := "/api/temporal/" + string(req.Temporal) + "/point"
	key := store.PayloadKey(u)

	if c.cache != nil {
		body, err := c.cache.CachedPayload(key, c.cacheTTL)
		if err == nil {
			metrics.PayloadCacheTotal.WithLabelValues("hit").Inc()
			return body, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("power: cache lookup: %v", err)
		}
		metrics.PayloadCacheTotal.WithLabelValues("miss").Inc()
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.get(ctx, u, endpoint)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return nil, err
	}
	body := result.([]byte)

	if c.cache != nil {
		if err := c.cache.StorePayload(key, source, endpoint, body); err != nil {
			log.Printf("power: cache store: %v", err)
		}
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, u, endpoint string) ([]byte, error) {
	var body []byte
	operation := func() error {
		start := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("User-Agent", httputil.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		metrics.UpstreamLatency.WithLabelValues(source, endpoint).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.UpstreamCallsTotal.WithLabelValues(source, endpoint, "error").Inc()
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("fetch: %w", err)
		}
		defer resp.Body.Close()
		metrics.UpstreamCallsTotal.WithLabelValues(source, endpoint, httputil.StatusClass(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
		}
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		if resp.StatusCode != http.StatusOK {
			// POWER reports bad ranges and coordinates as 422 with a JSON message list.
			if _, _, derr := Decode(b); derr != nil && errors.Is(derr, ErrUpstream) {
				return backoff.Permanent(derr)
			}
			return backoff.Permanent(fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(string(b), 200)))
		}
		body = b
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
