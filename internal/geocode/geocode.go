// Package geocode resolves place names to coordinates and back.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/lox/powerweather/internal/httputil"
	"github.com/lox/powerweather/internal/metrics"
	"github.com/lox/powerweather/internal/models"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

var ErrNotFound = errors.New("location not found")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Geocoder interface {
	Search(ctx context.Context, query string) (models.Location, error)
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// ReverseName returns a display name for the coordinates, falling back to the
// coordinates themselves when the lookup fails.
func ReverseName(ctx context.Context, g Geocoder, lat, lon float64) string {
	if g != nil {
		if name, err := g.Reverse(ctx, lat, lon); err == nil && name != "" {
			return name
		}
	}
	return fmt.Sprintf("Lat: %.3f, Lon: %.3f", lat, lon)
}

// Nominatim queries an OpenStreetMap Nominatim server.
type Nominatim struct {
	baseURL    string
	httpClient *http.Client
}

func NewNominatim(baseURL string) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &Nominatim{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httputil.NewClientWithTimeout(10 * time.Second),
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (n *Nominatim) Search(ctx context.Context, query string) (models.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Location{}, ErrNotFound
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")

	var places []nominatimPlace
	if err := n.get(ctx, "search", q, &places); err != nil {
		return models.Location{}, err
	}
	if len(places) == 0 {
		return models.Location{}, fmt.Errorf("%w: %s", ErrNotFound, query)
	}
	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("parse longitude: %w", err)
	}
	return models.Location{Latitude: lat, Longitude: lon, Name: places[0].DisplayName}, nil
}

func (n *Nominatim) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("format", "json")

	var place nominatimPlace
	if err := n.get(ctx, "reverse", q, &place); err != nil {
		return "", err
	}
	if place.DisplayName == "" {
		return "", ErrNotFound
	}
	return place.DisplayName, nil
}

func (n *Nominatim) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/"+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", httputil.UserAgent)

	start := time.Now()
	resp, err := n.httpClient.Do(req)
	metrics.UpstreamLatency.WithLabelValues("nominatim", endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues("nominatim", endpoint, "error").Inc()
		return fmt.Errorf("nominatim %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	metrics.UpstreamCallsTotal.WithLabelValues("nominatim", endpoint, httputil.StatusClass(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim %s: unexpected status: %d", endpoint, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return nil
}
