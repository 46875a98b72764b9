package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/lox/powerweather/internal/models"
)

// geocoder keeps its API key in a package variable.
var googleMu sync.Mutex

// Google uses the Google Geocoding API. The library calls are not
// cancellable, so ctx is only checked before each request.
type Google struct {
	apiKey string
}

func NewGoogle(apiKey string) (*Google, error) {
	if apiKey == "" {
		return nil, errors.New("geocode: google api key not set")
	}
	return &Google{apiKey: apiKey}, nil
}

func (g *Google) Search(ctx context.Context, query string) (models.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.Location{}, ErrNotFound
	}
	if err := ctx.Err(); err != nil {
		return models.Location{}, err
	}

	googleMu.Lock()
	geocoder.ApiKey = g.apiKey
	loc, err := geocoder.Geocoding(geocoder.Address{City: query})
	googleMu.Unlock()
	if err != nil {
		return models.Location{}, fmt.Errorf("%w: %s: %v", ErrNotFound, query, err)
	}
	return models.Location{Latitude: loc.Latitude, Longitude: loc.Longitude, Name: query}, nil
}

func (g *Google) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	googleMu.Lock()
	geocoder.ApiKey = g.apiKey
	addresses, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
	googleMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("google reverse: %w", err)
	}
	if len(addresses) == 0 {
		return "", ErrNotFound
	}
	return addresses[0].FormatAddress(), nil
}

// New picks Google when a key is configured and Nominatim otherwise.
func New(googleKey, nominatimURL string) Geocoder {
	if g, err := NewGoogle(googleKey); err == nil {
		return g
	}
	return NewNominatim(nominatimURL)
}
