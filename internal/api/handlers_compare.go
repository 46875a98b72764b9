package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/lox/powerweather/internal/compare"
	"github.com/lox/powerweather/internal/geocode"
	"github.com/lox/powerweather/internal/models"
)

type placeRequest struct {
	Latitude  *float64 `json:"lat" validate:"required_without=Query,omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"lon" validate:"required_without=Query,omitempty,gte=-180,lte=180"`
	Name      string   `json:"name" validate:"max=200"`
	Query     string   `json:"query" validate:"max=200"`
}

type compareRequest struct {
	A       placeRequest `json:"a"`
	B       placeRequest `json:"b"`
	Purpose string       `json:"purpose" validate:"max=500"`
	Days    int          `json:"days" validate:"omitempty,min=1,max=366"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if s.Compare == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("comparison disabled"))
		return
	}
	var req compareRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	a, err := s.resolvePlace(r, req.A)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	b, err := s.resolvePlace(r, req.B)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.Compare.Compare(r.Context(), compare.Request{A: a, B: b, Purpose: req.Purpose, Days: req.Days})
	if err != nil {
		log.Printf("api: compare: %v", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// resolvePlace geocodes a free-text query, or names bare coordinates so the
// image lookup has something to search for.
func (s *Server) resolvePlace(r *http.Request, p placeRequest) (models.Location, error) {
	if q := strings.TrimSpace(p.Query); q != "" && p.Latitude == nil {
		if s.Geocoder == nil {
			return models.Location{}, errors.New("geocoding disabled")
		}
		return s.Geocoder.Search(r.Context(), q)
	}
	if p.Latitude == nil || p.Longitude == nil {
		return models.Location{}, errors.New("lat and lon are required")
	}
	loc := models.Location{Latitude: *p.Latitude, Longitude: *p.Longitude, Name: strings.TrimSpace(p.Name)}
	if loc.Name == "" && s.Geocoder != nil {
		if name, err := s.Geocoder.Reverse(r.Context(), loc.Latitude, loc.Longitude); err == nil {
			loc.Name = firstPart(name)
		} else if !errors.Is(err, geocode.ErrNotFound) {
			log.Printf("api: reverse geocode: %v", err)
		}
	}
	return loc, nil
}

// firstPart keeps the locality from a comma-separated address.
func firstPart(address string) string {
	if i := strings.IndexByte(address, ','); i > 0 {
		return strings.TrimSpace(address[:i])
	}
	return address
}
