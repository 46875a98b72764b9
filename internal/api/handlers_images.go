package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/lox/powerweather/internal/chart"
	"github.com/lox/powerweather/internal/models"
)

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	l, ok := s.loadFromURL(w, r)
	if !ok {
		return
	}

	forecasts := l.forecasts
	if r.URL.Query().Get("forecast") == "0" {
		forecasts = nil
	}
	png, err := chart.Render(l.series, forecasts, l.series.Parameters)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(png); err != nil {
		log.Printf("api: write chart: %v", err)
	}
}

// chartURL builds the chart path for a location, used by the page template.
func chartURL(loc models.Location) string {
	return "/chart.png?lat=" + strconv.FormatFloat(loc.Latitude, 'f', 4, 64) +
		"&lon=" + strconv.FormatFloat(loc.Longitude, 'f', 4, 64)
}
