package api

import (
	"log"
	"net/http"

	"github.com/lox/powerweather/internal/models"
)

type indexData struct {
	Parameters      []models.Parameter
	AssistEnabled   bool
	CompareEnabled  bool
	GeocodeEnabled  bool
	DefaultLocation models.Location
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		Parameters:      models.AllParameters,
		AssistEnabled:   s.Facade.Enabled(),
		CompareEnabled:  s.Compare != nil,
		GeocodeEnabled:  s.Geocoder != nil,
		DefaultLocation: models.Location{Latitude: 28.6, Longitude: 77.2, Name: "New Delhi, India"},
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("api: template error: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":   "ok",
		"assist":   s.Facade.Enabled(),
		"sessions": s.Sessions.Len(),
	}
	if s.Store != nil {
		if err := s.Store.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "error", "error": err.Error()})
			return
		}
		if v, err := s.Store.MigrationVersion(); err == nil {
			resp["schema_version"] = v
		}
		if st, err := s.Store.PayloadStats(); err == nil {
			resp["cache"] = st
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
