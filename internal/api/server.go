package api

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/powerweather/internal/assist"
	"github.com/lox/powerweather/internal/chat"
	"github.com/lox/powerweather/internal/compare"
	"github.com/lox/powerweather/internal/forecast"
	"github.com/lox/powerweather/internal/geocode"
	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/power"
	"github.com/lox/powerweather/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type WeatherSource interface {
	Fetch(ctx context.Context, req power.Request) (insight.AdaptResult, error)
}

// Deps are the collaborators the server needs. Geocoder and Compare may be
// nil, which disables their endpoints.
type Deps struct {
	Store    *store.Store
	Weather  WeatherSource
	Facade   *assist.Facade
	Compare  *compare.Service
	Geocoder geocode.Geocoder
	Sessions *chat.Sessions
	// Forecast is used when a request does not name a model.
	Forecast forecast.Model
}

type Server struct {
	Deps
	port     string
	tmpl     *template.Template
	validate *validator.Validate
	now      func() time.Time
}

func NewServer(deps Deps, port string) *Server {
	if deps.Sessions == nil {
		deps.Sessions = chat.NewSessions()
	}
	if deps.Forecast == nil {
		deps.Forecast = forecast.NewLinear()
	}
	return &Server{
		Deps:     deps,
		port:     port,
		tmpl:     newTemplates(),
		validate: newValidator(),
		now:      time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /chart.png", s.handleChart)
	mux.HandleFunc("GET /api/weather", s.handleAPIWeather)
	mux.HandleFunc("GET /api/summary", s.handleAPISummary)
	mux.HandleFunc("GET /api/interpret", s.handleAPIInterpret)
	mux.HandleFunc("GET /api/stats", s.handleAPIStats)
	mux.HandleFunc("GET /api/tips", s.handleAPITips)
	mux.HandleFunc("GET /api/recent", s.handleAPIRecent)
	mux.HandleFunc("GET /api/geocode", s.handleAPIGeocode)
	mux.HandleFunc("POST /api/chat/session", s.handleChatSession)
	mux.HandleFunc("POST /api/chat/action", s.handleChatAction)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/compare", s.handleCompare)
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on :%s", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
