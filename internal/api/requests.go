package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lox/powerweather/internal/forecast"
	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/models"
	"github.com/lox/powerweather/internal/power"
)

// WeatherQuery selects a location, a date range and parameters. It arrives
// as URL query parameters on GET endpoints and as JSON inside POST bodies.
type WeatherQuery struct {
	Latitude   *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Longitude  *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Name       string   `json:"name" validate:"max=200"`
	Temporal   string   `json:"temporal" validate:"omitempty,oneof=daily monthly"`
	Start      string   `json:"start" validate:"omitempty,powerdate"`
	End        string   `json:"end" validate:"omitempty,powerdate"`
	Parameters []string `json:"params" validate:"omitempty,dive,parameter"`
	Model      string   `json:"model" validate:"omitempty,oneof=linear moving-average ma"`
}

var dateLayouts = []string{"20060102", "2006-01-02", "200601", "2006-01", "2006"}

func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON and query names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("powerdate", func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String())
		return err == nil
	})
	v.RegisterValidation("parameter", func(fl validator.FieldLevel) bool {
		return models.Parameter(fl.Field().String()).Valid()
	})
	return v
}

func queryFromURL(q url.Values) (WeatherQuery, error) {
	wq := WeatherQuery{
		Name:     strings.TrimSpace(q.Get("name")),
		Temporal: q.Get("temporal"),
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Model:    q.Get("model"),
	}
	for _, f := range []struct {
		key string
		dst **float64
	}{{"lat", &wq.Latitude}, {"lon", &wq.Longitude}} {
		raw := q.Get(f.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return wq, fmt.Errorf("%s: not a number", f.key)
		}
		*f.dst = &v
	}
	if raw := q.Get("params"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				wq.Parameters = append(wq.Parameters, strings.ToUpper(p))
			}
		}
	}
	return wq, nil
}

// request turns a validated query into an upstream request. Omitted fields
// take power.DefaultRequest's values.
func (wq WeatherQuery) request(now time.Time) (power.Request, error) {
	loc := models.Location{Latitude: *wq.Latitude, Longitude: *wq.Longitude, Name: wq.Name}
	req := power.DefaultRequest(loc, models.Temporal(wq.Temporal), now)
	if params := models.ParseParameters(wq.Parameters); len(params) > 0 {
		req.Parameters = params
	}
	if wq.End != "" {
		t, err := parseDate(wq.End)
		if err != nil {
			return power.Request{}, err
		}
		req.End = t
		req.Start = power.DefaultStart(req.Temporal, t)
	}
	if wq.Start != "" {
		t, err := parseDate(wq.Start)
		if err != nil {
			return power.Request{}, err
		}
		req.Start = t
	}
	if req.End.Before(req.Start) {
		return power.Request{}, fmt.Errorf("%w: end date is before start date", insight.ErrInvalidInput)
	}
	return req, nil
}

func (wq WeatherQuery) model() forecast.Model {
	if wq.Model == "" {
		return nil
	}
	m, err := forecast.ByName(wq.Model)
	if err != nil {
		return nil
	}
	return m
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, apiError{Error: err.Error()})
}

// validationError flattens validator output into one readable message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fieldMessage(fe)
	}
	return errors.New(strings.Join(parts, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required", "required_without":
		return name + ": required"
	case "parameter":
		return fmt.Sprintf("%s: unknown parameter code %q", name, fe.Value())
	case "powerdate":
		return fmt.Sprintf("%s: invalid date %q, want YYYYMMDD, YYYY-MM-DD or YYYY", name, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s: must be one of %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "uuid":
		return name + ": not a valid id"
	case "gte", "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s: must be at least %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s: must be at least %s", name, fe.Param())
	case "lte", "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s: must be at most %s characters", name, fe.Param())
		}
		return fmt.Sprintf("%s: must be at most %s", name, fe.Param())
	}
	return fmt.Sprintf("%s: invalid value", name)
}

// statusFor maps fetch and engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, insight.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, power.ErrNoData):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
