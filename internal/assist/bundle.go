package assist

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// recentObservations is how many trailing observations go into a prompt.
const recentObservations = 10

// Bundle is the data context sent alongside every prompt.
type Bundle struct {
	Location   string                                 `json:"location"`
	Latitude   float64                                `json:"latitude"`
	Longitude  float64                                `json:"longitude"`
	Parameters []models.Parameter                     `json:"parameters"`
	Units      map[models.Parameter]string            `json:"units"`
	DataPoints int                                    `json:"data_points"`
	Recent     []map[string]any                       `json:"recent"`
	Statistics map[models.Parameter]insight.StatsText `json:"statistics"`
	Forecasts  map[models.Parameter]bundleForecast    `json:"forecasts,omitempty"`
	Insight    string                                 `json:"insight,omitempty"`
}

type bundleForecast struct {
	Date       string  `json:"date"`
	Value      float64 `json:"value"`
	Confidence int     `json:"confidence_pct"`
}

func NewBundle(s models.Series, f models.Forecasts, prior string) Bundle {
	b := Bundle{
		Location:   s.Location.DisplayName(),
		Latitude:   s.Location.Latitude,
		Longitude:  s.Location.Longitude,
		Parameters: s.Parameters,
		Units:      map[models.Parameter]string{},
		DataPoints: len(s.Observations),
		Statistics: map[models.Parameter]insight.StatsText{},
		Insight:    prior,
	}
	for _, p := range s.Parameters {
		b.Units[p] = s.Unit(p)
		b.Statistics[p] = insight.ComputeStats(s.Column(p)).Text()
		if fp, ok := f.Next(p); ok {
			if b.Forecasts == nil {
				b.Forecasts = map[models.Parameter]bundleForecast{}
			}
			b.Forecasts[p] = bundleForecast{
				Date:       fp.Date.Format("2006-01-02"),
				Value:      fp.Value,
				Confidence: insight.ConfidencePercent(fp.Confidence),
			}
		}
	}
	for _, o := range s.Tail(recentObservations).Observations {
		row := map[string]any{"date": o.Date.Format("2006-01-02")}
		for _, p := range s.Parameters {
			if v := o.Value(p); v.Valid {
				row[string(p)] = v.Float64
			} else {
				row[string(p)] = nil
			}
		}
		b.Recent = append(b.Recent, row)
	}
	return b
}

func (b Bundle) JSON() string {
	out, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(out)
}
