package insight

import (
	"math"
	"strings"
	"testing"

	"github.com/lox/powerweather/internal/models"
)

func TestIntent(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"Should I go outside today?", "outdoor"},
		{"How hot is it?", "temperature"},
		{"Will it rain?", "precipitation"},
		{"What's the forecast?", "forecast"},
		{"is it windy", "wind"},
		{"how humid is it", "humidity"},
		{"any trend?", "trend"},
		{"give me an overview", "overview"},
		{"what is the meaning of life", "help"},
		{"temperture please", "temperature"},
		{"forcast", "forecast"},
		{"Will it freeze?", "temperature"},
		{"a breezy day", "wind"},
		{"breze", "help"},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := Intent(tt.question); got != tt.want {
				t.Errorf("Intent(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}

func TestAnswerNoData(t *testing.T) {
	if got := Default().Answer(ChatInput{Question: "temperature?"}); got != NoChatDataMessage {
		t.Errorf("Answer = %q", got)
	}
}

func TestAnswerUsesSharedBands(t *testing.T) {
	e := Default()
	s := buildSeries(map[models.Parameter][]float64{
		models.ParamTemperature:   {28, 29, 30, 31, 30, 29, 28, 32, 33, 34},
		models.ParamPrecipitation: {0, 0, 0.2, 0, 0, 0, 0, 0, 0, 0},
		models.ParamWind:          {2, 3, 2, 3, 2, 3, 2, 3, 2, 20},
	})

	tests := []struct {
		question string
		want     []string
	}{
		{"should i go outside", []string{"Temperature: 34.0°C - Hot!", "Wind: 20.0 m/s - Very windy", "Recommendation: Very windy, be cautious outdoors."}},
		{"temperature?", []string{"Average: 30.4°C", "warm temperatures overall"}},
		{"rain?", []string{"Total: 0.2mm", "Rainy days: 1", "relatively dry"}},
		{"trend", []string{"Temperature is increasing", "(1.7°C change)"}},
		{"forecast", []string{"No forecast data is available"}},
		{"overview", []string{"Wandiligong", "Data points: 10 days"}},
		{"humidity", []string{"I can help with"}},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got := e.Answer(ChatInput{Question: tt.question, Series: s})
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("answer missing %q:\n%s", w, got)
				}
			}
		})
	}
}

func TestAnswerOutdoorMatchesConditions(t *testing.T) {
	e := Default()
	s := buildSeries(map[models.Parameter][]float64{
		models.ParamTemperature:   {22},
		models.ParamPrecipitation: {6},
		models.ParamWind:          {20},
	})
	latest, _ := s.Latest()
	want := RecommendationText(e.Conditions(latest).Recommendation)
	got := e.Answer(ChatInput{Question: "can I go outdoors?", Series: s})
	if !strings.HasSuffix(got, want) || want != "Stay indoors due to rain." {
		t.Errorf("answer = %q, want suffix %q", got, want)
	}
}

func TestAnswerOutdoorSkipsUnreportedDay(t *testing.T) {
	e := Default()
	nan := math.NaN()
	s := buildSeries(map[models.Parameter][]float64{
		models.ParamTemperature:   {22, 23, 24, nan, nan},
		models.ParamPrecipitation: {0, 0, 0, nan, nan},
		models.ParamWind:          {3, 3, 3, nan, nan},
	})

	got := e.Answer(ChatInput{Question: "Should I go outside?", Series: s})
	for _, want := range []string{"Outdoor conditions assessment", "Temperature: 24.0°C", "Recommendation: Good conditions"} {
		if !strings.Contains(got, want) {
			t.Errorf("answer missing %q:\n%s", want, got)
		}
	}
}

func TestAnswerForecastList(t *testing.T) {
	s := buildSeries(map[models.Parameter][]float64{models.ParamTemperature: {10, 11}})
	f := models.Forecasts{models.ParamTemperature: {{Value: 12.25, Confidence: 0.5}}}
	got := Default().Answer(ChatInput{Question: "predict tomorrow", Series: s, Forecasts: f})
	if !strings.Contains(got, "- Temperature: 12.2°C (50% confidence)") && !strings.Contains(got, "- Temperature: 12.3°C (50% confidence)") {
		t.Errorf("answer = %q", got)
	}
}
