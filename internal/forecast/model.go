package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lox/powerweather/internal/models"
)

var ErrInsufficientHistory = errors.New("insufficient history")

// Prediction is one step ahead of the last observation. Index 0 is the next step.
type Prediction struct {
	Value      float64
	Confidence float64
}

// Model predicts future values from a chronological run of present readings.
type Model interface {
	Name() string
	Predict(history []float64) ([]Prediction, error)
}

// Linear fits an ordinary least squares line over the most recent Window
// readings and extends it Horizon steps. Confidence is the fit's R².
type Linear struct {
	Window    int
	Horizon   int
	MinPoints int
}

func NewLinear() Linear {
	return Linear{Window: 30, Horizon: 7, MinPoints: 3}
}

func (Linear) Name() string { return "linear" }

func (m Linear) Predict(history []float64) ([]Prediction, error) {
	if len(history) < m.MinPoints || len(history) < 2 {
		return nil, fmt.Errorf("%w: have %d readings, need %d", ErrInsufficientHistory, len(history), m.MinPoints)
	}
	if m.Window > 0 && len(history) > m.Window {
		history = history[len(history)-m.Window:]
	}

	n := float64(len(history))
	var sumX, sumY float64
	for i, y := range history {
		sumX += float64(i)
		sumY += y
	}
	meanX, meanY := sumX/n, sumY/n

	var sxx, sxy, syy float64
	for i, y := range history {
		dx := float64(i) - meanX
		dy := y - meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	slope := sxy / sxx
	intercept := meanY - slope*meanX

	r2 := 1.0
	if syy > 0 {
		r2 = (sxy * sxy) / (sxx * syy)
	}
	conf := clamp01(r2)

	out := make([]Prediction, m.Horizon)
	for i := range out {
		x := float64(len(history) + i)
		out[i] = Prediction{Value: intercept + slope*x, Confidence: conf}
	}
	return out, nil
}

// MovingAverage repeats the mean of the last Window readings for Horizon
// steps. Confidence falls as the window's coefficient of variation rises.
type MovingAverage struct {
	Window  int
	Horizon int
}

func NewMovingAverage() MovingAverage {
	return MovingAverage{Window: 3, Horizon: 3}
}

func (MovingAverage) Name() string { return "moving-average" }

func (m MovingAverage) Predict(history []float64) ([]Prediction, error) {
	if m.Window < 1 || len(history) < m.Window {
		return nil, fmt.Errorf("%w: have %d readings, need %d", ErrInsufficientHistory, len(history), m.Window)
	}
	window := history[len(history)-m.Window:]

	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(len(window))

	var sq float64
	for _, v := range window {
		sq += (v - mean) * (v - mean)
	}
	std := math.Sqrt(sq / float64(len(window)))

	conf := 1.0
	switch {
	case mean != 0:
		conf = clamp01(1 - std/math.Abs(mean))
	case std > 0:
		conf = 0
	}

	out := make([]Prediction, m.Horizon)
	for i := range out {
		out[i] = Prediction{Value: mean, Confidence: conf}
	}
	return out, nil
}

// ByName returns the model registered under name; empty means linear.
func ByName(name string) (Model, error) {
	switch name {
	case "", "linear":
		return NewLinear(), nil
	case "moving-average", "ma":
		return NewMovingAverage(), nil
	}
	return nil, fmt.Errorf("unknown forecast model %q", name)
}

// ForSeries runs the model over every parameter of the series. Parameters
// with too little history are left out rather than guessed.
func ForSeries(m Model, s models.Series) models.Forecasts {
	out := models.Forecasts{}
	_, last := s.Span()
	if last.IsZero() {
		return out
	}
	for _, p := range s.Parameters {
		preds, err := m.Predict(s.Present(p))
		if err != nil {
			continue
		}
		points := make([]models.ForecastPoint, len(preds))
		for i, pr := range preds {
			points[i] = models.ForecastPoint{
				Parameter:  p,
				Date:       step(last, s.Temporal, i+1),
				Value:      pr.Value,
				Confidence: pr.Confidence,
			}
		}
		out[p] = points
	}
	return out
}

func step(t time.Time, temporal models.Temporal, n int) time.Time {
	if temporal == models.TemporalMonthly {
		return t.AddDate(0, n, 0)
	}
	return t.AddDate(0, 0, n)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
