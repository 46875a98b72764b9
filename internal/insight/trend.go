package insight

import "math"

type Direction string

const (
	Increasing        Direction = "increasing"
	Decreasing        Direction = "decreasing"
	Stable            Direction = "stable"
	TrendInsufficient Direction = "insufficient data"
)

type Trend struct {
	Direction Direction `json:"direction"`
	// Magnitude is |last window mean - first window mean|, one decimal.
	Magnitude float64 `json:"magnitude"`
}

func (t Trend) OK() bool {
	return t.Direction != TrendInsufficient
}

// Trend compares the mean of the last window to the mean of the first.
// With fewer than two windows of data the windows overlap.
func (e *Engine) Trend(values []float64) Trend {
	w := e.th.TrendWindow
	if w < 1 || len(values) < w {
		return Trend{Direction: TrendInsufficient}
	}
	first := mean(values[:w])
	last := mean(values[len(values)-w:])
	diff := last - first

	t := Trend{Direction: Stable, Magnitude: math.Round(math.Abs(diff)*10) / 10}
	switch {
	case diff > e.th.TrendEpsilon:
		t.Direction = Increasing
	case diff < -e.th.TrendEpsilon:
		t.Direction = Decreasing
	}
	return t
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
