// Package insight turns a weather series into statistics, classifications
// and template narratives. Every method is a pure function of its input and
// the engine's thresholds, so one Engine can be shared across goroutines.
package insight

import "errors"

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidInput     = errors.New("invalid input")
)

// NoDataMessage is the narrative returned for an empty series.
const NoDataMessage = "No weather data available for summary generation."

// NoChatDataMessage is the chat answer when no series has been loaded.
const NoChatDataMessage = "I need weather data to answer your questions. Please fetch some data first!"

type Engine struct {
	th Thresholds
}

func New(th Thresholds) *Engine {
	return &Engine{th: th}
}

func Default() *Engine {
	return New(DefaultThresholds())
}

func (e *Engine) Thresholds() Thresholds {
	return e.th
}
