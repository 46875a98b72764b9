// Package assist asks a remote text-generation service for answers and
// summaries, and substitutes the insight engine's output whenever the remote
// side fails. Callers always get non-empty text back.
package assist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lox/powerweather/internal/htmlutil"
	"github.com/lox/powerweather/internal/insight"
	"github.com/lox/powerweather/internal/metrics"
	"github.com/lox/powerweather/internal/models"
)

const DefaultTimeout = 10 * time.Second

var (
	ErrRemoteUnavailable = errors.New("remote assistant unavailable")
	errEmptyReply        = errors.New("empty reply")
)

type Source string

const (
	SourceAssistant Source = "assistant"
	SourceFallback  Source = "fallback"
)

type Reply struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

type Facade struct {
	engine  *insight.Engine
	remote  Completer
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

type Option func(*Facade)

func WithTimeout(d time.Duration) Option {
	return func(f *Facade) { f.timeout = d }
}

// NewFacade wraps remote with the engine fallback. A nil remote always
// answers from the engine.
func NewFacade(engine *insight.Engine, remote Completer, opts ...Option) *Facade {
	f := &Facade{
		engine:  engine,
		remote:  remote,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "assist",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("assist: circuit %s %s -> %s", name, from, to)
		},
	})
	return f
}

func (f *Facade) Engine() *insight.Engine {
	return f.engine
}

// Enabled reports whether a remote service is configured.
func (f *Facade) Enabled() bool {
	return f.remote != nil
}

const systemPrompt = "You are a weather analyst working with NASA POWER satellite data. " +
	"Use only the data provided. Reply in plain text without markdown."

func (f *Facade) Answer(ctx context.Context, in insight.ChatInput) Reply {
	if in.Series.Empty() {
		return f.local("chat", insight.NoChatDataMessage)
	}
	user := fmt.Sprintf("Question: %s\n\nWeather data:\n%s",
		in.Question, NewBundle(in.Series, in.Forecasts, in.Insight).JSON())
	return f.try(ctx, "chat", user, func() string { return f.engine.Answer(in) })
}

func (f *Facade) Summary(ctx context.Context, in insight.SummaryInput) Reply {
	if in.Series.Empty() {
		return f.local("summary", insight.NoDataMessage)
	}
	user := "Write a plain English summary of this weather data. Start with the period and location, " +
		"give one short paragraph per parameter, and finish with a sentence beginning " +
		"\"Overall, this location has experienced\".\n\nWeather data:\n" +
		NewBundle(in.Series, in.Forecasts, in.Insight).JSON()
	return f.try(ctx, "summary", user, func() string { return f.engine.Summarize(in).String() })
}

func (f *Facade) Interpret(ctx context.Context, s models.Series, p models.Parameter, fc models.Forecasts) Reply {
	if !insight.ComputeStats(s.Column(p)).OK() {
		return f.local("interpret", f.engine.Interpret(s, p, fc))
	}
	user := fmt.Sprintf("In two or three sentences, interpret the %s readings (%s) for this location.\n\nWeather data:\n%s",
		p.Noun(), s.Unit(p), NewBundle(s, fc, "").JSON())
	return f.try(ctx, "interpret", user, func() string { return f.engine.Interpret(s, p, fc) })
}

func (f *Facade) Recommend(ctx context.Context, a, b insight.Profile, purpose string) Reply {
	fallback := func() string { return f.engine.Recommend(a, b, purpose).String() }
	if !a.HasTemp && !b.HasTemp {
		return f.local("compare", fallback())
	}
	profiles, _ := json.MarshalIndent([]insight.Profile{a, b}, "", "  ")
	user := fmt.Sprintf("Compare these two locations for this purpose: %q.\n"+
		"Reply exactly in the form \"WINNER: <location name>\" then a blank line then \"REASON: <one or two sentences>\".\n\n%s",
		purpose, profiles)
	return f.try(ctx, "compare", user, fallback)
}

func (f *Facade) local(surface, text string) Reply {
	metrics.AssistRepliesTotal.WithLabelValues(surface, string(SourceFallback)).Inc()
	return Reply{Text: text, Source: SourceFallback}
}

func (f *Facade) try(ctx context.Context, surface, user string, fallback func() string) Reply {
	if f.remote != nil {
		text, err := f.attempt(ctx, user)
		if err == nil {
			metrics.AssistRepliesTotal.WithLabelValues(surface, string(SourceAssistant)).Inc()
			return Reply{Text: text, Source: SourceAssistant}
		}
		log.Printf("assist: %s: using fallback: %v", surface, err)
	}
	return f.local(surface, fallback())
}

type completion struct {
	text string
	err  error
}

// attempt makes one remote call bounded by the facade timeout. A completer
// that ignores its context is abandoned when the timeout fires.
func (f *Facade) attempt(ctx context.Context, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	out, err := f.breaker.Execute(func() (interface{}, error) {
		ch := make(chan completion, 1)
		go func() {
			text, err := f.remote.Complete(ctx, systemPrompt, user)
			ch <- completion{text, err}
		}()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case c := <-ch:
			if c.err != nil {
				return nil, c.err
			}
			text := htmlutil.CleanReply(c.text)
			if text == "" {
				return nil, errEmptyReply
			}
			return text, nil
		}
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	return out.(string), nil
}
