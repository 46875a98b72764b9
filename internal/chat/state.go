// Package chat holds the per-session chat view state and its transitions.
package chat

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// AutoSpeakLimit is the longest reply, in characters, that is read aloud
// without the user asking.
const AutoSpeakLimit = 500

const Greeting = "Hi! I'm your NASA POWER weather assistant. Ask me anything about your weather data!"

type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

type Message struct {
	Role   Role   `json:"role"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}

type State struct {
	Open      bool      `json:"open"`
	Input     string    `json:"input"`
	Typing    bool      `json:"typing"`
	Listening bool      `json:"listening"`
	Speaking  bool      `json:"speaking"`
	Messages  []Message `json:"messages"`
}

// Initial is a closed chat holding only the greeting.
func Initial() State {
	return State{Messages: []Message{{Role: RoleBot, Text: Greeting}}}
}

type ActionKind string

const (
	ActionToggle         ActionKind = "toggle"
	ActionSetInput       ActionKind = "set_input"
	ActionSend           ActionKind = "send"
	ActionReply          ActionKind = "reply"
	ActionStartListening ActionKind = "start_listening"
	ActionTranscript     ActionKind = "transcript"
	ActionStopListening  ActionKind = "stop_listening"
	ActionSpeak          ActionKind = "speak"
	ActionSpeechEnded    ActionKind = "speech_ended"
)

type Action struct {
	Kind   ActionKind `json:"kind" validate:"required,oneof=toggle set_input send reply start_listening transcript stop_listening speak speech_ended"`
	Text   string     `json:"text,omitempty"`
	Source string     `json:"source,omitempty"`
}

// Reduce returns the state after applying a. It never modifies s. Voice
// actions are ignored when caps lacks the matching capability.
func Reduce(s State, a Action, caps Capabilities) State {
	if caps == nil {
		caps = Unsupported{}
	}
	next := s
	next.Messages = slices.Clone(s.Messages)

	switch a.Kind {
	case ActionToggle:
		next.Open = !s.Open
	case ActionSetInput:
		next.Input = a.Text
	case ActionSend:
		text := strings.TrimSpace(s.Input)
		if text == "" || s.Typing {
			return s
		}
		next.Messages = append(next.Messages, Message{Role: RoleUser, Text: text})
		next.Input = ""
		next.Typing = true
	case ActionReply:
		next.Messages = append(next.Messages, Message{Role: RoleBot, Text: a.Text, Source: a.Source})
		next.Typing = false
		if caps.SpeechOutput() && utf8.RuneCountInString(a.Text) < AutoSpeakLimit {
			next.Speaking = true
		}
	case ActionStartListening:
		if !caps.SpeechInput() {
			return s
		}
		next.Listening = true
	case ActionTranscript:
		if !caps.SpeechInput() || !s.Listening {
			return s
		}
		next.Input = a.Text
	case ActionStopListening:
		next.Listening = false
	case ActionSpeak:
		if !caps.SpeechOutput() {
			return s
		}
		// Speaking again while speaking stops playback.
		next.Speaking = !s.Speaking
	case ActionSpeechEnded:
		next.Speaking = false
	default:
		return s
	}
	return next
}
