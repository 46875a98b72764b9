package chat

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestReduceSend(t *testing.T) {
	s := Initial()
	s = Reduce(s, Action{Kind: ActionSetInput, Text: "  will it rain?  "}, nil)
	before := s
	s = Reduce(s, Action{Kind: ActionSend}, nil)

	if !s.Typing || s.Input != "" {
		t.Errorf("after send: %+v", s)
	}
	if len(s.Messages) != 2 || s.Messages[1].Text != "will it rain?" || s.Messages[1].Role != RoleUser {
		t.Errorf("messages = %+v", s.Messages)
	}
	if len(before.Messages) != 1 {
		t.Error("Reduce modified its input")
	}

	s = Reduce(s, Action{Kind: ActionReply, Text: "No rain expected.", Source: "fallback"}, nil)
	if s.Typing || s.Speaking {
		t.Errorf("after reply: %+v", s)
	}
	if last := s.Messages[len(s.Messages)-1]; last.Role != RoleBot || last.Source != "fallback" {
		t.Errorf("last = %+v", last)
	}
}

func TestReduceIgnoresBlankAndBusySend(t *testing.T) {
	s := Reduce(Initial(), Action{Kind: ActionSetInput, Text: "   "}, nil)
	if got := Reduce(s, Action{Kind: ActionSend}, nil); len(got.Messages) != 1 || got.Typing {
		t.Errorf("blank send changed state: %+v", got)
	}

	s = Reduce(Initial(), Action{Kind: ActionSetInput, Text: "hi"}, nil)
	s = Reduce(s, Action{Kind: ActionSend}, nil)
	s = Reduce(s, Action{Kind: ActionSetInput, Text: "again"}, nil)
	if got := Reduce(s, Action{Kind: ActionSend}, nil); len(got.Messages) != 2 {
		t.Errorf("send while typing appended: %+v", got.Messages)
	}
}

func TestReduceVoice(t *testing.T) {
	long := strings.Repeat("x", AutoSpeakLimit)
	tests := []struct {
		name   string
		caps   Capabilities
		action Action
		check  func(State) bool
	}{
		{"listen unsupported", Unsupported{}, Action{Kind: ActionStartListening}, func(s State) bool { return !s.Listening }},
		{"listen supported", Supported{Input: true}, Action{Kind: ActionStartListening}, func(s State) bool { return s.Listening }},
		{"speak unsupported", Supported{Input: true}, Action{Kind: ActionSpeak}, func(s State) bool { return !s.Speaking }},
		{"speak supported", Supported{Output: true}, Action{Kind: ActionSpeak}, func(s State) bool { return s.Speaking }},
		{"short reply auto speaks", Supported{Output: true}, Action{Kind: ActionReply, Text: "Sunny."}, func(s State) bool { return s.Speaking }},
		{"long reply stays quiet", Supported{Output: true}, Action{Kind: ActionReply, Text: long}, func(s State) bool { return !s.Speaking }},
		{"reply without output", Unsupported{}, Action{Kind: ActionReply, Text: "Sunny."}, func(s State) bool { return !s.Speaking }},
		{"transcript without listening", Supported{Input: true}, Action{Kind: ActionTranscript, Text: "hello"}, func(s State) bool { return s.Input == "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reduce(Initial(), tt.action, tt.caps); !tt.check(got) {
				t.Errorf("state = %+v", got)
			}
		})
	}
}

func TestReduceTranscript(t *testing.T) {
	caps := Supported{Input: true}
	s := Reduce(Initial(), Action{Kind: ActionStartListening}, caps)
	s = Reduce(s, Action{Kind: ActionTranscript, Text: "how windy is it"}, caps)
	s = Reduce(s, Action{Kind: ActionStopListening}, caps)
	if s.Input != "how windy is it" || s.Listening {
		t.Errorf("state = %+v", s)
	}
}

func TestProbe(t *testing.T) {
	if _, ok := Probe(false, false).(Unsupported); !ok {
		t.Error("expected Unsupported")
	}
	if c := Probe(false, true); c.SpeechInput() || !c.SpeechOutput() {
		t.Errorf("caps = %+v", c)
	}
}

func TestSessions(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessions()
	s.now = func() time.Time { return now }

	id, st := s.Create(nil)
	if !st.Open || len(st.Messages) != 1 {
		t.Errorf("initial = %+v", st)
	}
	st, err := s.Apply(id, Action{Kind: ActionSetInput, Text: "hot?"}, Action{Kind: ActionSend})
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Messages) != 2 {
		t.Errorf("messages = %+v", st.Messages)
	}
	if _, err := s.Apply("missing"); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("err = %v", err)
	}

	s.Create(Supported{Output: true})
	now = now.Add(2 * time.Hour)
	if _, err := s.Apply(id); err != nil {
		t.Fatal(err)
	}
	if n := s.Prune(time.Hour); n != 1 || s.Len() != 1 {
		t.Errorf("pruned = %d, len = %d", n, s.Len())
	}
}
