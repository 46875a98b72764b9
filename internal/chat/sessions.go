package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownSession = errors.New("unknown chat session")

type session struct {
	state   State
	caps    Capabilities
	touched time.Time
}

// Sessions keeps chat state in memory, keyed by a random session id.
type Sessions struct {
	mu  sync.Mutex
	m   map[string]*session
	now func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{
		m:   make(map[string]*session),
		now: time.Now,
	}
}

func (s *Sessions) Create(caps Capabilities) (string, State) {
	if caps == nil {
		caps = Unsupported{}
	}
	id := uuid.NewString()
	st := Initial()
	st.Open = true

	s.mu.Lock()
	s.m[id] = &session{state: st, caps: caps, touched: s.now()}
	s.mu.Unlock()
	return id, st
}

func (s *Sessions) Get(id string) (State, Capabilities, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok {
		return State{}, nil, ErrUnknownSession
	}
	return sess.state, sess.caps, nil
}

// Apply reduces each action in order and stores the result.
func (s *Sessions) Apply(id string, actions ...Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok {
		return State{}, ErrUnknownSession
	}
	for _, a := range actions {
		sess.state = Reduce(sess.state, a, sess.caps)
	}
	sess.touched = s.now()
	return sess.state, nil
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

// Prune drops sessions idle for longer than maxAge and returns how many went.
func (s *Sessions) Prune(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxAge)
	n := 0
	for id, sess := range s.m {
		if sess.touched.Before(cutoff) {
			delete(s.m, id)
			n++
		}
	}
	return n
}
