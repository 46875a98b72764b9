package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/lox/powerweather/internal/assist"
	"github.com/lox/powerweather/internal/chat"
	"github.com/lox/powerweather/internal/insight"
)

type chatSessionRequest struct {
	SpeechInput  bool `json:"speech_input"`
	SpeechOutput bool `json:"speech_output"`
}

type chatSessionResponse struct {
	ID    string     `json:"id"`
	State chat.State `json:"state"`
}

// handleChatSession starts a chat. The client reports its speech support
// once here; the session keeps it for every later transition.
func (s *Server) handleChatSession(w http.ResponseWriter, r *http.Request) {
	var req chatSessionRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	id, st := s.Sessions.Create(chat.Probe(req.SpeechInput, req.SpeechOutput))
	writeJSON(w, http.StatusCreated, chatSessionResponse{ID: id, State: st})
}

type chatActionRequest struct {
	SessionID string      `json:"session_id" validate:"required,uuid"`
	Action    chat.Action `json:"action"`
}

func (s *Server) handleChatAction(w http.ResponseWriter, r *http.Request) {
	var req chatActionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}
	st, err := s.Sessions.Apply(req.SessionID, req.Action)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type chatRequest struct {
	SessionID string        `json:"session_id" validate:"required,uuid"`
	Question  string        `json:"question" validate:"required,max=1000"`
	Weather   *WeatherQuery `json:"weather"`
	Insight   string        `json:"insight" validate:"max=20000"`
}

type chatResponse struct {
	Reply assist.Reply `json:"reply"`
	State chat.State   `json:"state"`
}

// handleChat sends a question through the session state and answers it.
// Without a weather query the answer asks the user to fetch data first.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}
	before, _, err := s.Sessions.Get(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	in := insight.ChatInput{Question: req.Question, Insight: req.Insight}
	if req.Weather != nil {
		l, err := s.load(r, *req.Weather)
		if err != nil {
			writeLoadError(w, err)
			return
		}
		in.Series = l.series
		in.Forecasts = l.forecasts
	}

	st, err := s.Sessions.Apply(req.SessionID,
		chat.Action{Kind: chat.ActionSetInput, Text: req.Question},
		chat.Action{Kind: chat.ActionSend},
	)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if len(st.Messages) != len(before.Messages)+1 {
		writeError(w, http.StatusConflict, errors.New("a reply is already pending"))
		return
	}

	reply := s.Facade.Answer(r.Context(), in)
	st, err = s.Sessions.Apply(req.SessionID, chat.Action{Kind: chat.ActionReply, Text: reply.Text, Source: string(reply.Source)})
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply, State: st})
}
