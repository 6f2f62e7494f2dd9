package api

import (
	"net/http"

	"github.com/nerrad567/gray-logic-dmx/internal/show"
)

// seekRequest is the body of POST /show/seek.
type seekRequest struct {
	Time *float64 `json:"time"`
}

// loopRequest is the body of PUT /show/loop.
type loopRequest struct {
	Loop *bool `json:"loop"`
}

// handleShowStatus returns the scheduler's playback status.
func (s *Server) handleShowStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.PlaybackStatus(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleLoadShow replaces the loaded show with the sequence in the body.
// Sequences that fail validation are rejected rather than played partially.
func (s *Server) handleLoadShow(w http.ResponseWriter, r *http.Request) {
	var seq show.Sequence
	if err := decodeJSON(r, &seq); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := seq.Validate(); err != nil {
		writeValidationError(w, err.Error())
		return
	}

	if err := s.engine.LoadShow(r.Context(), seq); err != nil {
		writeEngineError(w, err)
		return
	}
	s.respondStatus(w, r)
}

// handlePlay starts or resumes playback.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Play(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	s.respondStatus(w, r)
}

// handlePause halts playback at the current frame.
func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Pause(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	s.respondStatus(w, r)
}

// handleStop halts playback and rewinds.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Stop(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	s.respondStatus(w, r)
}

// handleSeek moves the playback cursor. Times outside the show are clamped
// by the scheduler.
func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Time == nil {
		writeValidationError(w, "time is required")
		return
	}

	if err := s.engine.SeekToTime(r.Context(), *req.Time); err != nil {
		writeEngineError(w, err)
		return
	}
	s.respondStatus(w, r)
}

// handleSetLoop enables or disables looping.
func (s *Server) handleSetLoop(w http.ResponseWriter, r *http.Request) {
	var req loopRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Loop == nil {
		writeValidationError(w, "loop is required")
		return
	}

	if err := s.engine.SetLoop(r.Context(), *req.Loop); err != nil {
		writeEngineError(w, err)
		return
	}
	s.respondStatus(w, r)
}

// respondStatus writes the post-command playback status.
func (s *Server) respondStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.PlaybackStatus(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
