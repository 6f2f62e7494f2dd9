package api

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-dmx/internal/bridges/sacn"
	"github.com/nerrad567/gray-logic-dmx/internal/diagnostics"
	"github.com/nerrad567/gray-logic-dmx/internal/dmx"
)

// Error list limits.
const (
	defaultErrorLimit = 50
	maxErrorLimit     = 500

	// errorSourceLog selects the persisted error log instead of the
	// in-memory history.
	errorSourceLog = "log"
)

// recordErrorRequest is the body of POST /network/errors.
type recordErrorRequest struct {
	Type     diagnostics.ErrorType `json:"type"`
	Message  string                `json:"message"`
	Universe *int                  `json:"universe,omitempty"`
}

// sendRequest is the optional body of POST /network/send/{universe}.
type sendRequest struct {
	Slots []int `json:"slots"`
}

// handleNetworkStatus returns the relay link summary.
func (s *Server) handleNetworkStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.engine.NetworkStatus(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleNetworkStats returns the aggregated link statistics.
func (s *Server) handleNetworkStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleListErrors returns recorded network errors.
//
// Query parameters:
//   - source: "log" reads the persisted error log, newest first; otherwise
//     the in-memory history is returned oldest first
//   - limit: maximum entries for the persisted log (default 50, max 500)
func (s *Server) handleListErrors(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("source") != errorSourceLog {
		history, err := s.engine.ErrorHistory(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"errors": history, "count": len(history)})
		return
	}

	if s.errorLog == nil {
		writeError(w, http.StatusConflict, ErrCodeConflict, "error log is not enabled")
		return
	}

	limit := defaultErrorLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeValidationError(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxErrorLimit)
	}

	entries, err := s.errorLog.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading error log", "error", err)
		writeInternalError(w, "failed to read error log")
		return
	}
	if entries == nil {
		entries = []diagnostics.NetworkError{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"errors": entries, "count": len(entries)})
}

// handleRecordError adds an operator-reported error to the history.
func (s *Server) handleRecordError(w http.ResponseWriter, r *http.Request) {
	var req recordErrorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !req.Type.Valid() {
		writeValidationError(w, "type must be one of connection, packet, universe")
		return
	}
	if req.Message == "" {
		writeValidationError(w, "message is required")
		return
	}
	if req.Universe != nil && !dmx.ValidUniverse(*req.Universe) {
		writeValidationError(w, "universe must be between 1 and 64")
		return
	}

	ne := diagnostics.NetworkError{
		ID:       uuid.NewString(),
		Type:     req.Type,
		Message:  req.Message,
		Universe: req.Universe,
	}
	if err := s.engine.RecordError(r.Context(), ne); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": ne.ID})
}

// handleClearErrors drops the in-memory error history. The persisted log
// is not touched.
func (s *Server) handleClearErrors(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearErrorHistory(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetMulticast returns the relay's multicast settings.
func (s *Server) handleGetMulticast(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.engine.MulticastConfig(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleSetMulticast merges a partial multicast config and pushes it to the relay.
func (s *Server) handleSetMulticast(w http.ResponseWriter, r *http.Request) {
	var patch sacn.MulticastPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if patch.Empty() {
		writeValidationError(w, "at least one field is required")
		return
	}
	if msg := validateMulticastPatch(patch); msg != "" {
		writeValidationError(w, msg)
		return
	}

	cfg, err := s.engine.SetMulticastConfig(r.Context(), patch)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// validateMulticastPatch returns a message describing the first invalid
// field, or "".
func validateMulticastPatch(p sacn.MulticastPatch) string {
	if p.Address != nil {
		ip := net.ParseIP(*p.Address)
		if ip == nil || !ip.IsMulticast() {
			return "address must be a multicast IP"
		}
	}
	if p.Port != nil && (*p.Port < 1 || *p.Port > 65535) {
		return "port must be between 1 and 65535"
	}
	if p.TTL != nil && (*p.TTL < 1 || *p.TTL > 255) {
		return "ttl must be between 1 and 255"
	}
	if p.SourceAddress != nil && net.ParseIP(*p.SourceAddress) == nil {
		return "sourceAddress must be an IP address"
	}
	return ""
}

// handleSend publishes a universe to the relay. Without a body the
// universe's current contents are sent.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	universe, err := universeParam(r)
	if err != nil {
		writeAddressError(w, err)
		return
	}

	var req sendRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Slots) > dmx.SlotCount {
		writeValidationError(w, "slots must not exceed 512 entries")
		return
	}

	sent, err := s.engine.SendDMXData(r.Context(), universe, req.Slots)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sent": sent})
}
