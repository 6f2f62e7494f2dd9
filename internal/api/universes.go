package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-dmx/internal/dmx"
)

// channelRequest is the body of PUT /universes/{universe}/channels/{channel}.
type channelRequest struct {
	Value *int `json:"value"`
}

// bulkRequest is the body of PUT /universes/{universe}/channels.
type bulkRequest struct {
	Start  int   `json:"start"`
	Values []int `json:"values"`
}

// channelResponse is returned by the single-channel endpoints.
type channelResponse struct {
	Universe int `json:"universe"`
	Channel  int `json:"channel"`
	Value    int `json:"value"`
}

// universeParam parses and range-checks the {universe} URL parameter.
func universeParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "universe"))
	if err != nil || !dmx.ValidUniverse(id) {
		return 0, dmx.ErrInvalidUniverse
	}
	return id, nil
}

// addressParams parses the {universe} and {channel} URL parameters.
func addressParams(r *http.Request) (universe, channel int, err error) {
	universe, err = universeParam(r)
	if err != nil {
		return 0, 0, err
	}
	channel, err = strconv.Atoi(chi.URLParam(r, "channel"))
	if err != nil {
		return 0, 0, dmx.ErrInvalidChannel
	}
	if err := dmx.ValidateAddress(universe, channel); err != nil {
		return 0, 0, err
	}
	return universe, channel, nil
}

// writeAddressError reports a bad universe or channel. Unknown universes
// are 404; a bad channel inside a real universe is a validation error.
func writeAddressError(w http.ResponseWriter, err error) {
	if errors.Is(err, dmx.ErrInvalidUniverse) {
		writeNotFound(w, "universe not found")
		return
	}
	writeValidationError(w, err.Error())
}

// handleGetUniverse returns a universe snapshot.
func (s *Server) handleGetUniverse(w http.ResponseWriter, r *http.Request) {
	id, err := universeParam(r)
	if err != nil {
		writeAddressError(w, err)
		return
	}

	u, ok, err := s.engine.Universe(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if !ok {
		writeNotFound(w, "universe not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleGetChannel returns one channel's level.
func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	universe, channel, err := addressParams(r)
	if err != nil {
		writeAddressError(w, err)
		return
	}

	value, err := s.engine.ChannelValue(r.Context(), universe, channel)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channelResponse{Universe: universe, Channel: channel, Value: value})
}

// handleSetChannel writes one channel. The value is clamped to 0..255.
func (s *Server) handleSetChannel(w http.ResponseWriter, r *http.Request) {
	universe, channel, err := addressParams(r)
	if err != nil {
		writeAddressError(w, err)
		return
	}

	var req channelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeValidationError(w, "value is required")
		return
	}

	if err := s.engine.SetChannelValue(r.Context(), universe, channel, *req.Value); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, channelResponse{Universe: universe, Channel: channel, Value: dmx.Clamp(*req.Value)})
}

// handleSetChannels writes consecutive channels starting at start. Values
// past the end of the universe are dropped by the store.
func (s *Server) handleSetChannels(w http.ResponseWriter, r *http.Request) {
	universe, err := universeParam(r)
	if err != nil {
		writeAddressError(w, err)
		return
	}

	var req bulkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !dmx.ValidChannel(req.Start) {
		writeValidationError(w, "start must be between 0 and 511")
		return
	}
	if len(req.Values) == 0 {
		writeValidationError(w, "values must not be empty")
		return
	}

	if err := s.engine.SetMultipleChannels(r.Context(), universe, req.Start, req.Values); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearUniverse zeroes one universe.
func (s *Server) handleClearUniverse(w http.ResponseWriter, r *http.Request) {
	universe, err := universeParam(r)
	if err != nil {
		writeAddressError(w, err)
		return
	}

	if err := s.engine.ClearUniverse(r.Context(), universe); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearAll zeroes every universe.
func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearAllUniverses(r.Context()); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
