package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-dmx/internal/infrastructure/metrics"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)
	if s.metrics != nil {
		r.Use(metrics.RequestMiddleware(s.metrics))
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Read-only endpoints (no auth required)
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)

		r.Get("/show", s.handleShowStatus)
		r.Get("/universes/{universe}", s.handleGetUniverse)
		r.Get("/universes/{universe}/channels/{channel}", s.handleGetChannel)
		r.Get("/network/status", s.handleNetworkStatus)
		r.Get("/network/stats", s.handleNetworkStats)
		r.Get("/network/errors", s.handleListErrors)
		r.Get("/network/multicast", s.handleGetMulticast)

		// Mutating endpoints
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// Flat paths: a Route here would mount a subrouter over the
			// open GET handlers above.
			r.Put("/show", s.handleLoadShow)
			r.Post("/show/play", s.handlePlay)
			r.Post("/show/pause", s.handlePause)
			r.Post("/show/stop", s.handleStop)
			r.Post("/show/seek", s.handleSeek)
			r.Put("/show/loop", s.handleSetLoop)

			r.Delete("/universes", s.handleClearAll)
			r.Delete("/universes/{universe}", s.handleClearUniverse)
			r.Put("/universes/{universe}/channels", s.handleSetChannels)
			r.Put("/universes/{universe}/channels/{channel}", s.handleSetChannel)

			r.Post("/network/errors", s.handleRecordError)
			r.Delete("/network/errors", s.handleClearErrors)
			r.Patch("/network/multicast", s.handleSetMulticast)
			r.Post("/network/send/{universe}", s.handleSend)

			// WS ticket requires authentication; the socket itself is
			// authenticated by the ticket.
			r.Post("/ws/ticket", s.handleWSTicket)
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
