package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
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

	r.Route("/power", func(r chi.Router) {
		r.Get("/", s.handleGetPower)
		r.Put("/on", s.handlePowerOn)
		r.Put("/off", s.handlePowerOff)
		r.Put("/switch", s.handleSwitchPower)
	})

	r.Route("/volume", func(r chi.Router) {
		r.Get("/", s.handleGetVolume)
		r.Put("/", s.handleSetVolume)
		r.Put("/up", s.handleVolumeUp)
		r.Put("/down", s.handleVolumeDown)
	})

	r.Route("/subwoofer", func(r chi.Router) {
		r.Get("/", s.handleGetSubwoofer)
		r.Put("/", s.handleSetSubwoofer)
		r.Put("/up", s.handleSubwooferUp)
		r.Put("/down", s.handleSubwooferDown)
	})

	r.Route("/input", func(r chi.Router) {
		r.Get("/", s.handleGetInput)
		r.Put("/", s.handleSetInput)
	})
	r.Get("/inputs", s.handleListInputs)

	r.Route("/profile", func(r chi.Router) {
		r.Get("/", s.handleGetProfile)
		r.Put("/", s.handleSetProfile)
	})
	r.Get("/profiles", s.handleListProfiles)

	r.Get("/device", s.handleDevice)

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get(s.wsPath(), s.handleWebSocket)

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.mqtt != nil {
		resp["mqtt_connected"] = s.mqtt.IsConnected()
	}
	writeJSON(w, http.StatusOK, resp)
}
