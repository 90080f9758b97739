package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/bridges/eiscp"
)

// PowerResponse reports the receiver's power state.
type PowerResponse struct {
	IsPowered bool `json:"is_powered"`
}

// LevelResponse reports a volume or subwoofer level.
type LevelResponse struct {
	Level int `json:"level"`
}

// InputResponse reports the current input selector.
type InputResponse struct {
	Selector string `json:"selector"`
}

// ─── Power ─────────────────────────────────────────────────────────

func (s *Server) handleGetPower(w http.ResponseWriter, r *http.Request) {
	s.respondPower(w, r, s.proxy.IsPowered)
}

func (s *Server) handlePowerOn(w http.ResponseWriter, r *http.Request) {
	s.respondPower(w, r, s.proxy.PowerOn)
}

func (s *Server) handlePowerOff(w http.ResponseWriter, r *http.Request) {
	s.respondPower(w, r, s.proxy.PowerOff)
}

func (s *Server) handleSwitchPower(w http.ResponseWriter, r *http.Request) {
	s.respondPower(w, r, s.proxy.SwitchPower)
}

func (s *Server) respondPower(w http.ResponseWriter, r *http.Request, op func(context.Context) (bool, error)) {
	on, err := op(r.Context())
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PowerResponse{IsPowered: on})
}

// ─── Volume ────────────────────────────────────────────────────────

func (s *Server) handleGetVolume(w http.ResponseWriter, r *http.Request) {
	s.respondLevel(w, r, s.proxy.GetVolume)
}

// handleSetVolume sets the master volume from ?level=. Values above the
// active maximum are clamped or rejected depending on the volume policy.
func (s *Server) handleSetVolume(w http.ResponseWriter, r *http.Request) {
	level, ok := intParam(w, r, "level")
	if !ok {
		return
	}
	applied, err := s.proxy.SetVolume(r.Context(), level)
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LevelResponse{Level: applied})
}

func (s *Server) handleVolumeUp(w http.ResponseWriter, r *http.Request) {
	s.respondLevel(w, r, s.proxy.VolumeUp)
}

func (s *Server) handleVolumeDown(w http.ResponseWriter, r *http.Request) {
	s.respondLevel(w, r, s.proxy.VolumeDown)
}

// ─── Subwoofer ─────────────────────────────────────────────────────

func (s *Server) handleGetSubwoofer(w http.ResponseWriter, r *http.Request) {
	s.respondLevel(w, r, s.proxy.GetSubwooferLevel)
}

// handleSetSubwoofer sets the subwoofer level from ?level=. Levels outside
// (-8, 8) are answered with 404.
func (s *Server) handleSetSubwoofer(w http.ResponseWriter, r *http.Request) {
	level, ok := intParam(w, r, "level")
	if !ok {
		return
	}
	applied, err := s.proxy.SetSubwooferLevel(r.Context(), level)
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LevelResponse{Level: applied})
}

func (s *Server) handleSubwooferUp(w http.ResponseWriter, r *http.Request) {
	s.respondLevel(w, r, s.proxy.SubwooferUp)
}

func (s *Server) handleSubwooferDown(w http.ResponseWriter, r *http.Request) {
	s.respondLevel(w, r, s.proxy.SubwooferDown)
}

func (s *Server) respondLevel(w http.ResponseWriter, r *http.Request, op func(context.Context) (int, error)) {
	level, err := op(r.Context())
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LevelResponse{Level: level})
}

// ─── Input ─────────────────────────────────────────────────────────

func (s *Server) handleGetInput(w http.ResponseWriter, r *http.Request) {
	selector, err := s.proxy.GetInputSelector(r.Context())
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InputResponse{Selector: selector})
}

func (s *Server) handleSetInput(w http.ResponseWriter, r *http.Request) {
	selector := r.URL.Query().Get("selector")
	if selector == "" {
		writeBadRequest(w, "selector query parameter is required")
		return
	}
	applied, err := s.proxy.SetInputSelector(r.Context(), selector)
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, InputResponse{Selector: applied})
}

func (s *Server) handleListInputs(w http.ResponseWriter, _ *http.Request) {
	inputs := eiscp.InputSelectors()
	writeJSON(w, http.StatusOK, map[string]any{
		"inputs": inputs,
		"count":  len(inputs),
	})
}

// ─── Profiles ──────────────────────────────────────────────────────

// handleGetProfile returns the profile matching the current input, or 404
// when the input belongs to no profile.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	current, err := s.proxy.CurrentProfile(r.Context())
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	if current.IsUnknown() {
		writeNotFound(w, fmt.Sprintf("no profile matches input %q", current.Selector))
		return
	}
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeBadRequest(w, "name query parameter is required")
		return
	}
	applied, err := s.proxy.SetProfile(r.Context(), name)
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applied)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, _ *http.Request) {
	profiles := s.proxy.Catalog().All()
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles": profiles,
		"count":    len(profiles),
	})
}

// ─── Device ────────────────────────────────────────────────────────

// handleDevice returns a live snapshot of the receiver.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	snap, err := s.proxy.DeviceInfo(r.Context())
	if err != nil {
		s.writeDeviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// intParam reads a required integer query parameter, writing a 400 when it
// is missing or malformed.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		writeBadRequest(w, name+" query parameter is required")
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("%s must be an integer, got %q", name, raw))
		return 0, false
	}
	return v, true
}
