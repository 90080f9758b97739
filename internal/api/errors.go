package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/bridges/eiscp"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/profile"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/receiver"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeOutOfRange        = "out_of_range"
	ErrCodeDeviceBusy        = "device_busy"
	ErrCodeDeviceUnavailable = "device_unavailable"
	ErrCodeBadGateway        = "bad_gateway"
	ErrCodeInternal          = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDeviceError maps a proxy error to its HTTP response. Client errors
// carry the error text; device failures are logged and summarised.
func (s *Server) writeDeviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, profile.ErrProfileNotFound):
		writeNotFound(w, err.Error())
		return
	case errors.Is(err, receiver.ErrOutOfRange):
		writeError(w, http.StatusNotFound, ErrCodeOutOfRange, err.Error())
		return
	case errors.Is(err, eiscp.ErrInvalidCommand):
		writeBadRequest(w, err.Error())
		return
	}

	s.logger.Warn("receiver operation failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)

	switch {
	case errors.Is(err, eiscp.ErrRejected):
		writeError(w, http.StatusTooManyRequests, ErrCodeDeviceBusy, "receiver rejected the command")
	case errors.Is(err, eiscp.ErrTransport):
		writeError(w, http.StatusServiceUnavailable, ErrCodeDeviceUnavailable, "receiver unreachable")
	case errors.Is(err, eiscp.ErrDecodingFailed):
		writeError(w, http.StatusBadGateway, ErrCodeBadGateway, "unexpected response from receiver")
	default:
		writeInternalError(w, "receiver operation failed")
	}
}
