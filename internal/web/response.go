package web

import (
	"encoding/json"
	"net/http"

	"github.com/chengang12345632/media-test-sub001/internal/coreerr"
)

// apiResponse is the JSON envelope shared by every non-streaming endpoint,
// grounded on the original platform's ApiResponse<T> (status/data/error).
type apiResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, apiResponse{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, apiResponse{Status: "error", Error: err.Error()})
}

// statusFor maps the typed error taxonomy (spec §4.9) onto HTTP status
// codes: resource/not-found errors are 404, playback validation errors are
// 400, everything else is a 500.
func statusFor(err error) int {
	switch {
	case coreerr.IsResourceError(err):
		return http.StatusNotFound
	case coreerr.IsPlaybackError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeAPIError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}
