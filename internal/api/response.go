package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gyaneshwarpardhi/patchpreset/internal/engine"
	"github.com/gyaneshwarpardhi/patchpreset/internal/patch"
	"github.com/gyaneshwarpardhi/patchpreset/internal/widget"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the error envelope every route uses.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeHostError picks the status for an error returned by the host.
// Anything unrecognised is treated as a rejected request.
func writeHostError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, engine.ErrPresetNotFound), errors.Is(err, patch.ErrNodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, widget.ErrUnknownKind):
		status = http.StatusBadRequest
	case errors.Is(err, patch.ErrNodeExists):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrQueueFull):
		status = http.StatusTooManyRequests
	case errors.Is(err, engine.ErrTimeout), errors.Is(err, engine.ErrShutdown):
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err.Error())
}
