package web

// errors.go maps core error kinds to HTTP responses. Technical detail is
// logged server-side with the request id; clients get a stable JSON
// shape with a machine-readable code.

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/wasd09090030/chartvault/internal/core"
	"github.com/wasd09090030/chartvault/internal/logging"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusForKind maps a core error kind to an HTTP status code.
func statusForKind(kind core.Kind) int {
	switch kind {
	case core.KindInvalidInput:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindNoEligibleContent:
		return http.StatusUnprocessableEntity
	case core.KindNotConfigured:
		return http.StatusServiceUnavailable
	case core.KindUploadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// codeForKind gives clients a stable machine-readable error code.
func codeForKind(kind core.Kind) string {
	switch kind {
	case core.KindInvalidInput:
		return "INVALID_INPUT"
	case core.KindNotFound:
		return "NOT_FOUND"
	case core.KindNoEligibleContent:
		return "NO_ELIGIBLE_CONTENT"
	case core.KindNotConfigured:
		return "NOT_CONFIGURED"
	case core.KindUploadFailed:
		return "UPLOAD_FAILED"
	default:
		return "INTERNAL"
	}
}

// respondError logs the technical error and writes the mapped JSON
// response.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	status := statusForKind(kind)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", codeForKind(kind),
		"error", err.Error(),
	)

	message := err.Error()
	if kind == core.KindInternal {
		// Do not leak internals to clients.
		message = "internal server error"
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: codeForKind(kind)})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
