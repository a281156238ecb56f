package gateway

import (
	"encoding/json"
	"net/http"
)

// Error codes returned to clients. Pre-stream failures surface as an HTTP
// status plus a JSON error body; once streaming has begun, failures are
// downgraded to in-band RUN_ERROR events carrying the same codes.
const (
	CodeBadRequest    = "AGUI_BAD_REQUEST"
	CodeConfigMissing = "AGUI_CONFIG_MISSING"
	CodeUpstreamError = "AGUI_UPSTREAM_ERROR"
	CodeParseError    = "AGUI_PARSE_ERROR"
	CodeStreamError   = "AGUI_STREAM_ERROR"
	CodeInternal      = "AGUI_INTERNAL"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": apiError{Code: code, Message: message}})
}
