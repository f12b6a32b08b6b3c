// Package response provides shared JSON response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"
)

// UploadFailure is the wire shape for every failed upload. The message is
// deliberately generic; URL carries the computed upstream URL with the access
// token redacted, for diagnostics.
type UploadFailure struct {
	Error string `json:"error"`
	URL   string `json:"url,omitempty"`
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK writes a 200 response with the payload as-is; the upload endpoint
// passes the upstream gateway response through unchanged, without an envelope.
func OK(w http.ResponseWriter, payload interface{}) {
	JSON(w, http.StatusOK, payload)
}

// UploadFailed writes the 500 failure contract for the upload endpoint.
func UploadFailed(w http.ResponseWriter, redactedURL string) {
	JSON(w, http.StatusInternalServerError, UploadFailure{
		Error: "Upload failed",
		URL:   redactedURL,
	})
}
