// Package gateway talks to the upstream content-addressed storage gateway.
// It performs a single multipart POST per file and normalizes the gateway's
// response and failure modes; retries are a caller concern.
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// AddResult is the parsed response of the gateway's add endpoint.
type AddResult struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Endpoint identifies the upstream gateway's add endpoint. The access token
// is a path segment, so it must never appear in logs; use RedactedURL there.
type Endpoint struct {
	BaseURL     string
	PathPrefix  string
	AccessToken string
}

const addPath = "/api/v0/add"

// URL returns the full add-endpoint URL including the access token.
func (e Endpoint) URL() string {
	return strings.TrimRight(e.BaseURL, "/") + e.PathPrefix + "/" + e.AccessToken + addPath
}

// RedactedURL returns the add-endpoint URL with the token segment masked,
// safe for logs and error responses.
func (e Endpoint) RedactedURL() string {
	return strings.TrimRight(e.BaseURL, "/") + e.PathPrefix + "/[REDACTED]" + addPath
}

// Client submits file bytes to the upstream gateway.
type Client interface {
	// Submit streams r as one multipart part named "file" and returns the
	// parsed gateway response.
	Submit(ctx context.Context, r io.Reader, fileName, contentType string) (*AddResult, error)
	// RedactedURL reports the token-redacted endpoint URL for diagnostics.
	RedactedURL() string
}

// HTTPClient is the production Client backed by net/http.
type HTTPClient struct {
	endpoint Endpoint
	client   *http.Client
}

// NewHTTPClient creates a gateway client for the given endpoint. timeout
// bounds the whole upstream exchange; zero means no client-side bound.
func NewHTTPClient(endpoint Endpoint, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Submit streams r to the gateway without buffering the whole file: the
// multipart body is produced through a pipe while net/http consumes it.
func (c *HTTPClient) Submit(ctx context.Context, r io.Reader, fileName, contentType string) (*AddResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := createFilePart(mw, fileName, contentType)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.URL(), pr)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return parseAddResponse(resp.Body)
}

// RedactedURL implements Client.
func (c *HTTPClient) RedactedURL() string {
	return c.endpoint.RedactedURL()
}

func createFilePart(mw *multipart.Writer, fileName, contentType string) (io.Writer, error) {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+escapeQuotes(fileName)+`"`)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	return mw.CreatePart(h)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// parseAddResponse validates the gateway body explicitly: the wire shape is
// untyped upstream, so a missing Hash is a malformed response, not a success.
func parseAddResponse(body io.Reader) (*AddResult, error) {
	var result AddResult
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid JSON: " + err.Error()}
	}
	if result.Hash == "" {
		return nil, &MalformedResponseError{Reason: "missing Hash field"}
	}
	return &result, nil
}
