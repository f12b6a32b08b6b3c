// Package uploader is the client-side transport: it streams one file to the
// relay's /api/upload endpoint as multipart form data, reporting byte-level
// progress while the body goes out.
package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/filedrop/service/internal/gateway"
	"github.com/filedrop/service/internal/session"
)

// ErrAborted is returned when the upload's context is canceled mid-transfer.
var ErrAborted = errors.New("Upload was aborted")

// NetworkError wraps a transport-level failure. Its message is what the user
// sees in the session's error state.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "Network error occurred during upload" }
func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError reports a non-2xx relay response.
type ServerError struct {
	StatusCode int
	Status     string
}

func (e *ServerError) Error() string { return "Server error: " + e.Status }

// ErrBadResponse is returned when a 2xx relay response cannot be parsed or
// is missing the Hash field.
var ErrBadResponse = errors.New("Failed to process server response")

// Client uploads files to a relay server.
type Client struct {
	serverURL string
	client    *http.Client
}

// New creates an uploader for the relay at serverURL (e.g.
// "http://localhost:8080"). timeout bounds the whole exchange; zero leaves
// it to the transport's defaults.
func New(serverURL string, timeout time.Duration) *Client {
	return &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		client:    &http.Client{Timeout: timeout},
	}
}

// Upload implements session.Uploader. Progress callbacks carry the count of
// file bytes written to the wire against the file's total size; delivery is
// strictly ordered because reads are sequential.
func (c *Client) Upload(ctx context.Context, src session.FileSource, onProgress func(sent, total int64)) (*gateway.AddResult, error) {
	f, err := src.Open()
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer f.Close()

	counted := &progressReader{
		r:          f,
		total:      src.Size(),
		onProgress: onProgress,
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", src.Name())
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, counted); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/upload", pr)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrAborted
		}
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &ServerError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var result gateway.AddResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, ErrBadResponse
	}
	if result.Hash == "" {
		return nil, ErrBadResponse
	}
	return &result, nil
}

// progressReader counts file bytes as the multipart writer drains them.
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	onProgress func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
	}
	return n, err
}
