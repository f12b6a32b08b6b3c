// Package relay implements the upload relay: it accepts one multipart file
// per request, buffers it to request-scoped scratch storage, and forwards it
// to the upstream gateway.
package relay

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/filedrop/service/internal/gateway"
)

// Service streams inbound files through scratch storage to the gateway.
type Service struct {
	gw         gateway.Client
	scratchDir string
}

// NewService creates a relay Service and makes sure the scratch directory
// exists.
func NewService(gw gateway.Client, scratchDir string) (*Service, error) {
	if err := ensureScratchDir(scratchDir); err != nil {
		return nil, err
	}
	return &Service{gw: gw, scratchDir: scratchDir}, nil
}

// Relay buffers src into a scratch file and submits it to the gateway.
// The scratch file is removed before Relay returns, on every path, including
// upstream failure and client abort mid-stream. Only one file's bytes are
// held per request, and on disk rather than in memory.
func (s *Service) Relay(ctx context.Context, src io.Reader, fileName, contentType string) (*gateway.AddResult, error) {
	path := filepath.Join(s.scratchDir, scratchName(fileName, time.Now().UnixNano()))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			log.Printf("relay: removing scratch file %s: %v", path, err)
		}
	}()

	_, err = io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("buffer inbound file: %w", err)
	}

	if contentType == "" {
		if mt, detErr := mimetype.DetectFile(path); detErr == nil {
			contentType = mt.String()
		}
	}

	rf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reopen scratch file: %w", err)
	}
	defer rf.Close()

	return s.gw.Submit(ctx, rf, fileName, contentType)
}

// RedactedUpstreamURL reports the token-redacted gateway URL for diagnostics.
func (s *Service) RedactedUpstreamURL() string {
	return s.gw.RedactedURL()
}
