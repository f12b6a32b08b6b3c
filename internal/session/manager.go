package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/filedrop/service/internal/gateway"
	"github.com/filedrop/service/internal/history"
)

// Uploader is the transport that carries one file to the relay, reporting
// byte-level progress as it goes.
type Uploader interface {
	Upload(ctx context.Context, src FileSource, onProgress func(sent, total int64)) (*gateway.AddResult, error)
}

// HistoryAppender records completed transfers. Append failures never affect
// the session outcome.
type HistoryAppender interface {
	Append(rec history.Record) error
}

// DefaultMaxFileSize is the pre-flight upload limit.
const DefaultMaxFileSize = 100 << 20

// Manager drives transfer sessions end to end: validation, upload, terminal
// state, history append, and user-initiated retry.
type Manager struct {
	registry *Registry
	uploader Uploader
	history  HistoryAppender // may be nil
	links    LinkBuilder
	maxSize  int64

	mu      sync.Mutex
	sources map[string]FileSource // retained for retry
}

// NewManager wires a Manager. history may be nil when no persistence is
// wanted. maxSize <= 0 selects DefaultMaxFileSize.
func NewManager(reg *Registry, up Uploader, hist HistoryAppender, links LinkBuilder, maxSize int64) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &Manager{
		registry: reg,
		uploader: up,
		history:  hist,
		links:    links,
		maxSize:  maxSize,
		sources:  make(map[string]FileSource),
	}
}

// Registry exposes the session collection for read-only observation.
func (m *Manager) Registry() *Registry { return m.registry }

// Start creates a session for src and begins its upload. Oversize files are
// rejected synchronously — the session lands in error without any network
// call. The returned channel closes when the session reaches a terminal
// state.
func (m *Manager) Start(ctx context.Context, src FileSource) (string, <-chan struct{}) {
	id := uuid.New().String()

	m.registry.Create(Session{
		ID:            id,
		FileName:      src.Name(),
		FileSizeBytes: src.Size(),
		Status:        StatusPreparing,
	})
	m.mu.Lock()
	m.sources[id] = src
	m.mu.Unlock()

	done := make(chan struct{})

	if src.Size() > m.maxSize {
		m.registry.Apply(id, Failed{Message: OversizeMessage(src.Size(), m.maxSize)})
		close(done)
		return id, done
	}

	go m.run(ctx, id, src, done)
	return id, done
}

// Retry discards an errored session and starts a fresh one on the same file.
// It is a no-op (ok=false) when the session is not in error or its file
// source was not retained.
func (m *Manager) Retry(ctx context.Context, id string) (string, <-chan struct{}, bool) {
	s, found := m.registry.Get(id)
	if !found || s.Status != StatusError {
		return "", nil, false
	}

	m.mu.Lock()
	src, retained := m.sources[id]
	delete(m.sources, id)
	m.mu.Unlock()
	if !retained {
		return "", nil, false
	}

	m.registry.RemoveByID(id)
	newID, done := m.Start(ctx, src)
	return newID, done, true
}

func (m *Manager) run(ctx context.Context, id string, src FileSource, done chan<- struct{}) {
	defer close(done)

	m.registry.Apply(id, Started{})

	result, err := m.uploader.Upload(ctx, src, func(sent, total int64) {
		m.registry.Apply(id, Progressed{BytesSent: sent, BytesTotal: total})
	})
	if err != nil {
		m.registry.Apply(id, Failed{Message: err.Error()})
		return
	}

	link := m.links.ShareableLink(result.Hash)
	snap, _ := m.registry.Apply(id, Succeeded{
		CID:           result.Hash,
		ShareableLink: link,
		Now:           time.Now(),
	})

	// Fire-and-forget: history problems must not flip a completed session.
	if m.history != nil {
		if err := m.history.Append(recordFrom(snap, src)); err != nil {
			log.Printf("session: appending history record: %v", err)
		}
	}
}

func recordFrom(s Session, src FileSource) history.Record {
	return history.Record{
		FileName:      s.FileName,
		FileSize:      humanize.IBytes(uint64(s.FileSizeBytes)),
		MimeType:      src.ContentType(),
		Status:        string(s.Status),
		Progress:      s.Progress,
		CID:           s.CID,
		ShareableLink: s.ShareableLink,
		CreatedAt:     s.CreatedAt,
	}
}
