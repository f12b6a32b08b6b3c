// Package session tracks the lifecycle of client-side file transfers.
//
// Each transfer is a Session moving preparing → uploading → complete|error.
// State never changes in place from the outside: lifecycle events are applied
// through the Registry, which runs the pure transition in this file under its
// lock. Complete and error are terminal; retry discards the failed session
// and starts a fresh one on the same file.
package session

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusPreparing Status = "preparing"
	StatusUploading Status = "uploading"
	StatusComplete  Status = "complete"
	StatusError     Status = "error"
)

// Session is one tracked attempt to upload a single file.
//
// Exactly one of {CID+ShareableLink, ErrorMessage, neither} is set at any
// time, matching Status. Progress is meaningful only while preparing or
// uploading; it freezes at its last value on error and at 100 on complete.
type Session struct {
	ID            string
	FileName      string
	FileSizeBytes int64
	Status        Status
	Progress      int
	CID           string
	ShareableLink string
	ErrorMessage  string
	CreatedAt     time.Time
}

// Terminal reports whether the session has reached a final state.
func (s Session) Terminal() bool {
	return s.Status == StatusComplete || s.Status == StatusError
}

// Event is a discrete lifecycle notification applied to a session.
type Event interface {
	apply(s Session) Session
}

// Started marks the transition from preparing to uploading.
type Started struct{}

func (Started) apply(s Session) Session {
	if s.Terminal() {
		return s
	}
	s.Status = StatusUploading
	s.Progress = 0
	return s
}

// uploadProgressCap reserves the last 5% for server processing, so the bar
// never reads 100% before the result is actually known.
const uploadProgressCap = 95

// Progressed carries a transport-level progress notification.
type Progressed struct {
	BytesSent  int64
	BytesTotal int64
}

func (e Progressed) apply(s Session) Session {
	if s.Status != StatusUploading || e.BytesTotal <= 0 {
		return s
	}
	percent := int(math.Round(float64(e.BytesSent) / float64(e.BytesTotal) * 100))
	if percent > uploadProgressCap {
		percent = uploadProgressCap
	}
	// Monotone: never walk progress backwards.
	if percent > s.Progress {
		s.Progress = percent
	}
	return s
}

// Succeeded finalizes a session with the CID from the gateway.
type Succeeded struct {
	CID           string
	ShareableLink string
	Now           time.Time
}

func (e Succeeded) apply(s Session) Session {
	if s.Terminal() {
		return s
	}
	s.Status = StatusComplete
	s.Progress = 100
	s.CID = e.CID
	s.ShareableLink = e.ShareableLink
	s.ErrorMessage = ""
	s.CreatedAt = e.Now
	return s
}

// Failed finalizes a session with a human-readable cause. Progress is left
// at its last reported value.
type Failed struct {
	Message string
}

func (e Failed) apply(s Session) Session {
	if s.Terminal() {
		return s
	}
	s.Status = StatusError
	s.ErrorMessage = e.Message
	s.CID = ""
	s.ShareableLink = ""
	return s
}

// OversizeMessage builds the pre-flight validation message, citing both the
// actual and the allowed size in human units.
func OversizeMessage(fileSize, maxSize int64) string {
	return fmt.Sprintf("File too large (%s). Maximum size is %s.",
		humanize.IBytes(uint64(fileSize)), humanize.IBytes(uint64(maxSize)))
}
