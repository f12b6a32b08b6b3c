package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filedrop/service/internal/gateway"
	"github.com/filedrop/service/internal/history"
)

type fakeSource struct {
	name string
	size int64
	data []byte
}

func (f *fakeSource) Name() string        { return f.name }
func (f *fakeSource) Size() int64         { return f.size }
func (f *fakeSource) ContentType() string { return "text/plain" }
func (f *fakeSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// fakeUploader runs one scripted outcome per Upload call, in call order.
// byName overrides the script for specific file names, for tests whose
// sessions run concurrently and have no deterministic call order.
type fakeUploader struct {
	mu     sync.Mutex
	calls  int
	script []func(onProgress func(sent, total int64)) (*gateway.AddResult, error)
	byName map[string]func(onProgress func(sent, total int64)) (*gateway.AddResult, error)
}

func (f *fakeUploader) Upload(ctx context.Context, src FileSource, onProgress func(sent, total int64)) (*gateway.AddResult, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.mu.Unlock()
	if fn, ok := f.byName[src.Name()]; ok {
		return fn(onProgress)
	}
	if i >= len(f.script) {
		return nil, errors.New("unexpected upload call")
	}
	return f.script[i](onProgress)
}

func (f *fakeUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeHistory struct {
	mu      sync.Mutex
	records []history.Record
	err     error
}

func (f *fakeHistory) Append(rec history.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeHistory) all() []history.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]history.Record(nil), f.records...)
}

var testLinks = LinkBuilder{
	PublicGateway:   "https://spfs-gateway.thestratos.net",
	FallbackGateway: "https://spfs-gateway.thestratos.net",
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not reach a terminal state")
	}
}

func TestStartSuccessfulUpload(t *testing.T) {
	up := &fakeUploader{script: []func(func(sent, total int64)) (*gateway.AddResult, error){
		func(onProgress func(sent, total int64)) (*gateway.AddResult, error) {
			onProgress(5, 10)
			onProgress(10, 10)
			return &gateway.AddResult{Name: "a.txt", Hash: "Qm123", Size: "10"}, nil
		},
	}}
	hist := &fakeHistory{}
	m := NewManager(NewRegistry(), up, hist, testLinks, 0)

	id, done := m.Start(context.Background(), &fakeSource{name: "a.txt", size: 10, data: []byte("0123456789")})
	waitDone(t, done)

	s, found := m.Registry().Get(id)
	require.True(t, found)
	assert.Equal(t, StatusComplete, s.Status)
	assert.Equal(t, 100, s.Progress)
	assert.Equal(t, "Qm123", s.CID)
	assert.True(t, len(s.ShareableLink) > 0 && s.ShareableLink == testLinks.ShareableLink("Qm123"))
	assert.Contains(t, s.ShareableLink, "/ipfs/Qm123")
	assert.False(t, s.CreatedAt.IsZero())

	// One history record, mirroring the session's terminal state.
	records := hist.all()
	require.Len(t, records, 1)
	assert.Equal(t, "a.txt", records[0].FileName)
	assert.Equal(t, "Qm123", records[0].CID)
	assert.Equal(t, s.ShareableLink, records[0].ShareableLink)
	assert.Equal(t, "complete", records[0].Status)
	assert.Equal(t, "text/plain", records[0].MimeType)
}

func TestStartOversizeFailsWithoutUpload(t *testing.T) {
	up := &fakeUploader{}
	m := NewManager(NewRegistry(), up, nil, testLinks, 100<<20)

	id, done := m.Start(context.Background(), &fakeSource{name: "big.bin", size: 200 << 20})
	waitDone(t, done)

	s, found := m.Registry().Get(id)
	require.True(t, found)
	assert.Equal(t, StatusError, s.Status)
	assert.Contains(t, s.ErrorMessage, "100 MiB")
	assert.Contains(t, s.ErrorMessage, "200 MiB")
	assert.Zero(t, up.callCount(), "oversize files must never hit the network")
}

func TestStartServerErrorSurfacesStatus(t *testing.T) {
	up := &fakeUploader{script: []func(func(sent, total int64)) (*gateway.AddResult, error){
		func(func(sent, total int64)) (*gateway.AddResult, error) {
			return nil, errors.New("Server error: 503 Service Unavailable")
		},
	}}
	m := NewManager(NewRegistry(), up, nil, testLinks, 0)

	id, done := m.Start(context.Background(), &fakeSource{name: "a.txt", size: 10})
	waitDone(t, done)

	s, _ := m.Registry().Get(id)
	assert.Equal(t, StatusError, s.Status)
	assert.Contains(t, s.ErrorMessage, "503")
}

func TestAbortFreezesProgress(t *testing.T) {
	up := &fakeUploader{script: []func(func(sent, total int64)) (*gateway.AddResult, error){
		func(onProgress func(sent, total int64)) (*gateway.AddResult, error) {
			onProgress(50, 100)
			return nil, errors.New("Upload was aborted")
		},
	}}
	m := NewManager(NewRegistry(), up, nil, testLinks, 0)

	id, done := m.Start(context.Background(), &fakeSource{name: "a.txt", size: 100})
	waitDone(t, done)

	s, _ := m.Registry().Get(id)
	assert.Equal(t, StatusError, s.Status)
	assert.Contains(t, s.ErrorMessage, "aborted")
	assert.Equal(t, 50, s.Progress, "progress stays frozen, not reset")
}

func TestRetryAfterFailure(t *testing.T) {
	up := &fakeUploader{script: []func(func(sent, total int64)) (*gateway.AddResult, error){
		func(func(sent, total int64)) (*gateway.AddResult, error) {
			return nil, errors.New("Server error: 503 Service Unavailable")
		},
		func(onProgress func(sent, total int64)) (*gateway.AddResult, error) {
			onProgress(10, 10)
			return &gateway.AddResult{Name: "a.txt", Hash: "Qm456", Size: "10"}, nil
		},
	}}
	m := NewManager(NewRegistry(), up, nil, testLinks, 0)

	oldID, done := m.Start(context.Background(), &fakeSource{name: "a.txt", size: 10})
	waitDone(t, done)

	newID, done, ok := m.Retry(context.Background(), oldID)
	require.True(t, ok)
	require.NotEqual(t, oldID, newID, "retry creates a fresh session")
	waitDone(t, done)

	_, found := m.Registry().Get(oldID)
	assert.False(t, found, "failed session is discarded")

	s, found := m.Registry().Get(newID)
	require.True(t, found)
	assert.Equal(t, StatusComplete, s.Status)
	assert.Equal(t, "Qm456", s.CID)
}

func TestRetryRequiresErrorState(t *testing.T) {
	up := &fakeUploader{script: []func(func(sent, total int64)) (*gateway.AddResult, error){
		func(func(sent, total int64)) (*gateway.AddResult, error) {
			return &gateway.AddResult{Hash: "Qm1"}, nil
		},
	}}
	m := NewManager(NewRegistry(), up, nil, testLinks, 0)

	id, done := m.Start(context.Background(), &fakeSource{name: "a.txt", size: 1})
	waitDone(t, done)

	_, _, ok := m.Retry(context.Background(), id)
	assert.False(t, ok, "completed sessions cannot be retried")

	_, _, ok = m.Retry(context.Background(), "no-such-id")
	assert.False(t, ok)
}

func TestHistoryFailureDoesNotAffectSession(t *testing.T) {
	up := &fakeUploader{script: []func(func(sent, total int64)) (*gateway.AddResult, error){
		func(func(sent, total int64)) (*gateway.AddResult, error) {
			return &gateway.AddResult{Hash: "Qm1"}, nil
		},
	}}
	hist := &fakeHistory{err: errors.New("disk full")}
	m := NewManager(NewRegistry(), up, hist, testLinks, 0)

	id, done := m.Start(context.Background(), &fakeSource{name: "a.txt", size: 1})
	waitDone(t, done)

	s, _ := m.Registry().Get(id)
	assert.Equal(t, StatusComplete, s.Status, "history append is fire-and-forget")
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	release := make(chan struct{})
	progressed := make(chan struct{})
	up := &fakeUploader{byName: map[string]func(func(sent, total int64)) (*gateway.AddResult, error){
		"slow.bin": func(onProgress func(sent, total int64)) (*gateway.AddResult, error) {
			onProgress(3, 10)
			close(progressed)
			<-release
			return &gateway.AddResult{Hash: "QmSlow"}, nil
		},
		"fast.bin": func(func(sent, total int64)) (*gateway.AddResult, error) {
			return nil, errors.New("Network error occurred during upload")
		},
	}}
	m := NewManager(NewRegistry(), up, nil, testLinks, 0)

	slowID, slowDone := m.Start(context.Background(), &fakeSource{name: "slow.bin", size: 10})
	fastID, fastDone := m.Start(context.Background(), &fakeSource{name: "fast.bin", size: 10})

	waitDone(t, fastDone)
	fast, _ := m.Registry().Get(fastID)
	assert.Equal(t, StatusError, fast.Status)

	<-progressed
	slow, _ := m.Registry().Get(slowID)
	assert.Equal(t, StatusUploading, slow.Status, "other session keeps uploading")
	assert.Equal(t, 30, slow.Progress)

	close(release)
	waitDone(t, slowDone)
	slow, _ = m.Registry().Get(slowID)
	assert.Equal(t, StatusComplete, slow.Status)
}
