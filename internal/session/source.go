package session

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// FileSource is a reopenable handle to the bytes being uploaded. Retry
// reopens the same source for the fresh session, so implementations must
// stay valid after a failed attempt.
type FileSource interface {
	Name() string
	Size() int64
	ContentType() string
	Open() (io.ReadCloser, error)
}

// OSFile is a FileSource backed by a file on disk.
type OSFile struct {
	path        string
	name        string
	size        int64
	contentType string
}

// NewOSFile stats path and sniffs its content type. The size captured here
// is what pre-flight validation and progress totals are computed from.
func NewOSFile(path string) (*OSFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(path); err == nil {
		contentType = mt.String()
	}

	return &OSFile{
		path:        path,
		name:        filepath.Base(path),
		size:        info.Size(),
		contentType: contentType,
	}, nil
}

func (f *OSFile) Name() string        { return f.name }
func (f *OSFile) Size() int64         { return f.size }
func (f *OSFile) ContentType() string { return f.contentType }

func (f *OSFile) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}
