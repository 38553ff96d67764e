package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// stagedFile is the local copy of an uploaded video, the analog of a
// browser object URL. It is owned exclusively by the pipeline and
// released exactly once when the video is cleared or replaced.
type stagedFile struct {
	path string

	mu       sync.Mutex
	released bool
}

// stage copies the upload into the staging directory.
func stage(dir, filename string, r io.Reader) (*stagedFile, error) {
	f, err := os.CreateTemp(dir, "trackguard-*-"+filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("staging upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("staging upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("staging upload: %w", err)
	}
	return &stagedFile{path: f.Name()}, nil
}

// Release removes the staged copy. Calling it again is a no-op, never a
// double release.
func (s *stagedFile) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", s.path).Msg("Failed to remove staged video")
	}
}

// Released reports whether the copy has been removed.
func (s *stagedFile) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// openStaged reopens the staged copy for the network upload.
func openStaged(path string) (*os.File, error) {
	return os.Open(path)
}
