// Package transfer holds the acquisition and verification primitives the
// install and update pipelines share: a per-call working session, scheme
// dispatch for archive downloads, streaming checksum verification, and
// progress staging.
package transfer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/teamcutter/cellar/internal/domain"
)

// Session is the ephemeral state of one install or update call: a private
// temp working directory and the caller's progress sink. It is never
// shared between pipeline invocations.
type Session struct {
	WorkDir  string
	Progress domain.ProgressFunc
}

func NewSession(progress domain.ProgressFunc) (*Session, error) {
	dir := filepath.Join(os.TempDir(), "cellar-"+uuid.NewString())
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &Session{WorkDir: dir, Progress: progress}, nil
}

// Close removes the working directory. Pipelines defer this so the
// directory is gone on every exit path.
func (s *Session) Close() {
	os.RemoveAll(s.WorkDir)
}

// Path returns a location inside the session working directory.
func (s *Session) Path(name string) string {
	return filepath.Join(s.WorkDir, name)
}
