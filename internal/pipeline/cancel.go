package pipeline

import (
	"os"
	"path/filepath"
)

// Stage names accepted by the cancel lock and the CLI.
const (
	StageDownloader = "downloader"
	StageExtractor  = "extractor"
	StageCreator    = "creator"
	StageDispatcher = "dispatcher"
	StageArchiver   = "archiver"
)

// Lock is the soft cancellation marker of one stage. The operator creates it
// through the cancel command; the running stage polls it between documents,
// finishes the current one and exits. Each stage removes its marker on the
// next start.
type Lock struct {
	path string
}

// NewLock addresses the cancel marker of a stage under the control
// directory.
func NewLock(controlDir, stage string) *Lock {
	return &Lock{path: filepath.Join(controlDir, "cancel_"+stage+".txt")}
}

// Exists reports whether cancellation was requested.
func (l *Lock) Exists() bool {
	info, err := os.Stat(l.path)
	return err == nil && !info.IsDir()
}

// Activate requests cancellation. Activating an active lock is a no-op.
func (l *Lock) Activate() error {
	if l.Exists() {
		return nil
	}
	f, err := os.Create(l.path)
	if err != nil {
		return err
	}
	return f.Close()
}

// Release clears the marker.
func (l *Lock) Release() error {
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
