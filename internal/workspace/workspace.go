package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/Aidajafarbigloo/hermes/internal/model"
)

// HiddenDirName is the cache root created next to the project being harvested.
const HiddenDirName = ".hermes"

const lockFileName = "hermes.lock"

// ErrLocked is returned when another hermes invocation holds the workspace.
var ErrLocked = fmt.Errorf("workspace is locked by another hermes invocation")

// Workspace maps (stage, artifact) pairs to deterministic file locations
// under the hidden per-project root. Directory creation is lazy; removal only
// happens through Purge. One sequential invocation at a time is assumed and
// enforced with a lock file.
type Workspace struct {
	root string
	lock *flock.Flock
}

// New binds a workspace to the hidden root inside projectDir. Nothing is
// created on disk until an artifact asks for it.
func New(projectDir string) *Workspace {
	root := filepath.Join(projectDir, HiddenDirName)
	return &Workspace{
		root: root,
		lock: flock.New(filepath.Join(root, lockFileName)),
	}
}

// Root returns the hidden cache root.
func (w *Workspace) Root() string {
	return w.root
}

// LogPath returns the shared log file location under the cache root.
func (w *Workspace) LogPath() string {
	return filepath.Join(w.root, "hermes.log")
}

// JournalPath returns the run journal database location under the cache root.
func (w *Workspace) JournalPath() string {
	return filepath.Join(w.root, "journal.db")
}

// Acquire takes the invocation lock, creating the root if needed. Concurrent
// invocations against the same root are unsupported; the second caller gets
// ErrLocked instead of corrupted caches.
func (w *Workspace) Acquire() error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("ensure workspace root: %w", err)
	}
	locked, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	return nil
}

// Release drops the invocation lock.
func (w *Workspace) Release() error {
	return w.lock.Unlock()
}

// CachePath resolves (stage, name) to <root>/<stage>/<name>.json. When create
// is true the stage directory is created; creation is idempotent. The caller
// owns existence checks when reading without create.
func (w *Workspace) CachePath(stage, name string, create bool) (string, error) {
	if err := validateSlot(stage, name); err != nil {
		return "", err
	}
	stageDir := filepath.Join(w.root, stage)
	if create {
		if err := os.MkdirAll(stageDir, 0o755); err != nil {
			return "", fmt.Errorf("ensure cache directory %s: %w", stageDir, err)
		}
	}
	return filepath.Join(stageDir, name+".json"), nil
}

// Resolve returns the path of an existing artifact, or a CacheMissError when
// a resumed read expected an artifact that is not there.
func (w *Workspace) Resolve(stage, name string) (string, error) {
	path, err := w.CachePath(stage, name, false)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", &model.CacheMissError{Stage: stage, Name: name, Path: path}
	}
	return path, nil
}

// Purge deletes the entire hidden root. An already absent root is fine; only
// permission failures surface as errors.
func (w *Workspace) Purge() error {
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("purge %s: %w", w.root, err)
	}
	return nil
}

func validateSlot(stage, name string) error {
	for _, part := range []string{stage, name} {
		if strings.TrimSpace(part) == "" {
			return fmt.Errorf("cache slot needs a stage and a name")
		}
		if strings.ContainsAny(part, `/\`) || part == "." || part == ".." {
			return fmt.Errorf("cache slot %q must not traverse directories", part)
		}
	}
	return nil
}
