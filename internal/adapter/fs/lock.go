package fs

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"podcast/internal/errs"
)

// Lock is an advisory, process-exclusive file lock.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the lock at path without waiting. If another process
// holds it, the error carries errs.CodePipelineLockHeld.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Wrap(err, errs.CodePipelineInternal, "create lock directory", errs.FieldPath(path))
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errs.Wrap(err, errs.CodePipelineInternal, "acquire lock", errs.FieldPath(path))
	}
	if !locked {
		return nil, errs.New(errs.CodePipelineLockHeld, "another pipeline run holds the lock", errs.FieldPath(path))
	}
	return &Lock{fl: fl}, nil
}

// Release unlocks. Safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
