package ledger

import (
	"fmt"
	"os"
)

// fileLock provides cross-process mutual exclusion on a sidecar lock file,
// so two runs against the same ledger never interleave a read-modify-write.
type fileLock struct {
	path string
	file *os.File
}

func newFileLock(path string) *fileLock {
	return &fileLock{path: path}
}

// Lock acquires an exclusive lock, blocking until available.
// The lock file is created if it does not exist.
func (fl *fileLock) Lock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	if err := lockFile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("lock %s: %w", fl.path, err)
	}
	fl.file = f
	return nil
}

// Unlock releases the lock and closes the lock file.
func (fl *fileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}
	if err := unlockFile(fl.file); err != nil {
		_ = fl.file.Close()
		fl.file = nil
		return fmt.Errorf("unlock %s: %w", fl.path, err)
	}
	err := fl.file.Close()
	fl.file = nil
	return err
}
