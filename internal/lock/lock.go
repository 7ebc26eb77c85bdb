// Package lock enforces the single-producer/single-consumer-per-process
// contract spec.md documents in §5 as a caller obligation, turning it into a
// hard precondition of Open. It uses the same advisory-locking primitive
// etcd's own write-ahead log uses to guard its data directory.
package lock

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/coreos/etcd/pkg/fileutil"
)

// ErrAlreadyLocked is returned by Acquire when another process already holds
// the lock for this storage directory.
var ErrAlreadyLocked = errors.New("lock: storage directory already locked by another process")

// Lock is an exclusive, advisory lock held for the lifetime of an open queue.
type Lock struct {
	f *fileutil.LockedFile
}

// Acquire takes the lock file "<dir>/<name>.lock", failing immediately
// (rather than blocking) if another process already holds it.
func Acquire(dir, name string) (*Lock, error) {
	path := filepath.Join(dir, name+".lock")
	f, err := fileutil.TryLockFile(path, fileutil.CreateFlag, 0o600)
	if err != nil {
		if errors.Is(err, fileutil.ErrLocked) {
			return nil, ErrAlreadyLocked
		}
		return nil, fmt.Errorf("lock: acquire: %w", err)
	}
	return &Lock{f: f}, nil
}

// Release releases the lock, allowing another process to acquire it.
func (l *Lock) Release() error {
	return l.f.Close()
}
