// Package fslock provides a non-blocking advisory lock on a file, used to keep
// two provisioning runs from writing the same install directory at once.
// The lock is advisory: processes that never ask for it are not excluded.
package fslock

import (
	"errors"
	"os"
)

// ErrLocked is returned by TryLock when another holder owns the lock.
var ErrLocked = errors.New("fslock: already locked")

// Lock is a held advisory lock. The lock file is left in place on Unlock.
type Lock struct {
	f *os.File
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.f.Name()
}

// WriteOwner replaces the lock file contents with a description of the holder.
func (l *Lock) WriteOwner(owner string) error {
	if err := l.f.Truncate(0); err != nil {
		return err
	}
	_, err := l.f.WriteAt([]byte(owner+"\n"), 0)
	return err
}

// Unlock releases the lock and closes the file.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	uerr := unlock(l.f)
	cerr := l.f.Close()
	l.f = nil
	if uerr != nil {
		return uerr
	}
	return cerr
}
