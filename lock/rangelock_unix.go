//go:build linux || darwin

package lock

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Open-file-description locks are used instead of classic POSIX record
// locks: they conflict between separate handles inside one process and
// survive unrelated fd closes, matching the per-handle semantics the
// session protocol relies on.

// tryLockRegion attempts a non-blocking range lock. It reports (false, nil)
// when another handle holds a conflicting lock.
func tryLockRegion(f *os.File, start, size int64, shared bool) (bool, error) {
	lockType := int16(unix.F_WRLCK)
	if shared {
		lockType = unix.F_RDLCK
	}
	flk := unix.Flock_t{
		Type:   lockType,
		Whence: int16(io.SeekStart),
		Start:  start,
		Len:    size,
	}
	err := unix.FcntlFlock(f.Fd(), unix.F_OFD_SETLK, &flk)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EACCES) || errors.Is(err, unix.EWOULDBLOCK) {
		return false, nil
	}
	return false, err
}

// unlockRegion releases a range lock previously granted on this handle.
func unlockRegion(f *os.File, start, size int64) error {
	flk := unix.Flock_t{
		Type:   unix.F_UNLCK,
		Whence: int16(io.SeekStart),
		Start:  start,
		Len:    size,
	}
	return unix.FcntlFlock(f.Fd(), unix.F_OFD_SETLK, &flk)
}
