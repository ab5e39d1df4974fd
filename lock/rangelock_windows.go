//go:build windows

package lock

import (
	"errors"
	"os"

	"golang.org/x/sys/windows"
)

// Windows byte-range locks via LockFileEx. The range offset travels in the
// Overlapped structure; LOCKFILE_FAIL_IMMEDIATELY gives try-lock semantics.

// tryLockRegion attempts a non-blocking range lock. It reports (false, nil)
// when another handle holds a conflicting lock.
func tryLockRegion(f *os.File, start, size int64, shared bool) (bool, error) {
	flags := uint32(windows.LOCKFILE_FAIL_IMMEDIATELY)
	if !shared {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	ol := &windows.Overlapped{
		Offset:     uint32(start),
		OffsetHigh: uint32(start >> 32),
	}
	err := windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, uint32(size), uint32(size>>32), ol)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
		return false, nil
	}
	return false, err
}

// unlockRegion releases a range lock previously granted on this handle.
func unlockRegion(f *os.File, start, size int64) error {
	ol := &windows.Overlapped{
		Offset:     uint32(start),
		OffsetHigh: uint32(start >> 32),
	}
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, uint32(size), uint32(size>>32), ol)
}
