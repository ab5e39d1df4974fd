package lock

import "errors"

var (
	// ErrLockTimeout indicates the state region could not be acquired
	// before the deadline.
	ErrLockTimeout = errors.New("lock: timeout waiting to acquire lock")

	// ErrUnsupportedMode indicates an acquire with ModeNone.
	ErrUnsupportedMode = errors.New("lock: locking mode is not supported")

	// ErrLockClosed indicates a guarded operation on a closed session.
	ErrLockClosed = errors.New("lock: this lock has been closed")

	// ErrIntegrityViolation indicates the previous writer did not unlock
	// cleanly; WriteFile recovers from it.
	ErrIntegrityViolation = errors.New("lock: file was not unlocked cleanly")

	// ErrInsufficientLockMode indicates a write operation on a shared lock.
	ErrInsufficientLockMode = errors.New("lock: an exclusive lock is required for this operation")

	// ErrLockInterrupted indicates the acquisition wait was cancelled.
	ErrLockInterrupted = errors.New("lock: interrupted while waiting to acquire lock")

	// ErrInternalLock wraps unexpected OS or I/O failures.
	ErrInternalLock = errors.New("lock: internal lock error")
)
