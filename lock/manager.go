package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/cachelockorg/libcachelock-go/lockfile"
)

// DefaultLockTimeout bounds how long an acquisition waits for the state
// region before failing with ErrLockTimeout.
const DefaultLockTimeout = 60 * time.Second

// Manager is the entry point for acquiring file locks. It is a stateless
// façade: it canonicalises target paths and constructs sessions, and may be
// shared freely between goroutines.
type Manager struct {
	metadata ProcessMetadataProvider
	pinger   OwnerPinger
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout overrides the acquisition timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithPinger installs the transport used to ping suspected lock owners.
func WithPinger(p OwnerPinger) Option {
	return func(m *Manager) { m.pinger = p }
}

// WithLogger installs the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a lock manager backed by the given metadata provider.
func NewManager(metadata ProcessMetadataProvider, opts ...Option) *Manager {
	m := &Manager{
		metadata: metadata,
		pinger:   NopPinger{},
		timeout:  DefaultLockTimeout,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lock acquires a lock of the requested mode on target. displayName and
// operationDisplayName are free-form strings used in error messages; port
// is recorded in the lock file so contended waiters can ping this process.
// The context cancels the bounded wait.
func (m *Manager) Lock(ctx context.Context, target string, mode Mode, displayName, operationDisplayName string, port int) (*Session, error) {
	if mode == ModeNone {
		return nil, fmt.Errorf("%w: no %s mode lock implementation available", ErrUnsupportedMode, mode)
	}

	s, err := newSession(ctx, m, canonicalise(target), mode, displayName, operationDisplayName, port)
	if err != nil {
		return nil, wrapAcquireError(err)
	}
	return s, nil
}

// wrapAcquireError keeps the well-known failure kinds as-is and folds
// anything unexpected into ErrInternalLock, preserving the cause.
func wrapAcquireError(err error) error {
	switch {
	case errors.Is(err, ErrLockTimeout),
		errors.Is(err, ErrLockInterrupted),
		errors.Is(err, ErrInternalLock),
		errors.Is(err, lockfile.ErrCorruptLockFile):
		return err
	}
	return fmt.Errorf("%w: %v", ErrInternalLock, err)
}

// canonicalise resolves target to an absolute, symlink-free path so that
// two processes naming the same artifact differently contend on the same
// lock file. Targets that do not exist yet keep their absolute form.
func canonicalise(target string) string {
	abs, err := filepath.Abs(target)
	if err != nil {
		return filepath.Clean(target)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
