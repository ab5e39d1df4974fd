package lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cachelockorg/libcachelock-go/lockfile"
)

// Session is one acquired lock on a target file or directory. It holds the
// state region of the sidecar lock file for its whole lifetime and brackets
// every mutation of the guarded target with dirty/clean transitions, so a
// later acquirer can tell whether the previous writer finished.
//
// A Session is not safe for concurrent use; callers serialise access.
type Session struct {
	target               string
	lockPath             string
	displayName          string
	operationDisplayName string
	port                 int
	mode                 Mode

	f         *os.File
	stateLock *regionLock

	integrityViolated bool
	contended         bool
	busy              bool

	metadata ProcessMetadataProvider
	pinger   OwnerPinger
	logger   *slog.Logger
}

func newSession(ctx context.Context, m *Manager, target string, mode Mode, displayName, operationDisplayName string, port int) (*Session, error) {
	s := &Session{
		target:               target,
		lockPath:             lockfile.PathFor(target),
		displayName:          displayName,
		operationDisplayName: operationDisplayName,
		port:                 port,
		metadata:             m.metadata,
		pinger:               m.pinger,
		logger:               m.logger,
	}

	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: create lock file directory: %v", ErrInternalLock, err)
	}
	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open lock file %s: %v", ErrInternalLock, s.lockPath, err)
	}
	s.f = f

	if err := s.acquire(ctx, mode, time.Now().Add(m.timeout)); err != nil {
		// Closing the handle also releases any region locks taken so far.
		_ = f.Close()
		s.f = nil
		return nil, err
	}
	return s, nil
}

// acquire runs the acquisition protocol: lock the state region in the
// requested mode, then (if the granted lock is exclusive) initialise the
// state region when the file is fresh and record our owner details in the
// information region.
func (s *Session) acquire(ctx context.Context, mode Mode, deadline time.Time) error {
	s.logger.Debug("waiting to acquire lock", "mode", mode.String(), "target", s.displayName)

	stateLock, err := s.lockStateRegion(ctx, mode, deadline)
	if err != nil {
		return err
	}
	if stateLock == nil {
		ownerAddress := s.readInformationRegion(ctx, deadline)
		return fmt.Errorf("%w: timeout waiting to lock %s, currently in use by another process (owner address: %s, our pid: %s, our operation: %s, lock file: %s)",
			ErrLockTimeout, s.displayName, ownerAddress, s.metadata.ProcessIdentifier(), s.operationDisplayName, s.lockPath)
	}

	if err := s.initRegions(ctx, stateLock, deadline); err != nil {
		_ = stateLock.Release()
		return err
	}

	s.stateLock = stateLock
	if stateLock.Shared() {
		s.mode = ModeShared
	} else {
		s.mode = ModeExclusive
	}
	s.logger.Debug("lock acquired", "target", s.displayName, "mode", s.mode.String())
	return nil
}

// initRegions verifies the state-region protocol, initialises a fresh file
// and, for an exclusive holder, writes the owner details. It runs with the
// state region already locked.
func (s *Session) initRegions(ctx context.Context, stateLock *regionLock, deadline time.Time) error {
	// Rejects a foreign protocol byte before anything gets overwritten.
	if _, err := lockfile.ReadState(s.f); err != nil {
		return err
	}

	if !stateLock.Shared() {
		// We hold an exclusive lock, whether we asked for it or not.
		stat, err := s.f.Stat()
		if err != nil {
			return fmt.Errorf("%w: stat lock file: %v", ErrInternalLock, err)
		}
		if stat.Size() < lockfile.StateRegionSize {
			// Fresh lock file: no prior writer, so it counts as dirty
			// until a clean write-cycle completes.
			if err := lockfile.WriteState(s.f, false); err != nil {
				return fmt.Errorf("%w: %v", ErrInternalLock, err)
			}
		}

		infoLock, err := lockRegion(ctx, s.f, false, deadline,
			lockfile.InformationRegionPos, lockfile.InformationRegionSize-lockfile.InformationRegionPos, func() {})
		if err != nil {
			return err
		}
		if infoLock == nil {
			return fmt.Errorf("%w: timeout waiting to lock the information region for %s", ErrInternalLock, s.displayName)
		}
		werr := lockfile.WriteInfo(s.f, s.metadata.ProcessIdentifier(), strconv.Itoa(s.port))
		if rerr := infoLock.Release(); rerr != nil && werr == nil {
			werr = fmt.Errorf("%w: release information region: %v", ErrInternalLock, rerr)
		}
		if werr != nil {
			return werr
		}
	}

	clean, err := lockfile.ReadState(s.f)
	if err != nil {
		return err
	}
	s.integrityViolated = !clean
	return nil
}

// lockStateRegion waits for the state region. Between attempts it reads the
// owner details out-of-band and pings the owner, asking it to release.
func (s *Session) lockStateRegion(ctx context.Context, mode Mode, deadline time.Time) (*regionLock, error) {
	return lockRegion(ctx, s.f, mode == ModeShared, deadline,
		lockfile.StateRegionPos, lockfile.StateRegionSize, func() {
			address := s.readInformationRegion(ctx, deadline)
			s.logger.Info("lock is held by another process, will attempt to ping owner",
				"address", address, "target", s.displayName)
			if address != lockfile.UnknownOwner {
				if err := s.pinger.PingOwner(address, s.target); err != nil {
					s.logger.Debug("ping owner failed", "address", address, "error", err)
				}
			}
		})
}

// readInformationRegion fetches the owner address for diagnostics while the
// state region is unavailable. Best effort: any failure yields "unknown".
func (s *Session) readInformationRegion(ctx context.Context, deadline time.Time) string {
	infoLock, err := lockRegion(ctx, s.f, true, deadline,
		lockfile.InformationRegionPos, lockfile.InformationRegionSize-lockfile.InformationRegionPos, func() {})
	if err != nil || infoLock == nil {
		s.logger.Debug("could not lock information region, ignoring", "target", s.displayName)
		return lockfile.UnknownOwner
	}
	defer func() { _ = infoLock.Release() }()

	info, err := lockfile.ReadInfo(s.f)
	if err != nil {
		s.logger.Debug("could not read information region, ignoring", "target", s.displayName, "error", err)
		return lockfile.UnknownOwner
	}
	return info.Address
}

// Mode returns the effective lock mode. It is derived from the lock the OS
// actually granted, which on some platforms is broader than the requested
// mode; downstream code gates writes on it.
func (s *Session) Mode() Mode { return s.mode }

// IsLockFile reports whether path names this session's lock file.
func (s *Session) IsLockFile(path string) bool {
	return filepath.Clean(path) == s.lockPath
}

// UnlockedCleanly reports whether the previous writer completed a clean
// write-cycle, as recorded on disk.
func (s *Session) UnlockedCleanly() bool {
	if s.f == nil {
		return false
	}
	clean, err := lockfile.ReadState(s.f)
	if err != nil {
		return false
	}
	return clean
}

// ReadFile invokes producer under the lock and returns its value. Reading
// is allowed in either mode but refused while the target's integrity is
// violated; recover with WriteFile first.
func (s *Session) ReadFile(producer func() (any, error)) (any, error) {
	if err := s.assertOpenAndIntegral(); err != nil {
		return nil, err
	}
	return producer()
}

// UpdateFile runs action inside a write-cycle. It requires an exclusive
// lock and a clean target.
func (s *Session) UpdateFile(action func() error) error {
	if err := s.assertOpenAndIntegral(); err != nil {
		return err
	}
	return s.doWriteAction(action)
}

// WriteFile runs action inside a write-cycle. Unlike UpdateFile it is
// allowed while the target's integrity is violated: a completed cycle is
// what clears the violation.
func (s *Session) WriteFile(action func() error) error {
	if err := s.assertOpen(); err != nil {
		return err
	}
	return s.doWriteAction(action)
}

// doWriteAction brackets action with the dirty/clean transitions. If action
// fails the on-disk flag and the in-memory violation both stay set.
func (s *Session) doWriteAction(action func() error) error {
	if s.mode != ModeExclusive {
		return ErrInsufficientLockMode
	}
	s.integrityViolated = true
	if err := lockfile.WriteState(s.f, false); err != nil {
		return fmt.Errorf("%w: %v", ErrInternalLock, err)
	}
	if err := action(); err != nil {
		return err
	}
	if err := lockfile.WriteState(s.f, true); err != nil {
		return fmt.Errorf("%w: %v", ErrInternalLock, err)
	}
	s.integrityViolated = false
	return nil
}

func (s *Session) assertOpen() error {
	if s.f == nil {
		return ErrLockClosed
	}
	return nil
}

func (s *Session) assertOpenAndIntegral() error {
	if err := s.assertOpen(); err != nil {
		return err
	}
	if s.integrityViolated {
		return fmt.Errorf("%w: the file %q was not unlocked cleanly", ErrIntegrityViolation, s.target)
	}
	return nil
}

// SetContended marks the session as wanted by another process.
func (s *Session) SetContended(contended bool) { s.contended = contended }

// IsContended reports whether another process has asked for this lock.
func (s *Session) IsContended() bool { return s.contended }

// SetBusy marks the session as running a guarded operation.
func (s *Session) SetBusy(busy bool) { s.busy = busy }

// IsBusy reports whether a guarded operation is in flight.
func (s *Session) IsBusy() bool { return s.busy }

// Close releases the lock. An exclusive holder first truncates the lock
// file back to the state region, discarding its owner details. Close is
// idempotent and never fails; I/O errors during release are logged and
// swallowed.
func (s *Session) Close() {
	if s.f == nil {
		return
	}
	s.logger.Debug("releasing lock", "target", s.displayName)
	if s.stateLock != nil && !s.stateLock.Shared() {
		if err := s.f.Truncate(lockfile.InformationRegionPos); err != nil {
			s.logger.Warn("error discarding owner details", "target", s.displayName, "error", err)
		}
	}
	// Closing the handle releases the held region locks as well.
	if err := s.f.Close(); err != nil {
		s.logger.Warn("error releasing lock", "target", s.displayName, "error", err)
	}
	s.f = nil
	s.stateLock = nil
}
