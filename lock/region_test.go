package lock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openLockFilePair opens two independent handles on the same lock file so
// their region locks genuinely conflict.
func openLockFilePair(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "region.lock")
	f1, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	f2, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = f1.Close()
		_ = f2.Close()
	})
	return f1, f2
}

func noRetry() {}

func TestTryLockRegion_ExclusiveConflict(t *testing.T) {
	f1, f2 := openLockFilePair(t)

	ok, err := tryLockRegion(f1, 0, 2, false)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tryLockRegion(f2, 0, 2, false)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tryLockRegion(f2, 0, 2, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTryLockRegion_SharedSharing(t *testing.T) {
	f1, f2 := openLockFilePair(t)

	ok, err := tryLockRegion(f1, 0, 2, true)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tryLockRegion(f2, 0, 2, true)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryLockRegion_DisjointRegions(t *testing.T) {
	f1, f2 := openLockFilePair(t)

	ok, err := tryLockRegion(f1, 0, 2, false)
	require.NoError(t, err)
	require.True(t, ok)

	// A lock on the information region does not conflict with one on the
	// state region.
	ok, err = tryLockRegion(f2, 2, 2046, false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlockRegion_ReleasesForOtherHandles(t *testing.T) {
	f1, f2 := openLockFilePair(t)

	ok, err := tryLockRegion(f1, 0, 2, false)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, unlockRegion(f1, 0, 2))

	ok, err = tryLockRegion(f2, 0, 2, false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockRegion_Uncontended(t *testing.T) {
	f1, _ := openLockFilePair(t)

	l, err := lockRegion(context.Background(), f1, false, time.Now().Add(time.Second), 0, 2, noRetry)
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.False(t, l.Shared())
	require.NoError(t, l.Release())
}

func TestLockRegion_DeadlineExpiry(t *testing.T) {
	f1, f2 := openLockFilePair(t)

	held, err := lockRegion(context.Background(), f1, false, time.Now().Add(time.Second), 0, 2, noRetry)
	require.NoError(t, err)
	require.NotNil(t, held)
	defer func() { _ = held.Release() }()

	retries := 0
	l, err := lockRegion(context.Background(), f2, false, time.Now().Add(300*time.Millisecond), 0, 2, func() { retries++ })
	require.NoError(t, err)
	assert.Nil(t, l)
	assert.GreaterOrEqual(t, retries, 1)
}

func TestLockRegion_ExpiredDeadlineStillTriesOnce(t *testing.T) {
	f1, _ := openLockFilePair(t)

	// A deadline in the past performs exactly one attempt; an uncontended
	// region is still granted.
	l, err := lockRegion(context.Background(), f1, false, time.Now().Add(-time.Second), 0, 2, noRetry)
	require.NoError(t, err)
	require.NotNil(t, l)
	require.NoError(t, l.Release())
}

func TestLockRegion_ContextCancelled(t *testing.T) {
	f1, f2 := openLockFilePair(t)

	held, err := lockRegion(context.Background(), f1, false, time.Now().Add(time.Second), 0, 2, noRetry)
	require.NoError(t, err)
	require.NotNil(t, held)
	defer func() { _ = held.Release() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = lockRegion(ctx, f2, false, time.Now().Add(time.Minute), 0, 2, noRetry)
	assert.ErrorIs(t, err, ErrLockInterrupted)
}

func TestLockRegion_SharedThenExclusiveAfterRelease(t *testing.T) {
	f1, f2 := openLockFilePair(t)

	shared, err := lockRegion(context.Background(), f1, true, time.Now().Add(time.Second), 0, 2, noRetry)
	require.NoError(t, err)
	require.NotNil(t, shared)
	assert.True(t, shared.Shared())

	require.NoError(t, shared.Release())

	excl, err := lockRegion(context.Background(), f2, false, time.Now().Add(time.Second), 0, 2, noRetry)
	require.NoError(t, err)
	require.NotNil(t, excl)
	require.NoError(t, excl.Release())
}
