package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *os.File {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "test.lock"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestStateRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		clean bool
	}{
		{"clean", true},
		{"dirty", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := openTemp(t)
			require.NoError(t, WriteState(f, tc.clean))

			clean, err := ReadState(f)
			require.NoError(t, err)
			assert.Equal(t, tc.clean, clean)
		})
	}
}

func TestWriteState_Layout(t *testing.T) {
	f := openTemp(t)
	require.NoError(t, WriteState(f, true))

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x01}, data)

	require.NoError(t, WriteState(f, false))
	data, err = os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00}, data)
}

func TestReadState_EmptyFileIsDirty(t *testing.T) {
	f := openTemp(t)

	clean, err := ReadState(f)
	require.NoError(t, err)
	assert.False(t, clean)
}

func TestReadState_TruncatedFileIsDirty(t *testing.T) {
	// A file that ends inside the state region means the previous writer
	// crashed mid-write.
	f := openTemp(t)
	_, err := f.WriteAt([]byte{StateRegionProtocol}, 0)
	require.NoError(t, err)

	clean, err := ReadState(f)
	require.NoError(t, err)
	assert.False(t, clean)
}

func TestReadState_BadProtocol(t *testing.T) {
	f := openTemp(t)
	_, err := f.WriteAt([]byte{0x7f, 0x01}, 0)
	require.NoError(t, err)

	_, err = ReadState(f)
	assert.ErrorIs(t, err, ErrCorruptLockFile)
}

func TestReadState_BadProtocolSingleByte(t *testing.T) {
	f := openTemp(t)
	_, err := f.WriteAt([]byte{0x7f}, 0)
	require.NoError(t, err)

	_, err = ReadState(f)
	assert.ErrorIs(t, err, ErrCorruptLockFile)
}
