package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFor_FileTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "metadata.bin")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	assert.Equal(t, filepath.Join(dir, "metadata.bin.lock"), PathFor(target))
}

func TestPathFor_MissingTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "not-yet-created")

	// A target that does not exist yet gets a sibling lock file.
	assert.Equal(t, filepath.Join(dir, "not-yet-created.lock"), PathFor(target))
}

func TestPathFor_DirectoryTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "artifacts")
	require.NoError(t, os.Mkdir(target, 0755))

	// A directory target keeps its lock file inside itself.
	assert.Equal(t, filepath.Join(target, "artifacts.lock"), PathFor(target))
}
