// Package lockfile implements the on-disk protocol for sidecar lock files.
//
// A lock file is made up of two fixed regions:
//
//   - State region (bytes 0-1): 1 byte protocol version, 1 byte clean flag.
//   - Information region (bytes 2+): 1 byte protocol version, then two
//     length-prefixed UTF-8 strings naming the owning process and the
//     address it can be pinged at.
//
// The layout is bit-compatible across implementations so that one process
// can diagnose a lock held by another.
package lockfile

import (
	"os"
	"path/filepath"
)

const (
	// StateRegionProtocol is the version byte of the state region.
	StateRegionProtocol byte = 1

	// StateRegionPos is the offset of the state region.
	StateRegionPos int64 = 0

	// StateRegionSize is the size of the state region in bytes.
	StateRegionSize int64 = 2

	// InformationRegionProtocol is the version byte of the information region.
	InformationRegionProtocol byte = 2

	// InformationRegionPos is the offset of the information region.
	InformationRegionPos = StateRegionPos + StateRegionSize

	// InformationRegionSize is the reserved extent of the information
	// region, measured from the start of the file.
	InformationRegionSize int64 = 2048

	// DescriptionChunkLimit is the maximum number of characters the writer
	// stores for each information-region string. Longer values are truncated.
	DescriptionChunkLimit = 340

	// UnknownOwner is reported when the information region is absent or
	// cannot be read.
	UnknownOwner = "unknown"
)

// PathFor returns the lock file path for a target. A directory target keeps
// its lock file inside itself; any other target gets a sibling file.
func PathFor(target string) string {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, filepath.Base(target)+".lock")
	}
	return filepath.Join(filepath.Dir(target), filepath.Base(target)+".lock")
}
