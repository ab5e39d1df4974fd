package lockfile

import "errors"

var (
	// ErrCorruptLockFile indicates an unexpected protocol byte in either region.
	ErrCorruptLockFile = errors.New("lockfile: unexpected lock protocol found in lock file")

	// ErrRegionTooLarge indicates the encoded owner details exceed the
	// reserved information region.
	ErrRegionTooLarge = errors.New("lockfile: owner details exceed information region")
)
