package lockfile

import (
	"fmt"
	"io"
	"os"
)

// WriteState writes the state region: the protocol byte followed by the
// clean flag.
func WriteState(f *os.File, clean bool) error {
	buf := [StateRegionSize]byte{StateRegionProtocol, 0}
	if clean {
		buf[1] = 1
	}
	if _, err := f.WriteAt(buf[:], StateRegionPos); err != nil {
		return fmt.Errorf("lockfile: write state region: %w", err)
	}
	return nil
}

// ReadState reads the clean flag from the state region. A file that ends
// inside the state region is reported as dirty: the previous writer crashed
// mid-write. A present but unexpected protocol byte is a corrupt lock file.
func ReadState(f *os.File) (clean bool, err error) {
	var buf [StateRegionSize]byte
	n, err := f.ReadAt(buf[:], StateRegionPos)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("lockfile: read state region: %w", err)
	}
	if n >= 1 && buf[0] != StateRegionProtocol {
		return false, fmt.Errorf("%w: state region protocol %d", ErrCorruptLockFile, buf[0])
	}
	if n < int(StateRegionSize) {
		return false, nil
	}
	return buf[1] != 0, nil
}
