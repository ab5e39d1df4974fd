package lockfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// OwnerInfo identifies the process holding a lock, as recorded in the
// information region.
type OwnerInfo struct {
	PID     string
	Address string
}

// WriteInfo records the owner details in the information region and
// truncates the file immediately after them, so a later shared reader can
// never pick up stale trailing bytes. Strings longer than
// DescriptionChunkLimit characters are truncated.
func WriteInfo(f *os.File, pid, address string) error {
	var buf bytes.Buffer
	buf.WriteByte(InformationRegionProtocol)
	encodeString(&buf, pid)
	encodeString(&buf, address)

	if int64(buf.Len()) > InformationRegionSize-InformationRegionPos {
		return fmt.Errorf("%w: %d bytes", ErrRegionTooLarge, buf.Len())
	}
	if _, err := f.WriteAt(buf.Bytes(), InformationRegionPos); err != nil {
		return fmt.Errorf("lockfile: write information region: %w", err)
	}
	if err := f.Truncate(InformationRegionPos + int64(buf.Len())); err != nil {
		return fmt.Errorf("lockfile: truncate after information region: %w", err)
	}
	return nil
}

// ReadInfo reads the owner details back. A file too short to contain an
// information region yields UnknownOwner for both fields; an unexpected
// protocol byte is a corrupt lock file.
func ReadInfo(f *os.File) (OwnerInfo, error) {
	unknown := OwnerInfo{PID: UnknownOwner, Address: UnknownOwner}

	stat, err := f.Stat()
	if err != nil {
		return unknown, fmt.Errorf("lockfile: stat lock file: %w", err)
	}
	if stat.Size() <= InformationRegionPos {
		return unknown, nil
	}

	r := io.NewSectionReader(f, InformationRegionPos, stat.Size()-InformationRegionPos)
	var proto [1]byte
	if _, err := io.ReadFull(r, proto[:]); err != nil {
		return unknown, fmt.Errorf("lockfile: read information region: %w", err)
	}
	if proto[0] != InformationRegionProtocol {
		return unknown, fmt.Errorf("%w: information region protocol %d", ErrCorruptLockFile, proto[0])
	}

	pid, err := decodeString(r)
	if err != nil {
		return unknown, fmt.Errorf("lockfile: read owner pid: %w", err)
	}
	address, err := decodeString(r)
	if err != nil {
		return unknown, fmt.Errorf("lockfile: read owner address: %w", err)
	}
	return OwnerInfo{PID: pid, Address: address}, nil
}

// encodeString appends a 2-byte big-endian length followed by the UTF-8
// bytes of s, truncated to DescriptionChunkLimit characters.
func encodeString(buf *bytes.Buffer, s string) {
	runes := []rune(s)
	if len(runes) > DescriptionChunkLimit {
		s = string(runes[:DescriptionChunkLimit])
	}
	var length [2]byte
	binary.BigEndian.PutUint16(length[:], uint16(len(s)))
	buf.Write(length[:])
	buf.WriteString(s)
}

// decodeString reads one length-prefixed UTF-8 string.
func decodeString(r io.Reader) (string, error) {
	var length [2]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return "", err
	}
	data := make([]byte, binary.BigEndian.Uint16(length[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return "", err
	}
	return string(data), nil
}
