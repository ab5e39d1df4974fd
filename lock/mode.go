package lock

// Mode selects how a lock is held.
type Mode int

const (
	// ModeNone requests no locking. It is rejected at acquire time.
	ModeNone Mode = iota

	// ModeShared allows any number of concurrent readers.
	ModeShared

	// ModeExclusive allows a single writer and excludes all readers.
	ModeExclusive
)

// String returns the lower-case mode name used in log and error messages.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeShared:
		return "shared"
	case ModeExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}
