package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"
)

// infoRune draws runes of at most three UTF-8 bytes so that two
// limit-length strings always fit the reserved information region.
func infoRune() *rapid.Generator[rune] {
	return rapid.OneOf(
		rapid.RuneFrom([]rune("abcdefghijklmnopqrstuvwxyz0123456789@.:-_/")),
		rapid.RuneFrom([]rune("äöüéèçñ中文таб")),
	)
}

// TestInfoRoundTripProperty verifies that any owner details written via the
// information-region codec read back identically, modulo truncation to
// DescriptionChunkLimit characters.
func TestInfoRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f, err := os.OpenFile(filepath.Join(t.TempDir(), "prop.lock"), os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			rt.Fatalf("open lock file: %v", err)
		}
		defer func() { _ = f.Close() }()

		pid := rapid.StringOfN(infoRune(), 0, DescriptionChunkLimit+50, -1).Draw(rt, "pid")
		address := rapid.StringOfN(infoRune(), 0, DescriptionChunkLimit+50, -1).Draw(rt, "address")

		if err := WriteInfo(f, pid, address); err != nil {
			rt.Fatalf("WriteInfo failed: %v", err)
		}
		info, err := ReadInfo(f)
		if err != nil {
			rt.Fatalf("ReadInfo failed: %v", err)
		}

		if want := truncate(pid); info.PID != want {
			rt.Fatalf("PID = %q, want %q", info.PID, want)
		}
		if want := truncate(address); info.Address != want {
			rt.Fatalf("Address = %q, want %q", info.Address, want)
		}
	})
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) > DescriptionChunkLimit {
		return string(runes[:DescriptionChunkLimit])
	}
	return s
}
