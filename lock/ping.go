package lock

// OwnerPinger signals a suspected lock owner that another process is
// waiting, so it can release the lock sooner. Pings are fire-and-forget:
// the acquisition path logs failures and keeps waiting regardless.
type OwnerPinger interface {
	PingOwner(address string, target string) error
}

// NopPinger discards all pings. It is the default when no transport is
// configured.
type NopPinger struct{}

// PingOwner does nothing.
func (NopPinger) PingOwner(string, string) error { return nil }
