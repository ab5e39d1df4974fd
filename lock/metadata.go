package lock

import (
	"fmt"
	"os"
)

// ProcessMetadataProvider supplies an identifier for the current process.
// The identifier is written into the information region of every lock file
// this process holds exclusively, so contended waiters can name the owner.
// Implementations must be cheap and stable for the process lifetime.
type ProcessMetadataProvider interface {
	ProcessIdentifier() string
}

type defaultMetadataProvider struct {
	id string
}

// NewProcessMetadataProvider returns a provider identifying the process as
// "pid@hostname". The identifier is computed once.
func NewProcessMetadataProvider() ProcessMetadataProvider {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	return &defaultMetadataProvider{id: fmt.Sprintf("%d@%s", os.Getpid(), host)}
}

func (p *defaultMetadataProvider) ProcessIdentifier() string { return p.id }
