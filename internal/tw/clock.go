package tw

import (
	"os"
	"time"
)

// Clock abstracts time retrieval so reports are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// HostProvider names the host a report was produced on.
type HostProvider interface {
	Hostname() string
}

// OSHost reports os.Hostname, or Fallback when the hostname is unavailable.
type OSHost struct {
	Fallback string
}

func (h OSHost) Hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return h.Fallback
	}
	return name
}
