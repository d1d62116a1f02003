// Package clock provides the monotonic Instant and the wall clock SystemTime
// on top of a host.Host.
//
// A Source stands for one execution context. It resolves the host timer the
// first time it is needed and keeps it for its lifetime, so every Instant it
// produces is measured against the same origin. Instants from different
// Sources are only comparable when both Sources are synchronized, in which
// case they measure from the Unix epoch.
package clock

import (
	"sync"

	"github.com/BYTE-6D65/webtime/pkg/duration"
	"github.com/BYTE-6D65/webtime/pkg/host"
	"github.com/BYTE-6D65/webtime/pkg/telemetry"
)

// Clock provides monotonic time operations.
type Clock interface {
	// Now returns the current instant
	Now() Instant

	// Since returns the duration elapsed since the given instant
	Since(i Instant) duration.Duration
}

var defaultSource = sync.OnceValue(func() *Source {
	cfg, err := LoadFromEnv()
	if err != nil {
		cfg = DefaultConfig()
	}
	return newDefaultSource(cfg, host.Global())
})

func newDefaultSource(cfg Config, h host.Host) *Source {
	opts := []Option{WithHost(h)}
	if cfg.Metrics {
		opts = append(opts, WithMetrics(telemetry.Default()))
	}
	s, err := NewSourceFromConfig(cfg, opts...)
	if err != nil {
		s = NewSource(opts...)
	}
	return s
}

// Default returns the Source of the running execution context, configured
// from the WEBTIME_* environment variables.
func Default() *Source {
	return defaultSource()
}

// Now returns the current Instant of the default Source.
func Now() Instant {
	return Default().Now()
}

// SystemNow returns the current SystemTime of the default Source.
func SystemNow() SystemTime {
	return Default().SystemNow()
}
