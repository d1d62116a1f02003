package clock

import (
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/BYTE-6D65/webtime/pkg/duration"
	"github.com/BYTE-6D65/webtime/pkg/host"
	"github.com/BYTE-6D65/webtime/pkg/telemetry"
	"github.com/BYTE-6D65/webtime/pkg/timestamp"
)

// Source reads the clocks of one execution context.
//
// The Performance handle is looked up on the first Now and reused for the
// lifetime of the Source. In synchronized mode the time origin is read once
// as well. A Source is safe for concurrent use.
type Source struct {
	id           uuid.UUID
	host         host.Host
	synchronized bool
	strategy     timestamp.Strategy
	metrics      *telemetry.Metrics
	log          logrus.FieldLogger

	perfOnce sync.Once
	perf     host.Performance
	hasPerf  bool

	originOnce sync.Once
	origin     float64
}

// Option configures a Source.
type Option func(*Source)

// WithHost sets the host the Source reads from.
func WithHost(h host.Host) Option {
	return func(s *Source) {
		s.host = h
	}
}

// WithSynchronized makes Instants measure from the Unix epoch.
func WithSynchronized(on bool) Option {
	return func(s *Source) {
		s.synchronized = on
	}
}

// WithStrategy sets the timestamp conversion strategy.
func WithStrategy(strategy timestamp.Strategy) Option {
	return func(s *Source) {
		s.strategy = strategy
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Source) {
		s.metrics = m
	}
}

// WithLogger sets the logger for host resolution events.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Source) {
		s.log = log
	}
}

// NewSource creates a Source with sensible defaults.
// Default configuration:
// - Host: host.Global()
// - Synchronized: false
// - Strategy: timestamp.Default
// - Metrics and logging: disabled
func NewSource(opts ...Option) *Source {
	s := &Source{
		id:       uuid.New(),
		strategy: timestamp.Default,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.host == nil {
		s.host = host.Global()
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	s.log = s.log.WithField("source", s.id.String())

	return s
}

// NewSourceFromConfig creates a Source from cfg. Options are applied after
// the configuration and take precedence.
func NewSourceFromConfig(cfg Config, opts ...Option) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, _ := timestamp.ParseStrategy(cfg.Strategy)

	base := []Option{
		WithSynchronized(cfg.Synchronized),
		WithStrategy(strategy),
	}
	return NewSource(append(base, opts...)...), nil
}

// ID identifies the execution context of the Source.
func (s *Source) ID() uuid.UUID {
	return s.id
}

// Synchronized reports whether Instants measure from the Unix epoch.
func (s *Source) Synchronized() bool {
	return s.synchronized
}

// Strategy returns the conversion strategy in use.
func (s *Source) Strategy() timestamp.Strategy {
	return s.strategy
}

// Now returns the current Instant.
// It panics with MsgPerformanceNotFound if the host has no timer.
func (s *Source) Now() Instant {
	perf := s.performance()

	ms := perf.Now()
	if s.synchronized {
		ms += s.timeOrigin(perf)
	}

	s.countRead("instant")
	return Instant{d: s.convert(ms)}
}

// Since returns the time elapsed since i.
func (s *Source) Since(i Instant) duration.Duration {
	return s.Now().DurationSince(i)
}

// Elapsed is Since under the name Instant uses.
func (s *Source) Elapsed(i Instant) duration.Duration {
	return s.Since(i)
}

// SystemNow returns the current wall clock reading.
// It panics with MsgNegativeTimestamp if the host reports a time before the
// Unix epoch.
func (s *Source) SystemNow() SystemTime {
	ms := s.host.Date().Now()
	switch {
	case ms < 0:
		panic(MsgNegativeTimestamp)
	case !(ms < 0x1p64):
		panic(MsgInvalidTimestamp)
	}

	s.countRead("system")
	return SystemTime{d: duration.FromMillis(uint64(ms))}
}

// SystemElapsed returns the wall clock time elapsed since t.
func (s *Source) SystemElapsed(t SystemTime) (duration.Duration, error) {
	return s.SystemNow().DurationSince(t)
}

func (s *Source) performance() host.Performance {
	s.perfOnce.Do(func() {
		s.perf, s.hasPerf = s.host.Performance()
		if !s.hasPerf {
			s.log.Debug("execution context has no Performance object")
			if s.metrics != nil {
				s.metrics.HostLookupFailures.Inc()
			}
			return
		}
		s.log.WithField("strategy", s.strategy.String()).Debug("resolved Performance object")
	})

	// Checked on every read so the failure repeats.
	if !s.hasPerf {
		panic(MsgPerformanceNotFound)
	}
	return s.perf
}

func (s *Source) timeOrigin(perf host.Performance) float64 {
	s.originOnce.Do(func() {
		s.origin = perf.TimeOrigin()
		s.log.WithField("origin_ms", s.origin).Debug("resolved time origin")
	})
	return s.origin
}

func (s *Source) convert(ms float64) duration.Duration {
	if s.metrics == nil {
		return s.strategy.Convert(ms)
	}

	strategy := s.strategy.String()
	s.metrics.Conversions.WithLabelValues(strategy, timestamp.Classify(ms).String()).Inc()

	timer := telemetry.NewTimer()
	d := s.strategy.Convert(ms)
	timer.Observe(s.metrics.ConversionDuration.WithLabelValues(strategy))
	return d
}

func (s *Source) countRead(clock string) {
	if s.metrics != nil {
		s.metrics.ClockReads.WithLabelValues(clock).Inc()
	}
}
