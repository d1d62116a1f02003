package host

import (
	"math"
	"sync"
	"time"
)

// Replayer is a Host that replays recorded timer readings.
// It advances through pre-loaded millisecond deltas, optionally sleeping in
// real-time or running as fast as possible for testing.
type Replayer interface {
	Host

	// Load initializes the timer with a start reading and a sequence of deltas
	Load(startMs float64, deltasMs []float64)

	// Advance moves to the next delta, optionally sleeping in real-time
	Advance()

	// SetSpeed sets the playback speed multiplier (1.0 = real-time, 2.0 = 2x speed)
	SetSpeed(mult float64)

	// SetNoSleep disables real-time sleeping (for fast testing)
	SetNoSleep(noSleep bool)

	// Reset rewinds to the start reading
	Reset()

	// HasNext returns true if there are more deltas to advance through
	HasNext() bool

	// CurrentIndex returns the current position in the delta sequence
	CurrentIndex() int

	// AdvanceAll advances through every remaining delta
	AdvanceAll()

	// RemainingDeltas returns the number of deltas not yet advanced through
	RemainingDeltas() int

	// TotalDeltas returns the number of deltas loaded
	TotalDeltas() int
}

// Synthetic implements Replayer for deterministic tests and demos.
//
// The wall clock moves together with the timer: Date().Now() is the wall
// reading set with SetWall plus the timer distance travelled since then,
// truncated to whole milliseconds like a real Date.now().
type Synthetic struct {
	mu sync.RWMutex

	start   float64   // Initial timer reading
	deltas  []float64 // Pre-loaded deltas
	current float64   // Current timer reading
	index   int       // Current position in deltas
	speed   float64   // Playback speed multiplier
	noSleep bool      // If true, skip real-time sleeping

	origin   float64 // performance.timeOrigin
	wall     float64 // Date.now() at wallMark
	wallMark float64 // timer reading when wall was set
	hasPerf  bool
}

// NewSynthetic creates a Synthetic host with the timer at zero, the origin
// and the wall clock at the Unix epoch, and a Performance object present.
func NewSynthetic() *Synthetic {
	return &Synthetic{
		speed:   1.0,
		hasPerf: true,
	}
}

// Load initializes the timer with a start reading and deltas.
func (s *Synthetic) Load(startMs float64, deltasMs []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.start = startMs
	s.current = startMs
	s.deltas = make([]float64, len(deltasMs))
	copy(s.deltas, deltasMs)
	s.index = 0
	s.wallMark = startMs
}

// Set jumps the timer to ms without consuming a delta.
func (s *Synthetic) Set(ms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = ms
}

// SetOrigin sets the value reported by TimeOrigin.
func (s *Synthetic) SetOrigin(ms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.origin = ms
}

// SetWall sets the wall clock reading at the current timer position.
func (s *Synthetic) SetWall(ms float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wall = ms
	s.wallMark = s.current
}

// SetPerformanceAvailable toggles whether the host has a Performance object.
func (s *Synthetic) SetPerformanceAvailable(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasPerf = ok
}

// Performance returns the replayed timer.
func (s *Synthetic) Performance() (Performance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasPerf {
		return nil, false
	}
	return syntheticPerformance{s}, true
}

// Date returns the replayed wall clock.
func (s *Synthetic) Date() Date {
	return syntheticDate{s}
}

// Advance moves to the next delta in the sequence.
// If noSleep is false, it sleeps in real-time (scaled by speed multiplier).
func (s *Synthetic) Advance() {
	s.mu.Lock()

	if s.index >= len(s.deltas) {
		s.mu.Unlock()
		return // No more deltas
	}

	delta := s.deltas[s.index]
	s.index++

	var sleepDuration time.Duration
	if !s.noSleep && s.speed > 0 && delta > 0 {
		sleepDuration = time.Duration(delta / s.speed * float64(time.Millisecond))
	}

	s.current += delta

	s.mu.Unlock()

	// Sleep outside the lock
	if sleepDuration > 0 {
		time.Sleep(sleepDuration)
	}
}

// SetSpeed sets the playback speed multiplier.
func (s *Synthetic) SetSpeed(mult float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mult < 0 {
		mult = 1.0
	}
	s.speed = mult
}

// SetNoSleep enables or disables real-time sleeping.
func (s *Synthetic) SetNoSleep(noSleep bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noSleep = noSleep
}

// Reset rewinds the timer to the start reading.
func (s *Synthetic) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.start
	s.index = 0
}

// HasNext returns true if there are more deltas to advance.
func (s *Synthetic) HasNext() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index < len(s.deltas)
}

// CurrentIndex returns the current position in the delta sequence.
func (s *Synthetic) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// AdvanceAll advances through all remaining deltas.
func (s *Synthetic) AdvanceAll() {
	for s.HasNext() {
		s.Advance()
	}
}

// RemainingDeltas returns the number of deltas left to process.
func (s *Synthetic) RemainingDeltas() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deltas) - s.index
}

// TotalDeltas returns the total number of deltas loaded.
func (s *Synthetic) TotalDeltas() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deltas)
}

type syntheticPerformance struct {
	s *Synthetic
}

func (p syntheticPerformance) Now() float64 {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.current
}

func (p syntheticPerformance) TimeOrigin() float64 {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	return p.s.origin
}

type syntheticDate struct {
	s *Synthetic
}

func (d syntheticDate) Now() float64 {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	return d.s.wall + math.Trunc(d.s.current-d.s.wallMark)
}
