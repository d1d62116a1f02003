package clock

import (
	"sync"

	"github.com/BYTE-6D65/webtime/pkg/duration"
)

// Truer maps Instants to wall clock time: wall = a * instant + b.
// It uses a rolling window to continuously update the fit as new observations arrive.
type Truer interface {
	// Observe records an Instant and the SystemTime read next to it
	Observe(i Instant, wall SystemTime)

	// True maps an Instant to a SystemTime using the current fit
	True(i Instant) SystemTime

	// Snapshot returns the current (a, b) coefficients for inspection/metrics
	Snapshot() (a float64, b float64)
}

// WallTruer implements Truer using a rolling least-squares affine fit.
//
// Wall readings are whole milliseconds and the host may adjust them, so a
// single pair says little. The fit averages the window instead. Coordinates
// are seconds relative to the first observation, which keeps the sums small
// enough for float64 to resolve microseconds. b is therefore the wall offset
// at the first observed Instant, in seconds.
type WallTruer struct {
	mu sync.RWMutex

	// Affine coefficients: wall = a * instant + b
	a float64
	b float64

	// Reference pair, set by the first observation
	refInstant duration.Duration
	refWall    duration.Duration
	hasRef     bool

	// Rolling window for least-squares fit
	window     []observation
	windowSize int
	index      int // Circular buffer index
	count      int // Number of observations (up to windowSize)

	// Running sums for efficient least-squares calculation
	sumSrc    float64
	sumWall   float64
	sumSrcSq  float64
	sumSrcWal float64
}

type observation struct {
	src  float64
	wall float64
}

// NewWallTruer creates a new Truer with the specified window size.
// Larger windows provide more stability but slower adaptation to adjustments.
// Typical values: 10-100 observations.
func NewWallTruer(windowSize int) *WallTruer {
	if windowSize < 2 {
		windowSize = 10 // Minimum for meaningful fit
	}
	return &WallTruer{
		a:          1.0,
		b:          0.0,
		window:     make([]observation, windowSize),
		windowSize: windowSize,
	}
}

// Observe adds a new (Instant, SystemTime) pair and updates the fit.
func (t *WallTruer) Observe(i Instant, wall SystemTime) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.hasRef {
		t.refInstant = i.d
		t.refWall = wall.d
		t.hasRef = true
	}

	src := signedSeconds(i.d, t.refInstant)
	eng := signedSeconds(wall.d, t.refWall)

	// If window is full, remove the oldest observation from sums
	if t.count == t.windowSize {
		old := t.window[t.index]
		t.sumSrc -= old.src
		t.sumWall -= old.wall
		t.sumSrcSq -= old.src * old.src
		t.sumSrcWal -= old.src * old.wall
	} else {
		t.count++
	}

	t.window[t.index] = observation{src: src, wall: eng}
	t.index = (t.index + 1) % t.windowSize

	t.sumSrc += src
	t.sumWall += eng
	t.sumSrcSq += src * src
	t.sumSrcWal += src * eng

	t.updateFit()
}

// updateFit calculates the affine coefficients using least-squares.
// Must be called with lock held.
func (t *WallTruer) updateFit() {
	n := float64(t.count)
	if t.count < 2 {
		// Single pair: unit slope through it
		t.a = 1.0
		t.b = t.sumWall - t.sumSrc
		return
	}

	det := t.sumSrcSq*n - t.sumSrc*t.sumSrc
	if det <= 1e-12*t.sumSrcSq*n {
		// All instants (nearly) identical, keep current fit
		return
	}

	t.a = (t.sumSrcWal*n - t.sumSrc*t.sumWall) / det
	t.b = (t.sumSrcSq*t.sumWall - t.sumSrc*t.sumSrcWal) / det

	// Clamp a to ±1000 ppm. Anything beyond that is a wall clock step, not
	// drift.
	if t.a < 0.999 {
		t.a = 0.999
	}
	if t.a > 1.001 {
		t.a = 1.001
	}
}

// True maps an Instant to wall clock time using the current fit.
// Before any observation the Instant is taken to measure from the epoch.
func (t *WallTruer) True(i Instant) SystemTime {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.hasRef {
		return SystemTime{d: i.d}
	}

	wall := t.a*signedSeconds(i.d, t.refInstant) + t.b
	return SystemTime{d: offsetSeconds(t.refWall, wall)}
}

// Snapshot returns the current affine coefficients (a, b).
func (t *WallTruer) Snapshot() (a float64, b float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.a, t.b
}

// Observations returns the number of pairs in the window.
func (t *WallTruer) Observations() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.count
}

// IdentityTruer maps Instants of a synchronized Source, which already
// measure from the Unix epoch.
type IdentityTruer struct{}

// NewIdentityTruer creates a no-op Truer.
func NewIdentityTruer() *IdentityTruer {
	return &IdentityTruer{}
}

// Observe does nothing (no-op).
func (t *IdentityTruer) Observe(i Instant, wall SystemTime) {}

// True returns the SystemTime at the same distance from the epoch.
func (t *IdentityTruer) True(i Instant) SystemTime {
	return SystemTime{d: i.d}
}

// Snapshot returns identity transform (1, 0).
func (t *IdentityTruer) Snapshot() (a float64, b float64) {
	return 1.0, 0.0
}

// signedSeconds returns x-ref in seconds.
func signedSeconds(x, ref duration.Duration) float64 {
	if d, ok := x.CheckedSub(ref); ok {
		return d.Seconds()
	}
	return -ref.Sub(x).Seconds()
}

// offsetSeconds returns ref+secs, saturating at Zero and Max.
func offsetSeconds(ref duration.Duration, secs float64) duration.Duration {
	if secs >= 0 {
		d, err := duration.FromSecondsFloat(secs)
		if err != nil {
			return duration.Max
		}
		return ref.SaturatingAdd(d)
	}
	d, err := duration.FromSecondsFloat(-secs)
	if err != nil {
		return duration.Zero
	}
	return ref.SaturatingSub(d)
}
