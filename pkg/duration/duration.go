// Package duration provides an unsigned (seconds, nanoseconds) span of time.
//
// Unlike time.Duration, which is a signed int64 count of nanoseconds with a
// range of ~292 years, Duration covers the full uint64 range of seconds.
// Every operation that can leave that range has a checked variant that
// reports failure instead of wrapping.
package duration

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	NanosPerSec   = 1_000_000_000
	NanosPerMilli = 1_000_000
	NanosPerMicro = 1_000
	MillisPerSec  = 1_000
	MicrosPerSec  = 1_000_000
)

// Duration is a span of time with nanosecond precision.
// The zero value is a zero-length duration.
type Duration struct {
	secs  uint64
	nanos uint32 // always < NanosPerSec
}

var (
	// Zero is the empty duration.
	Zero = Duration{}

	// Max is the largest representable duration.
	Max = Duration{secs: math.MaxUint64, nanos: NanosPerSec - 1}
)

// Errors returned by FromSecondsFloat and FromStd.
var (
	ErrNegative  = errors.New("duration: value is negative")
	ErrNotFinite = errors.New("duration: value is not finite")
	ErrOverflow  = errors.New("duration: value overflows Duration")
)

// New creates a Duration from whole seconds and nanoseconds.
// Nanoseconds beyond one second carry into the seconds.
// It panics if the carry overflows the seconds.
func New(secs uint64, nanos uint32) Duration {
	if nanos < NanosPerSec {
		return Duration{secs: secs, nanos: nanos}
	}
	extra := uint64(nanos / NanosPerSec)
	if secs > math.MaxUint64-extra {
		panic("overflow in duration.New")
	}
	return Duration{secs: secs + extra, nanos: nanos % NanosPerSec}
}

// FromSecs creates a Duration from whole seconds.
func FromSecs(secs uint64) Duration {
	return Duration{secs: secs}
}

// FromMillis creates a Duration from milliseconds.
func FromMillis(millis uint64) Duration {
	return Duration{
		secs:  millis / MillisPerSec,
		nanos: uint32(millis%MillisPerSec) * NanosPerMilli,
	}
}

// FromMicros creates a Duration from microseconds.
func FromMicros(micros uint64) Duration {
	return Duration{
		secs:  micros / MicrosPerSec,
		nanos: uint32(micros%MicrosPerSec) * NanosPerMicro,
	}
}

// FromNanos creates a Duration from nanoseconds.
func FromNanos(nanos uint64) Duration {
	return Duration{
		secs:  nanos / NanosPerSec,
		nanos: uint32(nanos % NanosPerSec),
	}
}

// Secs returns the whole seconds.
func (d Duration) Secs() uint64 {
	return d.secs
}

// SubsecNanos returns the fractional part in nanoseconds.
func (d Duration) SubsecNanos() uint32 {
	return d.nanos
}

// SubsecMillis returns the fractional part in whole milliseconds.
func (d Duration) SubsecMillis() uint32 {
	return d.nanos / NanosPerMilli
}

// Millis returns the total whole milliseconds, saturating at math.MaxUint64.
func (d Duration) Millis() uint64 {
	if d.secs > (math.MaxUint64-uint64(d.SubsecMillis()))/MillisPerSec {
		return math.MaxUint64
	}
	return d.secs*MillisPerSec + uint64(d.SubsecMillis())
}

// IsZero reports whether d is zero-length.
func (d Duration) IsZero() bool {
	return d.secs == 0 && d.nanos == 0
}

// CheckedAdd returns d+o, or false if the result overflows.
func (d Duration) CheckedAdd(o Duration) (Duration, bool) {
	secs := d.secs + o.secs
	if secs < d.secs {
		return Zero, false
	}
	nanos := d.nanos + o.nanos
	if nanos >= NanosPerSec {
		nanos -= NanosPerSec
		if secs == math.MaxUint64 {
			return Zero, false
		}
		secs++
	}
	return Duration{secs: secs, nanos: nanos}, true
}

// CheckedSub returns d-o, or false if o is longer than d.
func (d Duration) CheckedSub(o Duration) (Duration, bool) {
	if d.secs < o.secs {
		return Zero, false
	}
	secs := d.secs - o.secs
	nanos := d.nanos
	if nanos < o.nanos {
		if secs == 0 {
			return Zero, false
		}
		secs--
		nanos += NanosPerSec
	}
	return Duration{secs: secs, nanos: nanos - o.nanos}, true
}

// SaturatingAdd returns d+o, or Max on overflow.
func (d Duration) SaturatingAdd(o Duration) Duration {
	if sum, ok := d.CheckedAdd(o); ok {
		return sum
	}
	return Max
}

// SaturatingSub returns d-o, or Zero if o is longer than d.
func (d Duration) SaturatingSub(o Duration) Duration {
	if diff, ok := d.CheckedSub(o); ok {
		return diff
	}
	return Zero
}

// Add returns d+o and panics on overflow.
func (d Duration) Add(o Duration) Duration {
	sum, ok := d.CheckedAdd(o)
	if !ok {
		panic("overflow when adding durations")
	}
	return sum
}

// Sub returns d-o and panics if o is longer than d.
func (d Duration) Sub(o Duration) Duration {
	diff, ok := d.CheckedSub(o)
	if !ok {
		panic("overflow when subtracting durations")
	}
	return diff
}

// Compare returns -1, 0 or +1 depending on whether d is shorter than,
// equal to or longer than o.
func (d Duration) Compare(o Duration) int {
	switch {
	case d.secs < o.secs:
		return -1
	case d.secs > o.secs:
		return 1
	case d.nanos < o.nanos:
		return -1
	case d.nanos > o.nanos:
		return 1
	}
	return 0
}

// Less reports whether d is shorter than o.
func (d Duration) Less(o Duration) bool {
	return d.Compare(o) < 0
}

// Equal reports whether d and o are the same length.
func (d Duration) Equal(o Duration) bool {
	return d == o
}

// Seconds returns d as floating point seconds. Precision is lost for
// durations longer than 2^53 nanoseconds.
func (d Duration) Seconds() float64 {
	return float64(d.secs) + float64(d.nanos)/NanosPerSec
}

// FromSecondsFloat converts floating point seconds into a Duration,
// rounding to the nearest nanosecond.
func FromSecondsFloat(secs float64) (Duration, error) {
	switch {
	case math.IsNaN(secs) || math.IsInf(secs, 0):
		return Zero, ErrNotFinite
	case secs < 0:
		return Zero, ErrNegative
	case secs >= 0x1p64:
		return Zero, ErrOverflow
	}

	whole, frac := math.Modf(secs)
	nanos := RoundProduct(frac, NanosPerSec)
	d := Duration{secs: uint64(whole)}
	if nanos >= NanosPerSec {
		if d.secs == math.MaxUint64 {
			return Zero, ErrOverflow
		}
		d.secs++
		return d, nil
	}
	d.nanos = uint32(nanos)
	return d, nil
}

// RoundProduct returns x*y rounded to the nearest integer, ties to even. The
// exact product decides, not its float64 rounding: the residual of the
// product is recovered with a fused multiply-add and settles the cases where
// the rounded product lands on a half. Exact while |x*y| < 2^52.
func RoundProduct(x, y float64) float64 {
	hi := x * y
	lo := math.FMA(x, y, -hi)
	r := math.RoundToEven(hi)
	switch d := hi - r; {
	case d == 0.5 && lo > 0:
		r++
	case d == -0.5 && lo < 0:
		r--
	}
	return r
}

// Std converts d to a time.Duration. It returns false if d is longer than
// math.MaxInt64 nanoseconds.
func (d Duration) Std() (time.Duration, bool) {
	const maxSecs = math.MaxInt64 / NanosPerSec
	if d.secs > maxSecs {
		return 0, false
	}
	n := int64(d.secs)*NanosPerSec + int64(d.nanos)
	if n < 0 {
		return 0, false
	}
	return time.Duration(n), true
}

// FromStd converts a non-negative time.Duration.
func FromStd(d time.Duration) (Duration, error) {
	if d < 0 {
		return Zero, ErrNegative
	}
	return FromNanos(uint64(d)), nil
}

// String formats d like time.Duration when it fits, and as decimal seconds
// otherwise.
func (d Duration) String() string {
	if std, ok := d.Std(); ok {
		return std.String()
	}
	return fmt.Sprintf("%d.%09ds", d.secs, d.nanos)
}
