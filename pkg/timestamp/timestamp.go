// Package timestamp converts host millisecond timestamps into durations.
//
// Browser hosts report time as a float64 count of milliseconds
// (DOMHighResTimeStamp for performance.now(), an integral value for
// Date.now()). FromMillis turns such a value into the exactly rounded
// duration.Duration: the result is the nearest whole nanosecond to the
// mathematically exact value of the float, ties rounding to the even
// nanosecond.
//
// Two strategies reach that result. Portable works on the IEEE-754 bit
// pattern with 128-bit integer products and needs no floating point
// rounding support at all. Intrinsic leans on math.FMA to recover the exact
// product and is faster where FMA is a single instruction. Default is picked
// per architecture by build tags; the purego tag forces Portable.
package timestamp

import (
	"fmt"
	"strings"

	"github.com/BYTE-6D65/webtime/pkg/duration"
)

// Panic messages for precondition violations. The host timer is
// non-negative and bounded by construction, so these indicate a broken host,
// not a recoverable condition.
const (
	MsgNegative        = "can not convert float milliseconds to Duration: value is negative"
	MsgOutOfRange      = "can not convert float milliseconds to Duration: value is either too big or NaN"
	MsgImpossibleNanos = "impossible amount of nanoseconds found"
)

// MaxAccurateMillis is the largest host reading the timer is documented to
// report accurately: 285,616 years expressed in milliseconds.
const MaxAccurateMillis = 285_616 * 365 * 24 * 60 * 60 * 1000.0

// Strategy selects the conversion implementation. Both strategies produce
// identical results for every input.
type Strategy int

const (
	Portable Strategy = iota
	Intrinsic
)

func (s Strategy) String() string {
	switch s {
	case Portable:
		return "portable"
	case Intrinsic:
		return "intrinsic"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// ParseStrategy parses a strategy name. The empty string and "default"
// select Default.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return Default, nil
	case "portable", "purego":
		return Portable, nil
	case "intrinsic", "fma":
		return Intrinsic, nil
	default:
		return Default, fmt.Errorf("unknown conversion strategy %q", name)
	}
}

// Convert converts ms milliseconds using s.
func (s Strategy) Convert(ms float64) duration.Duration {
	if s == Intrinsic {
		return convertIntrinsic(ms)
	}
	return convertPortable(ms)
}

// FromMillis converts a host millisecond timestamp using Default.
//
// It panics with MsgNegative for negative input and with MsgOutOfRange for
// NaN, infinities and values of 2^64 milliseconds or more.
func FromMillis(ms float64) duration.Duration {
	return Default.Convert(ms)
}

// ToMillis returns the float64 closest to d expressed in milliseconds.
// Only durations below 2^53 nanoseconds survive the round trip through
// FromMillis unchanged.
func ToMillis(d duration.Duration) float64 {
	return float64(d.Secs())*duration.MillisPerSec + float64(d.SubsecNanos())/duration.NanosPerMilli
}

// assemble splits whole milliseconds into seconds and folds the remainder
// into the already rounded sub-millisecond nanoseconds.
func assemble(millis uint64, nanos uint32) duration.Duration {
	secs := millis / duration.MillisPerSec
	nanos += uint32(millis%duration.MillisPerSec) * duration.NanosPerMilli
	if nanos >= duration.NanosPerSec {
		panic(MsgImpossibleNanos)
	}
	return duration.New(secs, nanos)
}
