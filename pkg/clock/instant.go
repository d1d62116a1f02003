package clock

import (
	"github.com/BYTE-6D65/webtime/pkg/duration"
)

// Instant is a reading of the monotonic host timer. Instants are only
// meaningful relative to each other; the zero Instant is the timer origin.
type Instant struct {
	d duration.Duration
}

// Compare returns -1, 0 or +1 depending on whether i is before, equal to or
// after o.
func (i Instant) Compare(o Instant) int {
	return i.d.Compare(o.d)
}

func (i Instant) Before(o Instant) bool { return i.d.Less(o.d) }
func (i Instant) After(o Instant) bool  { return o.d.Less(i.d) }
func (i Instant) Equal(o Instant) bool  { return i.d.Equal(o.d) }

// DurationSince returns the time elapsed from earlier to i, or zero if
// earlier is later than i.
func (i Instant) DurationSince(earlier Instant) duration.Duration {
	return i.SaturatingDurationSince(earlier)
}

// CheckedDurationSince returns the time elapsed from earlier to i, and false
// if earlier is later than i.
func (i Instant) CheckedDurationSince(earlier Instant) (duration.Duration, bool) {
	return i.d.CheckedSub(earlier.d)
}

// SaturatingDurationSince returns the time elapsed from earlier to i, or zero
// if earlier is later than i.
func (i Instant) SaturatingDurationSince(earlier Instant) duration.Duration {
	return i.d.SaturatingSub(earlier.d)
}

// Sub returns i.DurationSince(o).
func (i Instant) Sub(o Instant) duration.Duration {
	return i.DurationSince(o)
}

// Elapsed returns the time elapsed since i according to the default Source.
// Only Instants taken from the default Source give a meaningful result;
// callers holding their own Source use Source.Elapsed.
func (i Instant) Elapsed() duration.Duration {
	return Now().DurationSince(i)
}

// CheckedAdd returns i+d, and false if the result is not representable.
func (i Instant) CheckedAdd(d duration.Duration) (Instant, bool) {
	r, ok := i.d.CheckedAdd(d)
	return Instant{d: r}, ok
}

// CheckedSub returns i-d, and false if the result is not representable.
func (i Instant) CheckedSub(d duration.Duration) (Instant, bool) {
	r, ok := i.d.CheckedSub(d)
	return Instant{d: r}, ok
}

// Add returns i+d. It panics with MsgAddOverflow if the result is not
// representable.
func (i Instant) Add(d duration.Duration) Instant {
	r, ok := i.CheckedAdd(d)
	if !ok {
		panic(MsgAddOverflow)
	}
	return r
}

// Subtract returns i-d. It panics with MsgSubOverflow if the result is not
// representable.
func (i Instant) Subtract(d duration.Duration) Instant {
	r, ok := i.CheckedSub(d)
	if !ok {
		panic(MsgSubOverflow)
	}
	return r
}

// String reports the distance from the timer origin.
func (i Instant) String() string {
	return "Instant(" + i.d.String() + ")"
}
