package clock

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/BYTE-6D65/webtime/pkg/duration"
)

// SystemTime is a wall clock reading. Unlike Instant it is not monotonic:
// the host clock may be adjusted between two readings.
type SystemTime struct {
	d duration.Duration
}

// UnixEpoch is 1970-01-01 00:00:00 UTC.
var UnixEpoch = SystemTime{}

// UnixDuration returns the time elapsed since UnixEpoch.
func (t SystemTime) UnixDuration() duration.Duration {
	return t.d
}

func (t SystemTime) Compare(o SystemTime) int { return t.d.Compare(o.d) }
func (t SystemTime) Before(o SystemTime) bool { return t.d.Less(o.d) }
func (t SystemTime) After(o SystemTime) bool  { return o.d.Less(t.d) }
func (t SystemTime) Equal(o SystemTime) bool  { return t.d.Equal(o.d) }

// DurationSince returns the time elapsed from earlier to t. If earlier is
// later than t it returns a *SystemTimeError holding the difference.
func (t SystemTime) DurationSince(earlier SystemTime) (duration.Duration, error) {
	if d, ok := t.d.CheckedSub(earlier.d); ok {
		return d, nil
	}
	return duration.Zero, &SystemTimeError{d: earlier.d.Sub(t.d)}
}

// Elapsed returns the time elapsed since t according to the default Source.
func (t SystemTime) Elapsed() (duration.Duration, error) {
	return SystemNow().DurationSince(t)
}

// CheckedAdd returns t+d, and false if the result is not representable.
func (t SystemTime) CheckedAdd(d duration.Duration) (SystemTime, bool) {
	r, ok := t.d.CheckedAdd(d)
	return SystemTime{d: r}, ok
}

// CheckedSub returns t-d, and false if the result would precede UnixEpoch.
func (t SystemTime) CheckedSub(d duration.Duration) (SystemTime, bool) {
	r, ok := t.d.CheckedSub(d)
	return SystemTime{d: r}, ok
}

// Add returns t+d and panics with MsgAddOverflow on overflow.
func (t SystemTime) Add(d duration.Duration) SystemTime {
	r, ok := t.CheckedAdd(d)
	if !ok {
		panic(MsgAddOverflow)
	}
	return r
}

// Subtract returns t-d and panics with MsgSubOverflow on underflow.
func (t SystemTime) Subtract(d duration.Duration) SystemTime {
	r, ok := t.CheckedSub(d)
	if !ok {
		panic(MsgSubOverflow)
	}
	return r
}

const (
	// maxStdSecs is the last Unix second a time.Time holds. time.Time counts
	// seconds from January 1, year 1 in an int64.
	maxStdSecs = math.MaxInt64 - 62_135_596_800

	// maxRFC3339Secs is 9999-12-31T23:59:59Z, the last second RFC 3339 can
	// express.
	maxRFC3339Secs = 253_402_300_799
)

// Std converts t to a UTC time.Time. It fails with ErrOutOfRange when t is
// past the range of time.Time.
func (t SystemTime) Std() (time.Time, error) {
	if t.d.Secs() > maxStdSecs {
		return time.Time{}, errors.Wrapf(ErrOutOfRange, "%d seconds since epoch", t.d.Secs())
	}
	return time.Unix(int64(t.d.Secs()), int64(t.d.SubsecNanos())).UTC(), nil
}

// FromStd converts a time.Time. It fails for times before UnixEpoch.
func FromStd(tt time.Time) (SystemTime, error) {
	secs := tt.Unix()
	if secs < 0 {
		return UnixEpoch, errors.Wrapf(ErrBeforeEpoch, "%s", tt.UTC().Format(time.RFC3339Nano))
	}
	return SystemTime{d: duration.New(uint64(secs), uint32(tt.Nanosecond()))}, nil
}

// String formats t as RFC 3339 up to the year 9999.
func (t SystemTime) String() string {
	if t.d.Secs() > maxRFC3339Secs {
		return "SystemTime(" + t.d.String() + ")"
	}
	tt, _ := t.Std()
	return tt.Format(time.RFC3339Nano)
}
