package clock

import (
	"github.com/pkg/errors"

	"github.com/BYTE-6D65/webtime/pkg/duration"
)

// Panic messages. Reading a clock has no error path: a host that cannot
// provide a sane reading is a programming or platform error.
const (
	MsgAddOverflow         = "overflow when adding duration to instant"
	MsgSubOverflow         = "overflow when subtracting duration from instant"
	MsgPerformanceNotFound = "`Performance` object not found"
	MsgNegativeTimestamp   = "found negative timestamp"
	MsgInvalidTimestamp    = "found invalid timestamp"
	MsgSystemTimeError     = "second time provided was later than self"
)

// Errors returned by SystemTime.Std and FromStd.
var (
	ErrBeforeEpoch = errors.New("time is before the Unix epoch")
	ErrOutOfRange  = errors.New("time is out of the representable range")
)

// SystemTimeError is returned by SystemTime.DurationSince when the argument
// is later than the receiver. It carries how much later.
type SystemTimeError struct {
	d duration.Duration
}

func (e *SystemTimeError) Error() string {
	return MsgSystemTimeError
}

// Duration returns the positive duration by which the second time was later.
func (e *SystemTimeError) Duration() duration.Duration {
	return e.d
}
