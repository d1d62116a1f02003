package timestamp

import (
	"math"

	"github.com/BYTE-6D65/webtime/pkg/duration"
)

// convertIntrinsic splits off the whole milliseconds with math.Modf (exact),
// then scales the fraction by 1e6. The product hi is rounded, but
// math.FMA recovers its rounding error lo exactly, so hi+lo is the true
// nanosecond value. Rounding hi alone is correct except when hi sits exactly
// on a half, where the sign of lo breaks the tie.
func convertIntrinsic(ms float64) duration.Duration {
	if ms < 0 {
		panic(MsgNegative)
	}
	if !(ms < 0x1p64) {
		panic(MsgOutOfRange)
	}

	whole, frac := math.Modf(ms)
	millis := uint64(whole)

	nanos := uint32(duration.RoundProduct(frac, duration.NanosPerMilli))
	if nanos == duration.NanosPerMilli {
		millis++
		nanos = 0
	}
	return assemble(millis, nanos)
}
