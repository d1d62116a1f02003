package timestamp

import "math"

// Regime names the branch of the conversion a timestamp falls into.
type Regime int

const (
	RegimeZero       Regime = iota // below half a nanosecond
	RegimeSubMilli                 // below one millisecond
	RegimeFractional               // whole milliseconds plus a fraction
	RegimeIntegral                 // 2^52 ms and above, no fraction
	RegimeInvalid                  // negative, NaN or too large
)

func (r Regime) String() string {
	switch r {
	case RegimeZero:
		return "zero"
	case RegimeSubMilli:
		return "submilli"
	case RegimeFractional:
		return "fractional"
	case RegimeIntegral:
		return "integral"
	case RegimeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Classify reports the regime of ms without converting it.
func Classify(ms float64) Regime {
	if ms < 0 {
		return RegimeInvalid
	}
	exp := int((math.Float64bits(ms)>>mantBits)&expMask) + minExp
	switch {
	case exp < zeroExp:
		return RegimeZero
	case exp < 0:
		return RegimeSubMilli
	case exp < mantBits:
		return RegimeFractional
	case exp < overflowExp:
		return RegimeIntegral
	default:
		return RegimeInvalid
	}
}
