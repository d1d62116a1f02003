package timestamp

import (
	"math"
	"math/bits"

	"github.com/BYTE-6D65/webtime/pkg/duration"
)

// IEEE-754 binary64 layout.
const (
	mantBits = 52
	expBits  = 11
	minExp   = 1 - (1<<expBits)/2
	mantMask = 1<<mantBits - 1
	expMask  = 1<<expBits - 1
)

// Exponent thresholds, in units of milliseconds. Below 2^-21 ms the input is
// under half a nanosecond and rounds to zero. From 2^52 ms on there are no
// fractional bits left, and 2^64 ms no longer fits the millisecond counter.
const (
	zeroExp     = -21
	overflowExp = 64
)

// convertPortable converts by taking the float apart. The value is
// mant * 2^(exp-52) milliseconds, so the nanoseconds are the fixed point
// product mant * 1e6 shifted right by (52-exp), rounded on the bits shifted
// out.
func convertPortable(ms float64) duration.Duration {
	if ms < 0 {
		panic(MsgNegative)
	}

	b := math.Float64bits(ms)
	mant := b&mantMask | (mantMask + 1)
	exp := int((b>>mantBits)&expMask) + minExp

	var (
		millis uint64
		nanos  uint32
	)
	switch {
	case exp < zeroExp:
		return duration.Zero
	case exp < 0:
		// less than one millisecond
		nanos = scaleRound(mant, uint(mantBits-exp))
	case exp < mantBits:
		millis = mant >> uint(mantBits-exp)
		frac := (mant << uint(exp)) & mantMask
		nanos = scaleRound(frac, mantBits)
	case exp < overflowExp:
		// no fractional part
		millis = mant << uint(exp-mantBits)
	default:
		panic(MsgOutOfRange)
	}

	if nanos == duration.NanosPerMilli {
		millis++
		nanos = 0
	}
	return assemble(millis, nanos)
}

// scaleRound returns num * 1e6 / 2^shift rounded to nearest, ties to even.
// num < 2^53 and 52 <= shift <= 73, so the product needs up to 73 bits and
// the quotient never exceeds one million.
func scaleRound(num uint64, shift uint) uint32 {
	p := mul64(num, duration.NanosPerMilli)
	q := uint32(p.rsh(shift).lo)

	rem := p.and(mask128(shift))
	half := bit128(shift - 1)

	// round bit set and either sticky bits below it or an odd quotient
	switch c := rem.cmp(half); {
	case c > 0, c == 0 && q&1 == 1:
		q++
	}
	return q
}

// uint128 is the minimum 128-bit arithmetic the conversion needs.
type uint128 struct {
	hi, lo uint64
}

func mul64(a, b uint64) uint128 {
	hi, lo := bits.Mul64(a, b)
	return uint128{hi: hi, lo: lo}
}

func (u uint128) rsh(n uint) uint128 {
	switch {
	case n == 0:
		return u
	case n >= 64:
		return uint128{lo: u.hi >> (n - 64)}
	default:
		return uint128{hi: u.hi >> n, lo: u.hi<<(64-n) | u.lo>>n}
	}
}

func (u uint128) and(v uint128) uint128 {
	return uint128{hi: u.hi & v.hi, lo: u.lo & v.lo}
}

func (u uint128) cmp(v uint128) int {
	switch {
	case u.hi < v.hi:
		return -1
	case u.hi > v.hi:
		return 1
	case u.lo < v.lo:
		return -1
	case u.lo > v.lo:
		return 1
	}
	return 0
}

// bit128 returns 1<<n.
func bit128(n uint) uint128 {
	if n >= 64 {
		return uint128{hi: 1 << (n - 64)}
	}
	return uint128{lo: 1 << n}
}

// mask128 returns (1<<n)-1.
func mask128(n uint) uint128 {
	if n >= 64 {
		return uint128{hi: 1<<(n-64) - 1, lo: math.MaxUint64}
	}
	return uint128{lo: 1<<n - 1}
}
