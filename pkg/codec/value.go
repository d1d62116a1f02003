package codec

import (
	"math"
	"strconv"
	"strings"

	"github.com/BYTE-6D65/webtime/pkg/clock"
	"github.com/BYTE-6D65/webtime/pkg/duration"
)

// kind is the data model shared by all formats.
type kind int

const (
	kindUnit kind = iota
	kindBool
	kindUint
	kindInt // negative integers only
	kindFloat
	kindString
	kindBytes
	kindSeq
	kindMap
	kindOther
)

// value is one decoded data item, independent of the wire format.
type value struct {
	kind    kind
	b       bool
	u       uint64
	i       int64
	f       float64
	s       string // string contents, byte contents or kindOther description
	elems   []value
	entries []entry
}

type entry struct {
	key, val value
}

// describe names v the way decode errors report unexpected input.
func (v value) describe() string {
	switch v.kind {
	case kindUnit:
		return "unit value"
	case kindBool:
		return "boolean `" + strconv.FormatBool(v.b) + "`"
	case kindUint:
		return "integer `" + strconv.FormatUint(v.u, 10) + "`"
	case kindInt:
		return "integer `" + strconv.FormatInt(v.i, 10) + "`"
	case kindFloat:
		return "floating point `" + formatFloat(v.f) + "`"
	case kindString:
		return "string " + strconv.Quote(v.s)
	case kindBytes:
		return "byte array"
	case kindSeq:
		return "sequence"
	case kindMap:
		return "map"
	default:
		return v.s
	}
}

func formatFloat(f float64) string {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (v value) asSecs() (uint64, error) {
	switch v.kind {
	case kindUint:
		return v.u, nil
	case kindInt:
		return 0, invalidValue(v, fieldSecs, "u64")
	default:
		return 0, invalidType(v, fieldSecs, "u64")
	}
}

func (v value) asNanos() (uint32, error) {
	switch v.kind {
	case kindUint:
		if v.u > math.MaxUint32 {
			return 0, invalidValue(v, fieldNanos, "u32")
		}
		return uint32(v.u), nil
	case kindInt:
		return 0, invalidValue(v, fieldNanos, "u32")
	default:
		return 0, invalidType(v, fieldNanos, "u32")
	}
}

// fieldName resolves a map key. Text and byte string keys are accepted.
func (v value) fieldName() (string, error) {
	var name string
	switch v.kind {
	case kindString:
		name = v.s
	case kindBytes:
		name = strings.ToValidUTF8(v.s, "\uFFFD")
	default:
		return "", invalidType(v, "", expectField)
	}
	if name != fieldSecs && name != fieldNanos {
		return "", unknownField(name)
	}
	return name, nil
}

// toSystemTime interprets v as a SystemTime record, either positional
// [secs, nanos] or a map with named fields.
func toSystemTime(v value) (clock.SystemTime, error) {
	var (
		secs  uint64
		nanos uint32
		err   error
	)
	switch v.kind {
	case kindSeq:
		secs, nanos, err = fromSeq(v.elems)
	case kindMap:
		secs, nanos, err = fromMap(v.entries)
	default:
		err = invalidType(v, "", expectStruct)
	}
	if err != nil {
		return clock.UnixEpoch, err
	}

	if secs > math.MaxUint64-uint64(nanos/duration.NanosPerSec) {
		return clock.UnixEpoch, overflow("overflow deserializing SystemTime epoch offset")
	}
	t, ok := clock.UnixEpoch.CheckedAdd(duration.New(secs, nanos))
	if !ok {
		return clock.UnixEpoch, overflow("overflow deserializing SystemTime")
	}
	return t, nil
}

func fromSeq(elems []value) (uint64, uint32, error) {
	if len(elems) == 0 {
		return 0, 0, invalidLength(0, expectStruct)
	}
	secs, err := elems[0].asSecs()
	if err != nil {
		return 0, 0, err
	}
	if len(elems) == 1 {
		return 0, 0, invalidLength(1, expectStruct)
	}
	nanos, err := elems[1].asNanos()
	if err != nil {
		return 0, 0, err
	}
	if len(elems) > 2 {
		return 0, 0, invalidLength(len(elems), "fewer elements in array")
	}
	return secs, nanos, nil
}

func fromMap(entries []entry) (uint64, uint32, error) {
	var (
		secs, nanos       uint64
		hasSecs, hasNanos bool
	)
	for _, e := range entries {
		name, err := e.key.fieldName()
		if err != nil {
			return 0, 0, err
		}
		switch name {
		case fieldSecs:
			if hasSecs {
				return 0, 0, duplicateField(fieldSecs)
			}
			if secs, err = e.val.asSecs(); err != nil {
				return 0, 0, err
			}
			hasSecs = true
		case fieldNanos:
			if hasNanos {
				return 0, 0, duplicateField(fieldNanos)
			}
			n, err := e.val.asNanos()
			if err != nil {
				return 0, 0, err
			}
			nanos, hasNanos = uint64(n), true
		}
	}
	if !hasSecs {
		return 0, 0, missingField(fieldSecs)
	}
	if !hasNanos {
		return 0, 0, missingField(fieldNanos)
	}
	return secs, uint32(nanos), nil
}
