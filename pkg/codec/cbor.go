package codec

import (
	"encoding/binary"
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// tuple is the positional CBOR encoding of a record.
type tuple struct {
	_     struct{} `cbor:",toarray"`
	Secs  uint64
	Nanos uint32
}

func marshalCBOR(r record, positional bool) ([]byte, error) {
	if positional {
		return cbor.Marshal(tuple{Secs: r.Secs, Nanos: r.Nanos})
	}
	return cbor.Marshal(r)
}

// CBOR major types.
const (
	majorUint   = 0
	majorNegInt = 1
	majorBytes  = 2
	majorText   = 3
	majorArray  = 4
	majorMap    = 5
	majorTag    = 6
	majorSimple = 7

	cborBreak = 0xff
)

func parseCBOR(data []byte) (value, error) {
	if err := cbor.Wellformed(data); err != nil {
		return value{}, syntaxError(err)
	}
	return readCBOR(data)
}

// readCBOR converts one well-formed data item. Map entries are walked by hand
// to keep their order, duplicates and key types, all of which a Go map
// would lose.
func readCBOR(data []byte) (value, error) {
	major := data[0] >> 5

	switch major {
	case majorUint:
		var u uint64
		if err := cbor.Unmarshal(data, &u); err != nil {
			return value{}, syntaxError(err)
		}
		return value{kind: kindUint, u: u}, nil

	case majorNegInt:
		var i int64
		if err := cbor.Unmarshal(data, &i); err != nil {
			// below math.MinInt64
			return value{kind: kindOther, s: "negative integer"}, nil
		}
		return value{kind: kindInt, i: i}, nil

	case majorBytes:
		var b []byte
		if err := cbor.Unmarshal(data, &b); err != nil {
			return value{}, syntaxError(err)
		}
		return value{kind: kindBytes, s: string(b)}, nil

	case majorText:
		var s string
		if err := cbor.Unmarshal(data, &s); err != nil {
			return value{}, syntaxError(err)
		}
		return value{kind: kindString, s: s}, nil

	case majorArray:
		var raw []cbor.RawMessage
		if err := cbor.Unmarshal(data, &raw); err != nil {
			return value{}, syntaxError(err)
		}
		v := value{kind: kindSeq}
		for _, item := range raw {
			elem, err := readCBOR(item)
			if err != nil {
				return value{}, err
			}
			v.elems = append(v.elems, elem)
		}
		return v, nil

	case majorMap:
		return readCBORMap(data)

	case majorTag:
		return value{kind: kindOther, s: "tagged value"}, nil

	default:
		switch data[0] {
		case 0xf4, 0xf5:
			return value{kind: kindBool, b: data[0] == 0xf5}, nil
		case 0xf6, 0xf7: // null, undefined
			return value{kind: kindUnit}, nil
		case 0xf9, 0xfa, 0xfb:
			var f float64
			if err := cbor.Unmarshal(data, &f); err != nil {
				return value{}, syntaxError(err)
			}
			return value{kind: kindFloat, f: f}, nil
		default:
			return value{kind: kindOther, s: "simple value"}, nil
		}
	}
}

func readCBORMap(data []byte) (value, error) {
	n, rest, indefinite, err := cborHead(data)
	if err != nil {
		return value{}, syntaxError(err)
	}

	v := value{kind: kindMap}
	for i := uint64(0); indefinite || i < n; i++ {
		if indefinite && len(rest) > 0 && rest[0] == cborBreak {
			break
		}

		var key, val cbor.RawMessage
		if rest, err = cbor.UnmarshalFirst(rest, &key); err != nil {
			return value{}, syntaxError(err)
		}
		if rest, err = cbor.UnmarshalFirst(rest, &val); err != nil {
			return value{}, syntaxError(err)
		}

		k, err := readCBOR(key)
		if err != nil {
			return value{}, err
		}
		e, err := readCBOR(val)
		if err != nil {
			return value{}, err
		}
		v.entries = append(v.entries, entry{key: k, val: e})
	}
	return v, nil
}

// cborHead decodes the argument of a container head and returns the bytes
// following it.
func cborHead(data []byte) (n uint64, rest []byte, indefinite bool, err error) {
	info := data[0] & 0x1f
	data = data[1:]

	switch {
	case info < 24:
		return uint64(info), data, false, nil
	case info == 31:
		return 0, data, true, nil
	case info > 27:
		return 0, nil, false, errors.Errorf("cbor: invalid additional information %d", info)
	}

	size := 1 << (info - 24)
	if len(data) < size {
		return 0, nil, false, errors.New("cbor: unexpected end of data")
	}
	switch size {
	case 1:
		n = uint64(data[0])
	case 2:
		n = uint64(binary.BigEndian.Uint16(data))
	case 4:
		n = uint64(binary.BigEndian.Uint32(data))
	default:
		n = binary.BigEndian.Uint64(data)
	}
	if n > math.MaxInt32 {
		return 0, nil, false, errors.Errorf("cbor: map length %d too large", n)
	}
	return n, data[size:], false, nil
}
