package codec

import (
	"bytes"
	"io"
	"strconv"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/pkg/errors"
)

func marshalJSON(r record, positional bool) ([]byte, error) {
	if positional {
		return json.Marshal([]uint64{r.Secs, uint64(r.Nanos)})
	}
	return json.Marshal(r)
}

// parseJSON reads exactly one JSON value. Duplicate object names are allowed
// here so the record decoder can report them by field.
func parseJSON(data []byte) (value, error) {
	dec := jsontext.NewDecoder(bytes.NewReader(data), jsontext.AllowDuplicateNames(true))

	v, err := readJSON(dec)
	if err != nil {
		return value{}, err
	}
	if _, err := dec.ReadToken(); err != io.EOF {
		if err == nil {
			err = errors.New("trailing characters")
		}
		return value{}, syntaxError(err)
	}
	return v, nil
}

func readJSON(dec *jsontext.Decoder) (value, error) {
	switch dec.PeekKind() {
	case '{':
		if _, err := dec.ReadToken(); err != nil {
			return value{}, syntaxError(err)
		}
		v := value{kind: kindMap}
		for dec.PeekKind() != '}' {
			name, err := dec.ReadToken()
			if err != nil {
				return value{}, syntaxError(err)
			}
			key := value{kind: kindString, s: name.String()}
			val, err := readJSON(dec)
			if err != nil {
				return value{}, err
			}
			v.entries = append(v.entries, entry{key: key, val: val})
		}
		if _, err := dec.ReadToken(); err != nil {
			return value{}, syntaxError(err)
		}
		return v, nil

	case '[':
		if _, err := dec.ReadToken(); err != nil {
			return value{}, syntaxError(err)
		}
		v := value{kind: kindSeq}
		for dec.PeekKind() != ']' {
			elem, err := readJSON(dec)
			if err != nil {
				return value{}, err
			}
			v.elems = append(v.elems, elem)
		}
		if _, err := dec.ReadToken(); err != nil {
			return value{}, syntaxError(err)
		}
		return v, nil

	case '0':
		raw, err := dec.ReadValue()
		if err != nil {
			return value{}, syntaxError(err)
		}
		return jsonNumber(string(raw)), nil

	default:
		tok, err := dec.ReadToken()
		if err != nil {
			return value{}, syntaxError(err)
		}
		switch tok.Kind() {
		case 'n':
			return value{kind: kindUnit}, nil
		case 't', 'f':
			return value{kind: kindBool, b: tok.Bool()}, nil
		default:
			return value{kind: kindString, s: tok.String()}, nil
		}
	}
}

// jsonNumber classifies a JSON number literal. Integers that do not fit 64
// bits are treated as floating point.
func jsonNumber(lit string) value {
	if u, err := strconv.ParseUint(lit, 10, 64); err == nil {
		return value{kind: kindUint, u: u}
	}
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		if i == 0 {
			return value{kind: kindUint}
		}
		return value{kind: kindInt, i: i}
	}
	f, _ := strconv.ParseFloat(lit, 64)
	return value{kind: kindFloat, f: f}
}
