package codec

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/BYTE-6D65/webtime/pkg/clock"
)

// Timestamp embeds a SystemTime in user structs. It encodes as a named
// record in JSON, CBOR and YAML, and decodes from either record shape.
type Timestamp struct {
	clock.SystemTime
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return marshalJSON(recordOf(t.SystemTime), false)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	return t.decode(data, parseJSON)
}

// MarshalCBOR implements cbor.Marshaler.
func (t Timestamp) MarshalCBOR() ([]byte, error) {
	return marshalCBOR(recordOf(t.SystemTime), false)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (t *Timestamp) UnmarshalCBOR(data []byte) error {
	return t.decode(data, parseCBOR)
}

// MarshalYAML implements yaml.Marshaler.
func (t Timestamp) MarshalYAML() (interface{}, error) {
	return recordOf(t.SystemTime), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	v, err := readYAML(node)
	if err != nil {
		return errors.WithMessage(err, "decode yaml")
	}
	st, err := toSystemTime(v)
	if err != nil {
		return errors.WithMessage(err, "decode yaml")
	}
	t.SystemTime = st
	return nil
}

func (t *Timestamp) decode(data []byte, parse func([]byte) (value, error)) error {
	v, err := parse(data)
	if err != nil {
		return err
	}
	st, err := toSystemTime(v)
	if err != nil {
		return err
	}
	t.SystemTime = st
	return nil
}
