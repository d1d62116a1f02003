// Package codec encodes and decodes SystemTime records.
//
// A record has two fields, secs_since_epoch (u64) and nanos_since_epoch
// (u32), and is written as a map by default or as a two element sequence
// with WithPositional. Decoding accepts either shape in every format, and
// field names given as text or byte strings. Anything else is rejected with
// a *DecodeError.
package codec

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/BYTE-6D65/webtime/pkg/clock"
	"github.com/BYTE-6D65/webtime/pkg/telemetry"
)

// Format is a wire format.
type Format int

const (
	JSON Format = iota
	CBOR
	YAML
)

func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case CBOR:
		return "cbor"
	case YAML:
		return "yaml"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(f))
	}
}

// ParseFormat parses a format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return JSON, errors.Errorf("unknown format %q", name)
	}
}

// record is the named field encoding.
type record struct {
	Secs  uint64 `json:"secs_since_epoch" cbor:"secs_since_epoch" yaml:"secs_since_epoch"`
	Nanos uint32 `json:"nanos_since_epoch" cbor:"nanos_since_epoch" yaml:"nanos_since_epoch"`
}

func recordOf(t clock.SystemTime) record {
	d := t.UnixDuration()
	return record{Secs: d.Secs(), Nanos: d.SubsecNanos()}
}

// Codec reads and writes SystemTime records in one format.
type Codec struct {
	format     Format
	positional bool
	metrics    *telemetry.Metrics
}

// Option configures a Codec.
type Option func(*Codec)

// WithPositional encodes records as [secs, nanos] sequences.
func WithPositional() Option {
	return func(c *Codec) {
		c.positional = true
	}
}

// WithMetrics counts decode outcomes.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Codec) {
		c.metrics = m
	}
}

// New creates a Codec for format.
func New(format Format, opts ...Option) *Codec {
	c := &Codec{format: format}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Format returns the wire format of c.
func (c *Codec) Format() Format {
	return c.format
}

// Marshal encodes t.
func (c *Codec) Marshal(t clock.SystemTime) ([]byte, error) {
	r := recordOf(t)

	var (
		data []byte
		err  error
	)
	switch c.format {
	case JSON:
		data, err = marshalJSON(r, c.positional)
	case CBOR:
		data, err = marshalCBOR(r, c.positional)
	case YAML:
		data, err = marshalYAML(r, c.positional)
	default:
		err = errors.Errorf("unknown format %s", c.format)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", c.format)
	}
	return data, nil
}

// Encode writes the encoding of t to w.
func (c *Codec) Encode(w io.Writer, t clock.SystemTime) error {
	data, err := c.Marshal(t)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrapf(err, "encode %s", c.format)
	}
	return nil
}

// Unmarshal decodes one record from data. Errors wrap a *DecodeError.
func (c *Codec) Unmarshal(data []byte) (clock.SystemTime, error) {
	t, err := c.unmarshal(data)
	if c.metrics != nil {
		result := "ok"
		if err != nil {
			result = label(err)
		}
		c.metrics.Decodes.WithLabelValues(c.format.String(), result).Inc()
	}
	if err != nil {
		return clock.UnixEpoch, errors.WithMessagef(err, "decode %s", c.format)
	}
	return t, nil
}

// Decode reads all of r and decodes it as one record.
func (c *Codec) Decode(r io.Reader) (clock.SystemTime, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return clock.UnixEpoch, errors.Wrapf(err, "decode %s", c.format)
	}
	return c.Unmarshal(data)
}

func (c *Codec) unmarshal(data []byte) (clock.SystemTime, error) {
	var (
		v   value
		err error
	)
	switch c.format {
	case JSON:
		v, err = parseJSON(data)
	case CBOR:
		v, err = parseCBOR(data)
	case YAML:
		v, err = parseYAML(data)
	default:
		return clock.UnixEpoch, errors.Errorf("unknown format %s", c.format)
	}
	if err != nil {
		return clock.UnixEpoch, err
	}
	return toSystemTime(v)
}
