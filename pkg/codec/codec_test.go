package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BYTE-6D65/webtime/pkg/clock"
	"github.com/BYTE-6D65/webtime/pkg/duration"
	"github.com/BYTE-6D65/webtime/pkg/telemetry"
)

var formats = []Format{JSON, CBOR, YAML}

var equalTime = cmp.Comparer(func(a, b clock.SystemTime) bool { return a.Equal(b) })

// cborMap encodes a definite length map with entries in the given order.
func cborMap(kv ...any) []byte {
	out := []byte{0xa0 | byte(len(kv)/2)}
	for _, item := range kv {
		b, err := cbor.Marshal(item)
		if err != nil {
			panic(err)
		}
		out = append(out, b...)
	}
	return out
}

func cborSeq(items ...any) []byte {
	if items == nil {
		items = []any{}
	}
	b, err := cbor.Marshal(items)
	if err != nil {
		panic(err)
	}
	return b
}

func TestCodec_RoundTrip(t *testing.T) {
	times := []clock.SystemTime{
		clock.UnixEpoch,
		clock.UnixEpoch.Add(duration.New(1_700_000_000, 123_456_789)),
		clock.UnixEpoch.Add(duration.Max),
		clock.SystemNow(),
	}

	for _, f := range formats {
		for _, positional := range []bool{false, true} {
			var opts []Option
			if positional {
				opts = append(opts, WithPositional())
			}
			c := New(f, opts...)

			for _, want := range times {
				data, err := c.Marshal(want)
				if err != nil {
					t.Fatalf("%s: marshal %v: %v", f, want, err)
				}
				got, err := c.Unmarshal(data)
				if err != nil {
					t.Fatalf("%s positional=%t: unmarshal %q: %v", f, positional, data, err)
				}
				if diff := cmp.Diff(want, got, equalTime); diff != "" {
					t.Errorf("%s positional=%t: round trip mismatch (-want +got):\n%s", f, positional, diff)
				}
			}
		}
	}
}

func TestCodec_Encoding(t *testing.T) {
	st := clock.UnixEpoch.Add(duration.New(1, 2))

	cases := []struct {
		format     Format
		positional bool
		want       string
	}{
		{JSON, false, `{"secs_since_epoch":1,"nanos_since_epoch":2}`},
		{JSON, true, `[1,2]`},
		{YAML, false, "secs_since_epoch: 1\nnanos_since_epoch: 2\n"},
		{YAML, true, "- 1\n- 2\n"},
		{CBOR, false, string(cborMap("secs_since_epoch", 1, "nanos_since_epoch", 2))},
		{CBOR, true, string(cborSeq(1, 2))},
	}

	for _, tc := range cases {
		c := New(tc.format)
		if tc.positional {
			c = New(tc.format, WithPositional())
		}
		data, err := c.Marshal(st)
		if err != nil {
			t.Fatalf("%s: %v", tc.format, err)
		}
		if string(data) != tc.want {
			t.Errorf("%s positional=%t: expected %q, got %q", tc.format, tc.positional, tc.want, data)
		}
	}
}

func TestCodec_DecodeAccepted(t *testing.T) {
	epoch := clock.UnixEpoch
	twoAndAHalf := clock.UnixEpoch.Add(duration.New(2, 500_000_000))

	cases := []struct {
		name  string
		input map[Format]string
		want  clock.SystemTime
	}{
		{
			name: "sequence",
			input: map[Format]string{
				JSON: `[0, 0]`,
				YAML: `[0, 0]`,
				CBOR: string(cborSeq(0, 0)),
			},
			want: epoch,
		},
		{
			name: "map",
			input: map[Format]string{
				JSON: `{"secs_since_epoch": 0, "nanos_since_epoch": 0}`,
				YAML: "secs_since_epoch: 0\nnanos_since_epoch: 0\n",
				CBOR: string(cborMap("secs_since_epoch", 0, "nanos_since_epoch", 0)),
			},
			want: epoch,
		},
		{
			name: "byte string keys",
			input: map[Format]string{
				YAML: "!!binary c2Vjc19zaW5jZV9lcG9jaA==: 0\n!!binary bmFub3Nfc2luY2VfZXBvY2g=: 0\n",
				CBOR: string(cborMap(cbor.ByteString("secs_since_epoch"), 0, cbor.ByteString("nanos_since_epoch"), 0)),
			},
			want: epoch,
		},
		{
			name: "reversed fields",
			input: map[Format]string{
				JSON: `{"nanos_since_epoch": 500000000, "secs_since_epoch": 2}`,
				YAML: "{nanos_since_epoch: 500000000, secs_since_epoch: 2}",
				CBOR: string(cborMap("nanos_since_epoch", 500_000_000, "secs_since_epoch", 2)),
			},
			want: twoAndAHalf,
		},
		{
			name: "nanos carry into seconds",
			input: map[Format]string{
				JSON: `[1, 1500000000]`,
				YAML: `[1, 1500000000]`,
				CBOR: string(cborSeq(1, 1_500_000_000)),
			},
			want: twoAndAHalf,
		},
		{
			name: "indefinite length map",
			input: map[Format]string{
				CBOR: string(append(append([]byte{0xbf}, cborMap("secs_since_epoch", 2, "nanos_since_epoch", 500_000_000)[1:]...), 0xff)),
			},
			want: twoAndAHalf,
		},
	}

	for _, tc := range cases {
		for f, input := range tc.input {
			got, err := New(f).Unmarshal([]byte(input))
			if err != nil {
				t.Errorf("%s/%s: %v", tc.name, f, err)
				continue
			}
			if diff := cmp.Diff(tc.want, got, equalTime); diff != "" {
				t.Errorf("%s/%s: mismatch (-want +got):\n%s", tc.name, f, diff)
			}
		}
	}
}

func TestCodec_DecodeRejected(t *testing.T) {
	const (
		maxU64 = uint64(math.MaxUint64)
		maxU32 = uint32(math.MaxUint32)
	)

	cases := []struct {
		msg   string
		kind  error
		input map[Format]string
	}{
		{
			msg:  "invalid length 0, expected struct SystemTime",
			kind: ErrInvalidLength,
			input: map[Format]string{
				JSON: `[]`, YAML: `[]`, CBOR: string(cborSeq()),
			},
		},
		{
			msg:  "invalid type: unit value, expected u64",
			kind: ErrInvalidType,
			input: map[Format]string{
				JSON: `[null]`, YAML: `[null]`, CBOR: string(cborSeq(nil)),
			},
		},
		{
			msg:  "invalid length 1, expected struct SystemTime",
			kind: ErrInvalidLength,
			input: map[Format]string{
				JSON: `[0]`, YAML: `[0]`, CBOR: string(cborSeq(0)),
			},
		},
		{
			msg:  "invalid type: unit value, expected u32",
			kind: ErrInvalidType,
			input: map[Format]string{
				JSON: `[0, null]`, YAML: `[0, ~]`, CBOR: string(cborSeq(0, nil)),
			},
		},
		{
			msg:  "overflow deserializing SystemTime epoch offset",
			kind: ErrOverflow,
			input: map[Format]string{
				JSON: `[18446744073709551615, 4294967295]`,
				YAML: `[18446744073709551615, 4294967295]`,
				CBOR: string(cborSeq(maxU64, maxU32)),
			},
		},
		{
			msg:  "invalid length 3, expected fewer elements in array",
			kind: ErrInvalidLength,
			input: map[Format]string{
				JSON: `[0, 0, 0]`, YAML: `[0, 0, 0]`, CBOR: string(cborSeq(0, 0, 0)),
			},
		},
		{
			msg:  "invalid value: integer `4294967296`, expected u32",
			kind: ErrInvalidValue,
			input: map[Format]string{
				JSON: `[0, 4294967296]`, YAML: `[0, 4294967296]`, CBOR: string(cborSeq(0, uint64(1)<<32)),
			},
		},
		{
			msg:  "invalid value: integer `-1`, expected u64",
			kind: ErrInvalidValue,
			input: map[Format]string{
				JSON: `[-1, 0]`, YAML: `[-1, 0]`, CBOR: string(cborSeq(-1, 0)),
			},
		},
		{
			msg:  `invalid type: string "1", expected u64`,
			kind: ErrInvalidType,
			input: map[Format]string{
				JSON: `["1", 0]`, YAML: `["1", 0]`, CBOR: string(cborSeq("1", 0)),
			},
		},
		{
			msg:  "invalid type: floating point `1.5`, expected u64",
			kind: ErrInvalidType,
			input: map[Format]string{
				JSON: `[1.5, 0]`, YAML: `[1.5, 0]`, CBOR: string(cborSeq(1.5, 0)),
			},
		},
		{
			msg:  "invalid type: boolean `true`, expected u64",
			kind: ErrInvalidType,
			input: map[Format]string{
				JSON: `[true, 0]`, YAML: `[true, 0]`, CBOR: string(cborSeq(true, 0)),
			},
		},
		{
			msg:  `invalid type: string "now", expected struct SystemTime`,
			kind: ErrInvalidType,
			input: map[Format]string{
				JSON: `"now"`, YAML: `now`, CBOR: string(cborMarshal("now")),
			},
		},
		{
			msg:  "invalid type: unit value, expected `secs_since_epoch` or `nanos_since_epoch`",
			kind: ErrInvalidType,
			input: map[Format]string{
				YAML: `{~: 0}`, CBOR: string(cborMap(nil, 0)),
			},
		},
		{
			msg:  "unknown field `test`, expected `secs_since_epoch` or `nanos_since_epoch`",
			kind: ErrUnknownField,
			input: map[Format]string{
				JSON: `{"test": 0}`, YAML: `{test: 0}`, CBOR: string(cborMap("test", 0)),
			},
		},
		{
			msg:  "unknown field `test`, expected `secs_since_epoch` or `nanos_since_epoch`",
			kind: ErrUnknownField,
			input: map[Format]string{
				YAML: "!!binary dGVzdA==: 0\n", CBOR: string(cborMap(cbor.ByteString("test"), 0)),
			},
		},
		{
			msg:  "duplicate field `secs_since_epoch`",
			kind: ErrDuplicateField,
			input: map[Format]string{
				JSON: `{"secs_since_epoch": 0, "secs_since_epoch": 0}`,
				CBOR: string(cborMap("secs_since_epoch", 0, "secs_since_epoch", 0)),
			},
		},
		{
			msg:  "duplicate field `nanos_since_epoch`",
			kind: ErrDuplicateField,
			input: map[Format]string{
				JSON: `{"nanos_since_epoch": 0, "nanos_since_epoch": 0}`,
				CBOR: string(cborMap("nanos_since_epoch", 0, "nanos_since_epoch", 0)),
			},
		},
		{
			msg:  "missing field `secs_since_epoch`",
			kind: ErrMissingField,
			input: map[Format]string{
				JSON: `{"nanos_since_epoch": 0}`, YAML: `{nanos_since_epoch: 0}`, CBOR: string(cborMap("nanos_since_epoch", 0)),
			},
		},
		{
			msg:  "missing field `nanos_since_epoch`",
			kind: ErrMissingField,
			input: map[Format]string{
				JSON: `{"secs_since_epoch": 0}`, YAML: `{secs_since_epoch: 0}`, CBOR: string(cborMap("secs_since_epoch", 0)),
			},
		},
		{
			msg:  "invalid type: unit value, expected u64",
			kind: ErrInvalidType,
			input: map[Format]string{
				JSON: `{"secs_since_epoch": null}`, YAML: `{secs_since_epoch: null}`, CBOR: string(cborMap("secs_since_epoch", nil)),
			},
		},
		{
			msg:  "invalid type: unit value, expected u32",
			kind: ErrInvalidType,
			input: map[Format]string{
				JSON: `{"nanos_since_epoch": null}`, YAML: `{nanos_since_epoch: null}`, CBOR: string(cborMap("nanos_since_epoch", nil)),
			},
		},
		{
			msg:  "overflow deserializing SystemTime epoch offset",
			kind: ErrOverflow,
			input: map[Format]string{
				JSON: `{"secs_since_epoch": 18446744073709551615, "nanos_since_epoch": 4294967295}`,
				YAML: `{secs_since_epoch: 18446744073709551615, nanos_since_epoch: 4294967295}`,
				CBOR: string(cborMap("secs_since_epoch", maxU64, "nanos_since_epoch", maxU32)),
			},
		},
		{
			msg:   "yaml: recursive alias *a",
			kind:  ErrSyntax,
			input: map[Format]string{YAML: `&a [*a]`},
		},
		{
			msg:   "yaml: alias expansion exceeds 10000 nodes",
			kind:  ErrSyntax,
			input: map[Format]string{YAML: aliasFanout(7, 9)},
		},
	}

	for _, tc := range cases {
		for f, input := range tc.input {
			_, err := New(f).Unmarshal([]byte(input))
			if err == nil {
				t.Errorf("%s %q: expected %q, got no error", f, input, tc.msg)
				continue
			}

			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("%s %q: expected *DecodeError, got %T: %v", f, input, err, err)
				continue
			}
			if de.Error() != tc.msg {
				t.Errorf("%s %q: expected %q, got %q", f, input, tc.msg, de.Error())
			}
			if !errors.Is(err, tc.kind) {
				t.Errorf("%s %q: expected kind %v, got %v", f, input, tc.kind, de.Kind)
			}
			if want := "decode " + f.String() + ": " + tc.msg; err.Error() != want {
				t.Errorf("%s: expected wrapped message %q, got %q", f, want, err.Error())
			}
		}
	}
}

// aliasFanout returns a flow sequence whose last anchor expands into
// fanout^levels copies of the first.
func aliasFanout(levels, fanout int) string {
	var b strings.Builder
	b.WriteString("[&a0 [0, 0]")
	for i := 1; i <= levels; i++ {
		fmt.Fprintf(&b, ", &a%d [", i)
		for j := 0; j < fanout; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "*a%d", i-1)
		}
		b.WriteString("]")
	}
	b.WriteString("]")
	return b.String()
}

func cborMarshal(v any) []byte {
	b, err := cbor.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func TestCodec_DecodeErrorField(t *testing.T) {
	_, err := New(JSON).Unmarshal([]byte(`{"secs_since_epoch": 0, "nanos_since_epoch": "x"}`))
	var de *DecodeError
	if !errors.As(err, &de) || de.Field != "nanos_since_epoch" {
		t.Errorf("Expected error on nanos_since_epoch, got %v", err)
	}
}

func TestCodec_Syntax(t *testing.T) {
	cases := map[Format][]string{
		JSON: {``, `{"secs_since_epoch":`, `[0, 0] [0, 0]`, `{0: 1}`},
		YAML: {`[0, 0`, "a: b: c"},
		CBOR: {``, string(cborSeq(0, 0)[:2]), string(append(cborSeq(0, 0), 0x00))},
	}

	for f, inputs := range cases {
		for _, input := range inputs {
			_, err := New(f).Unmarshal([]byte(input))
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("%s %q: expected syntax error, got %v", f, input, err)
			}
		}
	}
}

func TestCodec_Metrics(t *testing.T) {
	m := telemetry.InitMetrics(prometheus.NewRegistry())
	c := New(CBOR, WithMetrics(m))

	if _, err := c.Unmarshal(cborSeq(0, 0)); err != nil {
		t.Fatal(err)
	}
	c.Unmarshal(cborMap("secs_since_epoch", 0, "secs_since_epoch", 0))
	c.Unmarshal(cborMap("secs_since_epoch", 0, "secs_since_epoch", 0))

	if got := testutil.ToFloat64(m.Decodes.WithLabelValues("cbor", "ok")); got != 1 {
		t.Errorf("Expected 1 ok decode, got %v", got)
	}
	if got := testutil.ToFloat64(m.Decodes.WithLabelValues("cbor", "duplicate_field")); got != 2 {
		t.Errorf("Expected 2 duplicate_field decodes, got %v", got)
	}
}

type shortWriter struct{}

var errShortWrite = errors.New("failed to write whole buffer")

func (shortWriter) Write(p []byte) (int, error) { return 0, errShortWrite }

func TestCodec_EncodeDecodeStream(t *testing.T) {
	st := clock.UnixEpoch.Add(duration.New(1_000_000, 0))

	var buf bytes.Buffer
	if err := New(YAML).Encode(&buf, st); err != nil {
		t.Fatal(err)
	}
	got, err := New(YAML).Decode(&buf)
	if err != nil || !got.Equal(st) {
		t.Errorf("Expected %v, got (%v, %v)", st, got, err)
	}

	err = New(JSON).Encode(shortWriter{}, clock.UnixEpoch)
	if !errors.Is(err, errShortWrite) {
		t.Errorf("Expected write error, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"json": JSON, "CBOR": CBOR, "yml": YAML, " yaml ": YAML} {
		got, err := ParseFormat(name)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = (%s, %v), expected %s", name, got, err, want)
		}
	}
	if _, err := ParseFormat("toml"); err == nil || !strings.Contains(err.Error(), "toml") {
		t.Errorf("Expected error naming the format, got %v", err)
	}
}
