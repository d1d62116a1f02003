package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BYTE-6D65/webtime/pkg/host"
)

// newTestApp returns an app reading from a synthetic host whose timer is at
// 1234.5ms and whose wall clock is at 2023-11-14T22:13:21.234Z.
func newTestApp(stdin string) (*app, *host.Synthetic, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer

	h := host.NewSynthetic()
	h.SetOrigin(1_700_000_000_000)
	h.Set(1234.5)
	h.SetWall(1_700_000_001_234)

	a := newApp(strings.NewReader(stdin), &out, &errOut)
	a.host = h
	return a, h, &out, &errOut
}

func run(a *app, args ...string) error {
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestNow(t *testing.T) {
	a, _, out, _ := newTestApp("")

	if err := run(a, "now"); err != nil {
		t.Fatalf("now failed: %v", err)
	}

	for _, want := range []string{
		"Instant:     Instant(1.2345s)",
		"Millis:      1234.5\n",
		"SystemTime:  2023-11-14T22:13:21.234Z",
		`{"secs_since_epoch":1700000001,"nanos_since_epoch":234000000}`,
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}
}

func TestNow_Synchronized(t *testing.T) {
	a, _, out, _ := newTestApp("")

	if err := run(a, "now", "--synchronized"); err != nil {
		t.Fatalf("now failed: %v", err)
	}

	// origin 1_700_000_000_000 + 1234.5
	if !strings.Contains(out.String(), "Instant:     Instant(472222h13m21.2345s)") {
		t.Errorf("Expected an Instant measured from the epoch:\n%s", out.String())
	}
	if !a.source.Synchronized() {
		t.Error("Source should be synchronized")
	}
}

func TestNow_Replay(t *testing.T) {
	a, _, out, _ := newTestApp("")

	if err := run(a, "now", "--replay", "1000, 0.5,0.25", "--replay-speed", "0"); err != nil {
		t.Fatalf("now failed: %v", err)
	}

	for _, want := range []string{"Instant:     Instant(1.00075s)", "Millis:      1000.75\n"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q:\n%s", want, out.String())
		}
	}
	if a.replayer == nil || a.replayer.HasNext() {
		t.Error("Expected the replay to have run to the end")
	}
}

func TestNow_ReplayRejects(t *testing.T) {
	for _, args := range [][]string{
		{"now", "--replay", "1000,soon"},
		{"now", "--replay", "1000,-1"},
		{"now", "--replay", "0", "--replay-speed", "-2"},
	} {
		a, _, _, _ := newTestApp("")
		if err := run(a, args...); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestNow_Formats(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"now", "--positional"}, "[1700000001,234000000]"},
		{[]string{"now", "-f", "yaml"}, "secs_since_epoch: 1700000001"},
		{[]string{"now", "-f", "cbor", "--positional"}, "821a6553f1011a0df28e80"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			a, _, out, _ := newTestApp("")
			if err := run(a, tt.args...); err != nil {
				t.Fatalf("now failed: %v", err)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("Output missing %q:\n%s", tt.want, out.String())
			}
		})
	}
}

func TestNow_NoPerformance(t *testing.T) {
	a, h, _, _ := newTestApp("")
	h.SetPerformanceAvailable(false)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected a panic without a Performance object")
		}
	}()
	_ = run(a, "now")
}

func TestConvert(t *testing.T) {
	a, _, out, _ := newTestApp("")

	if err := run(a, "convert", "0.5", "1500.25", "86400000"); err != nil {
		t.Fatalf("convert failed: %v", err)
	}

	expected := "0.5 ms = 500µs (secs=0 nanos=500000)\n" +
		"1500.25 ms = 1.50025s (secs=1 nanos=500250000)\n" +
		"86400000 ms = 24h0m0s (secs=86400 nanos=0)\n"
	if out.String() != expected {
		t.Errorf("Expected:\n%s\nGot:\n%s", expected, out.String())
	}
}

func TestConvert_Rejects(t *testing.T) {
	for _, arg := range []string{"-1", "NaN", "1e300", "soon"} {
		a, _, _, _ := newTestApp("")
		if err := run(a, "convert", "--", arg); err == nil {
			t.Errorf("convert %s: expected an error", arg)
		}
	}
}

func TestDecode(t *testing.T) {
	a, _, out, _ := newTestApp(`{"nanos_since_epoch": 5, "secs_since_epoch": 1}`)

	if err := run(a, "decode"); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !strings.Contains(out.String(), "SystemTime:  1970-01-01T00:00:01.000000005Z") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}
	if got := testutil.ToFloat64(a.metrics.Decodes.WithLabelValues("json", "ok")); got != 1 {
		t.Errorf("Expected 1 successful decode, got %v", got)
	}
}

func TestDecode_HexCBOR(t *testing.T) {
	a, _, out, _ := newTestApp("821a6553f1011a0df28e80\n")

	if err := run(a, "decode", "--format", "cbor", "--hex"); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !strings.Contains(out.String(), "2023-11-14T22:13:21.234Z") {
		t.Errorf("Unexpected output:\n%s", out.String())
	}
}

func TestDecode_Error(t *testing.T) {
	a, _, _, errOut := newTestApp(`{"secs_since_epoch": 1}`)

	err := run(a, "decode")
	if err == nil {
		t.Fatal("Expected an error for a missing field")
	}
	if !strings.Contains(errOut.String(), "missing field `nanos_since_epoch`") {
		t.Errorf("Expected the decode error on stderr, got:\n%s", errOut.String())
	}
}

func TestBench(t *testing.T) {
	a, _, out, _ := newTestApp("")

	if err := run(a, "bench", "-m", "portable,truncate", "-n", "2048", "-s", "epoch"); err != nil {
		t.Fatalf("bench failed: %v", err)
	}

	for _, want := range []string{"portable method, epoch scenario", "truncate method, epoch scenario", "Conversions: 2048"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Output missing %q", want)
		}
	}
}

func TestBench_UnknownMethod(t *testing.T) {
	a, _, _, _ := newTestApp("")
	if err := run(a, "bench", "-m", "guess", "-n", "10"); err == nil {
		t.Error("Expected an error for an unknown method")
	}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	generateVersionOutput(&out)

	for _, key := range []string{"webtime v" + version, "Platform:", "Go Version:", "Default Strategy:"} {
		if !strings.Contains(out.String(), key) {
			t.Errorf("Version output missing %q:\n%s", key, out.String())
		}
	}
}

func TestInvalidFlags(t *testing.T) {
	tests := [][]string{
		{"version", "--log-level", "chatty"},
		{"version", "--strategy", "abacus"},
	}

	for _, args := range tests {
		a, _, _, _ := newTestApp("")
		if err := run(a, args...); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}
