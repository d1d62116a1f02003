package bench

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/BYTE-6D65/webtime/pkg/duration"
	"github.com/BYTE-6D65/webtime/pkg/telemetry"
)

func smallConfig(m Method, s Scenario) Config {
	cfg := DefaultConfig()
	cfg.Method = m
	cfg.Scenario = s
	cfg.Conversions = 20_000
	cfg.BatchSize = 256
	return cfg
}

func TestRunScenario_ExactMethodsNeverMismatch(t *testing.T) {
	for _, m := range []Method{MethodPortable, MethodIntrinsic} {
		for _, s := range Scenarios() {
			metrics, err := RunScenario(context.Background(), smallConfig(m, s))
			if err != nil {
				t.Fatalf("%s/%s: %v", m, s, err)
			}
			if metrics.Mismatches != 0 {
				t.Errorf("%s/%s: expected no mismatches, got %d (max error %v)", m, s, metrics.Mismatches, metrics.MaxError)
			}
			if metrics.Conversions != 20_000 {
				t.Errorf("%s/%s: expected 20000 conversions, got %d", m, s, metrics.Conversions)
			}
		}
	}
}

func TestRunScenario_TruncationIsInexact(t *testing.T) {
	metrics, err := RunScenario(context.Background(), smallConfig(MethodTruncate, ScenarioSession))
	if err != nil {
		t.Fatal(err)
	}

	t.Logf("truncate: %d mismatches, max error %v", metrics.Mismatches, metrics.MaxError)
	if metrics.Mismatches == 0 {
		t.Error("Truncating the fraction should disagree with exact rounding")
	}
	if metrics.MaxError > time.Microsecond {
		t.Errorf("Truncation error should stay within a nanosecond or so, got %v", metrics.MaxError)
	}
}

func TestRunScenario_LatencyOrdering(t *testing.T) {
	metrics, err := RunScenario(context.Background(), smallConfig(MethodPortable, ScenarioEpoch))
	if err != nil {
		t.Fatal(err)
	}

	if metrics.LatencyMin > metrics.LatencyMedian || metrics.LatencyMedian > metrics.LatencyP99 || metrics.LatencyP99 > metrics.LatencyMax {
		t.Errorf("Percentiles out of order: min=%v median=%v p99=%v max=%v",
			metrics.LatencyMin, metrics.LatencyMedian, metrics.LatencyP99, metrics.LatencyMax)
	}
	if metrics.Duration <= 0 {
		t.Errorf("Expected positive measured duration, got %v", metrics.Duration)
	}
}

func TestRunScenario_Progress(t *testing.T) {
	var calls, lastDone, lastTotal int
	cb := func(done, total int, rate float64, elapsed time.Duration) {
		calls++
		if done < lastDone {
			t.Errorf("Progress went backwards: %d after %d", done, lastDone)
		}
		lastDone, lastTotal = done, total
	}

	if _, err := RunScenarioWithProgress(context.Background(), smallConfig(MethodIntrinsic, ScenarioSession), cb); err != nil {
		t.Fatal(err)
	}
	if calls == 0 {
		t.Fatal("Progress callback never called")
	}
	if lastDone != lastTotal || lastTotal != 20_000 {
		t.Errorf("Final progress should be 20000/20000, got %d/%d", lastDone, lastTotal)
	}
}

func TestRunScenario_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunScenario(ctx, smallConfig(MethodPortable, ScenarioFull))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRunScenario_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no conversions", Config{Method: MethodPortable, Scenario: ScenarioSession}},
		{"bad method", Config{Method: "magic", Scenario: ScenarioSession, Conversions: 1}},
		{"bad scenario", Config{Method: MethodPortable, Scenario: "century", Conversions: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := RunScenario(context.Background(), tt.cfg); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestRunScenario_Metrics(t *testing.T) {
	m := telemetry.InitMetrics(prometheus.NewRegistry())
	cfg := smallConfig(MethodPortable, ScenarioSubMilli)
	cfg.Metrics = m

	if _, err := RunScenario(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}

	counted := testutil.ToFloat64(m.Conversions.WithLabelValues("portable", "submilli")) +
		testutil.ToFloat64(m.Conversions.WithLabelValues("portable", "zero"))
	if counted != 20_000 {
		t.Errorf("Expected 20000 counted conversions, got %v", counted)
	}
	if n := testutil.CollectAndCount(m.ConversionDuration); n != 1 {
		t.Errorf("Expected 1 latency series, got %d", n)
	}
}

func TestMethod_Convert(t *testing.T) {
	tests := []struct {
		ms   float64
		want duration.Duration
	}{
		{0, duration.Zero},
		{0.5, duration.New(0, 500_000)},
		{1500.25, duration.New(1, 500_250_000)},
		{86_400_000, duration.FromSecs(86_400)},
	}

	for _, m := range Methods() {
		for _, tt := range tests {
			if got := m.Convert(tt.ms); got != tt.want {
				t.Errorf("%s.Convert(%v) = %v, want %v", m, tt.ms, got, tt.want)
			}
		}
	}
}

func TestParse(t *testing.T) {
	if m, err := ParseMethod("Intrinsic"); err != nil || m != MethodIntrinsic {
		t.Errorf("ParseMethod(Intrinsic) = %q, %v", m, err)
	}
	if _, err := ParseMethod("fastest"); err == nil {
		t.Error("Expected error for unknown method")
	}
	if s, err := ParseScenario("EPOCH"); err != nil || s != ScenarioEpoch {
		t.Errorf("ParseScenario(EPOCH) = %q, %v", s, err)
	}
	if _, err := ParseScenario(""); err == nil {
		t.Error("Expected error for empty scenario")
	}
}

func TestFormatMetrics(t *testing.T) {
	metrics, err := RunScenario(context.Background(), smallConfig(MethodRound, ScenarioSession))
	if err != nil {
		t.Fatal(err)
	}

	out := FormatMetrics(metrics)
	for _, want := range []string{"round method", "session scenario", "Conversions: 20000", "Mismatches:", "P99:", "Collections:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Formatted metrics missing %q:\n%s", want, out)
		}
	}
}
