// Package bench measures millisecond-to-duration conversion methods against
// each other and against the exactly rounded result.
package bench

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/BYTE-6D65/webtime/pkg/duration"
	"github.com/BYTE-6D65/webtime/pkg/telemetry"
	"github.com/BYTE-6D65/webtime/pkg/timestamp"
)

// Method is a way of turning float milliseconds into a duration.
type Method string

const (
	MethodPortable  Method = "portable"
	MethodIntrinsic Method = "intrinsic"
	MethodTruncate  Method = "truncate" // whole ms plus truncated fraction
	MethodRound     Method = "round"    // whole ms plus rounded fraction
	MethodSeconds   Method = "seconds"  // float seconds, divided by 1000 first
)

// Methods lists every method in reporting order.
func Methods() []Method {
	return []Method{MethodPortable, MethodIntrinsic, MethodTruncate, MethodRound, MethodSeconds}
}

// ParseMethod parses a method name.
func ParseMethod(name string) (Method, error) {
	for _, m := range Methods() {
		if strings.EqualFold(name, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown method %q", name)
}

// Convert converts ms with m. Inputs must be finite and non-negative.
func (m Method) Convert(ms float64) duration.Duration {
	switch m {
	case MethodPortable:
		return timestamp.Portable.Convert(ms)
	case MethodIntrinsic:
		return timestamp.Intrinsic.Convert(ms)
	case MethodTruncate:
		whole, frac := math.Modf(ms)
		return duration.FromMillis(uint64(whole)).Add(duration.FromNanos(uint64(frac * duration.NanosPerMilli)))
	case MethodRound:
		whole, frac := math.Modf(ms)
		return duration.FromMillis(uint64(whole)).Add(duration.FromNanos(uint64(math.Round(frac * duration.NanosPerMilli))))
	case MethodSeconds:
		d, _ := duration.FromSecondsFloat(ms / duration.MillisPerSec)
		return d
	default:
		panic(fmt.Sprintf("bench: unknown method %q", string(m)))
	}
}

// Scenario picks the range inputs are drawn from.
type Scenario string

const (
	ScenarioSubMilli Scenario = "submilli"
	ScenarioSession  Scenario = "session"
	ScenarioEpoch    Scenario = "epoch"
	ScenarioFull     Scenario = "full"
)

// Scenarios lists every scenario from narrowest to widest.
func Scenarios() []Scenario {
	return []Scenario{ScenarioSubMilli, ScenarioSession, ScenarioEpoch, ScenarioFull}
}

// ParseScenario parses a scenario name.
func ParseScenario(name string) (Scenario, error) {
	for _, s := range Scenarios() {
		if strings.EqualFold(name, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown scenario %q", name)
}

// Max returns the exclusive upper bound of the scenario's inputs in ms.
func (s Scenario) Max() float64 {
	switch s {
	case ScenarioSubMilli:
		return 1
	case ScenarioSession:
		return 86_400_000
	case ScenarioEpoch:
		return 2e12
	default:
		return 1 << 53
	}
}

// Config describes one run.
type Config struct {
	Method      Method
	Scenario    Scenario
	Conversions int
	BatchSize   int
	Seed        uint64

	// Metrics, when set, receives conversion counts and per-conversion
	// latency for every batch.
	Metrics *telemetry.Metrics
}

// DefaultConfig returns a config that finishes in well under a second.
func DefaultConfig() Config {
	return Config{
		Method:      MethodPortable,
		Scenario:    ScenarioSession,
		Conversions: 1_000_000,
		BatchSize:   1024,
		Seed:        0x5eed,
	}
}

// PerformanceMetrics contains the results of one run. Latencies are per
// conversion, averaged over a batch.
type PerformanceMetrics struct {
	Method      Method
	Scenario    Scenario
	Conversions int
	Duration    time.Duration

	LatencyMin    time.Duration
	LatencyMax    time.Duration
	LatencyMean   time.Duration
	LatencyMedian time.Duration
	LatencyP90    time.Duration
	LatencyP95    time.Duration
	LatencyP99    time.Duration
	LatencyStdDev time.Duration
	Jitter        time.Duration

	ConversionsPerSec float64

	// Accuracy against the exactly rounded result
	Mismatches int
	MaxError   time.Duration

	AllocatedMB float64

	GCCount    uint32
	GCPauseAvg time.Duration
	GCPauseMax time.Duration
}

// ProgressCallback is called periodically during a run
type ProgressCallback func(done, total int, currentRate float64, elapsed time.Duration)

// RunScenario executes a run and returns its metrics
func RunScenario(ctx context.Context, cfg Config) (*PerformanceMetrics, error) {
	return RunScenarioWithProgress(ctx, cfg, nil)
}

// RunScenarioWithProgress executes a run with progress callbacks. The
// context is checked between batches.
func RunScenarioWithProgress(ctx context.Context, cfg Config, progressCb ProgressCallback) (*PerformanceMetrics, error) {
	if cfg.Conversions <= 0 {
		return nil, fmt.Errorf("conversions must be positive, got %d", cfg.Conversions)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1024
	}
	if _, err := ParseMethod(string(cfg.Method)); err != nil {
		return nil, err
	}
	if _, err := ParseScenario(string(cfg.Scenario)); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, uint64(len(cfg.Scenario))))
	upper := cfg.Scenario.Max()
	inputs := make([]float64, cfg.BatchSize)
	outputs := make([]duration.Duration, cfg.BatchSize)

	batches := (cfg.Conversions + cfg.BatchSize - 1) / cfg.BatchSize
	latencies := make([]time.Duration, 0, batches)
	var mismatches int
	var maxError time.Duration

	// Force GC before the run
	runtime.GC()

	var gcStatsBefore runtime.MemStats
	runtime.ReadMemStats(&gcStatsBefore)

	var measured time.Duration
	startTime := time.Now()
	lastProgressUpdate := startTime

	for done := 0; done < cfg.Conversions; {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("benchmark interrupted after %d conversions: %w", done, err)
		}

		n := min(cfg.BatchSize, cfg.Conversions-done)
		for i := range n {
			inputs[i] = rng.Float64() * upper
		}

		timer := telemetry.NewTimer()
		for i := range n {
			outputs[i] = cfg.Method.Convert(inputs[i])
		}
		batch := timer.Elapsed()
		measured += batch

		perConversion := batch / time.Duration(n)
		latencies = append(latencies, perConversion)
		if cfg.Metrics != nil {
			cfg.Metrics.ConversionDuration.WithLabelValues(string(cfg.Method)).Observe(perConversion.Seconds())
		}

		for i := range n {
			if cfg.Metrics != nil {
				cfg.Metrics.Conversions.WithLabelValues(string(cfg.Method), timestamp.Classify(inputs[i]).String()).Inc()
			}
			if exact := timestamp.Portable.Convert(inputs[i]); outputs[i] != exact {
				mismatches++
				maxError = max(maxError, absError(outputs[i], exact))
			}
		}
		done += n

		// Send progress update every 50ms
		if progressCb != nil && time.Since(lastProgressUpdate) >= 50*time.Millisecond {
			elapsed := time.Since(startTime)
			progressCb(done, cfg.Conversions, float64(done)/elapsed.Seconds(), elapsed)
			lastProgressUpdate = time.Now()
		}
	}

	// Final progress update
	if progressCb != nil {
		elapsed := time.Since(startTime)
		progressCb(cfg.Conversions, cfg.Conversions, float64(cfg.Conversions)/elapsed.Seconds(), elapsed)
	}

	var gcStatsAfter runtime.MemStats
	runtime.ReadMemStats(&gcStatsAfter)

	m := calculateMetrics(cfg, latencies, measured, &gcStatsBefore, &gcStatsAfter)
	m.Mismatches = mismatches
	m.MaxError = maxError
	return m, nil
}

// absError returns |a-b|, saturating at the largest time.Duration.
func absError(a, b duration.Duration) time.Duration {
	var diff duration.Duration
	if a.Less(b) {
		diff = b.Sub(a)
	} else {
		diff = a.Sub(b)
	}
	std, ok := diff.Std()
	if !ok {
		return time.Duration(math.MaxInt64)
	}
	return std
}

func calculateMetrics(cfg Config, latencies []time.Duration, measured time.Duration, before, after *runtime.MemStats) *PerformanceMetrics {
	// Sort for percentiles
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var total time.Duration
	for _, lat := range sorted {
		total += lat
	}
	mean := total / time.Duration(len(sorted))

	var sumSquaredDiff float64
	for _, lat := range sorted {
		diff := float64(lat - mean)
		sumSquaredDiff += diff * diff
	}
	stdDev := time.Duration(math.Sqrt(sumSquaredDiff / float64(len(sorted))))

	var jitter time.Duration
	if len(latencies) > 1 {
		var totalJitter time.Duration
		for i := 1; i < len(latencies); i++ {
			diff := latencies[i] - latencies[i-1]
			if diff < 0 {
				diff = -diff
			}
			totalJitter += diff
		}
		jitter = totalJitter / time.Duration(len(latencies)-1)
	}

	gcCount := after.NumGC - before.NumGC
	var gcPauseTotal, gcPauseMax uint64
	for i := before.NumGC; i < after.NumGC; i++ {
		pause := after.PauseNs[i%256]
		gcPauseTotal += pause
		gcPauseMax = max(gcPauseMax, pause)
	}
	var gcPauseAvg time.Duration
	if gcCount > 0 {
		gcPauseAvg = time.Duration(gcPauseTotal / uint64(gcCount))
	}

	var rate float64
	if measured > 0 {
		rate = float64(cfg.Conversions) / measured.Seconds()
	}

	return &PerformanceMetrics{
		Method:            cfg.Method,
		Scenario:          cfg.Scenario,
		Conversions:       cfg.Conversions,
		Duration:          measured,
		LatencyMin:        sorted[0],
		LatencyMax:        sorted[len(sorted)-1],
		LatencyMean:       mean,
		LatencyMedian:     sorted[len(sorted)*50/100],
		LatencyP90:        sorted[len(sorted)*90/100],
		LatencyP95:        sorted[len(sorted)*95/100],
		LatencyP99:        sorted[len(sorted)*99/100],
		LatencyStdDev:     stdDev,
		Jitter:            jitter,
		ConversionsPerSec: rate,
		AllocatedMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
		GCCount:           gcCount,
		GCPauseAvg:        gcPauseAvg,
		GCPauseMax:        time.Duration(gcPauseMax),
	}
}

// FormatMetrics returns a human-readable string of metrics
func FormatMetrics(m *PerformanceMetrics) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Conversion benchmark - %s method, %s scenario\n\n", m.Method, m.Scenario))
	sb.WriteString(fmt.Sprintf("Conversions: %d\n", m.Conversions))
	sb.WriteString(fmt.Sprintf("Duration:    %v\n\n", m.Duration.Round(time.Microsecond)))

	sb.WriteString("Latency per conversion:\n")
	sb.WriteString(fmt.Sprintf("  Min:      %v\n", m.LatencyMin))
	sb.WriteString(fmt.Sprintf("  Max:      %v\n", m.LatencyMax))
	sb.WriteString(fmt.Sprintf("  Mean:     %v\n", m.LatencyMean))
	sb.WriteString(fmt.Sprintf("  Median:   %v\n", m.LatencyMedian))
	sb.WriteString(fmt.Sprintf("  P90:      %v\n", m.LatencyP90))
	sb.WriteString(fmt.Sprintf("  P95:      %v\n", m.LatencyP95))
	sb.WriteString(fmt.Sprintf("  P99:      %v\n", m.LatencyP99))
	sb.WriteString(fmt.Sprintf("  StdDev:   %v\n", m.LatencyStdDev))
	sb.WriteString(fmt.Sprintf("  Jitter:   %v\n\n", m.Jitter))

	sb.WriteString("Throughput:\n")
	sb.WriteString(fmt.Sprintf("  Conversions/s: %.0f\n\n", m.ConversionsPerSec))

	sb.WriteString("Accuracy:\n")
	sb.WriteString(fmt.Sprintf("  Mismatches: %d (%.4f%%)\n", m.Mismatches, 100*float64(m.Mismatches)/float64(m.Conversions)))
	sb.WriteString(fmt.Sprintf("  Max Error:  %v\n\n", m.MaxError))

	sb.WriteString("Memory:\n")
	sb.WriteString(fmt.Sprintf("  Allocated: %.2f MB\n\n", m.AllocatedMB))

	sb.WriteString("GC:\n")
	sb.WriteString(fmt.Sprintf("  Collections: %d\n", m.GCCount))
	sb.WriteString(fmt.Sprintf("  Avg Pause:   %v\n", m.GCPauseAvg))
	sb.WriteString(fmt.Sprintf("  Max Pause:   %v\n", m.GCPauseMax))

	return sb.String()
}
