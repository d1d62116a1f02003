package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BYTE-6D65/webtime/pkg/bench"
	"github.com/BYTE-6D65/webtime/pkg/clock"
	"github.com/BYTE-6D65/webtime/pkg/codec"
	"github.com/BYTE-6D65/webtime/pkg/duration"
	"github.com/BYTE-6D65/webtime/pkg/timestamp"
)

func newNowCommand(a *app) *cobra.Command {
	var format string
	var positional bool

	cmd := &cobra.Command{
		Use:   "now",
		Short: "Print the current Instant and SystemTime",
		Long: `Read both clocks once and print the readings together with the SystemTime
encoded as a serialization record. CBOR output is printed as hex.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := codec.ParseFormat(format)
			if err != nil {
				return err
			}
			var opts []codec.Option
			if positional {
				opts = append(opts, codec.WithPositional())
			}

			if a.replayer != nil {
				a.log.WithField("remaining", a.replayer.RemainingDeltas()).Debug("running replay to the end")
				a.replayer.AdvanceAll()
			}

			inst := a.source.Now()
			sys := a.source.SystemNow()

			data, err := codec.New(f, opts...).Marshal(sys)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Source:      %s\n", a.source.ID())
			fmt.Fprintf(a.out, "Instant:     %s\n", inst)
			fmt.Fprintf(a.out, "Millis:      %s\n", formatMillis(inst.DurationSince(clock.Instant{})))
			fmt.Fprintf(a.out, "SystemTime:  %s\n", sys)
			fmt.Fprintf(a.out, "Unix:        %s\n", sys.UnixDuration())
			fmt.Fprintf(a.out, "Encoded (%s):\n", f)
			writeEncoded(a.out, f, data)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "record format: json, cbor or yaml")
	cmd.Flags().BoolVar(&positional, "positional", false, "encode the record as a sequence instead of a map")
	return cmd
}

func formatMillis(d duration.Duration) string {
	return strconv.FormatFloat(timestamp.ToMillis(d), 'f', -1, 64)
}

func writeEncoded(w io.Writer, f codec.Format, data []byte) {
	if f == codec.CBOR {
		fmt.Fprintln(w, hex.EncodeToString(data))
		return
	}
	fmt.Fprintln(w, strings.TrimRight(string(data), "\n"))
}

func newConvertCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <ms>...",
		Short: "Convert float milliseconds into exact durations",
		Long: `Convert each argument, a float64 millisecond timestamp as a host timer would
report it, into the nearest whole nanosecond duration.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy := a.source.Strategy()
			for _, arg := range args {
				ms, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid timestamp %q: %w", arg, err)
				}
				regime := timestamp.Classify(ms)
				if regime == timestamp.RegimeInvalid {
					return fmt.Errorf("timestamp %s out of range", arg)
				}

				d := strategy.Convert(ms)
				a.log.WithField("regime", regime.String()).Debugf("converted %s", arg)
				fmt.Fprintf(a.out, "%s ms = %s (secs=%d nanos=%d)\n", arg, d, d.Secs(), d.SubsecNanos())
			}
			return nil
		},
	}
}

func newDecodeCommand(a *app) *cobra.Command {
	var format string
	var hexInput bool

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a SystemTime record from stdin",
		Long: `Decode a serialized SystemTime record read from stdin. Both the map and the
sequence form are accepted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := codec.ParseFormat(format)
			if err != nil {
				return err
			}

			in := a.in
			if hexInput {
				raw, err := io.ReadAll(a.in)
				if err != nil {
					return err
				}
				data, err := hex.DecodeString(strings.TrimSpace(string(raw)))
				if err != nil {
					return fmt.Errorf("invalid hex input: %w", err)
				}
				in = bytes.NewReader(data)
			}

			t, err := codec.New(f, codec.WithMetrics(a.metrics)).Decode(in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "SystemTime:  %s\n", t)
			fmt.Fprintf(a.out, "Unix:        %s\n", t.UnixDuration())
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "record format: json, cbor or yaml")
	cmd.Flags().BoolVar(&hexInput, "hex", false, "read the record as hex text")
	return cmd
}

func newBenchCommand(a *app) *cobra.Command {
	var methods []string
	var scenario string
	cfg := bench.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare conversion methods for speed and accuracy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := bench.ParseScenario(scenario)
			if err != nil {
				return err
			}
			cfg.Scenario = s
			cfg.Metrics = a.metrics

			for i, name := range methods {
				m, err := bench.ParseMethod(name)
				if err != nil {
					return err
				}
				cfg.Method = m

				a.log.WithFields(logrus.Fields{"method": m, "scenario": s}).Info("running benchmark")
				results, err := bench.RunScenario(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(a.out)
				}
				fmt.Fprint(a.out, bench.FormatMetrics(results))
			}
			return nil
		},
	}

	all := make([]string, 0, len(bench.Methods()))
	for _, m := range bench.Methods() {
		all = append(all, string(m))
	}
	cmd.Flags().StringSliceVarP(&methods, "method", "m", all, "conversion methods to run")
	cmd.Flags().StringVarP(&scenario, "scenario", "s", string(bench.ScenarioSession), "input range: submilli, session, epoch or full")
	cmd.Flags().IntVarP(&cfg.Conversions, "conversions", "n", cfg.Conversions, "conversions per method")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "conversions timed together")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for the inputs")
	return cmd
}

func newDemoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Launch the interactive demo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return startTUI(a)
		},
	}
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and platform information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			generateVersionOutput(a.out)
		},
	}
}

func generateVersionOutput(out io.Writer) {
	fmt.Fprintf(out, "webtime v%s\n", version)
	fmt.Fprintf(out, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(out, "Go Version: %s\n", runtime.Version())
	fmt.Fprintf(out, "Default Strategy: %s\n", timestamp.Default)
}
