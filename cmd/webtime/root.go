package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/BYTE-6D65/webtime/pkg/clock"
	"github.com/BYTE-6D65/webtime/pkg/host"
	"github.com/BYTE-6D65/webtime/pkg/telemetry"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	host   host.Host

	logLevel     string
	strategy     string
	synchronized bool
	metricsAddr  string
	replaySpec   string
	replaySpeed  float64

	log      *logrus.Logger
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	source   *clock.Source
	replayer host.Replayer
	server   *http.Server
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:     in,
		out:    out,
		errOut: errOut,
		host:   host.Global(),
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "webtime",
		Short: "Exact monotonic and wall clock readings from a millisecond host timer",
		Long: `webtime reads the host's high resolution timer and wall clock and converts
their float millisecond readings into exactly rounded nanosecond durations.

Run without a command to start the interactive demo.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkEnvironmentVariables(cmd); err != nil {
				return err
			}
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return startTUI(a)
		},
	}

	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "info", "log level: panic, fatal, error, warn, info, debug or trace")
	flags.StringVar(&a.strategy, "strategy", "default", "timestamp conversion strategy: portable, intrinsic or default")
	flags.BoolVar(&a.synchronized, "synchronized", false, "measure Instants from the Unix epoch instead of the time origin")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.StringVar(&a.replaySpec, "replay", "", "replay timer readings instead of the host timer: start,delta,delta,... in ms")
	flags.Float64Var(&a.replaySpeed, "replay-speed", 1, "replay speed multiplier, 0 replays without sleeping")

	root.AddCommand(
		newNowCommand(a),
		newConvertCommand(a),
		newDecodeCommand(a),
		newBenchCommand(a),
		newDemoCommand(a),
		newVersionCommand(a),
	)
	return root
}

// setup configures logging, metrics and the clock Source from the parsed
// flags.
func (a *app) setup(ctx context.Context) error {
	level, err := logrus.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}
	a.log = logrus.New()
	a.log.SetOutput(a.errOut)
	a.log.SetLevel(level)
	a.log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
	})

	a.registry = prometheus.NewRegistry()
	a.metrics = telemetry.InitMetrics(a.registry)

	if a.replaySpec != "" {
		h, err := newReplayHost(a.replaySpec, a.replaySpeed)
		if err != nil {
			return err
		}
		a.host = h
		a.replayer = h
		a.log.WithFields(logrus.Fields{
			"deltas": h.TotalDeltas(),
			"speed":  a.replaySpeed,
		}).Debug("replaying timer readings")
	}

	cfg := clock.DefaultConfig()
	cfg.Synchronized = a.synchronized
	cfg.Strategy = a.strategy
	a.source, err = clock.NewSourceFromConfig(cfg,
		clock.WithHost(a.host),
		clock.WithMetrics(a.metrics),
		clock.WithLogger(a.log),
	)
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"source":       a.source.ID().String(),
		"strategy":     a.source.Strategy().String(),
		"synchronized": a.source.Synchronized(),
	}).Debug("clock source ready")

	if a.metricsAddr != "" {
		return a.serveMetrics(ctx)
	}
	return nil
}

func (a *app) serveMetrics(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", a.metricsAddr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	a.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.log.WithField("addr", ln.Addr().String()).Info("serving metrics")
	go func() {
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("metrics server stopped")
		}
	}()
	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.server.Shutdown(ctx)
}
