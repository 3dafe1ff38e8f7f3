package commands

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lexfrei/go-unifi-rules/internal/poller"
	"github.com/lexfrei/go-unifi-rules/observability"
)

const shutdownTimeout = 5 * time.Second

func newWatchCommand(a *app) *cobra.Command {
	var (
		interval time.Duration
		listen   string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the rules periodically and print every change",
		Long: `watch refreshes traffic and firewall rules every poll interval and prints
switches that appear, disappear or change state. Failed polls are logged and
retried on the next tick.

When metrics are enabled in the configuration, or --metrics-listen is given,
Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.Poll.Interval
			}
			if !cmd.Flags().Changed("metrics-listen") {
				listen = ""
				if a.cfg.Metrics.Enabled {
					listen = a.cfg.Metrics.Listen
				}
			}

			var metrics observability.MetricsRecorder
			if listen != "" {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				metrics = observability.NewPrometheusRecorder(reg)

				stop, err := serveMetrics(listen, reg, a.logger)
				if err != nil {
					return err
				}
				defer stop()
			}

			client, err := a.newClient(metrics)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := poller.New(client, poller.Config{
				Interval: interval,
				Logger:   a.logger,
				Metrics:  metrics,
				OnUpdate: func(prev, next *poller.Snapshot) {
					printChanges(out, poller.Diff(prev, next))
				},
			})

			a.logger.Info("watching rules",
				observability.Field{Key: "host", Value: client.BaseURL()},
				observability.Field{Key: "interval", Value: interval.String()},
			)

			return p.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (default: poll.interval from the configuration)")
	cmd.Flags().StringVar(&listen, "metrics-listen", "", "serve Prometheus metrics on this address")

	return cmd
}

// metricsHandler serves reg on /metrics.
func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// serveMetrics listens on addr right away so a bad address fails the command,
// then serves in the background until the returned stop is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger observability.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", addr)
	}

	srv := &http.Server{
		Handler:           metricsHandler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped",
				observability.Err(err),
			)
		}
	}()

	logger.Info("serving metrics", observability.Field{Key: "addr", Value: ln.Addr().String()})

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func printChanges(w io.Writer, changes []poller.Change) {
	for _, change := range changes {
		switch {
		case change.Added:
			fmt.Fprintf(w, "+ %s is %s\n", change.Name(), stateName(change.On))
		case change.Removed:
			fmt.Fprintf(w, "- %s removed\n", change.Name())
		default:
			fmt.Fprintf(w, "~ %s turned %s\n", change.Name(), stateName(change.On))
		}
	}
}
