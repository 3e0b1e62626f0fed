package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/CyberMesh/gossip-node/internal/config"
	"github.com/CyberMesh/gossip-node/internal/controller"
	"github.com/CyberMesh/gossip-node/internal/eventloop"
	"github.com/CyberMesh/gossip-node/internal/logging"
	"github.com/CyberMesh/gossip-node/internal/metrics"
	"github.com/CyberMesh/gossip-node/internal/scheduler"
	"github.com/CyberMesh/gossip-node/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gossip-node: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLogger, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return err
	}
	defer closeLogger() //nolint:errcheck

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return serve(ctx, cfg, os.Stdin, os.Stdout, registry, logger)
}

// serve runs the node over stdin/stdout until input ends, ctx is done or
// output fails.
func serve(parent context.Context, cfg config.Config, stdin io.Reader, stdout io.Writer, registry *prometheus.Registry, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	recorder := metrics.NewRecorder(registry)

	ctrl := controller.New(recorder, logger.Named("controller"), controller.Options{
		RetryThreshold: cfg.Gossip.RetryThreshold,
		AckMemorySize:  cfg.Gossip.AckMemorySize,
		AckMemoryTTL:   cfg.Gossip.AckMemoryTTL,
	})

	reader := transport.NewReader(stdin, transport.ReaderOptions{
		MaxLineBytes: cfg.Gossip.MaxLineBytes,
		Logger:       logger.Named("transport"),
		Metrics:      recorder,
	})
	writer := transport.NewWriter(stdout, logger.Named("transport"), recorder)

	sched := scheduler.New(cfg.Gossip.RetryInterval, logger.Named("scheduler"))
	go sched.Run(ctx)

	loop, err := eventloop.New(ctrl, eventloop.Options{
		Inbound: reader.Envelopes(),
		Ticks:   sched.C(),
		Sink:    writer,
		Logger:  logger.Named("eventloop"),
	})
	if err != nil {
		return err
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = buildHTTPServer(cfg.MetricsAddr, registry)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	readDone := make(chan error, 1)
	go func() { readDone <- reader.Run(ctx) }()

	logger.Info("gossip node started",
		zap.Duration("retry_threshold", cfg.Gossip.RetryThreshold),
		zap.Duration("retry_interval", sched.Interval()),
		zap.String("metrics_addr", cfg.MetricsAddr))

	loopErr := loop.Run(ctx)

	// Only a loop that saw the input channel close has a finished reader to
	// collect. Otherwise the reader may be parked on stdin and is abandoned.
	inputEnded := loopErr == nil && ctx.Err() == nil
	cancel()
	var readErr error
	if inputEnded {
		readErr = <-readDone
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		metricsServer.Shutdown(shutdownCtx) //nolint:errcheck
	}

	if loopErr != nil {
		logger.Error("event loop stopped", zap.Error(loopErr))
		return loopErr
	}
	if readErr != nil {
		logger.Error("input stopped", zap.Error(readErr))
		return readErr
	}
	logger.Info("gossip node shutdown complete", zap.Int("seen_values", len(ctrl.Seen())), zap.Int("pending_acks", ctrl.Pending()))
	return nil
}

func buildHTTPServer(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
