// Command realtime-demo connects to a realtime endpoint, logs its
// recovery key, serves /metrics, and prints every state transition until
// interrupted; it sends no messages of its own. It exists for manual smoke-testing of the library; no
// production caller is expected to depend on it.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	realtime "github.com/adred-codev/realtime-go"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging (overrides REALTIME_LOG_LEVEL)")
	metricsAddr := flag.String("metrics-addr", ":9090", "address to serve /metrics on")
	flag.Parse()

	bootLog := newBootLogger()
	maxProcs := runtime.GOMAXPROCS(0)
	bootLog.Printf("GOMAXPROCS: %d (via automaxprocs)", maxProcs)

	logger := newStructuredLogger()
	cfg, err := realtime.LoadEnvConfig(&logger)
	if err != nil {
		bootLog.Fatalf("failed to load configuration: %v", err)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}

	registry := prometheus.NewRegistry()
	opts := cfg.ToOptions()
	opts.Logger = &logger
	opts.Registerer = registry

	client, err := realtime.NewClient(opts)
	if err != nil {
		bootLog.Fatalf("failed to construct client: %v", err)
	}

	client.On(func(change realtime.StateChange) {
		logger.Info().
			Str("from", change.Previous.String()).
			Str("to", change.Current.String()).
			Uint64("generation", change.Generation).
			Msg("connection state changed")
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn().Err(err).Msg("metrics server stopped")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	if err := client.Connect(ctx); err != nil {
		cancel()
		logger.Fatal().Err(err).Msg("connect failed")
	}
	cancel()

	logger.Info().Str("recovery_key", client.RecoveryKey()).Msg("connected")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	closeCtx, closeCancel := context.WithTimeout(context.Background(), cfg.ReconnectTimeoutDisconnected)
	defer closeCancel()
	if err := client.Close(closeCtx); err != nil {
		logger.Warn().Err(err).Msg("close did not complete cleanly")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}
