package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nomis52/rollcall/logging"
	"github.com/nomis52/rollcall/metrics"
	"github.com/nomis52/rollcall/service"
)

type Args struct {
	ListenAddr string
	LogLevel   string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := parseArgs()

	logger, err := logging.New(logging.Config{Level: args.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	registry, err := metrics.NewScrapeRegistry("activities")
	if err != nil {
		return fmt.Errorf("failed to create metrics registry: %w", err)
	}

	svc, err := service.New(service.NewSeededStore(),
		service.WithLogger(logger.Logger),
		service.WithMetrics(registry),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	r := chi.NewRouter()
	r.Handle("/metrics", registry.Handler())
	r.Mount("/", svc.Handler())

	srv := &http.Server{
		Addr:         args.ListenAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting activities service", "addr", args.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down activities service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func parseArgs() Args {
	listenAddr := flag.String("listen", ":8000", "Address to listen on")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nReference activities service with an in-memory roster\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	return Args{
		ListenAddr: *listenAddr,
		LogLevel:   *logLevel,
	}
}
