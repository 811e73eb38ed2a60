// Command devicesim serves an emulated home panel node over HTTP.
//
// It answers the same GET endpoints as the firmware, so the panel core (or
// curl) can be pointed at it during development:
//
//	devicesim -listen 127.0.0.1:8081 -temp 24.5 -drift
//	curl http://127.0.0.1:8081/STATUS
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/homepanel-core/internal/devicesim"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/config"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/logging"
)

var version = "dev"

const (
	driftInterval   = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

type options struct {
	listen    string
	temp      float64
	threshold float64
	latency   time.Duration
	drift     bool
	logLevel  string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("devicesim", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.listen, "listen", "127.0.0.1:8081", "address to serve the emulated node on")
	fs.Float64Var(&opts.temp, "temp", devicesim.DefaultTemperature, "initial temperature in °C")
	fs.Float64Var(&opts.threshold, "threshold", devicesim.DefaultThreshold, "firmware alarm threshold in °C")
	fs.DurationVar(&opts.latency, "latency", 0, "delay added to every response")
	fs.BoolVar(&opts.drift, "drift", false, "let the temperature wander slightly every 5s")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	log := logging.New(config.LoggingConfig{
		Level:  opts.logLevel,
		Format: "text",
		Output: "stdout",
	}, version).With("component", "devicesim")

	sim := devicesim.New(devicesim.Options{
		Temperature: opts.temp,
		Threshold:   opts.threshold,
		Latency:     opts.latency,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:              opts.listen,
		Handler:           sim,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("emulated node listening", "address", opts.listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if opts.drift {
		go drift(ctx, sim)
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving emulator: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down emulator: %w", err)
	}
	log.Info("emulator stopped")
	return nil
}

func drift(ctx context.Context, sim *devicesim.Sim) {
	r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	ticker := time.NewTicker(driftInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sim.Drift(r)
		}
	}
}
