// main package for the speech-gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/speech-gateway/internal/audio"
	"github.com/book-expert/speech-gateway/internal/config"
	"github.com/book-expert/speech-gateway/internal/device"
	"github.com/book-expert/speech-gateway/internal/engine"
	"github.com/book-expert/speech-gateway/internal/model"
	"github.com/book-expert/speech-gateway/internal/server"
	"github.com/book-expert/speech-gateway/internal/voicestore"
)

const (
	bootstrapLogFile = "speech-gateway-bootstrap.log"
	gatewayLogFile   = "speech-gateway.log"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
	warmupTimeout     = 10 * time.Minute
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, profile, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := setupLogger(cfg.Paths.BaseLogsDir, gatewayLogFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	return serve(cfg, profile, log)
}

func serve(cfg *config.Config, profile engine.Profile, log *logger.Logger) error {
	resolvedDevice := device.Resolve(cfg.Engine.Device, profile.Device)

	log.System("Starting speech gateway (engine=%s, model=%s, device=%s)",
		profile.Name, cfg.Engine.Model, resolvedDevice)
	log.Info("Voice assets directory: %s", cfg.Voices.Dir)

	synthEngine := engine.New(engine.Options{
		BinaryPath: cfg.Engine.BinaryPath,
		Model:      cfg.Engine.Model,
		Device:     resolvedDevice,
		SampleRate: cfg.Voices.SampleRate,
	}, log)

	manager := model.NewManager(synthEngine, resolvedDevice, cfg.Engine.MaxConcurrent, log)

	voices, err := voicestore.New(cfg.Voices.Dir, cfg.Voices.SampleRate, log)
	if err != nil {
		return fmt.Errorf("failed to initialize voice store: %w", err)
	}

	encoder := audio.NewEncoder(log)

	gateway := server.New(cfg, profile, manager, voices, encoder, log)

	// Pre-load the model so the first request does not pay the load cost.
	// A warmup failure is not fatal; the first request retries lazily.
	warmupCtx, cancelWarmup := context.WithTimeout(context.Background(), warmupTimeout)
	manager.Warmup(warmupCtx)
	cancelWarmup()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           gateway.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)

	go func() {
		log.System("Listening on %s", cfg.ListenAddr())
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}

		return nil
	case <-ctx.Done():
	}

	log.System("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := httpServer.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		return fmt.Errorf("shutdown failed: %w", shutdownErr)
	}

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
