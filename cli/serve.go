package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/petal-labs/applebooks-mcp/books"
	bookotel "github.com/petal-labs/applebooks-mcp/otel"
	"github.com/petal-labs/applebooks-mcp/tool"
	"github.com/petal-labs/applebooks-mcp/tool/mcp"
)

const telemetryShutdownTimeout = 5 * time.Second

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	logger := a.logger(cmd)
	log := logger.WithField("component", "cli")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, cleanup, err := a.buildRegistry(ctx, logger, true)
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := mcp.NewServer(mcp.ServerConfig{
		Registry: registry,
		Version:  a.version,
		Logger:   logrus.NewEntry(logger),
	})
	if err != nil {
		return exitError(exitStartup, "creating mcp server: %v", err)
	}

	if err := server.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		log.WithError(err).Error("mcp server failed")
		return fmt.Errorf("serving mcp: %w", err)
	}
	return nil
}

// buildRegistry opens the library, installs telemetry and returns a
// registry plus a cleanup closing both. With tolerateMissing, a library
// that cannot be opened is replaced by one failing every call.
func (a *app) buildRegistry(ctx context.Context, logger *logrus.Logger, tolerateMissing bool) (*tool.Registry, func(), error) {
	log := logger.WithField("component", "cli")

	shutdownTracing, err := bookotel.SetupTracing(ctx, bookotel.TracingConfig{
		ServiceName:    "applebooks-mcp",
		ServiceVersion: a.version,
		Getenv:         os.Getenv,
	})
	if err != nil {
		log.WithError(err).Warn("tracing disabled")
	}

	observer, err := bookotel.NewToolObserver(
		otelapi.GetMeterProvider().Meter("applebooks-mcp/tool"),
		otelapi.GetTracerProvider().Tracer("applebooks-mcp/tool"),
	)
	if err != nil {
		_ = shutdownTracing(ctx)
		return nil, nil, exitError(exitStartup, "initializing tool observability: %v", err)
	}

	lib, closeLibrary, err := a.openLibrary(ctx, logrus.NewEntry(logger))
	if err != nil {
		if !tolerateMissing {
			_ = shutdownTracing(ctx)
			return nil, nil, exitError(exitStartup, "opening apple books library: %v", err)
		}
		log.WithError(err).Warn("apple books library unavailable; every tool call will fail until restart")
		lib, closeLibrary = books.UnavailableLibrary{Cause: err}, func() error { return nil }
	}

	registry, err := tool.NewRegistry(tool.RegistryConfig{
		Library:  lib,
		Observer: observer,
		Logger:   logrus.NewEntry(logger),
	})
	if err != nil {
		_ = closeLibrary()
		_ = shutdownTracing(ctx)
		return nil, nil, exitError(exitStartup, "building tool registry: %v", err)
	}

	cleanup := func() {
		if err := closeLibrary(); err != nil {
			log.WithError(err).Warn("closing apple books library")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.WithError(err).Warn("flushing traces")
		}
	}
	return registry, cleanup, nil
}
