// Package serve implements the HTTP server subcommand.
package serve

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/muzzleid/muzzle-go/internal/api"
	"github.com/muzzleid/muzzle-go/internal/conf"
	"github.com/muzzleid/muzzle-go/internal/imaging"
	"github.com/muzzleid/muzzle-go/internal/logging"
	"github.com/muzzleid/muzzle-go/internal/reference"
	"github.com/muzzleid/muzzle-go/internal/registry"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command which runs the registry API server.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the registry and classification API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Host, "host", viper.GetString("webserver.host"), "Address to bind the HTTP server to")
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port to listen on")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}

func runServer(settings *conf.Settings) error {
	logger := logging.ForService("serve")

	store := registry.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening registry store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing registry store", "error", err)
		}
	}()

	refs, err := reference.NewProvider(settings.Reference.Path)
	if err != nil {
		return fmt.Errorf("loading reference table: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	api.New(e, store, settings, imaging.NewCodec(imaging.FromSettings(settings)), refs)

	addr := net.JoinHostPort(settings.WebServer.Host, settings.WebServer.Port)
	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server",
			"addr", addr,
			"reference_rows", refs.Table().Len())
		errChan <- e.Start(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
