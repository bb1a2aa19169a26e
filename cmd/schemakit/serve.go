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

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/schemakit/schemakit/schema"
	"github.com/schemakit/schemakit/server"
)

var (
	serveHost string
	servePort int
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind (default: server.host from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to bind (default: server.port from config)")
	serveCmd.Flags().BoolVar(&verboseFlag, "verbose", false, "Enable debug logging")
	serveCmd.Flags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve schema metadata over HTTP",
	Long: `Start an HTTP server exposing the schema metadata API. Endpoints
mirror the session operations: listing tables, views, and schemas,
describing tables by metadata kind, and cache invalidation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveHost != "" {
			cfg.Server.Host = serveHost
		}
		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		return withSession(func(ctx context.Context, session *schema.Session) error {
			return runServer(ctx, cfg, session)
		})
	},
}

// newServeLogger builds the HTTP server logger: development config with
// debug level when verbose, production config otherwise.
func newServeLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runServer(ctx context.Context, cfg *CLIConfig, session *schema.Session) error {
	logger, err := newServeLogger(verboseFlag)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.New(session, logger).Handler(),
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()

	green := color.New(color.FgGreen)
	green.Printf("Serving schema metadata on http://%s\n", srv.Addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-sigChan:
	}

	fmt.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
