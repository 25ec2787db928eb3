package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcflow/rcflow/application"
	domainconfig "github.com/rcflow/rcflow/domain/config"
	infraconfig "github.com/rcflow/rcflow/infrastructure/config"
	"github.com/rcflow/rcflow/infrastructure/logging"
	"github.com/rcflow/rcflow/interfaces/api"
)

// serveOptions holds options for the serve command.
type serveOptions struct {
	configPath string
	devMode    bool
}

// newServeCmd creates the serve command.
func (a *App) newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rcflow HTTP service",
		Long: `Run the rcflow HTTP service.

The service exposes the change request API under /api and a health
endpoint at /health. Storage, Firebase, Slack and OpenAI components
are built from the configuration file.

Examples:
  # Run with a configuration file
  rcflow serve -c config.yaml

  # Run locally without identity headers
  rcflow serve -c config.yaml --dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.devMode, "dev", false, "Treat anonymous requests as a development user")

	return cmd
}

func (a *App) serve(ctx context.Context, opts *serveOptions) error {
	if opts.configPath == "" {
		return fmt.Errorf("configuration file path is required (-c flag)")
	}

	loader := infraconfig.NewLoaderWithOptions(infraconfig.WithValidation(true))
	cfg, err := loader.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	initLogging(cfg.Logging)

	result, err := infraconfig.NewBuilder(cfg).Build(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := result.Close(closeCtx); err != nil {
			logging.Error().Add(logging.ErrorField(err)).Msg("failed to close components")
		}
	}()

	workflowOpts := []application.Option{
		application.WithUpstreamTimeout(result.UpstreamTimeout),
	}
	if result.Notifier != nil {
		workflowOpts = append(workflowOpts, application.WithNotifier(result.Notifier))
	}
	if result.Summarizer != nil {
		workflowOpts = append(workflowOpts, application.WithSummaryGenerator(result.Summarizer))
	}

	workflow := application.NewWorkflow(
		result.Requests, result.AuditLog, result.Source, result.Publisher, workflowOpts...)

	devMode := opts.devMode || cfg.Server.DevMode
	server := api.NewServer(workflow, api.WithDevMode(devMode))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Add(logging.Str("addr", addr)).
			Add(logging.Str("storage", string(cfg.Storage.Backend))).
			Add(logging.Bool("dev_mode", devMode)).
			Msg("rcflow listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout.Duration()
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logging.Info().Msg("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func initLogging(cfg domainconfig.LoggingConfig) {
	logCfg := logging.DefaultConfig()
	if cfg.Level != "" {
		logCfg.Level = cfg.Level
	}
	if cfg.Production {
		logCfg.Format = "json"
	}
	logging.Init(logCfg)
}
