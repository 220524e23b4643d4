package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/thomson/internal/core/api"
	"github.com/solatis/thomson/internal/core/auth"
	"github.com/solatis/thomson/internal/core/config"
	"github.com/solatis/thomson/internal/core/server"
	"github.com/solatis/thomson/internal/transform"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gRPC and HTTP transform service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, global)
		},
	}

	cmd.Flags().String("host", "0.0.0.0", "listen host")
	cmd.Flags().Int("port", 50051, "gRPC server port")
	cmd.Flags().Int("http-port", 8080, "HTTP server port")
	return cmd
}

// applyServeFlags overrides cfg with the serve flags the user set.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("host") {
		host, _ := cmd.Flags().GetString("host")
		cfg.Serve.Host = host
	}
	if cmd.Flags().Changed("port") {
		port, _ := cmd.Flags().GetInt("port")
		cfg.Serve.Port = port
	}
	if cmd.Flags().Changed("http-port") {
		port, _ := cmd.Flags().GetInt("http-port")
		cfg.Serve.HTTPPort = port
	}
	return config.Validate(cfg)
}

func runServe(cmd *cobra.Command, global *globalOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := global.load(cmd)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, cfg); err != nil {
		return err
	}

	var store api.RunStore
	if cfg.Store.URL != "" {
		database, historyStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer database.Close()
		store = historyStore
	} else {
		logger.Warn().Msg("history store not configured, runs will not be recorded")
	}

	var authenticator *auth.Authenticator
	httpOpts := api.HTTPOptions{MaxDocumentSize: cfg.Serve.MaxDocumentSize}
	if len(cfg.Serve.APIKeys) > 0 {
		authenticator, err = auth.NewAuthenticator(cfg.Serve.APIKeys)
		if err != nil {
			return fmt.Errorf("invalid %s_SERVE_API_KEYS: %w", config.EnvPrefix, err)
		}
		httpOpts.Auth = authenticator.Middleware
	}

	engine := transform.NewEngine(cfg.Transform.MaxDepth, logger)
	service, err := api.NewService(engine, store, logger)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(&cfg.Serve, api.NewGRPCHandler(service), authenticator, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	httpServer, err := server.NewHTTPServer(&cfg.Serve, api.NewHTTPHandler(service, httpOpts, logger))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	grpcAddr, err := grpcServer.Listen()
	if err != nil {
		return err
	}
	httpAddr, err := httpServer.Listen()
	if err != nil {
		return err
	}

	logger.Info().
		Str("version", Version).
		Str("grpc_addr", grpcAddr.String()).
		Str("http_addr", httpAddr.String()).
		Bool("auth", authenticator != nil).
		Msg("starting thomson transform service")

	errChan := make(chan error, 2)
	go func() { errChan <- grpcServer.Start(ctx) }()
	go func() { errChan <- httpServer.Start(ctx) }()

	var serveErr error
	select {
	case serveErr = <-errChan:
		logger.Error().Err(serveErr).Msg("server stopped")
	case <-ctx.Done():
		logger.Info().Msg("shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Serve.RequestTimeout)
	defer cancel()
	return errors.Join(serveErr, httpServer.Shutdown(shutdownCtx), grpcServer.Shutdown(shutdownCtx))
}
