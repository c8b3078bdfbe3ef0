package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/boom-bust/internal/server"
	"github.com/iwvelando/boom-bust/internal/session"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the campaign behind the web UI, command API and event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()
			if address != "" {
				conf.Server.Address = address
			}

			limits, err := server.LimitsFromConfig(conf.Server)
			if err != nil {
				return err
			}
			sess, err := session.New(logger.Named("session"), conf)
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, logger, sess, conf.Server.Address, limits)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address override")
	return cmd
}

// serve runs the session loop and the HTTP server until ctx is cancelled.
func serve(ctx context.Context, logger *zap.Logger, sess *session.Session, address string, limits server.Limits) error {
	const op = "main.serve"

	srv := &http.Server{
		Addr:              address,
		Handler:           server.NewHandler(logger.Named("server"), sess, version, limits),
		ReadHeaderTimeout: 5 * time.Second,
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- sess.Run(ctx)
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("op", op), zap.String("address", address), zap.String("version", version))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve on %s: %w", address, err)
	}

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("session loop stopped: %w", err)
	}
	logger.Info("shut down", zap.String("op", op))
	return nil
}
