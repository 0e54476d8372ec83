package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/tada/internal/logger"
	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/remote"
)

func newServeCmd(configPath *string) *cobra.Command {
	var publicURL string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory sync backend over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := model.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(logger.Options{Development: cfg.Log.Development})
			if err != nil {
				return err
			}
			defer logger.Sync(log)

			if publicURL == "" {
				publicURL = "http://localhost" + cfg.Server.Addr
			}
			if cfg.Server.Token == "" {
				log.Warn("server.token is empty, accepting unauthenticated requests")
			}

			backend := remote.NewMemoryBackend(publicURL)
			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           remote.NewServer(backend, cfg.Server.Token, log),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return serve(cmd.Context(), srv, log)
		},
	}

	cmd.Flags().StringVar(&publicURL, "public-url", "", "base URL used in share links")
	return cmd
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	log.Info("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
