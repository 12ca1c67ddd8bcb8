package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/msomdec/conduit/internal/config"
	"github.com/msomdec/conduit/internal/handler"
	"github.com/msomdec/conduit/internal/repository/sqldb"
	"github.com/msomdec/conduit/internal/service"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long:  `Apply pending migrations and serve the API until SIGINT or SIGTERM.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := setupLogging(cmd, cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default \":8080\")")
	return cmd
}

// openDB opens and migrates the configured database.
func openDB(ctx context.Context, cfg config.Config) (*sqldb.DB, error) {
	db, err := sqldb.New(cfg.DatabaseURL, sqldb.Options{MaxOpenConns: cfg.MaxOpenConns})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

func newServices(cfg config.Config, db *sqldb.DB) handler.Services {
	return handler.Services{
		Auth:     service.NewAuthService(db.Users(), cfg.BcryptCost, cfg.TokenTTL),
		Profiles: service.NewProfileService(db.Users(), db.Relationships()),
		Articles: service.NewArticleService(db.Articles(), db.Users(), db.Relationships(), cfg.MaxPageLimit),
		Comments: service.NewCommentService(db.Articles(), db.Comments(), db.Relationships()),
		DB:       db,
	}
}

// serve runs the server until ctx is cancelled, then drains in-flight
// requests for at most cfg.ShutdownTimeout.
func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database ready", "dialect", db.Dialect())

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: handler.NewServer(newServices(cfg, db), handler.ServerOptions{
			RequestTimeout: cfg.RequestTimeout,
			Logger:         logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
