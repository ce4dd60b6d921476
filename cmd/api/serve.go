package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/njprem/accountd/internal/config"
	"github.com/njprem/accountd/internal/logging"
	"github.com/njprem/accountd/internal/metrics"
	"github.com/njprem/accountd/internal/repository/memory"
	"github.com/njprem/accountd/internal/repository/ports"
	"github.com/njprem/accountd/internal/repository/postgres"
	"github.com/njprem/accountd/internal/service"
	httpx "github.com/njprem/accountd/internal/transport/http"
	"github.com/njprem/accountd/internal/transport/mail"
	"github.com/njprem/accountd/internal/util"
)

const (
	swaggerSpecPath = "docs/swagger.yaml"
	shutdownTimeout = 10 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closer, err := logging.Setup(cfg.LogFormat, cfg.LogstashTCPAddr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, cleanup, err := buildServer(ctx, cfg, logger)
	if err != nil {
		logging.LogError(logger, "startup failed", err)
		return err
	}
	defer cleanup()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// buildServer wires the stores, services and routes. The returned cleanup
// releases the database pool when one was opened.
func buildServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*echo.Echo, func(), error) {
	users, resets, cleanup, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	codec, err := util.NewTokenCodec(cfg.JWTSecret)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	hasher := util.NewBcryptHasher()

	var delegated service.IDTokenVerifier
	if cfg.GoogleAudience != "" {
		delegated = service.NewGoogleVerifier(cfg.GoogleAudience)
	}
	if !cfg.SMTPConfigured() {
		logger.Warn("smtp is not configured, reset emails will fail")
	}
	mailer := mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)

	auth := service.NewAuthService(users, hasher, codec, cfg.MaxDeviceCount, cfg.SessionTTL, delegated)
	resetSvc := service.NewResetService(users, resets, hasher, codec, mailer, service.ResetOptions{
		TokenTTL:       cfg.ResetTokenTTL,
		LinkBaseURL:    cfg.ResetLinkBaseURL,
		RevokeSessions: cfg.ResetRevokesSessions,
	})

	m := metrics.New()
	e := httpx.NewRouter(cfg.AllowOrigins, logger, m)
	httpx.RegisterAuth(e, httpx.NewAuthHandler(auth, m, logger), codec)
	httpx.RegisterReset(e, httpx.NewResetHandler(resetSvc, m, logger))
	httpx.RegisterSwagger(e, swaggerSpecPath)

	return e, cleanup, nil
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.UserRepository, ports.ResetRepository, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		users := memory.NewUserRepo()
		return users, memory.NewResetRepo(users), func() {}, nil
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, nil, nil, oops.Code("MIGRATION_FAILED").With("operation", "auto migrate").Wrap(err)
		}
	}
	return postgres.NewUserRepo(db), postgres.NewResetRepo(db), closeQuietly(db, logger), nil
}

func closeQuietly(c io.Closer, logger *slog.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}
