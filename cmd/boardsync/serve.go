package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"board-sync/api"
	"board-sync/broadcast"
	"board-sync/config"
	"board-sync/service"
	"board-sync/session"
	"board-sync/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the board HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func newAuth(cfg *config.Config) (*api.Auth, func(), error) {
	if cfg.Auth0TestMode {
		log.Warn("AUTH0_TEST_MODE enabled: accepting HS256 tokens")
		return api.NewAuth(nil, "", "", api.WithTestSecret([]byte(cfg.TestJWTSecret))), func() {}, nil
	}
	jwks, err := keyfunc.Get(cfg.JWKSURL(), keyfunc.Options{
		RefreshInterval: time.Hour,
		RefreshErrorHandler: func(err error) {
			log.WithError(err).Warn("jwks refresh failed")
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("jwks: %w", err)
	}
	return api.NewAuth(jwks, cfg.Auth0Audience, cfg.Issuer()), jwks.EndBackground, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := log.StandardLogger()
	shutdownTracing := installTracing(logger)

	backend, err := storage.Open(ctx, storage.Options{
		Driver:           cfg.StorageDriver,
		SQLitePath:       cfg.SQLitePath,
		ConnectionString: cfg.StorageConnectionString,
		ColumnsTable:     cfg.ColumnsTable,
		TasksTable:       cfg.TasksTable,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer backend.Close()

	redisOpts, err := config.RedisOptions(cfg.RedisConnectionString)
	if err != nil {
		return err
	}
	rc := redis.NewClient(redisOpts)
	defer rc.Close()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rc.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	auth, stopJWKS, err := newAuth(cfg)
	if err != nil {
		return err
	}
	defer stopJWKS()

	sessions := session.NewManager(session.Config{
		Columns:    service.NewColumnService(backend, logger),
		Tasks:      service.NewTaskService(backend, logger),
		Transport:  broadcast.NewRedisTransport(rc, logger),
		Deduper:    broadcast.NewRedisDeduper(rc, cfg.DeduperTTL),
		RetryDelay: cfg.SubscribeRetryDelay,
		Logger:     logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	api.Register(e, sessions, auth, logger)

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"addr": cfg.ListenAddr(), "driver": cfg.StorageDriver}).Info("listening")
		if err := e.Start(cfg.ListenAddr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var errs []error
	// closing the sessions first ends open event streams
	if err := sessions.CloseAll(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("close sessions: %w", err))
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
