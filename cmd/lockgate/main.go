// Package main provides the entry point for the lockgate arbiter.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kneutral-org/lockgate/internal/admin"
	"github.com/kneutral-org/lockgate/internal/arbiter"
	"github.com/kneutral-org/lockgate/internal/config"
	"github.com/kneutral-org/lockgate/internal/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger("lockgate", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	srv, err := arbiter.NewServer(arbiter.Config{
		Addr:             fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:      cfg.ReadTimeout,
		ResponseInterval: cfg.ResponseInterval,
		AllowFrom:        cfg.AllowFrom,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid arbiter configuration")
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve()
	}()

	// Optional admin/metrics HTTP server.
	var adminSrv *http.Server
	if cfg.AdminPort != "" {
		if os.Getenv("GIN_MODE") == "" {
			gin.SetMode(gin.ReleaseMode)
		}
		adminSrv = &http.Server{
			Addr:         ":" + cfg.AdminPort,
			Handler:      admin.NewRouter(srv.Table(), logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Info().Str("port", cfg.AdminPort).Msg("starting admin HTTP server")
			if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("admin server failed")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info().Msg("shutting down...")
	case err := <-serveErr:
		if err != nil {
			logger.Fatal().Err(err).Msg("arbiter failed")
		}
		return
	}

	srv.Shutdown()
	if adminSrv != nil {
		_ = adminSrv.Close()
	}
	if err := <-serveErr; err != nil {
		logger.Error().Err(err).Msg("arbiter exited with error")
	}
	logger.Info().Msg("lockgate has shut down normally")
}
