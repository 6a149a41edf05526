package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fresh-tomatoes/catalog-api/internal/config"
	httpserver "github.com/fresh-tomatoes/catalog-api/internal/http"
	"github.com/fresh-tomatoes/catalog-api/internal/logging"
	"github.com/fresh-tomatoes/catalog-api/internal/repository"
	"github.com/fresh-tomatoes/catalog-api/internal/session"
	"github.com/fresh-tomatoes/catalog-api/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	storeOpts := store.Options{
		MaxConns:               int32(cfg.DBMaxConns),
		MinConns:               int32(cfg.DBMinConns),
		MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
		MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
		ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
		StatementCacheCapacity: cfg.DBStatementCache,
		Logger:                 logger,
	}

	st, err := store.New(dbCtx, cfg.DBURL, storeOpts)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer st.Close()

	var sessions session.Directory
	if cfg.RedisAddr != "" {
		sessions, err = session.NewRedisDirectory(dbCtx, cfg.RedisAddr, cfg.RedisPassword,
			time.Duration(cfg.SessionTTLHours)*time.Hour)
		if err != nil {
			logger.Fatal("connect redis", zap.Error(err))
		}
		logger.Info("session directory: redis", zap.String("addr", cfg.RedisAddr))
	} else {
		sessions = session.NewMemoryDirectory()
		logger.Info("session directory: in-memory")
	}

	repo := repository.New(st)
	server := httpserver.New(cfg, st, repo, sessions, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()
	logger.Info("server listening", zap.String("port", cfg.Port))

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown", zap.Error(err))
	}
}
