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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Clark-Hu/review-rateable/db"
	"github.com/Clark-Hu/review-rateable/internal/config"
	httpserver "github.com/Clark-Hu/review-rateable/internal/http"
	"github.com/Clark-Hu/review-rateable/internal/logging"
	"github.com/Clark-Hu/review-rateable/internal/repository"
	"github.com/Clark-Hu/review-rateable/internal/review"
	"github.com/Clark-Hu/review-rateable/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New("reviews-api", cfg.LogLevel)
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

	if cfg.RunMigrations {
		if err := st.Migrate(dbCtx, db.Migrations, "migrations"); err != nil {
			logger.Fatal("apply migrations", zap.Error(err))
		}
	}

	if err := st.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("register metrics", zap.Error(err))
	}

	repo := repository.New(st)
	reviews := review.NewService(repo.Reviews, review.Options{
		DefaultDepartment: cfg.Reviews.DefaultDepartment,
		AutoApprove:       cfg.Reviews.AutoApprove,
		Logger:            logger,
	})
	server := httpserver.New(cfg, st, reviews, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

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
		logger.Error("graceful shutdown error", zap.Error(err))
	}
}
