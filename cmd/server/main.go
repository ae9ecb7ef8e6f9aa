package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/predix/api/internal/adapters/handler/http"
	"github.com/predix/api/internal/adapters/handler/ws"
	"github.com/predix/api/internal/adapters/repository/memory"
	"github.com/predix/api/internal/adapters/repository/postgres"
	"github.com/predix/api/internal/config"
	"github.com/predix/api/internal/core/ports"
	"github.com/predix/api/internal/core/services"
)

func main() {
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	var ledger ports.PredictionLedger
	switch cfg.Storage {
	case config.StorageFile:
		fileLedger, err := memory.NewLedger(cfg.DataFile)
		if err != nil {
			logger.Error("ledger init failed", "error", err)
			os.Exit(1)
		}
		ledger = fileLedger
	default:
		db, err := sql.Open("postgres", cfg.PostgresURL())
		if err != nil {
			logger.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			logger.Error("database ping failed", "error", err)
			os.Exit(1)
		}
		ledger = postgres.NewPredictionRepository(db)
	}

	hub := ws.NewHub(logger)
	go hub.Run()

	voteService := services.NewVoteService(ledger, hub, logger)
	predictionService := services.NewPredictionService(ledger, hub)

	handler := http.NewHandler(
		http.NewPredictionHandler(predictionService),
		http.NewVoteHandler(voteService),
		hub.ServeWS,
	)
	server := &stdhttp.Server{Addr: fmt.Sprintf("0.0.0.0:%d", cfg.Port), Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "port", cfg.Port, "storage", cfg.Storage)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error("server closed unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	hub.Close()
}
