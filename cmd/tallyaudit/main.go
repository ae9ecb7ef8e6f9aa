package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	_ "github.com/lib/pq"

	"github.com/predix/api/internal/adapters/repository/memory"
	"github.com/predix/api/internal/adapters/repository/postgres"
	"github.com/predix/api/internal/config"
	"github.com/predix/api/internal/core/ports"
	"github.com/predix/api/internal/core/services"
)

// Recomputes every prediction's tally from its vote records and reports
// drift against the cached counters. Read-only; exits non-zero when any
// drift is found.
func main() {
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	var (
		ledger ports.PredictionLedger
		audit  ports.TallyAuditRepository
	)
	switch cfg.Storage {
	case config.StorageFile:
		fileLedger, err := memory.NewLedger(cfg.DataFile)
		if err != nil {
			logger.Error("ledger init failed", "error", err)
			os.Exit(1)
		}
		ledger, audit = fileLedger, fileLedger
	default:
		db, err := sql.Open("postgres", cfg.PostgresURL())
		if err != nil {
			logger.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		ledger = postgres.NewPredictionRepository(db)
		audit = postgres.NewTallyAuditRepository(db)
	}

	drifts, err := services.NewAuditService(ledger, audit).AuditAll(context.Background())
	if err != nil {
		logger.Error("audit failed", "error", err)
		os.Exit(1)
	}

	if len(drifts) == 0 {
		logger.Info("all tallies consistent")
		return
	}

	for _, d := range drifts {
		logger.Warn("tally drift",
			"prediction_id", d.PredictionID,
			"option", d.Option,
			"stored", d.Stored,
			"recorded", d.Recorded)
	}
	os.Exit(1)
}
