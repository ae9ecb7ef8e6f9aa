package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"

	"github.com/predix/api/internal/config"
)

// Applies one migration file by name fragment, e.g.
//
//	go run ./cmd/migrations create_predictions.up
func main() {
	if len(os.Args) < 2 {
		slog.Error("a migration name is required")
		os.Exit(1)
	}
	migrationName := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.PostgresURL())
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	basePath := filepath.Join(".", "internal", "adapters", "repository", "postgres", "migrations")
	content, err := migrationFileContent(basePath, migrationName)
	if err != nil {
		slog.Error("migration lookup failed", "error", err)
		os.Exit(1)
	}

	if _, err := db.Exec(string(content)); err != nil {
		slog.Error("migration failed", "name", migrationName, "error", err)
		os.Exit(1)
	}

	slog.Info("migration applied", "name", migrationName)
}

func migrationFileContent(basePath, migrationName string) ([]byte, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		if strings.Contains(entry.Name(), migrationName) {
			return os.ReadFile(filepath.Join(basePath, entry.Name()))
		}
	}

	return nil, fmt.Errorf("migration file matching %q not found", migrationName)
}
