package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageFile     = "file"
)

type Config struct {
	Port    int    `env:"PORT" env-default:"8080"`
	Storage string `env:"STORAGE_BACKEND" env-default:"postgres"`

	// DataFile is the snapshot location for the file backend.
	DataFile string `env:"DATA_FILE" env-default:"data/predictions.json"`

	PostgresDB       string `env:"POSTGRES_DB"`
	PostgresUser     string `env:"POSTGRES_USER"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresHost     string `env:"POSTGRES_HOST" env-default:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT" env-default:"5432"`
}

func Load() (*Config, error) {
	// A .env file is a development convenience, not a requirement.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.Storage != StoragePostgres && cfg.Storage != StorageFile {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}

	return &cfg, nil
}

func (c *Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}
