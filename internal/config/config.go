package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTPPort        string        `envconfig:"HTTP_PORT" default:"8080"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	Postgres struct {
		Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
		Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
		User     string `envconfig:"POSTGRES_USER" default:"market"`
		Password string `envconfig:"POSTGRES_PASSWORD" default:"market"`
		DBName   string `envconfig:"POSTGRES_DB" default:"market"`
	}

	Mongo struct {
		URI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
		Database string `envconfig:"MONGO_DATABASE" default:"market"`
	}

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
		Password string `envconfig:"REDIS_PASSWORD" default:""`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
	}

	Kafka struct {
		Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	}

	Catalog struct {
		DBPath string `envconfig:"CATALOG_DB_PATH" default:"catalog.db"`
	}

	Payment struct {
		CallbackSecret string `envconfig:"PAYMENT_CALLBACK_SECRET" default:"dev-only-secret"`
	}

	Migrations struct {
		PostgresDir string `envconfig:"POSTGRES_MIGRATIONS_DIR" default:"migrations/postgres"`
		CatalogDir  string `envconfig:"CATALOG_MIGRATIONS_DIR" default:"migrations/catalog"`
	}
}

// Load reads .env when present, then the environment. Missing .env is not
// an error; containers inject variables directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return &cfg, nil
}
