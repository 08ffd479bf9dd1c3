// Package config loads application configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Database pool
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"8"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Catalog search API
	SearchBaseURL string        `env:"SEARCH_BASE_URL"`
	SearchRPM     int           `env:"SEARCH_RPM" envDefault:"60"`
	SearchTimeout time.Duration `env:"SEARCH_TIMEOUT" envDefault:"30s"`

	// Crowdsourcing platform
	CrowdAPIKey        string        `env:"CROWD_API_KEY"`
	CrowdBaseURL       string        `env:"CROWD_BASE_URL"`
	CrowdTemplateJobID int64         `env:"CROWD_TEMPLATE_JOB_ID" envDefault:"788107"`
	CrowdRPM           int           `env:"CROWD_RPM" envDefault:"30"`
	CrowdTimeout       time.Duration `env:"CROWD_TIMEOUT" envDefault:"60s"`

	// Sampling
	NumDomains       int   `env:"NUM_DOMAINS" envDefault:"10"`
	QueriesPerDomain int   `env:"QUERIES_PER_DOMAIN" envDefault:"10"`
	NumResults       int   `env:"NUM_RESULTS" envDefault:"10"`
	MinQueryCount    int   `env:"MIN_QUERY_COUNT" envDefault:"10"`
	SampleSeed       int64 `env:"SAMPLE_SEED" envDefault:"0"`

	// Judgment fetch worker
	FetchPollInterval time.Duration `env:"FETCH_POLL_INTERVAL" envDefault:"5m"`

	// Analysis
	SignificanceLevel float64 `env:"SIGNIFICANCE_LEVEL" envDefault:"0.05"`
}

// Load reads configuration from the environment. A .env file, when present,
// seeds the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
