package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration parameters, loaded from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"8000"`

	// Service API key; empty disables the check (local development).
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Crossref works API for DOI metadata lookups.
	CrossrefBaseURL string `envconfig:"CROSSREF_BASE_URL" default:"https://api.crossref.org"`
	CrossrefMailto  string `envconfig:"CROSSREF_MAILTO"`

	// DOI citation formatting service (APA-style plain text).
	CitationBaseURL string `envconfig:"CITATION_BASE_URL" default:"https://citation.doi.org"`
	CitationStyle   string `envconfig:"CITATION_STYLE" default:"apa"`
	CitationLocale  string `envconfig:"CITATION_LOCALE" default:"en-US"`

	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`

	// Metadata backfill job.
	BackfillCronSchedule string        `envconfig:"BACKFILL_CRON_SCHEDULE" default:"0 3 * * *"`
	BackfillDelay        time.Duration `envconfig:"BACKFILL_DELAY" default:"500ms"`

	// Biosketch toolchain.
	TemplatePath   string        `envconfig:"BIOSKETCH_TEMPLATE" default:"templates/biosketch.tex"`
	LatexBin       string        `envconfig:"LATEX_BIN" default:"pdflatex"`
	ConverterBin   string        `envconfig:"HTML_CONVERTER_BIN" default:"pandoc"`
	CompileTimeout time.Duration `envconfig:"COMPILE_TIMEOUT" default:"60s"`
}

// DSN returns the Data Source Name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
