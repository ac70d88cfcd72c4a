package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the file.
const (
	EnvLogLevel        = "NNFX_LOG_LEVEL"
	EnvMetricsAddr     = "NNFX_METRICS_ADDR"
	EnvAccountCurrency = "NNFX_ACCOUNT_CURRENCY"
	EnvJournalPath     = "NNFX_JOURNAL_PATH"
)

// LoadEnv reads the given .env files (default ".env") into the process environment
// without replacing variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overlays non-empty NNFX_* environment variables onto cfg.
func (c *Config) ApplyEnv() {
	set := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(EnvLogLevel, &c.App.LogLevel)
	set(EnvMetricsAddr, &c.App.MetricsAddr)
	set(EnvAccountCurrency, &c.Account.Currency)
	set(EnvJournalPath, &c.Journal.Path)
	c.Account.Currency = strings.ToUpper(c.Account.Currency)
}
