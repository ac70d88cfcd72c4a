package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nnfx-go/internal/signal"
)

func TestLoad(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "nnfx-test" || cfg.App.LogLevel != "debug" {
		t.Fatalf("unexpected app section: %+v", cfg.App)
	}
	if len(cfg.Feed.Symbols) != 3 || cfg.Feed.Symbols[1] != "USDJPY" {
		t.Fatalf("unexpected symbols: %+v", cfg.Feed.Symbols)
	}
	if cfg.Feed.Interval != "4h" || cfg.Feed.StubTickMs != 250 {
		t.Fatalf("unexpected feed section: %+v", cfg.Feed)
	}
	if cfg.Account.Currency != "USD" || cfg.Account.StartingCash != 5000 || cfg.Account.MaxUnits != 100000 {
		t.Fatalf("unexpected account section: %+v", cfg.Account)
	}

	base := cfg.Strategy.Baseline
	if base.Name != "ma" || len(base.Params) != 2 {
		t.Fatalf("unexpected baseline: %+v", base)
	}
	if base.Params[0] != signal.S("ema") || base.Params[1] != signal.N(20) {
		t.Fatalf("expected mixed name and number params, got %+v", base.Params)
	}
	if len(cfg.Strategy.Volume.Params) != 6 || cfg.Strategy.Volume.Params[5].Num != 3.7 {
		t.Fatalf("unexpected volume params: %+v", cfg.Strategy.Volume.Params)
	}
	if cfg.Strategy.SLMultiple != 1.5 || cfg.Strategy.RiskPercent != 2 {
		t.Fatalf("unexpected risk knobs: %+v", cfg.Strategy)
	}
	if cfg.Journal.Path != "intents.jsonl" {
		t.Fatalf("unexpected journal path %q", cfg.Journal.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fixture should validate: %v", err)
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg, err := Load("config.yaml")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Strategy.Baseline.Params[0] != signal.S("ema") || again.Strategy.Confirmation2.Name != "schaff" {
		t.Fatalf("strategy lost in round trip: %+v", again.Strategy)
	}
	if err := Save(path, nil); err == nil {
		t.Fatalf("expected error saving nil config")
	}
}

func TestValidateReportsProblems(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cfg.Feed.Symbols = nil
	cfg.Account.Currency = "US"
	cfg.Strategy.Baseline.Name = "wae"
	err = cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"feed.symbols", "account.currency", "strategy"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("NNFX_ACCOUNT_CURRENCY=eur\nNNFX_JOURNAL_PATH=/tmp/j.jsonl\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv(EnvAccountCurrency, "")
	t.Setenv(EnvJournalPath, "")
	t.Setenv(EnvLogLevel, "warn")
	// t.Setenv registered cleanup; clear the two the file should fill in
	os.Unsetenv(EnvAccountCurrency)
	os.Unsetenv(EnvJournalPath)

	if err := LoadEnv(envFile, filepath.Join(dir, "absent.env")); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	cfg := &Config{App: App{LogLevel: "info", MetricsAddr: ":9100"}, Account: Account{Currency: "USD"}}
	cfg.ApplyEnv()
	if cfg.Account.Currency != "EUR" || cfg.Journal.Path != "/tmp/j.jsonl" {
		t.Fatalf("env file not applied: %+v", cfg)
	}
	if cfg.App.LogLevel != "warn" || cfg.App.MetricsAddr != ":9100" {
		t.Fatalf("unexpected app overrides: %+v", cfg.App)
	}
}
