// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"nnfx-go/internal/strategy"
)

// DefaultPath is where the binaries look for configuration when no flag is given.
const DefaultPath = "internal/config/config.yaml"

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed selects the bar source.
type Feed struct {
	Provider string   `yaml:"provider" validate:"omitempty,oneof=stub binance"`
	Symbols  []string `yaml:"symbols" validate:"required,min=1,dive,required"`
	Interval string   `yaml:"interval"`
	BaseURL  string   `yaml:"base_url"`
	// StubTickMs spaces synthetic bars when Provider is "stub".
	StubTickMs int `yaml:"stub_tick_ms" validate:"gte=0"`
}

// Account describes the trading account the sizer works against.
type Account struct {
	Currency     string  `yaml:"currency" validate:"len=3,alpha"`
	StartingCash float64 `yaml:"starting_cash" validate:"gte=0"`
	MaxUnits     float64 `yaml:"max_units" validate:"gte=0"`
}

// Journal configures where emitted intents are appended as JSON lines.
type Journal struct {
	Path string `yaml:"path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App             `yaml:"app"`
	Feed     Feed            `yaml:"feed"`
	Account  Account         `yaml:"account"`
	Strategy strategy.Params `yaml:"strategy"`
	Journal  Journal         `yaml:"journal"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the parts of the configuration the process cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return err
		}
		for _, fe := range fields {
			field := strings.TrimPrefix(fe.Namespace(), "Config.")
			errs = append(errs, fmt.Errorf("%s: fails %q (value %v)", field, fe.ActualTag(), fe.Value()))
		}
	}
	if err := c.Strategy.WithDefaults().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("strategy: %w", err))
	}
	return errors.Join(errs...)
}
