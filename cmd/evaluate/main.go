// Binary evaluate replays one strategy parameter set against the paper venue and prints
// the requested metric. Optimizers shell out to it once per candidate.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"nnfx-go/internal/account"
	"nnfx-go/internal/config"
	"nnfx-go/internal/engine"
	"nnfx-go/internal/exchange"
	"nnfx-go/internal/paper"
	"nnfx-go/internal/risk"
	sig "nnfx-go/internal/signal"
	"nnfx-go/internal/util"
)

const hourMs = 3_600_000

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to the YAML configuration")
	bars := flag.Int("bars", 2000, "number of synthetic bars per symbol")
	metricName := flag.String("metric", "rnorm", "rnorm, sqn or drawdown")
	histories := map[string]string{}
	flag.Func("csv", "SYMBOL=path of a bar history; repeatable, replaces synthetic bars", func(v string) error {
		sym, path, ok := strings.Cut(v, "=")
		if !ok || sym == "" || path == "" {
			return fmt.Errorf("want SYMBOL=path, got %q", v)
		}
		histories[strings.ToUpper(sym)] = path
		return nil
	})
	flag.Parse()

	log := util.NewLogger("warn")
	_ = config.LoadEnv()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	metric, err := account.ParseMetric(*metricName)
	if err != nil {
		log.Fatal().Err(err).Msg("metric")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	steps, err := history(histories, cfg.Feed.Symbols, *bars)
	if err != nil {
		log.Fatal().Err(err).Msg("load history")
	}

	broker := paper.NewBroker(cfg.Account.Currency, log)
	value, err := engine.Evaluate(ctx, cfg.Strategy, steps, broker, metric, engine.Options{
		AccountCurrency: cfg.Account.Currency,
		StartingCash:    cfg.Account.StartingCash,
		Limits:          risk.Limits{MaxUnitsPerTrade: cfg.Account.MaxUnits},
		Log:             log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("evaluate")
	}
	fmt.Printf("%s %.6f\n", metric, value)
}

func history(files map[string]string, symbols []string, n int) ([][]sig.Bar, error) {
	if len(files) == 0 {
		feed := exchange.NewFeed(exchange.ProviderStub, symbols, zerolog.Nop())
		steps := make([][]sig.Bar, n)
		for i := range steps {
			for _, s := range feed.Symbols() {
				steps[i] = append(steps[i], exchange.StubBar(s, i, int64(i)*hourMs))
			}
		}
		return steps, nil
	}
	loaded := make(map[string][]sig.Bar, len(files))
	for sym, path := range files {
		bars, err := exchange.LoadCSV(path, sym)
		if err != nil {
			return nil, err
		}
		loaded[sym] = bars
	}
	return exchange.Align(loaded), nil
}
