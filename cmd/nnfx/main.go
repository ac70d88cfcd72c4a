package main

import (
	"context"
	"errors"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"nnfx-go/internal/account"
	"nnfx-go/internal/config"
	"nnfx-go/internal/exchange"
	"nnfx-go/internal/execution"
	"nnfx-go/internal/metrics"
	"nnfx-go/internal/risk"
	sig "nnfx-go/internal/signal"
	"nnfx-go/internal/strategy"
	"nnfx-go/internal/util"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath, "path to the YAML configuration")
	envPath := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	log := util.NewLogger("info")
	if err := config.LoadEnv(*envPath); err != nil {
		log.Fatal().Err(err).Msg("load env")
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	cfg.ApplyEnv()
	log = util.NewLogger(cfg.App.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sinks := execution.Fanout{execution.NewExecutor(log)}
	if cfg.Journal.Path != "" {
		journal, err := execution.NewJSONLSink(cfg.Journal.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Journal.Path).Msg("open intent journal")
		}
		defer journal.Close()
		sinks = append(sinks, journal)
	}

	feed := exchange.NewFeed(cfg.Feed.Provider, cfg.Feed.Symbols, log,
		exchange.WithInterval(cfg.Feed.Interval),
		exchange.WithBaseURL(cfg.Feed.BaseURL),
		exchange.WithStubTick(time.Duration(cfg.Feed.StubTickMs)*time.Millisecond),
	)

	acct := account.NewAccount(cfg.Account.StartingCash)
	orders := execution.NewManager(sinks, log)
	sizer := risk.Sizer{Account: cfg.Account.Currency, Limits: risk.Limits{MaxUnitsPerTrade: cfg.Account.MaxUnits}}
	trader, err := strategy.NewTrader(cfg.Strategy, feed.Symbols(), acct, orders, sizer, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build trader")
	}

	bars := make(chan sig.Bar, 1024)
	steps := make(chan []sig.Bar, 64)

	go func() {
		if err := feed.Run(ctx, bars); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()
	go func() {
		_ = exchange.NewStepper(feed.Symbols()).Run(ctx, bars, steps)
	}()

	log.Info().Strs("symbols", feed.Symbols()).Str("provider", cfg.Feed.Provider).Msg("nnfx engine started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case step := <-steps:
			decisions, err := trader.Step(ctx, step)
			if err != nil {
				log.Error().Err(err).Msg("step failed")
				continue
			}
			for _, d := range decisions {
				if d.Action == strategy.ActionEnter || d.Action == strategy.ActionExit {
					log.Info().Str("sym", d.Symbol).Str("action", string(d.Action)).Str("dir", d.Direction.String()).
						Int("intents", len(d.Intents)).Msg("orders emitted")
				}
			}
		}
	}
}
