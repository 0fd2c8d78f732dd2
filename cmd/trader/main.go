// Binary trader runs the paper-trading loop: it fires one trading cycle
// immediately, then again on every scheduler tick until interrupted.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/config"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/engine"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/market"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/metrics"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/portfolio"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/rebalance"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/risk"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/store"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/strategy"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/util"
)

func main() {
	_ = godotenv.Load() // best-effort

	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	log := util.NewLogger("info")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if cfg.App.LogFile != "" {
		log = util.NewFileLogger(cfg.App.LogLevel, cfg.App.LogFile)
	} else {
		log = util.NewLogger(cfg.App.LogLevel)
	}

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, err := market.NewSource(cfg.Market.Provider, market.Options{
		BaseURL:         cfg.Market.BaseURL,
		RequestTimeout:  time.Duration(cfg.Market.RequestTimeoutMs) * time.Millisecond,
		IgnoreMarketHrs: cfg.Market.IgnoreMarketHrs,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build market source")
	}

	stateStore := store.NewStateStore(cfg.Store.StatePath, log)
	book, err := loadPortfolio(stateStore, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize portfolio")
	}

	var recorder engine.Recorder
	if cfg.Store.TradesDBPath != "" {
		archive, err := store.OpenTradeArchive(cfg.Store.TradesDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open trade archive")
		}
		defer archive.Close()
		recorder = archive
	}

	frequency, err := engine.ParseFrequency(cfg.Strategy.RebalanceFrequency)
	if err != nil {
		log.Fatal().Err(err).Msg("parse rebalance frequency")
	}

	limits := risk.Limits{MaxNotionalPerTrade: decimal.NewFromFloat(cfg.Risk.MaxNotionalPerTrade)}
	orch := engine.New(
		source,
		strategy.NewMomentum(cfg.Strategy.LookbackPeriods, cfg.Strategy.TopK),
		rebalance.NewEngine(limits, log),
		book,
		stateStore,
		recorder,
		engine.Config{
			Symbols:         cfg.Market.Symbols,
			HistoryPeriod:   cfg.Market.HistoryPeriod,
			HistoryInterval: cfg.Market.HistoryInterval,
			Frequency:       frequency,
		},
		log,
	)

	interval := time.Duration(cfg.Schedule.CheckIntervalMinutes) * time.Minute
	log.Info().
		Int("tickers", len(cfg.Market.Symbols)).
		Str("initial_capital", book.InitialCapital().StringFixed(2)).
		Str("rebalance_frequency", string(frequency)).
		Dur("check_interval", interval).
		Msg("starting live paper trading")

	orch.RunCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdown(book, stateStore, source, cfg.Market.Symbols, log)
			return
		case <-ticker.C:
			// ticks arriving while a cycle runs are coalesced by the ticker
			// channel, so at most one cycle is ever in flight
			orch.RunCycle(ctx)
		}
	}
}

func loadPortfolio(stateStore *store.StateStore, cfg *config.Config, log zerolog.Logger) (*portfolio.Portfolio, error) {
	state, err := stateStore.Load()
	if err != nil {
		return nil, err
	}
	if state != nil {
		log.Info().Str("cash", state.Cash.String()).Int("holdings", len(state.Holdings)).
			Msg("portfolio state loaded")
		return portfolio.Restore(*state)
	}
	return portfolio.New(decimal.NewFromFloat(cfg.Portfolio.InitialCapital))
}

// shutdown flushes state and logs a final summary, pricing the book on a
// short deadline so an unreachable provider cannot hang exit.
func shutdown(book *portfolio.Portfolio, stateStore *store.StateStore, source market.Source, symbols []string, log zerolog.Logger) {
	log.Info().Msg("shutting down live trading")
	if err := stateStore.Save(book.Snapshot()); err != nil {
		log.Error().Err(err).Msg("final state save failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	prices, err := source.LivePrices(ctx, symbols)
	if err != nil {
		log.Warn().Err(err).Msg("no final valuation available")
		return
	}
	value, err := book.MarketValue(prices)
	if err != nil {
		log.Warn().Err(err).Msg("no final valuation available")
		return
	}
	pnl := value.Div(book.InitialCapital()).InexactFloat64()*100 - 100
	log.Info().
		Str("final_value", value.StringFixed(2)).
		Float64("total_pnl_pct", pnl).
		Int("total_trades", len(book.Trades())).
		Msg("final summary")
}
