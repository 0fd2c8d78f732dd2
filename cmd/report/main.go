// Binary report prints performance metrics and renders the equity curve from
// the persisted portfolio state. Read-only: it never touches the ledger.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/config"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/report"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/store"
	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/util"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	chartPath := flag.String("chart", "equity_curve.png", "where to write the equity curve PNG")
	recentTrades := flag.Int("trades", 10, "number of recent trades to list (0 disables)")
	flag.Parse()

	log := util.NewLogger("info")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	state, err := store.NewStateStore(cfg.Store.StatePath, log).Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load state")
	}
	if state == nil {
		log.Fatal().Str("path", cfg.Store.StatePath).Msg("no saved portfolio state")
	}

	perf, err := report.Summarize(*state)
	if err != nil {
		log.Fatal().Err(err).Msg("summarize")
	}
	fmt.Println(perf)

	img, err := report.EquityCurvePNG(state.ValueHistory, "Equity Curve (Portfolio Value Over Time)")
	if err != nil {
		log.Fatal().Err(err).Msg("render equity curve")
	}
	if err := os.WriteFile(*chartPath, img, 0o644); err != nil {
		log.Fatal().Err(err).Msg("write chart")
	}
	log.Info().Str("path", *chartPath).Msg("equity curve written")

	if *recentTrades > 0 && cfg.Store.TradesDBPath != "" {
		listTrades(cfg.Store.TradesDBPath, *recentTrades)
	}
}

func listTrades(dbPath string, limit int) {
	archive, err := store.OpenTradeArchive(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open trade archive: %v\n", err)
		return
	}
	defer archive.Close()

	trades, err := archive.Recent(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "query trades: %v\n", err)
		return
	}
	fmt.Printf("\nRecent trades (%d):\n", len(trades))
	for _, tr := range trades {
		fmt.Printf("  %s  %-4s %-6s %6d @ %s\n",
			tr.Time.Format("2006-01-02 15:04"), tr.Side, tr.Symbol, tr.Quantity, tr.Price.StringFixed(2))
	}
}
