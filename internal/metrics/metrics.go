// Package metrics registers Prometheus instrumentation and serves /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trading_cycles_total", Help: "Trading cycles by terminal status"},
		[]string{"status"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Paper orders applied to the ledger"},
		[]string{"symbol", "side"},
	)
	OrdersSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_skipped_total", Help: "Orders dropped during rebalance"},
		[]string{"reason"},
	)
	PortfolioValue = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "portfolio_value", Help: "Latest total portfolio value"},
	)
	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fetch_failures_total", Help: "Market data fetch failures by kind"},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, OrdersTotal, OrdersSkipped, PortfolioValue, FetchFailures)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
