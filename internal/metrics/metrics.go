// Package metrics registers the Prometheus counters of the trading core and the feed.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "nnfx_bars_total", Help: "Closed bars processed"},
		[]string{"symbol"},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "nnfx_decisions_total", Help: "Entry and exit decisions taken"},
		[]string{"symbol", "direction", "reason"},
	)
	IntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "nnfx_intents_total", Help: "Order intents emitted"},
		[]string{"symbol", "type", "role"},
	)
	SizingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "nnfx_sizing_errors_total", Help: "Entries skipped because sizing failed"},
		[]string{"symbol"},
	)
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "nnfx_notifications_total", Help: "Order notifications consumed"},
		[]string{"status", "outcome"},
	)
	FeedBarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "nnfx_feed_bars_total", Help: "Closed bars delivered by the market data feed"},
		[]string{"provider", "symbol"},
	)
	FeedReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "nnfx_feed_reconnects_total", Help: "Market data feed reconnect attempts"},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(BarsTotal, DecisionsTotal, IntentsTotal, SizingErrorsTotal, NotificationsTotal,
		FeedBarsTotal, FeedReconnectsTotal)
}

// Serve exposes the default registry on addr at /metrics.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
