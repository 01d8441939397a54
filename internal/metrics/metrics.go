package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"symbol"},
	)
	TicksFiltered = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_filtered_total", Help: "Ticks dropped by the exchange allow-list"},
		[]string{"symbol"},
	)
	FeedReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "feed_reconnects_total", Help: "Feed connection rebuilds"},
		[]string{"exchange", "symbol"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	GuardBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "guard_blocks_total", Help: "Order intents rejected by the constraint guard"},
		[]string{"exchange"},
	)
	TuningRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tuning_runs_total", Help: "Tuning outcomes by disposition"},
		[]string{"strategy", "outcome"},
	)
	ScheduledTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "scheduled_tasks", Help: "Live scheduled strategy tasks"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal, TicksFiltered, FeedReconnects,
		OrdersTotal, GuardBlocks, TuningRuns, ScheduledTasks,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
