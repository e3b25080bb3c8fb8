package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Cycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbwatch_cycles_total",
		Help: "Completed monitor cycles",
	})

	CycleSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arbwatch_cycle_seconds",
		Help:    "Wall time of a full monitor cycle",
		Buckets: prometheus.DefBuckets,
	})

	PairsEvaluated = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arbwatch_pairs_evaluated",
		Help: "Pairs evaluated in the last cycle",
	})

	PairsSkipped = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arbwatch_pairs_skipped",
		Help: "Pairs skipped in the last cycle (expired, stale or missing books)",
	})

	BestEdgeCents = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arbwatch_best_edge_cents",
		Help: "Best edge seen in the last cycle, in cents",
	})

	Alerts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbwatch_alerts_total",
		Help: "Opportunities that cleared thresholds and cooldown",
	})

	Suppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbwatch_alerts_suppressed_total",
		Help: "Opportunities muted by the cooldown window",
	})

	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "arbwatch_fetch_errors_total",
		Help: "Order book fetches that failed or came back incomplete, by venue",
	}, []string{"venue"})
)

func init() {
	prometheus.MustRegister(
		Cycles,
		CycleSeconds,
		PairsEvaluated,
		PairsSkipped,
		BestEdgeCents,
		Alerts,
		Suppressed,
		FetchErrors,
	)
}
