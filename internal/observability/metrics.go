// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Discovery metrics
	PoolsFetched    prometheus.Counter
	PoolsDeduped    prometheus.Counter
	PoolsPreRanked  prometheus.Counter
	DiscoveryErrors *prometheus.CounterVec

	// Evaluation metrics
	CandidatesEvaluated prometheus.Counter
	Rejections          *prometheus.CounterVec
	Warnings            *prometheus.CounterVec
	ScoreDistribution   prometheus.Histogram

	// Risk metrics
	GovernorBlocks    *prometheus.CounterVec
	BreakerState      prometheus.Gauge
	AtRiskSOL         prometheus.Gauge
	KillSwitchEngaged prometheus.Gauge

	// Execution metrics
	TradesExecuted *prometheus.CounterVec
	ConfirmLatency prometheus.Histogram

	// Position metrics
	PositionsOpen   prometheus.Gauge
	PositionsOpened prometheus.Counter
	PositionExits   *prometheus.CounterVec
	RealizedPnLSOL  prometheus.Gauge

	// Tick metrics
	TickDuration prometheus.Histogram
	TickErrors   *prometheus.CounterVec
	LastTickAt   prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_sniper"
	}

	return &Metrics{
		// Discovery metrics
		PoolsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pools_fetched_total",
			Help:      "Total number of pool candidates fetched",
		}),
		PoolsDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pools_deduped_total",
			Help:      "Total number of pool candidates dropped as already seen",
		}),
		PoolsPreRanked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "pools_preranked_total",
			Help:      "Total number of pool candidates passed to full evaluation",
		}),
		DiscoveryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "errors_total",
			Help:      "Total number of discovery errors by source",
		}, []string{"source"}),

		// Evaluation metrics
		CandidatesEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "candidates_evaluated_total",
			Help:      "Total number of candidates run through the full pipeline",
		}),
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "rejections_total",
			Help:      "Total number of rejections by reason code",
		}, []string{"reason"}),
		Warnings: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "warnings_total",
			Help:      "Total number of non-blocking warnings by code",
		}, []string{"code"}),
		ScoreDistribution: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "evaluation",
			Name:      "score",
			Help:      "Distribution of candidate composite scores",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),

		// Risk metrics
		GovernorBlocks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "governor_blocks_total",
			Help:      "Total number of entries blocked by the governor, by reason",
		}, []string{"reason"}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "circuit_breaker_open",
			Help:      "1 when the execution circuit breaker is open",
		}),
		AtRiskSOL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "at_risk_sol",
			Help:      "Current at-risk notional across open positions in SOL",
		}),
		KillSwitchEngaged: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "kill_switch_engaged",
			Help:      "1 when the kill switch file is present",
		}),

		// Execution metrics
		TradesExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "trades_total",
			Help:      "Total number of trades by side and status",
		}, []string{"side", "status"}),
		ConfirmLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "confirm_latency_seconds",
			Help:      "Latency from transaction submit to confirmation",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		// Position metrics
		PositionsOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "open",
			Help:      "Current number of open positions",
		}),
		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "opened_total",
			Help:      "Total number of positions opened",
		}),
		PositionExits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "exits_total",
			Help:      "Total number of exit legs by reason",
		}, []string{"reason"}),
		RealizedPnLSOL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "realized_pnl_sol",
			Help:      "Realized P&L accumulated on currently open positions in SOL",
		}),

		// Tick metrics
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one orchestrator tick",
			Buckets:   prometheus.DefBuckets,
		}),
		TickErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "tick_errors_total",
			Help:      "Total number of isolated tick-stage errors",
		}, []string{"stage"}),
		LastTickAt: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "orchestrator",
			Name:      "last_tick_timestamp",
			Help:      "Unix timestamp of the last completed tick",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
