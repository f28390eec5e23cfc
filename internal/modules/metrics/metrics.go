// Package metrics exposes engine counters in Prometheus text format.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxSignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flip_signals_total",
			Help: "Signals by decision",
		},
		[]string{"decision"}, // accepted|rejected|blocked
	)

	mtxActiveCycles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flip_active_cycles",
			Help: "Currently active flip cycles",
		},
	)

	mtxFills = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flip_rung_fills_total",
			Help: "Ladder rung fills",
		},
	)

	mtxExits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flip_exits_total",
			Help: "Cycle exits split by reason",
		},
		[]string{"reason"}, // hard_stop|trailing_stop|take_profit|cognitive_exit|decay
	)

	mtxVaultReserve = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flip_vault_reserve_total",
			Help: "Cumulative reserve siphoned from realized profit",
		},
	)

	mtxFeedFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flip_feed_failures_total",
			Help: "Skipped poll ticks due to price feed errors",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxSignals, mtxActiveCycles, mtxFills, mtxExits, mtxVaultReserve, mtxFeedFailures)
}

func IncSignal(decision string) { mtxSignals.WithLabelValues(decision).Inc() }
func SetActiveCycles(n int)     { mtxActiveCycles.Set(float64(n)) }
func IncFill()                  { mtxFills.Inc() }
func IncExit(reason string)     { mtxExits.WithLabelValues(reason).Inc() }
func SetVaultReserve(v float64) { mtxVaultReserve.Set(v) }
func IncFeedFailure()           { mtxFeedFailures.Inc() }
