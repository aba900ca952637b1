package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	refreshv1 "github.com/noderefresh/node-refresh-operator/api/v1"
)

var allPhases = []refreshv1.RefreshPhase{
	refreshv1.PhaseIdle,
	refreshv1.PhaseProvisioning,
	refreshv1.PhaseDraining,
	refreshv1.PhaseValidating,
	refreshv1.PhaseCompleted,
	refreshv1.PhaseFailed,
}

var (
	// Reconciliation metrics
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "noderefresh",
			Subsystem: "controller",
			Name:      "reconcile_total",
			Help:      "Total number of reconciliations by result",
		},
		[]string{"noderefresh", "result"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "noderefresh",
			Subsystem: "controller",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~10s
		},
		[]string{"noderefresh"},
	)

	// Run metrics
	phaseInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "noderefresh",
			Subsystem: "run",
			Name:      "phase",
			Help:      "Current phase of each NodeRefresh (1 for the active phase, 0 otherwise)",
		},
		[]string{"noderefresh", "phase"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "noderefresh",
			Subsystem: "run",
			Name:      "finished_total",
			Help:      "Total number of finished runs by final phase",
		},
		[]string{"noderefresh", "phase"},
	)

	nodesRefreshedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "noderefresh",
			Subsystem: "run",
			Name:      "nodes_refreshed_total",
			Help:      "Total number of nodes drained and validated",
		},
		[]string{"noderefresh"},
	)

	// Eviction metrics
	evictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "noderefresh",
			Subsystem: "drain",
			Name:      "evictions_total",
			Help:      "Total number of pods reaching a terminal eviction outcome",
		},
		[]string{"noderefresh", "outcome"},
	)

	healthPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "noderefresh",
			Subsystem: "drain",
			Name:      "health_percent",
			Help:      "Last measured percentage of Ready workload pods",
		},
		[]string{"noderefresh"},
	)

	// Provisioning metrics
	provisioningDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "noderefresh",
			Subsystem: "provisioning",
			Name:      "duration_seconds",
			Help:      "Time from requesting capacity until the provider reported it ready",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		},
		[]string{"noderefresh", "provider"},
	)
)

func init() {
	// Register metrics with controller-runtime's registry
	metrics.Registry.MustRegister(
		reconcileTotal,
		reconcileDuration,
		phaseInfo,
		runsTotal,
		nodesRefreshedTotal,
		evictionsTotal,
		healthPercent,
		provisioningDuration,
	)
}

// recordReconcileMetric records a reconciliation result.
func recordReconcileMetric(name, result string, duration float64) {
	reconcileTotal.WithLabelValues(name, result).Inc()
	reconcileDuration.WithLabelValues(name).Observe(duration)
}

// recordPhaseMetric marks phase as the only active phase of name.
func recordPhaseMetric(name string, phase refreshv1.RefreshPhase) {
	for _, p := range allPhases {
		v := 0.0
		if p == phase {
			v = 1
		}
		phaseInfo.WithLabelValues(name, string(p)).Set(v)
	}
}

func recordRunFinishedMetric(name string, phase refreshv1.RefreshPhase) {
	runsTotal.WithLabelValues(name, string(phase)).Inc()
}

func recordNodeRefreshedMetric(name string) {
	nodesRefreshedTotal.WithLabelValues(name).Inc()
}

// recordEvictionsMetric adds terminal eviction outcomes.
func recordEvictionsMetric(name string, evicted, exhausted int) {
	if evicted > 0 {
		evictionsTotal.WithLabelValues(name, "evicted").Add(float64(evicted))
	}
	if exhausted > 0 {
		evictionsTotal.WithLabelValues(name, "exhausted").Add(float64(exhausted))
	}
}

func recordHealthMetric(name string, percent int) {
	healthPercent.WithLabelValues(name).Set(float64(percent))
}

func recordProvisioningDurationMetric(name, provider string, seconds float64) {
	provisioningDuration.WithLabelValues(name, provider).Observe(seconds)
}

// forgetMetrics drops the per-resource gauges of a deleted NodeRefresh.
func forgetMetrics(name string) {
	phaseInfo.DeletePartialMatch(prometheus.Labels{"noderefresh": name})
	healthPercent.DeleteLabelValues(name)
}

// Metrics helper methods that check enableMetrics before recording.

func (r *NodeRefreshReconciler) recordReconcile(name, result string, duration float64) {
	if r.enableMetrics {
		recordReconcileMetric(name, result, duration)
	}
}

func (r *NodeRefreshReconciler) recordPhase(name string, phase refreshv1.RefreshPhase) {
	if r.enableMetrics {
		recordPhaseMetric(name, phase)
	}
}

func (r *NodeRefreshReconciler) recordRunFinished(name string, phase refreshv1.RefreshPhase) {
	if r.enableMetrics {
		recordRunFinishedMetric(name, phase)
	}
}

func (r *NodeRefreshReconciler) recordNodeRefreshed(name string) {
	if r.enableMetrics {
		recordNodeRefreshedMetric(name)
	}
}

func (r *NodeRefreshReconciler) recordEvictions(name string, evicted, exhausted int) {
	if r.enableMetrics {
		recordEvictionsMetric(name, evicted, exhausted)
	}
}

func (r *NodeRefreshReconciler) recordHealth(name string, percent int) {
	if r.enableMetrics {
		recordHealthMetric(name, percent)
	}
}

func (r *NodeRefreshReconciler) recordProvisioningDuration(name, provider string, seconds float64) {
	if r.enableMetrics {
		recordProvisioningDurationMetric(name, provider, seconds)
	}
}

func (r *NodeRefreshReconciler) forgetMetrics(name string) {
	if r.enableMetrics {
		forgetMetrics(name)
	}
}
