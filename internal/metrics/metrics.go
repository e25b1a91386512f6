package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	classificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soc_classifications_total",
		Help: "Total number of flows classified, by predicted result and simulated type",
	}, []string{"result", "simulated"})
	classificationErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "soc_classification_errors_total",
		Help: "Total number of replay iterations skipped, by failing stage",
	}, []string{"stage"})
	confidence = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "soc_classification_confidence",
		Help:    "Confidence of the predicted class",
		Buckets: []float64{0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 0.99, 1},
	})
	dashboardRefreshTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "soc_dashboard_refresh_total",
		Help: "Total number of traffic log reloads",
	})
	dashboardRefreshErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "soc_dashboard_refresh_errors_total",
		Help: "Total number of failed traffic log reloads",
	})
	dashboardEvents = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "soc_dashboard_events",
		Help: "Events currently loaded in the dashboard, by predicted result",
	}, []string{"result"})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry *prometheus.Registry) {
	registry.MustRegister(
		classificationsTotal,
		classificationErrorsTotal,
		confidence,
		dashboardRefreshTotal,
		dashboardRefreshErrorsTotal,
		dashboardEvents,
	)
}

// ObserveClassification records one logged classification.
func ObserveClassification(result, simulated string, conf float64) {
	classificationsTotal.WithLabelValues(result, simulated).Inc()
	confidence.Observe(conf)
}

// IncClassificationError counts a skipped iteration. stage is "classify" or "append".
func IncClassificationError(stage string) { classificationErrorsTotal.WithLabelValues(stage).Inc() }

// IncDashboardRefresh increments the reload counter.
func IncDashboardRefresh() { dashboardRefreshTotal.Inc() }

// IncDashboardRefreshError increments the failed reload counter.
func IncDashboardRefreshError() { dashboardRefreshErrorsTotal.Inc() }

// SetDashboardEvents replaces the loaded event gauge.
func SetDashboardEvents(byResult map[string]int) {
	dashboardEvents.Reset()
	for result, n := range byResult {
		dashboardEvents.WithLabelValues(result).Set(float64(n))
	}
}
