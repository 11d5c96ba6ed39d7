// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package deploy

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the deployer's Prometheus instrumentation: counters and
// histograms built at construction and incremented inline.
type Metrics struct {
	DeploysTotal       *prometheus.CounterVec
	DeployPhaseSeconds *prometheus.HistogramVec
}

// NewMetrics builds a fresh, unregistered Metrics. The caller registers it
// with whatever prometheus.Registerer the process uses.
func NewMetrics() *Metrics {
	return &Metrics{
		DeploysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firelet_deploys_total",
			Help: "Total number of deploy attempts by result.",
		}, []string{"result"}),
		DeployPhaseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "firelet_deploy_phase_seconds",
			Help: "Time spent in each deploy phase.",
		}, []string{"phase"}),
	}
}

// Collectors returns every metric for bulk registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.DeploysTotal, m.DeployPhaseSeconds}
}
