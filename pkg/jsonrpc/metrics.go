// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package jsonrpc

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments the transport. All metrics are optional; a Client with
// a nil Metrics records nothing.
type Metrics struct {
	FramesTotal    *prometheus.CounterVec
	AnomaliesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers transport metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flogin_frames_total",
				Help: "Total frames moved over the host pipe by direction",
			},
			[]string{"direction"},
		),
		AnomaliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flogin_transport_anomalies_total",
				Help: "Non-fatal transport anomalies by kind",
			},
			[]string{"kind"},
		),
	}

	reg.MustRegister(m.FramesTotal)
	reg.MustRegister(m.AnomaliesTotal)

	return m
}
