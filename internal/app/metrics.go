// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/bmx160/internal/imu"
)

// Metrics are the producer's Prometheus series.
type Metrics struct {
	Samples       prometheus.Counter
	ReadErrors    prometheus.Counter
	PublishErrors *prometheus.CounterVec
	MagNorm       prometheus.Gauge
	AccelNorm     prometheus.Gauge
	LastSample    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the series and registers them on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Samples: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bmx160_samples_total",
			Help: "Samples read from the BMX160.",
		}),
		ReadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bmx160_read_errors_total",
			Help: "Failed sample reads.",
		}),
		PublishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bmx160_publish_errors_total",
				Help: "Failed MQTT publishes.",
			},
			[]string{"topic"},
		),
		MagNorm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bmx160_mag_field_microtesla",
			Help: "Magnitude of the last magnetometer reading.",
		}),
		AccelNorm: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bmx160_accel_norm_ms2",
			Help: "Magnitude of the last accelerometer reading.",
		}),
		LastSample: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bmx160_last_sample_timestamp_seconds",
			Help: "Time of the last sample.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.Samples, m.ReadErrors, m.PublishErrors, m.MagNorm, m.AccelNorm, m.LastSample)
	return m
}

// Observe records a successful read.
func (m *Metrics) Observe(s imu.Sample) {
	m.Samples.Inc()
	m.MagNorm.Set(s.MagNorm())
	m.AccelNorm.Set(s.AccelNorm())
	m.LastSample.Set(float64(s.Time.UnixNano()) / 1e9)
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
