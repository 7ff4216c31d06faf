/*
 * Copyright 2025 Ted Dunning
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics exports the negotiation state of the bridge to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	Negotiations    *prometheus.CounterVec
	WidthReductions prometheus.Counter
	FIFODepth       prometheus.Gauge
	LinkIndex       prometheus.Gauge
	LinkFrequency   prometheus.Gauge
	DroppedLinks    prometheus.Gauge
}

// Outcomes of a negotiation.
const (
	Accepted = "accepted"
	Reduced  = "reduced"
	Rejected = "rejected"
)

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Negotiations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csibridge",
			Name:      "negotiations_total",
			Help:      "Format negotiations by outcome.",
		}, []string{"outcome"}),
		WidthReductions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "csibridge",
			Name:      "width_reduced_pixels_total",
			Help:      "Pixels cut from requested line widths to make the link fit.",
		}),
		FIFODepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "csibridge",
			Name:      "fifo_depth_words",
			Help:      "Active video buffer depth in 32 bit words.",
		}),
		LinkIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "csibridge",
			Name:      "link_index",
			Help:      "Index of the active link setting.",
		}),
		LinkFrequency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "csibridge",
			Name:      "link_frequency_hertz",
			Help:      "CSI-2 link frequency of the active link setting.",
		}),
		DroppedLinks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "csibridge",
			Name:      "dropped_link_settings",
			Help:      "Offered link frequencies that were unusable.",
		}),
	}
	m.registry.MustRegister(m.Negotiations, m.WidthReductions, m.FIFODepth,
		m.LinkIndex, m.LinkFrequency, m.DroppedLinks)
	for _, o := range []string{Accepted, Reduced, Rejected} {
		m.Negotiations.WithLabelValues(o)
	}
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
