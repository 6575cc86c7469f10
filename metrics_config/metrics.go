// Package metrics_config wires the validator's counters, gauges, and
// timers into Prometheus and exposes them on /metrics.
package metrics_config

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// enabled is checked by the constructor functions for all of the
// standard metrics. If it is false, they return nil instead of a metric.
//
// This global kill-switch helps quantify the observer effect and makes
// for less cluttered pprof profiles.
var enabled = true

func EnableMetrics() {
	enabled = true
}

func DisableMetrics() {
	enabled = false
}

func MetricsEnabled() bool {
	return enabled
}

// ServeMetrics starts the Prometheus /metrics HTTP endpoint on addr. It
// blocks, so callers run it in its own goroutine.
func ServeMetrics(addr string) error {
	if !enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

func NewGaugeVec(name string, help string, labels ...string) *prometheus.GaugeVec {
	if !enabled {
		return nil
	}
	gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	}, labels)
	prometheus.MustRegister(gaugeVec)
	return gaugeVec
}

func NewGauge(name string, help string) prometheus.Gauge {
	if !enabled {
		return nil
	}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	})
	prometheus.MustRegister(gauge)
	return gauge
}

func NewCounter(name string, help string) prometheus.Counter {
	if !enabled {
		return nil
	}
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: help,
	})
	prometheus.MustRegister(counter)
	return counter
}

func NewCounterVec(name string, help string, labels ...string) *prometheus.CounterVec {
	if !enabled {
		return nil
	}
	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, labels)
	prometheus.MustRegister(counterVec)
	return counterVec
}

func NewTimer(name string, help string) *prometheus.Timer {
	if !enabled {
		return nil
	}
	return prometheus.NewTimer(NewHistogram(name, help))
}

// NewHistogram registers a bare histogram a caller can time repeatedly via
// its own prometheus.NewTimer(hist) per observation, unlike NewTimer which
// starts timing immediately at construction.
func NewHistogram(name string, help string) prometheus.Histogram {
	if !enabled {
		return nil
	}
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: name,
		Help: help,
	})
	prometheus.MustRegister(hist)
	return hist
}
