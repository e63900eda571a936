// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wraps the prometheus collectors the feed store and
// version manager expose, adapted from the teacher's metrics.Metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters and gauges tinylog exposes.
type Metrics struct {
	Registry prometheus.Registerer

	PacketsAppended prometheus.Counter
	BlobsAppended   prometheus.Counter
	VerifyFailures  prometheus.Counter
	ApplyPerformed  prometheus.Counter
	ApplyQueued     prometheus.Counter
	OpenFeeds       prometheus.Gauge
}

// New creates and registers a Metrics instance against reg. A nil reg
// uses a fresh, unregistered prometheus.Registry so callers that don't
// care about a shared registry can ignore wiring one up.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		Registry: reg,
		PacketsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tinylog",
			Subsystem: "store",
			Name:      "packets_appended_total",
			Help:      "Number of packets appended across all feeds.",
		}),
		BlobsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tinylog",
			Subsystem: "store",
			Name:      "blobs_appended_total",
			Help:      "Number of blob records written across all feeds.",
		}),
		VerifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tinylog",
			Subsystem: "store",
			Name:      "verify_failures_total",
			Help:      "Number of wire packets rejected for bad signatures.",
		}),
		ApplyPerformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tinylog",
			Subsystem: "version",
			Name:      "apply_performed_total",
			Help:      "Number of version jumps applied to a tracked file.",
		}),
		ApplyQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tinylog",
			Subsystem: "version",
			Name:      "apply_queued_total",
			Help:      "Number of apply requests deferred to the apply queue.",
		}),
		OpenFeeds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tinylog",
			Subsystem: "store",
			Name:      "open_feeds",
			Help:      "Number of feed handles created or opened (store.Create/store.Open); never decremented.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.PacketsAppended, m.BlobsAppended, m.VerifyFailures,
		m.ApplyPerformed, m.ApplyQueued, m.OpenFeeds,
	} {
		_ = m.Registry.Register(c)
	}

	return m
}

// NoOp returns a Metrics whose collectors are never observed by any
// registry, safe to use as a default when a caller doesn't care about
// metrics.
func NoOp() *Metrics {
	return New(prometheus.NewRegistry())
}
