/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package syncstore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts synchronization outcomes. Auto-save failures never
// reach the mutating caller, so the failure counter (together with the
// error hook and the logger) is the supported way to observe degraded
// durability. All methods are nil-safe: a SyncedStore without metrics
// simply counts nothing.
type Metrics struct {
	Loads         prometheus.Counter
	Saves         prometheus.Counter
	SaveFailures  prometheus.Counter
	SingleUpdates prometheus.Counter
}

// NewMetrics creates counters labeled with the store name.
func NewMetrics(storeName string) *Metrics {
	labels := prometheus.Labels{"store": storeName}
	return &Metrics{
		Loads: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "syncstore_loads_total",
			Help:        "Total number of backend loads",
			ConstLabels: labels,
		}),
		Saves: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "syncstore_saves_total",
			Help:        "Total number of successful background saves",
			ConstLabels: labels,
		}),
		SaveFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "syncstore_save_failures_total",
			Help:        "Total number of swallowed background save failures",
			ConstLabels: labels,
		}),
		SingleUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "syncstore_single_updates_total",
			Help:        "Total number of single-item backend updates",
			ConstLabels: labels,
		}),
	}
}

// MustRegister registers all counters on reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.Loads, m.Saves, m.SaveFailures, m.SingleUpdates)
}

func (m *Metrics) incLoads() {
	if m != nil {
		m.Loads.Inc()
	}
}

func (m *Metrics) incSaves() {
	if m != nil {
		m.Saves.Inc()
	}
}

func (m *Metrics) incSaveFailures() {
	if m != nil {
		m.SaveFailures.Inc()
	}
}

func (m *Metrics) incSingleUpdates() {
	if m != nil {
		m.SingleUpdates.Inc()
	}
}
