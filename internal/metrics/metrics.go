// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics exposes Prometheus counters for the editor workflows.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	PreviewsTotal       *prometheus.CounterVec
	PreviewFetchErrors  *prometheus.CounterVec
	CommitsTotal        *prometheus.CounterVec
	CommitErrors        *prometheus.CounterVec
	ActivationsCanceled *prometheus.CounterVec
	ReorderRollbacks    *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: registry,
		PreviewsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rulegate",
			Subsystem: "activation",
			Name:      "previews_total",
			Help:      "Total number of rule preview evaluations requested",
		}, []string{"instance_id"}),
		PreviewFetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rulegate",
			Subsystem: "activation",
			Name:      "preview_fetch_errors_total",
			Help:      "Total number of failed preview evaluations",
		}, []string{"instance_id"}),
		CommitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rulegate",
			Subsystem: "activation",
			Name:      "commits_total",
			Help:      "Total number of confirmed destructive activations",
		}, []string{"instance_id"}),
		CommitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rulegate",
			Subsystem: "activation",
			Name:      "commit_errors_total",
			Help:      "Total number of failed activation commits",
		}, []string{"instance_id"}),
		ActivationsCanceled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rulegate",
			Subsystem: "activation",
			Name:      "cancelled_total",
			Help:      "Total number of activations dismissed without committing",
		}, []string{"instance_id"}),
		ReorderRollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rulegate",
			Subsystem: "rulelist",
			Name:      "reorder_rollbacks_total",
			Help:      "Total number of reorders rolled back after a backend failure",
		}, []string{"instance_id"}),
	}

	registry.MustRegister(
		c.PreviewsTotal,
		c.PreviewFetchErrors,
		c.CommitsTotal,
		c.CommitErrors,
		c.ActivationsCanceled,
		c.ReorderRollbacks,
	)
	return c
}

// Handler serves the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstanceLabel formats the shared instance_id label value.
func InstanceLabel(instanceID int) string {
	return strconv.Itoa(instanceID)
}
