// SPDX-License-Identifier: MIT

// Package metrics provides Prometheus metrics for the refresh pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts completed refresh cycles by outcome.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_cycles_total",
		Help: "Total number of refresh cycles run, by outcome (ok/partial).",
	}, []string{"outcome"})

	// SourcesRefreshedTotal counts per-source refresh attempts by kind and outcome.
	SourcesRefreshedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_sources_refreshed_total",
		Help: "Total number of source refresh attempts, by source kind and outcome.",
	}, []string{"source_kind", "outcome"})

	// VideosPersistedTotal counts newly persisted video rows by source kind.
	VideosPersistedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_videos_persisted_total",
		Help: "Total number of newly persisted video records, by source kind.",
	}, []string{"source_kind"})

	// VideosDedupedTotal counts items skipped due to unique-constraint dedup.
	VideosDedupedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_videos_deduped_total",
		Help: "Total number of items skipped as already-seen, by source kind.",
	}, []string{"source_kind"})

	// ItemErrorsTotal counts item-level stream errors by source kind and category.
	ItemErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_item_errors_total",
		Help: "Total number of item-level errors surfaced during pagination, by source kind and error kind.",
	}, []string{"source_kind", "error_kind"})

	// WatermarkAdvancesTotal counts successful watermark advances by source kind.
	WatermarkAdvancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_watermark_advances_total",
		Help: "Total number of watermark advances committed, by source kind.",
	}, []string{"source_kind"})

	// PagesFetchedTotal counts pages fetched from the platform client by source kind.
	PagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_pages_fetched_total",
		Help: "Total number of pages fetched from the platform client, by source kind.",
	}, []string{"source_kind"})

	// DedupCacheHitsTotal counts badger dedup-cache hits that avoided a DB round trip.
	DedupCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsync_dedup_cache_hits_total",
		Help: "Total number of dedup cache hits that skipped a DB insert attempt.",
	}, []string{"source_kind"})

	// CycleDurationSeconds observes wall-clock duration of a full refresh cycle.
	CycleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vidsync_cycle_duration_seconds",
		Help:    "Duration of a full refresh cycle across all sources.",
		Buckets: prometheus.DefBuckets,
	})

	// ActiveSourceRefreshes tracks the current number of in-flight per-source refreshes.
	ActiveSourceRefreshes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidsync_active_source_refreshes",
		Help: "Current number of source refreshes in flight (bounded by the fan-out limit).",
	})
)
