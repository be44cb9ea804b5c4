// SPDX-License-Identifier: MIT

// Package orchestrator implements the Refresh Orchestrator: for a
// configured set of Source Descriptors, it drives each adapter's Refresh,
// persists discovered Video Records, and advances watermarks.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tidewatch/vidsync/internal/adapter"
	vidlog "github.com/tidewatch/vidsync/internal/log"
	"github.com/tidewatch/vidsync/internal/metrics"
	"github.com/tidewatch/vidsync/internal/orchestrator/lock"
	"github.com/tidewatch/vidsync/internal/platform"
	"github.com/tidewatch/vidsync/internal/telemetry"
	"github.com/tidewatch/vidsync/internal/video"
)

// DefaultFanOut is the bounded-concurrency default when a caller passes
// fanOut <= 0: small, per the concurrency model's guidance.
const DefaultFanOut = 4

// SourceOutcome summarizes one source's refresh within a cycle.
type SourceOutcome struct {
	Kind           string
	SourceID       string
	PersistedCount int
	ItemErrors     int
	FatalErr       error
}

// Summary is the result of one complete RunCycle call.
type Summary struct {
	CorrelationID string
	StartedAt     time.Time
	FinishedAt    time.Time
	Sources       []SourceOutcome
}

// RunCycle drives every source concurrently with bounded fan-out. Each
// source's refresh is independent: a fatal error on one source never aborts
// the others, and per-item failures never abort their source's refresh.
func RunCycle(ctx context.Context, sources []adapter.VideoSource, store *video.Store, fanOut int) Summary {
	if fanOut <= 0 {
		fanOut = DefaultFanOut
	}

	cycleID := uuid.NewString()
	ctx = vidlog.ContextWithCycleID(ctx, cycleID)
	log := vidlog.WithComponent("orchestrator")

	tracer := telemetry.Tracer("vidsync.orchestrator")
	ctx, span := tracer.Start(ctx, "cycle.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cycle.id", cycleID),
			attribute.Int("source.count", len(sources)),
			attribute.Int("fan_out", fanOut),
		),
	)
	defer span.End()

	summary := Summary{CorrelationID: cycleID, StartedAt: time.Now().UTC()}

	g := new(errgroup.Group)
	g.SetLimit(fanOut)

	var mu sync.Mutex
	outcomes := make([]SourceOutcome, 0, len(sources))

	for _, src := range sources {
		src := src
		g.Go(func() error {
			outcome := refreshOne(ctx, src, store)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() // refreshOne never returns a non-nil error; per-source failure is captured in outcome

	summary.Sources = outcomes
	summary.FinishedAt = time.Now().UTC()

	outcome := "ok"
	for _, o := range summary.Sources {
		if o.FatalErr != nil {
			outcome = "partial"
			break
		}
	}
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	metrics.CycleDurationSeconds.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())

	span.SetAttributes(attribute.String("cycle.outcome", outcome))
	if outcome == "partial" {
		span.SetStatus(codes.Error, "one or more sources hit a fatal error")
	} else {
		span.SetStatus(codes.Ok, "")
	}

	log.Info().
		Str("cycle_id", cycleID).
		Int("source_count", len(sources)).
		Dur("duration", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("cycle completed")

	return summary
}

// RunCycleLocked runs RunCycle gated by cl, a distributed lock shared across
// daemon replicas. cl == nil means no coordination is configured (the normal
// single-replica deployment): the cycle always runs. When cl is set, ran is
// false and the zero Summary is returned if another replica currently holds
// the lock — the caller should treat that as "skipped this tick", not an
// error. The lock is released once RunCycle returns, whether it succeeded or
// the context was cancelled mid-cycle.
func RunCycleLocked(ctx context.Context, cl *lock.CycleLock, sources []adapter.VideoSource, store *video.Store, fanOut int) (summary Summary, ran bool, err error) {
	if cl == nil {
		return RunCycle(ctx, sources, store, fanOut), true, nil
	}

	ok, err := cl.TryAcquire(ctx)
	if err != nil {
		return Summary{}, false, err
	}
	if !ok {
		return Summary{}, false, nil
	}
	defer func() { _ = cl.Release(ctx) }()

	return RunCycle(ctx, sources, store, fanOut), true, nil
}

// refreshOne drives a single source's refresh to completion. ctx carries
// cancellation to the adapter's producer goroutine and gates the consuming
// loop; runCtx is a cancellation-detached derivative of ctx used only for
// the DB insert and watermark commit, so a cycle cancellation lets an
// in-flight write finish cleanly instead of aborting mid-write.
func refreshOne(ctx context.Context, src adapter.VideoSource, store *video.Store) SourceOutcome {
	kind, sourceID := src.FilterExpr()

	tracer := telemetry.Tracer("vidsync.orchestrator")
	ctx, span := tracer.Start(ctx, "source.refresh",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("source.kind", string(kind)),
			attribute.String("source.id", sourceID),
		),
	)
	defer span.End()

	runCtx := context.WithoutCancel(ctx)
	outcome := SourceOutcome{Kind: string(kind), SourceID: sourceID}
	log := vidlog.FromContext(ctx).With().Str("source_kind", string(kind)).Str("source_id", sourceID).Logger()

	src.LogRefreshStart()
	metrics.ActiveSourceRefreshes.Inc()
	defer metrics.ActiveSourceRefreshes.Dec()

	ch, err := src.Refresh(ctx)
	if err != nil {
		outcome.FatalErr = err
		log.Error().Err(err).Msg("refresh failed before pagination started")
		src.LogRefreshEnd(0)
		metrics.SourcesRefreshedTotal.WithLabelValues(string(kind), "fatal").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed before pagination started")
		return outcome
	}

	var maxSeen time.Time
	watermarkStart, err := src.CurrentWatermark(ctx)
	if err != nil {
		outcome.FatalErr = err
		log.Error().Err(err).Msg("failed to read current watermark")
		src.LogRefreshEnd(0)
		return outcome
	}

	for r := range ch {
		if ctx.Err() != nil {
			// Cooperative cancellation: stop consuming, watermark is not
			// advanced, and the in-flight producer goroutine will observe
			// ctx.Done() on its own next send and exit.
			break
		}

		if r.Err != nil {
			outcome.ItemErrors++
			metrics.PagesFetchedTotal.WithLabelValues(string(kind)).Inc()
			if platform.IsFatal(r.Err) {
				outcome.FatalErr = r.Err
				log.Error().Err(r.Err).Msg("fatal error from platform client; source cycle aborted")
				metrics.ItemErrorsTotal.WithLabelValues(string(kind), "fatal").Inc()
				break
			}
			log.Warn().Err(r.Err).Msg("item-level error; dropped")
			metrics.ItemErrorsTotal.WithLabelValues(string(kind), "item").Inc()
			continue
		}

		info, ok := src.ShouldFilter(r, watermarkStart)
		if !ok {
			continue
		}

		builder := video.NewBuilder(info, src.LocalPath(), time.Now().UTC())
		src.BindSourceRelation(builder)
		rec := builder.Build()

		inserted, insErr := store.Insert(runCtx, rec)
		if insErr != nil {
			log.Error().Err(insErr).Str("platform_video_id", info.PlatformVideoID).Msg("db error persisting video; item skipped")
			continue
		}

		if info.ReleaseTS.After(maxSeen) {
			maxSeen = info.ReleaseTS
		}
		if inserted {
			outcome.PersistedCount++
			metrics.VideosPersistedTotal.WithLabelValues(string(kind)).Inc()
		} else {
			metrics.VideosDedupedTotal.WithLabelValues(string(kind)).Inc()
		}
	}

	if outcome.FatalErr == nil && ctx.Err() == nil && maxSeen.After(watermarkStart) {
		if err := src.AdvanceWatermark(maxSeen).Commit(runCtx, store.DB()); err != nil {
			log.Error().Err(err).Msg("failed to commit watermark advance")
			outcome.FatalErr = err
		} else {
			metrics.WatermarkAdvancesTotal.WithLabelValues(string(kind)).Inc()
		}
	}

	src.LogRefreshEnd(outcome.PersistedCount)
	status := "ok"
	if outcome.FatalErr != nil {
		status = "fatal"
	} else if ctx.Err() != nil {
		status = "cancelled"
	}
	metrics.SourcesRefreshedTotal.WithLabelValues(string(kind), status).Inc()

	span.SetAttributes(
		attribute.Int("source.persisted_count", outcome.PersistedCount),
		attribute.Int("source.item_errors", outcome.ItemErrors),
		attribute.String("source.status", status),
	)
	if outcome.FatalErr != nil {
		span.RecordError(outcome.FatalErr)
		span.SetStatus(codes.Error, "source refresh ended with a fatal error")
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return outcome
}
