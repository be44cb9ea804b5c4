// SPDX-License-Identifier: MIT

// Package adapter implements the Source Adapter: the polymorphic interface
// that turns a Source Descriptor into a lazy sequence of newly-available
// video metadata by paging the Platform Client. One concrete type exists per
// source variant; all four share the default should_take/should_filter
// behavior through the embedded Base mixin.
package adapter

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	vidlog "github.com/tidewatch/vidsync/internal/log"
	"github.com/tidewatch/vidsync/internal/platform"
	"github.com/tidewatch/vidsync/internal/source"
	"github.com/tidewatch/vidsync/internal/telemetry"
	"github.com/tidewatch/vidsync/internal/video"
	"github.com/tidewatch/vidsync/internal/watermark"
)

// Result is one element of the lazy sequence a VideoSource yields: either a
// successfully-retrieved VideoInfo, or an error for that position in the
// stream. It is the Go-native rendering of the fallible item the original
// design calls "VideoInfo or Err" — the in-process equivalent of
// platform.ItemOrErr, carried all the way to the orchestrator.
type Result struct {
	Info source.VideoInfo
	Err  error
}

// VideoSource is the Source Adapter contract every variant implements.
type VideoSource interface {
	// FilterExpr returns a database predicate that, combined in a query,
	// selects exactly the Video Records belonging to this source.
	FilterExpr() (sourceKind source.Kind, sourceID string)

	// BindSourceRelation mutates a Video Record builder so the resulting
	// row back-references this source's variant and id.
	BindSourceRelation(b *video.Builder)

	// LocalPath returns the configured output path; stable for the adapter's
	// lifetime.
	LocalPath() string

	// CurrentWatermark returns W as last persisted, read from the store on
	// each call; Refresh keeps the value it read in Base.Watermark.
	CurrentWatermark(ctx context.Context) (time.Time, error)

	// AdvanceWatermark produces a staged update that, when committed, sets
	// W := t for this source only.
	AdvanceWatermark(t time.Time) watermark.PendingUpdate

	// ShouldTake is the cheap early pagination cutoff: given an item's
	// release timestamp and the snapshotted watermark, reports whether the
	// item is new enough to take.
	ShouldTake(releaseTS, w time.Time) bool

	// ShouldFilter is the second-stage sieve over fully-populated metadata.
	// A nil error with ok=false means the item should be dropped without
	// being counted as an error.
	ShouldFilter(r Result, w time.Time) (info source.VideoInfo, ok bool)

	// Refresh initiates whatever platform-side calls are necessary (e.g.
	// fetching a favorite list's title), then returns a channel yielding a
	// lazy, non-restartable, finite sequence of Results in
	// reverse-chronological order of release timestamp. The channel is
	// closed when the sequence ends; the adapter retains no mutable state
	// after returning.
	Refresh(ctx context.Context) (<-chan Result, error)

	// LogRefreshStart and LogRefreshEnd are the adapter's log hooks:
	// observable side effects only, emitting a line naming the source when
	// its refresh begins and ends. There are no fetch or download hooks.
	LogRefreshStart()
	LogRefreshEnd(persistedCount int)
}

// Base holds the fields and default predicate implementations shared by
// every source variant, so adding a variant never requires
// re-implementing ShouldTake/ShouldFilter. Variants embed Base and override
// only what differs (WatchLater overrides ShouldTake; LogRefreshStart/End
// are defined once here and name the source through Kind and SourceID).
type Base struct {
	Kind      source.Kind
	SourceID  string
	Path      string
	Watermark time.Time // snapshotted at the start of Refresh
}

// LocalPath implements the stable-identity accessor shared by all variants.
func (b *Base) LocalPath() string {
	return b.Path
}

// FilterExpr implements the shared (kind, id) predicate every variant keys
// its rows by.
func (b *Base) FilterExpr() (source.Kind, string) {
	return b.Kind, b.SourceID
}

// ShouldTake is the default cutoff: strictly newer than the watermark. Items
// exactly on the boundary are dropped, matching the decision in §4.1 that
// only WatchLater needs the inclusive variant.
func (b *Base) ShouldTake(releaseTS, w time.Time) bool {
	return releaseTS.After(w)
}

// ShouldFilter is the default sieve: pass successes through, drop errors
// without propagating them further (the orchestrator counts and logs them
// from the Result itself before calling ShouldFilter).
func (b *Base) ShouldFilter(r Result, _ time.Time) (source.VideoInfo, bool) {
	if r.Err != nil {
		return source.VideoInfo{}, false
	}
	return r.Info, true
}

// logger builds the component/source-scoped logger shared by the two log_*
// hooks every variant inherits from Base.
func (b *Base) logger() zerolog.Logger {
	return vidlog.WithComponentAndSource(string(b.Kind)+"_adapter", string(b.Kind), b.SourceID)
}

// LogRefreshStart implements the log_refresh_video_start hook.
func (b *Base) LogRefreshStart() {
	b.logger().Info().Str("event", "refresh.start").Msg("source refresh started")
}

// LogRefreshEnd implements the log_refresh_video_end hook.
func (b *Base) LogRefreshEnd(persistedCount int) {
	b.logger().Info().Str("event", "refresh.end").Int("persisted_count", persistedCount).Msg("source refresh completed")
}

// pageFetcher fetches one page of a source's listing. Implemented per
// variant as a closure over the platform.Client and the variant's
// identifiers.
type pageFetcher func(ctx context.Context, page int) (platform.Page, error)

// paginate drives the shared algorithm every variant's Refresh uses: walk
// pages from 0, yield each item, and stop as soon as shouldTake reports an
// item is no longer new enough — without fetching any further page. It runs
// as a dedicated producer goroutine feeding a bounded channel, the
// channel-producer substitute for a lazy async sequence. Each page fetch gets
// its own span so a slow or failing page is visible independent of the
// source's overall refresh span.
func paginate(ctx context.Context, kind source.Kind, sourceID string, w time.Time, shouldTake func(releaseTS, w time.Time) bool, fetch pageFetcher) <-chan Result {
	out := make(chan Result, 16)
	tracer := telemetry.Tracer("vidsync.adapter")

	go func() {
		defer close(out)

		for page := 0; ; page++ {
			pageCtx, span := tracer.Start(ctx, "source.page",
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("source.kind", string(kind)),
					attribute.String("source.id", sourceID),
					attribute.Int("page", page),
				),
			)
			pg, err := fetch(pageCtx, page)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "page fetch failed")
				span.End()
				select {
				case out <- Result{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			span.SetAttributes(
				attribute.Int("page.item_count", len(pg.Items)),
				attribute.Bool("page.has_next", pg.HasNext),
			)
			span.SetStatus(codes.Ok, "")
			span.End()

			for _, item := range pg.Items {
				if item.Err != nil {
					select {
					case out <- Result{Err: item.Err}:
					case <-ctx.Done():
						return
					}
					continue
				}

				if !shouldTake(item.Info.ReleaseTS, w) {
					// The boundary item is fetched (it counts toward the
					// page-count invariant) but not yielded: should_take
					// gates the stream, not just the stop signal.
					return
				}

				select {
				case out <- Result{Info: item.Info}:
				case <-ctx.Done():
					return
				}
			}

			if !pg.HasNext {
				return
			}

			if ctx.Err() != nil {
				return
			}
		}
	}()

	return out
}

var (
	_ VideoSource = (*Favorite)(nil)
	_ VideoSource = (*Collection)(nil)
	_ VideoSource = (*Submission)(nil)
	_ VideoSource = (*WatchLater)(nil)
)
