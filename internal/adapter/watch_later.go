// SPDX-License-Identifier: MIT

package adapter

import (
	"context"
	"time"

	"github.com/tidewatch/vidsync/internal/platform"
	"github.com/tidewatch/vidsync/internal/source"
	"github.com/tidewatch/vidsync/internal/video"
	"github.com/tidewatch/vidsync/internal/watermark"
)

// WatchLater adapts the singleton watch-later queue Source Descriptor.
type WatchLater struct {
	Base

	client platform.Client
	store  *watermark.Store
}

// NewWatchLater constructs the WatchLater adapter for desc.
func NewWatchLater(desc source.WatchLater, client platform.Client, store *watermark.Store) *WatchLater {
	return &WatchLater{
		Base: Base{
			Kind:     source.KindWatchLater,
			SourceID: source.WatchLaterID,
			Path:     desc.Path,
		},
		client: client,
		store:  store,
	}
}

func (wl *WatchLater) BindSourceRelation(b *video.Builder) {
	b.SetSourceRelation(source.KindWatchLater, wl.SourceID)
}

func (wl *WatchLater) CurrentWatermark(ctx context.Context) (time.Time, error) {
	w, _, err := wl.store.WatchLater(ctx)
	return w, err
}

func (wl *WatchLater) AdvanceWatermark(t time.Time) watermark.PendingUpdate {
	return watermark.WatchLaterUpdate{Path: wl.Path, Watermark: t}
}

// ShouldTake overrides the default strict cutoff with an inclusive bound:
// the watch-later queue can surface re-additions of an item already at the
// exact watermark boundary (re-queuing), and the unique index on
// (source_kind, source_id, platform_video_id) is relied on to dedup rather
// than the strict-greater-than comparison every other variant uses.
func (wl *WatchLater) ShouldTake(releaseTS, w time.Time) bool {
	return !releaseTS.Before(w)
}

func (wl *WatchLater) Refresh(ctx context.Context) (<-chan Result, error) {
	w, err := wl.CurrentWatermark(ctx)
	if err != nil {
		return nil, err
	}
	wl.Watermark = w

	return paginate(ctx, wl.Kind, wl.SourceID, w, wl.ShouldTake, func(ctx context.Context, page int) (platform.Page, error) {
		return wl.client.ListWatchLaterItems(ctx, page)
	}), nil
}
