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

// Favorite adapts a favorite-list Source Descriptor.
type Favorite struct {
	Base

	client platform.Client
	store  *watermark.Store
}

// NewFavorite constructs the Favorite adapter for desc.
func NewFavorite(desc source.Favorite, client platform.Client, store *watermark.Store) *Favorite {
	return &Favorite{
		Base: Base{
			Kind:     source.KindFavorite,
			SourceID: desc.ListID,
			Path:     desc.Path,
		},
		client: client,
		store:  store,
	}
}

func (f *Favorite) BindSourceRelation(b *video.Builder) {
	b.SetSourceRelation(source.KindFavorite, f.SourceID)
}

func (f *Favorite) CurrentWatermark(ctx context.Context) (time.Time, error) {
	w, _, err := f.store.Favorite(ctx, f.SourceID)
	return w, err
}

func (f *Favorite) AdvanceWatermark(t time.Time) watermark.PendingUpdate {
	return watermark.FavoriteUpdate{ListID: f.SourceID, Path: f.Path, Watermark: t}
}

func (f *Favorite) Refresh(ctx context.Context) (<-chan Result, error) {
	meta, err := f.client.FavoriteMeta(ctx, f.SourceID)
	if err != nil && platform.IsFatal(err) {
		return nil, err
	}
	// A failed meta fetch that isn't fatal (e.g. the list title endpoint is
	// flaky) still lets pagination proceed; meta.Title just stays empty.
	_ = meta

	w, err := f.CurrentWatermark(ctx)
	if err != nil {
		return nil, err
	}
	f.Watermark = w

	return paginate(ctx, f.Kind, f.SourceID, w, f.ShouldTake, func(ctx context.Context, page int) (platform.Page, error) {
		return f.client.ListFavoriteItems(ctx, f.SourceID, page)
	}), nil
}
