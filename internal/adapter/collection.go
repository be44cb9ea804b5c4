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

// Collection adapts a curated-collection (season or series) Source Descriptor.
type Collection struct {
	Base

	ownerID string
	kind    source.CollectionKind

	client platform.Client
	store  *watermark.Store
}

// NewCollection constructs the Collection adapter for desc.
func NewCollection(desc source.Collection, client platform.Client, store *watermark.Store) *Collection {
	return &Collection{
		Base: Base{
			Kind:     source.KindCollection,
			SourceID: desc.CollectionID,
			Path:     desc.Path,
		},
		ownerID: desc.OwnerID,
		kind:    desc.Kind,
		client:  client,
		store:   store,
	}
}

func (c *Collection) BindSourceRelation(b *video.Builder) {
	b.SetSourceRelation(source.KindCollection, c.SourceID)
}

func (c *Collection) CurrentWatermark(ctx context.Context) (time.Time, error) {
	w, _, err := c.store.Collection(ctx, c.SourceID, c.ownerID)
	return w, err
}

func (c *Collection) AdvanceWatermark(t time.Time) watermark.PendingUpdate {
	return watermark.CollectionUpdate{
		CollectionID: c.SourceID,
		OwnerID:      c.ownerID,
		Kind:         string(c.kind),
		Path:         c.Path,
		Watermark:    t,
	}
}

func (c *Collection) Refresh(ctx context.Context) (<-chan Result, error) {
	_, err := c.client.CollectionMeta(ctx, c.SourceID, c.ownerID)
	if err != nil && platform.IsFatal(err) {
		return nil, err
	}

	w, err := c.CurrentWatermark(ctx)
	if err != nil {
		return nil, err
	}
	c.Watermark = w

	return paginate(ctx, c.Kind, c.SourceID, w, c.ShouldTake, func(ctx context.Context, page int) (platform.Page, error) {
		return c.client.ListCollectionItems(ctx, c.SourceID, c.ownerID, page)
	}), nil
}
