// SPDX-License-Identifier: MIT

// Package platform defines the facade the core consumes for authenticated
// access to the remote video platform: four paginated listing operations,
// one per Source Descriptor variant, plus the per-source metadata fetches
// an adapter performs at the start of its refresh.
package platform

import (
	"context"

	"github.com/tidewatch/vidsync/internal/source"
)

// ItemOrErr is one listing result: either a successfully-decoded VideoInfo,
// or a per-item decode failure that should not abort the rest of the page.
// A whole-page fetch failure is instead returned as the second (error)
// return value of the listing call itself.
type ItemOrErr struct {
	Info source.VideoInfo
	Err  error
}

// Page is one page of listing results plus the cursor state needed to fetch
// the next one.
type Page struct {
	Items   []ItemOrErr
	HasNext bool
}

// FavoriteMeta is the favorite-list metadata an adapter fetches once per
// refresh, independent of pagination.
type FavoriteMeta struct {
	Title string
}

// CollectionMeta is the curated-collection metadata an adapter fetches once
// per refresh.
type CollectionMeta struct {
	Title string
	Kind  source.CollectionKind
}

// SubmissionMeta is the creator metadata an adapter fetches once per
// refresh.
type SubmissionMeta struct {
	CreatorName string
}

// Client is the Platform Client facade: authenticated HTTP access to the
// remote API, exposing paginated list operations per source variant.
// Implementations perform authentication, retries, and rate-limiting
// internally; callers only see the categorized errors in errors.go.
type Client interface {
	FavoriteMeta(ctx context.Context, listID string) (FavoriteMeta, error)
	ListFavoriteItems(ctx context.Context, listID string, page int) (Page, error)

	CollectionMeta(ctx context.Context, collectionID, ownerID string) (CollectionMeta, error)
	ListCollectionItems(ctx context.Context, collectionID, ownerID string, page int) (Page, error)

	SubmissionMeta(ctx context.Context, creatorID string) (SubmissionMeta, error)
	ListSubmissionItems(ctx context.Context, creatorID string, page int) (Page, error)

	ListWatchLaterItems(ctx context.Context, page int) (Page, error)
}
