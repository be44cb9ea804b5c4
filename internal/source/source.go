// SPDX-License-Identifier: MIT

// Package source defines the Source Descriptor and VideoInfo data model:
// the four variants of remote video collection a cycle can be configured
// against, and the transient metadatum an adapter yields while paginating.
package source

import (
	"time"

	"golang.org/x/text/unicode/norm"
)

// Kind discriminates the four Source Descriptor variants.
type Kind string

const (
	KindFavorite   Kind = "favorite"
	KindCollection Kind = "collection"
	KindSubmission Kind = "submission"
	KindWatchLater Kind = "watch_later"
)

// CollectionKind distinguishes the two flavors of curated collection the
// remote platform exposes.
type CollectionKind string

const (
	CollectionKindSeason CollectionKind = "season"
	CollectionKindSeries CollectionKind = "series"
)

// WatchLaterID is the fixed identifier of the singleton watch-later source;
// there is exactly one per configured account, so it carries no user-supplied id.
const WatchLaterID = "watch_later"

// Favorite identifies a configured favorite-list source.
type Favorite struct {
	ListID string
	Path   string
}

// Collection identifies a configured curated-collection source.
type Collection struct {
	CollectionID string
	OwnerID      string
	Kind         CollectionKind
	Path         string
}

// Submission identifies a configured creator-uploads source.
type Submission struct {
	CreatorID string
	Path      string
}

// WatchLater identifies the singleton watch-later queue source.
type WatchLater struct {
	Path string
}

// DownloadState is the lifecycle state of a persisted Video Record.
type DownloadState string

const (
	StateDiscovered      DownloadState = "discovered"
	StateMetadataFetched DownloadState = "metadata_fetched"
	StateDownloading     DownloadState = "downloading"
	StateComplete        DownloadState = "complete"
	StateFailed          DownloadState = "failed"
)

// VideoInfo is the transient, in-memory metadatum an adapter yields while
// paginating a remote endpoint, before it has been persisted.
type VideoInfo struct {
	PlatformVideoID string
	Title           string
	ReleaseTS       time.Time
	OwnerID         string
	OwnerName       string
	ThumbnailURL    string
	Raw             map[string]any
}

// NormalizeTitle returns title in Unicode NFC form so that visually-identical
// titles coming back from the remote platform compare equal once persisted.
func NormalizeTitle(title string) string {
	return norm.NFC.String(title)
}
