// SPDX-License-Identifier: MIT

// Package video persists Video Records: the per-item row derived from a
// VideoInfo once it has survived an adapter's should_filter sieve.
package video

import (
	"time"

	"github.com/tidewatch/vidsync/internal/source"
)

// Record is the persisted row per remote video.
type Record struct {
	ID              int64
	PlatformVideoID string
	Title           string
	ReleaseTS       time.Time
	SourceKind      source.Kind
	SourceID        string
	LocalPath       string
	IngestedAt      time.Time
	State           source.DownloadState
}

// Builder accumulates a Record's fields before insertion. BindSourceRelation
// is the only mutation an adapter is allowed to perform on it; every other
// field is set by the orchestrator from the VideoInfo and the source's
// configured local path.
type Builder struct {
	rec Record
}

// NewBuilder seeds a Builder from a VideoInfo and the destination local path.
func NewBuilder(info source.VideoInfo, localPath string, ingestedAt time.Time) *Builder {
	return &Builder{rec: Record{
		PlatformVideoID: info.PlatformVideoID,
		Title:           source.NormalizeTitle(info.Title),
		ReleaseTS:       info.ReleaseTS,
		LocalPath:       localPath,
		IngestedAt:      ingestedAt,
		State:           source.StateDiscovered,
	}}
}

// SetSourceRelation back-references the owning source variant and id. This is
// the operation spec.md calls bind_source_relation; each adapter variant
// calls it from within BindSourceRelation so the orchestrator stays ignorant
// of which variant produced the builder.
func (b *Builder) SetSourceRelation(kind source.Kind, sourceID string) {
	b.rec.SourceKind = kind
	b.rec.SourceID = sourceID
}

// Build finalizes the Record.
func (b *Builder) Build() Record {
	return b.rec
}
