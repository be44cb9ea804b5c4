// SPDX-License-Identifier: MIT

package daemon

import (
	"github.com/tidewatch/vidsync/internal/adapter"
	"github.com/tidewatch/vidsync/internal/config"
	"github.com/tidewatch/vidsync/internal/platform"
	"github.com/tidewatch/vidsync/internal/source"
	"github.com/tidewatch/vidsync/internal/watermark"
)

// BuildSources translates a validated SourcesConfig into the adapter.VideoSource
// set RunCycle fans out over. Called fresh on every cycle by the scheduler
// (via the Holder it closes over), so a config reload adding or removing a
// source takes effect on the next tick without a restart.
func BuildSources(cfg config.SourcesConfig, client platform.Client, wmStore *watermark.Store) []adapter.VideoSource {
	sources := make([]adapter.VideoSource, 0, len(cfg.Favorites)+len(cfg.Collections)+len(cfg.Submissions)+1)

	for _, f := range cfg.Favorites {
		sources = append(sources, adapter.NewFavorite(source.Favorite{ListID: f.ListID, Path: f.Path}, client, wmStore))
	}
	for _, c := range cfg.Collections {
		kind := source.CollectionKindSeason
		if c.Kind == "series" {
			kind = source.CollectionKindSeries
		}
		sources = append(sources, adapter.NewCollection(source.Collection{
			CollectionID: c.CollectionID,
			OwnerID:      c.OwnerID,
			Kind:         kind,
			Path:         c.Path,
		}, client, wmStore))
	}
	for _, s := range cfg.Submissions {
		sources = append(sources, adapter.NewSubmission(source.Submission{CreatorID: s.CreatorID, Path: s.Path}, client, wmStore))
	}
	if cfg.WatchLater.Path != "" {
		sources = append(sources, adapter.NewWatchLater(source.WatchLater{Path: cfg.WatchLater.Path}, client, wmStore))
	}

	return sources
}

// SourceBuilderFor closes over holder and client so every cycle reads the
// current configuration's source list rather than a snapshot frozen at
// startup.
func SourceBuilderFor(holder *config.Holder, client platform.Client, wmStore *watermark.Store) func() []adapter.VideoSource {
	return func() []adapter.VideoSource {
		return BuildSources(holder.Snapshot().App.Sources, client, wmStore)
	}
}
