// SPDX-License-Identifier: MIT

// Package platformtest provides a hand-written in-memory fake of
// platform.Client for adapter and orchestrator tests, so tests can script
// exact page sequences and failures without a real HTTP server.
package platformtest

import (
	"context"
	"sync"

	"github.com/tidewatch/vidsync/internal/platform"
)

// FakeClient is a configurable in-memory platform.Client. Each source
// variant's pages are scripted independently via the Set* methods; repeated
// ListXItems calls beyond the scripted pages return an empty exhausted page.
type FakeClient struct {
	mu sync.Mutex

	favoriteMeta  map[string]platform.FavoriteMeta
	favoritePages map[string][]platform.Page

	collectionMeta  map[string]platform.CollectionMeta
	collectionPages map[string][]platform.Page

	submissionMeta  map[string]platform.SubmissionMeta
	submissionPages map[string][]platform.Page

	watchLaterPages []platform.Page

	// calls records the number of ListXItems calls per key, for
	// short-circuit page-count assertions.
	calls map[string]int

	// fatalErr, if set for a key, is returned in place of the next
	// ListXItems call regardless of scripted pages — used to simulate
	// scenario 6 (auth failure on page 1).
	fatalErr map[string]error
}

// NewFakeClient returns an empty FakeClient ready for Set* configuration.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		favoriteMeta:    make(map[string]platform.FavoriteMeta),
		favoritePages:   make(map[string][]platform.Page),
		collectionMeta:  make(map[string]platform.CollectionMeta),
		collectionPages: make(map[string][]platform.Page),
		submissionMeta:  make(map[string]platform.SubmissionMeta),
		submissionPages: make(map[string][]platform.Page),
		calls:           make(map[string]int),
		fatalErr:        make(map[string]error),
	}
}

func collKey(collectionID, ownerID string) string { return collectionID + "/" + ownerID }

// SetFavoritePages scripts the page sequence ListFavoriteItems returns for listID.
func (f *FakeClient) SetFavoritePages(listID string, meta platform.FavoriteMeta, pages []platform.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favoriteMeta[listID] = meta
	f.favoritePages[listID] = pages
}

// SetCollectionPages scripts the page sequence for a curated collection.
func (f *FakeClient) SetCollectionPages(collectionID, ownerID string, meta platform.CollectionMeta, pages []platform.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collectionMeta[collKey(collectionID, ownerID)] = meta
	f.collectionPages[collKey(collectionID, ownerID)] = pages
}

// SetSubmissionPages scripts the page sequence for a creator's uploads.
func (f *FakeClient) SetSubmissionPages(creatorID string, meta platform.SubmissionMeta, pages []platform.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissionMeta[creatorID] = meta
	f.submissionPages[creatorID] = pages
}

// SetWatchLaterPages scripts the page sequence for the watch-later queue.
func (f *FakeClient) SetWatchLaterPages(pages []platform.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchLaterPages = pages
}

// SetFatalErr forces the given ListXItems key (e.g. "favorite:list-1") to
// fail with err on its next call, simulating an auth failure on page 1.
func (f *FakeClient) SetFatalErr(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fatalErr[key] = err
}

// PageFetchCount returns how many ListXItems calls were made for key, for
// asserting the short-circuit page-count invariant.
func (f *FakeClient) PageFetchCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *FakeClient) nextPage(key string, pages []platform.Page, page int) (platform.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++

	if err, ok := f.fatalErr[key]; ok {
		delete(f.fatalErr, key)
		return platform.Page{}, err
	}
	if page < 0 || page >= len(pages) {
		return platform.Page{HasNext: false}, nil
	}
	return pages[page], nil
}

func (f *FakeClient) FavoriteMeta(_ context.Context, listID string) (platform.FavoriteMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.favoriteMeta[listID], nil
}

func (f *FakeClient) ListFavoriteItems(_ context.Context, listID string, page int) (platform.Page, error) {
	f.mu.Lock()
	pages := f.favoritePages[listID]
	f.mu.Unlock()
	return f.nextPage("favorite:"+listID, pages, page)
}

func (f *FakeClient) CollectionMeta(_ context.Context, collectionID, ownerID string) (platform.CollectionMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collectionMeta[collKey(collectionID, ownerID)], nil
}

func (f *FakeClient) ListCollectionItems(_ context.Context, collectionID, ownerID string, page int) (platform.Page, error) {
	key := collKey(collectionID, ownerID)
	f.mu.Lock()
	pages := f.collectionPages[key]
	f.mu.Unlock()
	return f.nextPage("collection:"+key, pages, page)
}

func (f *FakeClient) SubmissionMeta(_ context.Context, creatorID string) (platform.SubmissionMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissionMeta[creatorID], nil
}

func (f *FakeClient) ListSubmissionItems(_ context.Context, creatorID string, page int) (platform.Page, error) {
	f.mu.Lock()
	pages := f.submissionPages[creatorID]
	f.mu.Unlock()
	return f.nextPage("submission:"+creatorID, pages, page)
}

func (f *FakeClient) ListWatchLaterItems(_ context.Context, page int) (platform.Page, error) {
	f.mu.Lock()
	pages := f.watchLaterPages
	f.mu.Unlock()
	return f.nextPage("watch_later", pages, page)
}

var _ platform.Client = (*FakeClient)(nil)
