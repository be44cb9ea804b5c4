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

// Submission adapts a creator-uploads Source Descriptor.
type Submission struct {
	Base

	client platform.Client
	store  *watermark.Store
}

// NewSubmission constructs the Submission adapter for desc.
func NewSubmission(desc source.Submission, client platform.Client, store *watermark.Store) *Submission {
	return &Submission{
		Base: Base{
			Kind:     source.KindSubmission,
			SourceID: desc.CreatorID,
			Path:     desc.Path,
		},
		client: client,
		store:  store,
	}
}

func (s *Submission) BindSourceRelation(b *video.Builder) {
	b.SetSourceRelation(source.KindSubmission, s.SourceID)
}

func (s *Submission) CurrentWatermark(ctx context.Context) (time.Time, error) {
	w, _, err := s.store.Submission(ctx, s.SourceID)
	return w, err
}

func (s *Submission) AdvanceWatermark(t time.Time) watermark.PendingUpdate {
	return watermark.SubmissionUpdate{CreatorID: s.SourceID, Path: s.Path, Watermark: t}
}

func (s *Submission) Refresh(ctx context.Context) (<-chan Result, error) {
	_, err := s.client.SubmissionMeta(ctx, s.SourceID)
	if err != nil && platform.IsFatal(err) {
		return nil, err
	}

	w, err := s.CurrentWatermark(ctx)
	if err != nil {
		return nil, err
	}
	s.Watermark = w

	return paginate(ctx, s.Kind, s.SourceID, w, s.ShouldTake, func(ctx context.Context, page int) (platform.Page, error) {
		return s.client.ListSubmissionItems(ctx, s.SourceID, page)
	}), nil
}
