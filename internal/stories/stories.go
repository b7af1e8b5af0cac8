package stories

import (
	"context"
	"errors"

	"github.com/mercatale/story-engine/internal/domain"
	"github.com/mercatale/story-engine/internal/grouping"
	"github.com/mercatale/story-engine/internal/playback"
	"github.com/mercatale/story-engine/internal/upload"
)

var ErrGroupNotFound = errors.New("story group not found")

// Service is the engine's outward surface: the grouped-rail query and
// subscription, the single-viewer open/close pair, and the publish operation.
type Service interface {
	// Groups returns the current {own, others} snapshot. The returned groups
	// are never mutated afterwards; a refresh swaps in wholly new ones.
	Groups() grouping.Result
	// Subscribe delivers a fresh snapshot after every successful refresh or
	// local mutation. The returned func cancels the subscription.
	Subscribe() (<-chan grouping.Result, func())

	// Refresh fetches and regroups. A fetch failure keeps the previous
	// snapshot; the rail degrades, the page does not error.
	Refresh(ctx context.Context) error
	// ScheduleRefresh runs Refresh periodically plus an expiry sweep that
	// drops stories aging out between fetches.
	ScheduleRefresh(ctx context.Context) error

	// OpenViewer starts playback for one owner's group. Only one session
	// exists at a time; opening replaces a still-open viewer.
	OpenViewer(ownerID string, startIndex int) (*playback.Session, error)
	CloseViewer()

	// UploadAndPublish validates, uploads and publishes a new story, then
	// inserts it optimistically into the actor's own bucket.
	UploadAndPublish(ctx context.Context, f upload.File, caption string, progress upload.ProgressFunc) (*domain.Story, error)
	// DeleteOwnStory removes one of the actor's stories before natural expiry.
	DeleteOwnStory(ctx context.Context, storyID string) error
}
