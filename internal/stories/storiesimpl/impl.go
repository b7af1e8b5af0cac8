package storiesimpl

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mercatale/story-engine/internal/domain"
	"github.com/mercatale/story-engine/internal/grouping"
	"github.com/mercatale/story-engine/internal/playback"
	"github.com/mercatale/story-engine/internal/repositories/story"
	"github.com/mercatale/story-engine/internal/stories"
	"github.com/mercatale/story-engine/internal/upload"
	"github.com/mercatale/story-engine/internal/viewtracker"
	"github.com/mercatale/story-engine/pkg/config"
	"github.com/mercatale/story-engine/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	StoryRepo story.Repository
	Pipeline  upload.Pipeline
	Tracker   viewtracker.Tracker
	Logger    logger.Logger
	Config    *config.Config
}

type Impl struct {
	storyRepo story.Repository
	pipeline  upload.Pipeline
	tracker   viewtracker.Tracker
	logger    logger.Logger
	cfg       *config.Config
	clock     clockwork.Clock

	mu       sync.Mutex
	raw      []domain.Story // last fetched flat list plus local mutations
	snapshot grouping.Result
	session  *playback.Session
	subs     map[int]chan grouping.Result
	nextSub  int
}

func New(opts Opts) *Impl {
	return &Impl{
		storyRepo: opts.StoryRepo,
		pipeline:  opts.Pipeline,
		tracker:   opts.Tracker,
		logger:    opts.Logger,
		cfg:       opts.Config,
		clock:     clockwork.NewRealClock(),
		subs:      make(map[int]chan grouping.Result),
	}
}

var _ stories.Service = (*Impl)(nil)

func (i *Impl) Groups() grouping.Result {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.snapshot
}

func (i *Impl) Subscribe() (<-chan grouping.Result, func()) {
	ch := make(chan grouping.Result, 1)

	i.mu.Lock()
	id := i.nextSub
	i.nextSub++
	i.subs[id] = ch
	i.mu.Unlock()

	cancel := func() {
		i.mu.Lock()
		if existing, ok := i.subs[id]; ok {
			delete(i.subs, id)
			close(existing)
		}
		i.mu.Unlock()
	}
	return ch, cancel
}

// Refresh fetches the flat list and swaps in a wholly new grouped snapshot.
// The previous snapshot survives a fetch failure so the rail keeps rendering.
func (i *Impl) Refresh(ctx context.Context) error {
	fetched, err := i.storyRepo.List(ctx)
	if err != nil {
		i.logger.Error("Story list fetch failed, keeping previous snapshot", "error", err)
		return fmt.Errorf("refresh stories: %w", err)
	}

	i.mu.Lock()
	i.raw = fetched
	i.regroupLocked()
	i.mu.Unlock()

	i.logger.Debug("Story snapshot refreshed", "count", len(fetched))
	return nil
}

// regroupLocked recomputes the snapshot from raw and notifies subscribers.
func (i *Impl) regroupLocked() {
	i.snapshot = grouping.Group(i.raw, i.cfg.Actor.ID, i.clock.Now())
	// A slow subscriber keeps only the latest snapshot: drain the stale one,
	// then send. Sends are serialized under i.mu, so the drained buffer slot
	// is always free.
	for _, ch := range i.subs {
		select {
		case <-ch:
		default:
		}
		ch <- i.snapshot
	}
}

func (i *Impl) OpenViewer(ownerID string, startIndex int) (*playback.Session, error) {
	i.mu.Lock()
	group := i.snapshot.Find(ownerID)
	if group == nil {
		i.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", stories.ErrGroupNotFound, ownerID)
	}
	groupCopy := *group
	previous := i.session
	i.mu.Unlock()

	// At most one viewer. An open session is closed before its replacement
	// starts, so two tick loops never coexist.
	if previous != nil {
		previous.Close()
	}

	session, err := playback.Open(groupCopy, startIndex, playback.Opts{
		Config: playback.Config{
			ImageDwell:   i.cfg.Playback.ImageDwell,
			VideoCap:     i.cfg.Playback.VideoCap,
			TickInterval: i.cfg.Playback.TickInterval,
			MediaGrace:   i.cfg.Playback.MediaGrace,
		},
		Clock:  i.clock,
		Logger: i.logger,
		Hooks: playback.Hooks{
			OnStoryShown: func(s domain.Story, index int) {
				i.tracker.MarkViewed(s)
			},
			OnClosed: func() {
				i.clearSession()
			},
		},
	})
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	i.session = session
	i.mu.Unlock()

	i.logger.Info("Opened story viewer", "owner_id", ownerID, "start_index", startIndex, "stories", len(groupCopy.Stories))
	return session, nil
}

func (i *Impl) CloseViewer() {
	i.mu.Lock()
	session := i.session
	i.mu.Unlock()

	if session != nil {
		session.Close()
	}
}

func (i *Impl) clearSession() {
	i.mu.Lock()
	i.session = nil
	i.mu.Unlock()
}

func (i *Impl) UploadAndPublish(ctx context.Context, f upload.File, caption string, progress upload.ProgressFunc) (*domain.Story, error) {
	draft, err := i.pipeline.NewDraft(f, caption)
	if err != nil {
		return nil, err
	}

	created, err := i.pipeline.Publish(ctx, draft, progress)
	if err != nil {
		draft.Discard()
		return nil, err
	}

	// Optimistic insertion: the new story shows up in the actor's own bucket
	// ahead of the next fetch.
	i.mu.Lock()
	i.raw = append(i.raw, *created)
	i.regroupLocked()
	i.mu.Unlock()

	return created, nil
}

func (i *Impl) DeleteOwnStory(ctx context.Context, storyID string) error {
	if err := i.storyRepo.Delete(ctx, storyID); err != nil {
		return fmt.Errorf("delete own story: %w", err)
	}

	i.mu.Lock()
	i.raw = slices.DeleteFunc(i.raw, func(s domain.Story) bool {
		return s.ID == storyID
	})
	i.regroupLocked()
	i.mu.Unlock()

	i.logger.Info("Deleted own story", "story_id", storyID)
	return nil
}

// sweepExpired regroups from the cached list so stories that aged out between
// fetches disappear without waiting for the backend.
func (i *Impl) sweepExpired() {
	now := i.clock.Now()

	i.mu.Lock()
	before := len(i.raw)
	i.raw = slices.DeleteFunc(i.raw, func(s domain.Story) bool {
		return s.Expired(now)
	})
	dropped := before - len(i.raw)
	if dropped > 0 {
		i.regroupLocked()
	}
	i.mu.Unlock()

	if dropped > 0 {
		i.logger.Info("Swept expired stories from snapshot", "dropped", dropped)
	}
}

// initialRefresh primes the snapshot before the periodic job takes over.
func (i *Impl) initialRefresh(ctx context.Context) {
	refreshCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := i.Refresh(refreshCtx); err != nil {
		i.logger.Warn("Initial story refresh failed, rail starts empty", "error", err)
	}
}
