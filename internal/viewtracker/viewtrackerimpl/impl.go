package viewtrackerimpl

import (
	"context"
	"sync"
	"time"

	"github.com/mercatale/story-engine/internal/domain"
	"github.com/mercatale/story-engine/internal/ratelimit"
	"github.com/mercatale/story-engine/internal/repositories/story"
	"github.com/mercatale/story-engine/internal/viewtracker"
	"github.com/mercatale/story-engine/pkg/config"
	"github.com/mercatale/story-engine/pkg/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In
	LC fx.Lifecycle

	StoryRepo story.Repository
	Logger    logger.Logger
	Config    *config.Config
}

type Impl struct {
	storyRepo      story.Repository
	logger         logger.Logger
	pool           *ants.Pool
	limiter        ratelimit.Limiter
	requestTimeout time.Duration

	mu     sync.Mutex
	marked map[string]struct{}
}

func New(opts Opts) (*Impl, error) {
	pool, err := ants.NewPool(opts.Config.ViewTracker.Workers, ants.WithPreAlloc(true))
	if err != nil {
		return nil, err
	}

	impl := &Impl{
		storyRepo:      opts.StoryRepo,
		logger:         opts.Logger,
		pool:           pool,
		limiter:        ratelimit.NewInMemoryLimiter(5, time.Second, 10),
		requestTimeout: opts.Config.ViewTracker.RequestTimeout,
		marked:         make(map[string]struct{}),
	}

	opts.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Release()
			return nil
		},
	})

	return impl, nil
}

var _ viewtracker.Tracker = (*Impl)(nil)

// MarkViewed submits the view registration to the worker pool and returns
// immediately. Failures are logged and dropped; the view flag is a visual
// affordance, not something playback may wait on.
func (i *Impl) MarkViewed(s domain.Story) {
	if s.ID == "" {
		return
	}

	i.mu.Lock()
	if _, seen := i.marked[s.ID]; seen {
		i.mu.Unlock()
		return
	}
	i.marked[s.ID] = struct{}{}
	i.mu.Unlock()

	if !i.limiter.Allow(s.OwnerID) {
		i.logger.Debug("View mark rate limited, dropping", "story_id", s.ID, "owner_id", s.OwnerID)
		return
	}

	storyID := s.ID
	err := i.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), i.requestTimeout)
		defer cancel()

		if err := i.storyRepo.MarkViewed(ctx, storyID); err != nil {
			// Non-critical; no retry. The next fetch reconciles the flag.
			i.logger.Warn("Failed to mark story viewed", "story_id", storyID, "error", err)
		}
	})
	if err != nil {
		i.logger.Warn("View tracker pool rejected task", "story_id", storyID, "error", err)
	}
}
