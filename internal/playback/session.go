package playback

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mercatale/story-engine/internal/domain"
	"github.com/mercatale/story-engine/pkg/logger"
)

type State uint8

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

var ErrEmptyGroup = errors.New("cannot open a playback session for an empty group")
var ErrIndexOutOfRange = errors.New("start index out of range")

// Config carries the duration policy. Videos get a fixed playback budget
// instead of their decoded length; see DESIGN.md before changing that.
type Config struct {
	ImageDwell   time.Duration
	VideoCap     time.Duration
	TickInterval time.Duration
	MediaGrace   time.Duration
}

func DefaultConfig() Config {
	return Config{
		ImageDwell:   5 * time.Second,
		VideoCap:     30 * time.Second,
		TickInterval: 100 * time.Millisecond,
		MediaGrace:   1500 * time.Millisecond,
	}
}

// Hooks are the session's only outward channel. They fire outside the session
// lock, after the transition that caused them has fully settled, so a hook may
// call back into the session.
type Hooks struct {
	// OnStoryShown fires when a story becomes current: on open and whenever
	// Advance/Retreat land on an index. Never on ticks.
	OnStoryShown func(story domain.Story, index int)
	// OnClosed fires exactly once, on any path into the terminal state.
	OnClosed func()
}

// Session drives the full-screen playback of one group. It is the only owner
// of its group copy; a background refresh never reaches in here.
//
// Progress is derived from elapsed wall-clock time, not from tick counts, so
// dropped ticks cannot slow a story down. Every transition that leaves
// StatePlaying bumps the epoch; a scheduled tick that wakes up under a stale
// epoch discards itself instead of mutating state.
type Session struct {
	cfg   config
	clock clockwork.Clock
	log   logger.Logger
	hooks Hooks

	mu        sync.Mutex
	group     domain.StoryGroup
	state     State
	index     int
	epoch     uint64
	startedAt time.Time     // start of the current playing stint
	elapsed   time.Duration // accumulated before the current stint
	ticker    *tickerHandle
}

// config is Config after defaulting.
type config struct {
	imageDwell   time.Duration
	videoCap     time.Duration
	tickInterval time.Duration
	mediaGrace   time.Duration
}

type tickerHandle struct {
	ticker clockwork.Ticker
	done   chan struct{}
}

type Opts struct {
	Config Config
	Clock  clockwork.Clock
	Logger logger.Logger
	Hooks  Hooks
}

// Open starts a session over its own copy of group at startIndex and begins
// playing immediately.
func Open(group domain.StoryGroup, startIndex int, opts Opts) (*Session, error) {
	if len(group.Stories) == 0 {
		return nil, ErrEmptyGroup
	}
	if startIndex < 0 || startIndex >= len(group.Stories) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, startIndex, len(group.Stories))
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &Session{
		cfg:   defaulted(opts.Config),
		clock: clock,
		log:   opts.Logger,
		hooks: opts.Hooks,
		group: group.Clone(),
		state: StateIdle,
		index: startIndex,
	}

	s.mu.Lock()
	s.state = StatePlaying
	s.resetProgressLocked()
	s.armLocked()
	shown, idx := s.group.Stories[s.index], s.index
	s.mu.Unlock()

	s.fireShown(shown, idx)
	return s, nil
}

func defaulted(c Config) config {
	d := DefaultConfig()
	out := config{
		imageDwell:   c.ImageDwell,
		videoCap:     c.VideoCap,
		tickInterval: c.TickInterval,
		mediaGrace:   c.MediaGrace,
	}
	if out.imageDwell <= 0 {
		out.imageDwell = d.ImageDwell
	}
	if out.videoCap <= 0 {
		out.videoCap = d.VideoCap
	}
	if out.tickInterval <= 0 {
		out.tickInterval = d.TickInterval
	}
	if out.mediaGrace <= 0 {
		out.mediaGrace = d.MediaGrace
	}
	return out
}

// Snapshot is the render-facing view of the session.
type Snapshot struct {
	State    State
	Index    int
	Progress float64
	Story    domain.Story
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:    s.state,
		Index:    s.index,
		Progress: s.progressLocked(s.clock.Now()),
		Story:    s.group.Stories[s.index],
	}
}

// Pause freezes progress. The accumulated elapsed time survives until Resume.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return
	}
	s.elapsed += s.clock.Now().Sub(s.startedAt)
	s.disarmLocked()
	s.state = StatePaused
}

// Resume restarts the clock from where Pause left it; progress is not reset.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return
	}
	s.startedAt = s.clock.Now()
	s.state = StatePlaying
	s.armLocked()
}

// Skip is the manual advance gesture; it behaves exactly like a completed
// progress bar.
func (s *Session) Skip() {
	s.mu.Lock()
	if s.state != StatePlaying && s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	fire := s.advanceLocked()
	s.mu.Unlock()
	fire()
}

// Retreat steps back one story. At the first story it is a no-op: index and
// progress both stay put.
func (s *Session) Retreat() {
	s.mu.Lock()
	if s.state != StatePlaying && s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	if s.index == 0 {
		s.mu.Unlock()
		return
	}

	s.disarmLocked()
	s.index--
	s.resetProgressLocked()
	s.state = StatePlaying
	s.armLocked()
	shown, idx := s.group.Stories[s.index], s.index
	s.mu.Unlock()

	s.fireShown(shown, idx)
}

// Close terminates the session from any non-terminal state.
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.disarmLocked()
	s.state = StateClosed
	s.mu.Unlock()

	s.fireClosed()
}

// MediaFailed reports that the current story's asset did not load. After a
// short grace the story is skipped, so a dead asset cannot wedge the session.
func (s *Session) MediaFailed(storyID string) {
	s.mu.Lock()
	if s.state != StatePlaying || s.group.Stories[s.index].ID != storyID {
		s.mu.Unlock()
		return
	}
	epoch := s.epoch
	s.mu.Unlock()

	if s.log != nil {
		s.log.Warn("Story media failed to load, skipping after grace", "story_id", storyID, "grace", s.cfg.mediaGrace)
	}

	s.clock.AfterFunc(s.cfg.mediaGrace, func() {
		s.mu.Lock()
		if s.epoch != epoch || s.state != StatePlaying {
			s.mu.Unlock()
			return
		}
		fire := s.advanceLocked()
		s.mu.Unlock()
		fire()
	})
}

// storyDuration applies the fixed dwell/cap policy for the current story.
func (s *Session) storyDuration() time.Duration {
	if s.group.Stories[s.index].MediaType == domain.MediaTypeVideo {
		return s.cfg.videoCap
	}
	return s.cfg.imageDwell
}

func (s *Session) progressLocked(now time.Time) float64 {
	total := s.elapsed
	if s.state == StatePlaying {
		total += now.Sub(s.startedAt)
	}
	ratio := float64(total) / float64(s.storyDuration())
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

func (s *Session) resetProgressLocked() {
	s.elapsed = 0
	s.startedAt = s.clock.Now()
}

// advanceLocked moves to the next story or, at the end of the group, closes
// the session. It deliberately does not roll over into a sibling group. The
// returned func fires the resulting hook and must run after unlocking.
func (s *Session) advanceLocked() func() {
	s.disarmLocked()

	if s.index >= len(s.group.Stories)-1 {
		s.state = StateClosed
		return s.fireClosedFn()
	}

	s.index++
	s.resetProgressLocked()
	s.state = StatePlaying
	s.armLocked()

	shown, idx := s.group.Stories[s.index], s.index
	return func() { s.fireShown(shown, idx) }
}

// armLocked starts the tick loop for the current epoch. At most one loop is
// live at a time; disarmLocked retires the previous one first.
func (s *Session) armLocked() {
	epoch := s.epoch
	h := &tickerHandle{
		ticker: s.clock.NewTicker(s.cfg.tickInterval),
		done:   make(chan struct{}),
	}
	s.ticker = h

	go func() {
		defer h.ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-h.ticker.Chan():
				if !s.tick(epoch) {
					return
				}
			}
		}
	}()
}

// disarmLocked cancels the active tick loop and invalidates its epoch, so a
// tick already queued behind the mutex discards itself.
func (s *Session) disarmLocked() {
	if s.ticker != nil {
		close(s.ticker.done)
		s.ticker = nil
	}
	s.epoch++
}

// tick evaluates one scheduler callback. It returns false once this loop's
// epoch is stale and the goroutine should exit.
func (s *Session) tick(epoch uint64) bool {
	s.mu.Lock()
	if epoch != s.epoch || s.state != StatePlaying {
		s.mu.Unlock()
		return false
	}

	var fire func()
	if s.progressLocked(s.clock.Now()) >= 1 {
		fire = s.advanceLocked()
	}
	alive := epoch == s.epoch && s.state == StatePlaying
	s.mu.Unlock()

	if fire != nil {
		fire()
	}
	return alive
}

func (s *Session) fireShown(story domain.Story, index int) {
	if s.hooks.OnStoryShown != nil {
		s.hooks.OnStoryShown(story, index)
	}
}

func (s *Session) fireClosed() {
	s.fireClosedFn()()
}

func (s *Session) fireClosedFn() func() {
	h := s.hooks.OnClosed
	return func() {
		if h != nil {
			h()
		}
	}
}
