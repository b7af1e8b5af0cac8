package viewtracker

import (
	"github.com/mercatale/story-engine/internal/domain"
)

// Tracker records that the current actor has seen a story. Calls are
// fire-and-forget: they never block playback, never surface errors, and
// marking an already-marked story is a no-op. The backend deduplicates on its
// side as well; the in-process dedupe only saves pointless requests.
type Tracker interface {
	MarkViewed(story domain.Story)
}
