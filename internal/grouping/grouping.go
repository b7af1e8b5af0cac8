package grouping

import (
	"time"

	"github.com/mercatale/story-engine/internal/domain"
)

// Result splits the actor's own group from everyone else's. Others keeps the
// first-seen order of the input so the rail renders stably across refreshes.
type Result struct {
	Own    *domain.StoryGroup
	Others []*domain.StoryGroup
}

// Group buckets a flat story list per owner in a single pass. Stories keep the
// order the repository returned them in; an owner's first story fixes the
// group's position. Expired stories are dropped before bucketing even though
// the repository already filters them. Pure function of its input.
func Group(stories []domain.Story, actorID string, now time.Time) Result {
	order := make([]string, 0, len(stories))
	buckets := make(map[string]*domain.StoryGroup, len(stories))

	for _, s := range stories {
		if s.Expired(now) {
			continue
		}

		g, ok := buckets[s.OwnerID]
		if !ok {
			g = &domain.StoryGroup{
				OwnerID:          s.OwnerID,
				OwnerDisplayName: s.OwnerDisplayName,
				OwnerAvatarURL:   s.OwnerAvatarURL,
				OwnerVerified:    s.OwnerVerified,
			}
			buckets[s.OwnerID] = g
			order = append(order, s.OwnerID)
		}

		g.Stories = append(g.Stories, s)
		if !s.ViewedByCurrentActor {
			g.HasUnviewed = true
		}
	}

	var res Result
	for _, ownerID := range order {
		if ownerID == actorID {
			res.Own = buckets[ownerID]
			continue
		}
		res.Others = append(res.Others, buckets[ownerID])
	}
	return res
}

// Find returns the group for ownerID, checking Own first.
func (r Result) Find(ownerID string) *domain.StoryGroup {
	if r.Own != nil && r.Own.OwnerID == ownerID {
		return r.Own
	}
	for _, g := range r.Others {
		if g.OwnerID == ownerID {
			return g
		}
	}
	return nil
}
