package domain

// StoryGroup is one owner's currently-live stories presented as a single
// playback unit. Groups are derived snapshots: a fetch produces wholly new
// groups, never mutates existing ones.
type StoryGroup struct {
	OwnerID          string
	OwnerDisplayName string
	OwnerAvatarURL   string
	OwnerVerified    bool
	Stories          []Story
	HasUnviewed      bool
}

// Clone returns a deep copy so an open playback session keeps its own
// immutable view of the group across background refreshes.
func (g StoryGroup) Clone() StoryGroup {
	cp := g
	cp.Stories = make([]Story, len(g.Stories))
	copy(cp.Stories, g.Stories)
	return cp
}
