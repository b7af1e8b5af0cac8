package grouping

import (
	"testing"
	"time"

	"github.com/mercatale/story-engine/internal/domain"
	"github.com/stretchr/testify/require"
)

func makeStory(id, ownerID string, viewed bool, expiresAt time.Time) domain.Story {
	return domain.Story{
		ID:                   id,
		OwnerID:              ownerID,
		OwnerDisplayName:     "seller-" + ownerID,
		MediaType:            domain.MediaTypeImage,
		MediaURL:             "https://cdn.test/" + id,
		CreatedAt:            expiresAt.Add(-domain.StoryTTL),
		ExpiresAt:            expiresAt,
		ViewedByCurrentActor: viewed,
	}
}

func TestGroup(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	live := now.Add(6 * time.Hour)

	tests := []struct {
		name         string
		stories      []domain.Story
		actorID      string
		wantOwn      []string   // story IDs in the own group, nil means no own group
		wantOthers   [][]string // story IDs per other group, in rail order
		wantUnviewed []bool     // HasUnviewed per other group
	}{
		{
			name:    "empty input",
			stories: nil,
			actorID: "me",
		},
		{
			name: "actor with no stories yields nil own group",
			stories: []domain.Story{
				makeStory("s1", "a", true, live),
			},
			actorID:      "me",
			wantOthers:   [][]string{{"s1"}},
			wantUnviewed: []bool{false},
		},
		{
			name: "own bucket popped, others keep first-seen order",
			stories: []domain.Story{
				makeStory("s1", "b", true, live),
				makeStory("s2", "me", false, live),
				makeStory("s3", "a", true, live),
				makeStory("s4", "b", false, live),
				makeStory("s5", "me", true, live),
			},
			actorID:      "me",
			wantOwn:      []string{"s2", "s5"},
			wantOthers:   [][]string{{"s1", "s4"}, {"s3"}},
			wantUnviewed: []bool{true, false},
		},
		{
			name: "expired stories dropped before bucketing",
			stories: []domain.Story{
				makeStory("s1", "a", false, now.Add(-time.Minute)),
				makeStory("s2", "a", true, live),
			},
			actorID:      "me",
			wantOthers:   [][]string{{"s2"}},
			wantUnviewed: []bool{false},
		},
		{
			name: "owner whose every story expired vanishes entirely",
			stories: []domain.Story{
				makeStory("s1", "a", false, now.Add(-time.Hour)),
				makeStory("s2", "b", false, live),
			},
			actorID:      "me",
			wantOthers:   [][]string{{"s2"}},
			wantUnviewed: []bool{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Group(tt.stories, tt.actorID, now)

			if tt.wantOwn == nil {
				require.Nil(t, res.Own)
			} else {
				require.NotNil(t, res.Own)
				require.Equal(t, tt.actorID, res.Own.OwnerID)
				require.Equal(t, tt.wantOwn, storyIDs(res.Own.Stories))
			}

			require.Len(t, res.Others, len(tt.wantOthers))
			for i, g := range res.Others {
				require.Equal(t, tt.wantOthers[i], storyIDs(g.Stories), "group %d", i)
				require.Equal(t, tt.wantUnviewed[i], g.HasUnviewed, "group %d", i)
			}
		})
	}
}

func TestGroupIsPure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	live := now.Add(time.Hour)
	input := []domain.Story{
		makeStory("s1", "b", false, live),
		makeStory("s2", "a", true, live),
		makeStory("s3", "b", true, live),
	}

	first := Group(input, "me", now)
	second := Group(input, "me", now)

	require.Equal(t, first, second)

	// Mutating one result must not leak into a recomputed snapshot.
	first.Others[0].Stories[0].Caption = "mutated"
	third := Group(input, "me", now)
	require.Equal(t, second.Others[0].Stories[0].Caption, third.Others[0].Stories[0].Caption)
}

func TestGroupHasUnviewedOrAccumulator(t *testing.T) {
	now := time.Now()
	live := now.Add(time.Hour)

	allViewed := Group([]domain.Story{
		makeStory("s1", "a", true, live),
		makeStory("s2", "a", true, live),
	}, "me", now)
	require.False(t, allViewed.Others[0].HasUnviewed)

	oneUnviewed := Group([]domain.Story{
		makeStory("s1", "a", true, live),
		makeStory("s2", "a", false, live),
		makeStory("s3", "a", true, live),
	}, "me", now)
	require.True(t, oneUnviewed.Others[0].HasUnviewed)
}

func TestResultFind(t *testing.T) {
	now := time.Now()
	live := now.Add(time.Hour)
	res := Group([]domain.Story{
		makeStory("s1", "me", false, live),
		makeStory("s2", "a", false, live),
	}, "me", now)

	require.Same(t, res.Own, res.Find("me"))
	require.Same(t, res.Others[0], res.Find("a"))
	require.Nil(t, res.Find("nobody"))
}

func storyIDs(stories []domain.Story) []string {
	ids := make([]string, 0, len(stories))
	for _, s := range stories {
		ids = append(ids, s.ID)
	}
	return ids
}
