package domain

import (
	"strings"
	"time"
)

// StoryTTL is the lifetime the backend derives ExpiresAt from. The engine only
// uses it for defensive rechecks; expiry is always server-authoritative.
const StoryTTL = 24 * time.Hour

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

func (m MediaType) String() string {
	return string(m)
}

func (m MediaType) IsValid() bool {
	return m == MediaTypeImage || m == MediaTypeVideo
}

// DetectMediaType maps a MIME type onto a MediaType. Anything that is not
// image/* or video/* yields an invalid zero value.
func DetectMediaType(mimeType string) MediaType {
	lower := strings.ToLower(mimeType)
	if strings.HasPrefix(lower, "image/") {
		return MediaTypeImage
	}
	if strings.HasPrefix(lower, "video/") {
		return MediaTypeVideo
	}
	return ""
}

type Story struct {
	ID                   string
	OwnerID              string
	OwnerDisplayName     string
	OwnerAvatarURL       string
	OwnerVerified        bool
	MediaType            MediaType
	MediaURL             string
	Caption              string
	CreatedAt            time.Time
	ExpiresAt            time.Time
	ViewCount            int
	ViewedByCurrentActor bool
}

// Expired reports whether the story is past its lifetime at the given instant.
func (s Story) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
