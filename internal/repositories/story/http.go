package story

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mercatale/story-engine/internal/domain"
	"github.com/mercatale/story-engine/internal/httpapi"
	"github.com/mercatale/story-engine/pkg/logger"
)

type HTTPRepository struct {
	api    *httpapi.Client
	logger logger.Logger
	now    func() time.Time
}

func NewHTTPRepository(api *httpapi.Client, logger logger.Logger) *HTTPRepository {
	return &HTTPRepository{
		api:    api,
		logger: logger,
		now:    time.Now,
	}
}

var _ Repository = (*HTTPRepository)(nil)

// storyRecord is the wire shape of a story as the backend returns it.
type storyRecord struct {
	ID                   string    `json:"id"`
	OwnerID              string    `json:"owner_id"`
	OwnerDisplayName     string    `json:"owner_display_name"`
	OwnerAvatarURL       string    `json:"owner_avatar_url"`
	OwnerVerified        bool      `json:"owner_verified"`
	MediaType            string    `json:"media_type"`
	MediaURL             string    `json:"media_url"`
	Caption              string    `json:"caption"`
	CreatedAt            time.Time `json:"created_at"`
	ExpiresAt            time.Time `json:"expires_at"`
	ViewCount            int       `json:"view_count"`
	ViewedByCurrentActor bool      `json:"viewed"`
}

func (r storyRecord) toDomain() domain.Story {
	return domain.Story{
		ID:                   r.ID,
		OwnerID:              r.OwnerID,
		OwnerDisplayName:     r.OwnerDisplayName,
		OwnerAvatarURL:       r.OwnerAvatarURL,
		OwnerVerified:        r.OwnerVerified,
		MediaType:            domain.MediaType(r.MediaType),
		MediaURL:             r.MediaURL,
		Caption:              r.Caption,
		CreatedAt:            r.CreatedAt,
		ExpiresAt:            r.ExpiresAt,
		ViewCount:            r.ViewCount,
		ViewedByCurrentActor: r.ViewedByCurrentActor,
	}
}

func (r *HTTPRepository) List(ctx context.Context) ([]domain.Story, error) {
	req, err := r.api.NewRequest(ctx, http.MethodGet, "/stories", nil)
	if err != nil {
		return nil, err
	}

	var records []storyRecord
	if _, err := r.api.DoJSON(req, &records); err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}

	now := r.now()
	stories := make([]domain.Story, 0, len(records))
	for _, rec := range records {
		s := rec.toDomain()
		// The backend filters expired stories; recheck anyway so a stale
		// record never reaches grouping or playback.
		if s.Expired(now) {
			r.logger.Warn("Backend returned an expired story, dropping it", "story_id", s.ID, "expires_at", s.ExpiresAt)
			continue
		}
		stories = append(stories, s)
	}
	return stories, nil
}

func (r *HTTPRepository) Create(ctx context.Context, params CreateParams) (*domain.Story, error) {
	body := struct {
		MediaURL  string `json:"media_url"`
		MediaType string `json:"media_type"`
		Caption   string `json:"caption,omitempty"`
	}{
		MediaURL:  params.MediaURL,
		MediaType: params.MediaType.String(),
		Caption:   params.Caption,
	}

	req, err := r.api.NewRequest(ctx, http.MethodPost, "/stories", body)
	if err != nil {
		return nil, err
	}

	var rec storyRecord
	if _, err := r.api.DoJSON(req, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCannotCreate, err)
	}

	created := rec.toDomain()
	return &created, nil
}

func (r *HTTPRepository) MarkViewed(ctx context.Context, storyID string) error {
	req, err := r.api.NewRequest(ctx, http.MethodPost, "/stories/"+url.PathEscape(storyID)+"/view", nil)
	if err != nil {
		return err
	}

	status, err := r.api.DoJSON(req, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("mark story viewed: %w", err)
	}
	return nil
}

func (r *HTTPRepository) Delete(ctx context.Context, storyID string) error {
	req, err := r.api.NewRequest(ctx, http.MethodDelete, "/stories/"+url.PathEscape(storyID), nil)
	if err != nil {
		return err
	}

	status, err := r.api.DoJSON(req, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("delete story: %w", err)
	}
	return nil
}
