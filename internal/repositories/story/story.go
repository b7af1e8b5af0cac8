package story

import (
	"context"
	"errors"

	"github.com/mercatale/story-engine/internal/domain"
)

var ErrNotFound = errors.New("story not found")
var ErrCannotCreate = errors.New("error create story")

// CreateParams is the metadata record of publish phase two; the media binary
// must already live at MediaURL.
type CreateParams struct {
	MediaURL  string
	MediaType domain.MediaType
	Caption   string
}

//go:generate go run go.uber.org/mock/mockgen -source=story.go -destination=mocks/mock.go

type Repository interface {
	List(ctx context.Context) ([]domain.Story, error)
	Create(ctx context.Context, params CreateParams) (*domain.Story, error)
	MarkViewed(ctx context.Context, storyID string) error
	Delete(ctx context.Context, storyID string) error
}
