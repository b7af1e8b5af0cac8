package uploadimpl

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mercatale/story-engine/internal/domain"
	"github.com/mercatale/story-engine/internal/repositories/media"
	"github.com/mercatale/story-engine/internal/repositories/story"
	"github.com/mercatale/story-engine/internal/upload"
	"github.com/mercatale/story-engine/pkg/config"
	apperrors "github.com/mercatale/story-engine/pkg/errors"
	"github.com/mercatale/story-engine/pkg/formatter"
	"github.com/mercatale/story-engine/pkg/logger"
	"github.com/mercatale/story-engine/pkg/retry"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Media     media.Uploader
	StoryRepo story.Repository
	Logger    logger.Logger
	Config    *config.Config
}

type Impl struct {
	media     media.Uploader
	storyRepo story.Repository
	logger    logger.Logger
	cfg       *config.Config
}

func New(opts Opts) *Impl {
	return &Impl{
		media:     opts.Media,
		storyRepo: opts.StoryRepo,
		logger:    opts.Logger,
		cfg:       opts.Config,
	}
}

var _ upload.Pipeline = (*Impl)(nil)

// Validate runs synchronously and before any network call: only image/* and
// video/* MIME types pass, and the file must fit the configured size limit.
func (i *Impl) Validate(f upload.File) (domain.MediaType, error) {
	mediaType := domain.DetectMediaType(f.MIME)
	if !mediaType.IsValid() {
		return "", fmt.Errorf("%w: %q", upload.ErrUnsupportedType, f.MIME)
	}
	if f.Size > i.cfg.Upload.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", upload.ErrTooLarge, f.Size, i.cfg.Upload.MaxBytes)
	}
	return mediaType, nil
}

// NewDraft validates the file and attaches a local preview. The draft owns
// the preview until Publish succeeds or Discard runs.
func (i *Impl) NewDraft(f upload.File, caption string) (*upload.Draft, error) {
	mediaType, err := i.Validate(f)
	if err != nil {
		return nil, err
	}

	preview, err := i.buildPreview(f, mediaType)
	if err != nil {
		// A broken preview is not a broken upload; publish can proceed.
		i.logger.Warn("Preview generation failed", "filename", f.Name, "error", err)
		preview = upload.Preview{}
	}

	return &upload.Draft{
		ID:        uuid.New(),
		File:      f,
		MediaType: mediaType,
		Caption:   formatter.TruncateCaption(caption, i.cfg.Upload.MaxCaptionLen),
		Preview:   preview,
	}, nil
}

// Publish runs the two-phase saga. Phase one (binary upload) retries with
// backoff; phase two (metadata record) runs once. When phase two fails after
// phase one succeeded, the uploaded blob is orphaned server-side — accepted,
// logged, and reclaimed out-of-band. No rollback is attempted.
func (i *Impl) Publish(ctx context.Context, draft *upload.Draft, progress upload.ProgressFunc) (*domain.Story, error) {
	if draft == nil || draft.File.Open == nil {
		return nil, fmt.Errorf("publish called with a discarded draft")
	}
	notify := func(p upload.Phase) {
		if progress != nil {
			progress(p)
		}
	}
	notify(upload.PhaseValidated)

	notify(upload.PhaseUploading)
	var mediaURL string
	err := retry.Do(ctx, i.logger, "upload media binary", func() error {
		content, err := draft.File.Open()
		if err != nil {
			return err
		}
		defer content.Close()

		url, err := i.media.Upload(ctx, draft.File.Name, draft.File.MIME, content, draft.File.Size)
		if err != nil {
			return err
		}
		mediaURL = url
		return nil
	}, retry.DefaultConfig())
	if err != nil {
		return nil, apperrors.WrapWithCode(err, "PUBLISH_PHASE_1", "publish phase 1 (binary upload)")
	}

	notify(upload.PhaseCreating)
	created, err := i.storyRepo.Create(ctx, story.CreateParams{
		MediaURL:  mediaURL,
		MediaType: draft.MediaType,
		Caption:   draft.Caption,
	})
	if err != nil {
		i.logger.Warn("Story record creation failed after binary upload, blob is orphaned",
			"draft_id", draft.ID, "media_url", mediaURL, "error", err)
		return nil, apperrors.WrapWithCode(err, "PUBLISH_PHASE_2", "publish phase 2 (story record)")
	}

	i.logger.Info("Published story", "story_id", created.ID, "media_type", created.MediaType, "draft_id", draft.ID)
	draft.Discard()
	notify(upload.PhaseDone)
	return created, nil
}
