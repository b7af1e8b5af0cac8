package uploadimpl

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/mercatale/story-engine/internal/domain"
	mock_media "github.com/mercatale/story-engine/internal/repositories/media/mocks"
	"github.com/mercatale/story-engine/internal/repositories/story"
	mock_story "github.com/mercatale/story-engine/internal/repositories/story/mocks"
	"github.com/mercatale/story-engine/internal/upload"
	"github.com/mercatale/story-engine/pkg/config"
	"github.com/mercatale/story-engine/pkg/logger"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Upload.MaxBytes = 50 << 20
	cfg.Upload.MaxCaptionLen = 220
	cfg.Upload.PreviewMaxEdge = 320
	return cfg
}

func newTestImpl(t *testing.T) (*Impl, *mock_media.MockUploader, *mock_story.MockRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	uploader := mock_media.NewMockUploader(ctrl)
	repo := mock_story.NewMockRepository(ctrl)
	impl := New(Opts{
		Media:     uploader,
		StoryRepo: repo,
		Logger:    logger.New(logger.Opts{Env: "development"}),
		Config:    testConfig(),
	})
	return impl, uploader, repo
}

func fileOf(name, mime string, size int64, data []byte) upload.File {
	return upload.File{
		Name: name,
		MIME: mime,
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func TestValidate(t *testing.T) {
	impl, _, _ := newTestImpl(t)

	tests := []struct {
		name     string
		file     upload.File
		wantType domain.MediaType
		wantErr  error
	}{
		{
			name:     "2MB png accepted",
			file:     fileOf("photo.png", "image/png", 2<<20, nil),
			wantType: domain.MediaTypeImage,
		},
		{
			name:     "10MB mp4 accepted",
			file:     fileOf("clip.mp4", "video/mp4", 10<<20, nil),
			wantType: domain.MediaTypeVideo,
		},
		{
			name:    "60MB file rejected as too large",
			file:    fileOf("huge.mp4", "video/mp4", 60<<20, nil),
			wantErr: upload.ErrTooLarge,
		},
		{
			name:    "text file rejected as unsupported",
			file:    fileOf("notes.txt", "text/plain", 1<<10, nil),
			wantErr: upload.ErrUnsupportedType,
		},
		{
			name:    "missing mime rejected as unsupported",
			file:    fileOf("mystery.bin", "", 1<<10, nil),
			wantErr: upload.ErrUnsupportedType,
		},
		{
			name:     "file exactly at the limit passes",
			file:     fileOf("edge.png", "image/png", 50<<20, nil),
			wantType: domain.MediaTypeImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mediaType, err := impl.Validate(tt.file)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantType, mediaType)
		})
	}
}

func TestNewDraftBuildsImagePreview(t *testing.T) {
	impl, _, _ := newTestImpl(t)

	src := image.NewRGBA(image.Rect(0, 0, 1000, 400))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	raw := buf.Bytes()

	draft, err := impl.NewDraft(fileOf("wide.png", "image/png", int64(len(raw)), raw), "  a caption  ")
	require.NoError(t, err)
	require.Equal(t, domain.MediaTypeImage, draft.MediaType)
	require.Equal(t, "a caption", draft.Caption)
	require.Equal(t, "image/jpeg", draft.Preview.MIME)
	require.NotEmpty(t, draft.Preview.Data)

	thumb, _, err := image.Decode(bytes.NewReader(draft.Preview.Data))
	require.NoError(t, err)
	require.LessOrEqual(t, thumb.Bounds().Dx(), 320)
	require.LessOrEqual(t, thumb.Bounds().Dy(), 320)

	draft.Discard()
	require.Empty(t, draft.Preview.Data)
	require.Nil(t, draft.File.Open)
}

func TestNewDraftVideoHasNoLocalPreview(t *testing.T) {
	impl, _, _ := newTestImpl(t)

	draft, err := impl.NewDraft(fileOf("clip.mp4", "video/mp4", 1<<20, []byte("not decoded")), "")
	require.NoError(t, err)
	require.Equal(t, domain.MediaTypeVideo, draft.MediaType)
	require.Empty(t, draft.Preview.Data)
}

func TestNewDraftTruncatesCaption(t *testing.T) {
	impl, _, _ := newTestImpl(t)

	long := strings.Repeat("x", 500)
	draft, err := impl.NewDraft(fileOf("clip.mp4", "video/mp4", 1<<20, nil), long)
	require.NoError(t, err)
	require.LessOrEqual(t, len([]rune(draft.Caption)), 220)
}

func TestNewDraftBrokenImageStillDrafts(t *testing.T) {
	impl, _, _ := newTestImpl(t)

	// Claims to be an image but does not decode; the preview is skipped, the
	// draft still works.
	draft, err := impl.NewDraft(fileOf("corrupt.png", "image/png", 64, []byte("garbage")), "")
	require.NoError(t, err)
	require.Empty(t, draft.Preview.Data)
}

func TestPublishHappyPath(t *testing.T) {
	impl, uploader, repo := newTestImpl(t)
	ctx := context.Background()

	content := []byte("binary media")
	draft, err := impl.NewDraft(fileOf("clip.mp4", "video/mp4", int64(len(content)), content), "hello")
	require.NoError(t, err)

	uploader.EXPECT().
		Upload(gomock.Any(), "clip.mp4", "video/mp4", gomock.Any(), int64(len(content))).
		Return("https://cdn.test/media/abc", nil)
	repo.EXPECT().
		Create(gomock.Any(), story.CreateParams{
			MediaURL:  "https://cdn.test/media/abc",
			MediaType: domain.MediaTypeVideo,
			Caption:   "hello",
		}).
		Return(&domain.Story{ID: "s-new", MediaType: domain.MediaTypeVideo}, nil)

	var phases []upload.Phase
	created, err := impl.Publish(ctx, draft, func(p upload.Phase) {
		phases = append(phases, p)
	})
	require.NoError(t, err)
	require.Equal(t, "s-new", created.ID)
	require.Equal(t, []upload.Phase{upload.PhaseValidated, upload.PhaseUploading, upload.PhaseCreating, upload.PhaseDone}, phases)

	// Publish consumed the draft.
	require.Nil(t, draft.File.Open)
}

func TestPublishPhaseOneFailureRetriesThenSurfaces(t *testing.T) {
	impl, uploader, _ := newTestImpl(t)
	ctx, cancel := context.WithCancel(context.Background())

	draft, err := impl.NewDraft(fileOf("clip.mp4", "video/mp4", 4, []byte("data")), "")
	require.NoError(t, err)

	uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, string, io.Reader, int64) (string, error) {
			// Cancel so the backoff gives up instead of sleeping the test.
			cancel()
			return "", errors.New("connection reset")
		})

	_, err = impl.Publish(ctx, draft, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "phase 1")
}

func TestPublishPhaseTwoFailureLeavesOrphanWithoutRollback(t *testing.T) {
	impl, uploader, repo := newTestImpl(t)
	ctx := context.Background()

	draft, err := impl.NewDraft(fileOf("photo.png", "image/png", 4, []byte("data")), "")
	require.NoError(t, err)

	uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("https://cdn.test/media/orphan", nil)
	// Phase 2 fails. No Delete expectation: the engine must not attempt a
	// rollback of the uploaded blob.
	repo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(nil, story.ErrCannotCreate)

	_, err = impl.Publish(ctx, draft, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "phase 2")
	require.ErrorIs(t, err, story.ErrCannotCreate)

	// The draft survives for the caller's retry affordance.
	require.NotNil(t, draft.File.Open)
}

func TestPublishDiscardedDraftErrors(t *testing.T) {
	impl, _, _ := newTestImpl(t)

	draft := &upload.Draft{}
	_, err := impl.Publish(context.Background(), draft, nil)
	require.Error(t, err)
}
