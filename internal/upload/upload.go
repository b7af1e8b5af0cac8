package upload

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/mercatale/story-engine/internal/domain"
)

var ErrUnsupportedType = errors.New("unsupported media type")
var ErrTooLarge = errors.New("file exceeds the upload size limit")

// File is a locally selected media file. Open returns a fresh reader each
// call; validation, preview and upload each read the content independently.
type File struct {
	Name string
	MIME string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Phase marks progress boundaries of a publish for the caller's UI.
type Phase string

const (
	PhaseValidated Phase = "validated"
	PhaseUploading Phase = "uploading"
	PhaseCreating  Phase = "creating"
	PhaseDone      Phase = "done"
)

type ProgressFunc func(Phase)

// Draft is the ephemeral pre-publish state: validated file, caption and local
// preview. Discard it on cancel; Publish consumes it on success.
type Draft struct {
	ID        uuid.UUID
	File      File
	MediaType domain.MediaType
	Caption   string
	Preview   Preview
}

// Preview is a locally generated thumbnail. It never leaves the process.
type Preview struct {
	Data []byte
	MIME string
}

// Discard releases the draft's local resources. Safe to call twice.
func (d *Draft) Discard() {
	d.Preview = Preview{}
	d.File = File{}
}

// Pipeline validates media, produces drafts and runs the two-phase publish
// saga: binary upload, then metadata creation. The phases are not atomic — a
// phase-two failure leaves an orphaned blob behind, reclaimed out-of-band by
// the storage backend.
type Pipeline interface {
	Validate(f File) (domain.MediaType, error)
	NewDraft(f File, caption string) (*Draft, error)
	Publish(ctx context.Context, draft *Draft, progress ProgressFunc) (*domain.Story, error)
}
