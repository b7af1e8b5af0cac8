package media

import (
	"context"
	"errors"
	"io"
)

var ErrUploadFailed = errors.New("media upload failed")

//go:generate go run go.uber.org/mock/mockgen -source=media.go -destination=mocks/mock.go

// Uploader performs phase one of the publish saga: it moves the raw binary to
// durable storage and hands back the URL the metadata record will reference.
type Uploader interface {
	Upload(ctx context.Context, filename, mimeType string, content io.Reader, size int64) (string, error)
}
