package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/mercatale/story-engine/internal/httpapi"
	"github.com/mercatale/story-engine/pkg/logger"
)

type HTTPUploader struct {
	api    *httpapi.Client
	logger logger.Logger
}

func NewHTTPUploader(api *httpapi.Client, logger logger.Logger) *HTTPUploader {
	return &HTTPUploader{
		api:    api,
		logger: logger,
	}
}

var _ Uploader = (*HTTPUploader)(nil)

func (u *HTTPUploader) Upload(ctx context.Context, filename, mimeType string, content io.Reader, size int64) (string, error) {
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	// Stream the multipart body so a 50MB video never sits in memory twice.
	go func() {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		header.Set("Content-Type", mimeType)

		part, err := form.CreatePart(header)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := u.api.NewUpload(ctx, "/upload", form.FormDataContentType(), pr)
	if err != nil {
		return "", err
	}

	var out struct {
		MediaURL string `json:"media_url"`
	}
	if _, err := u.api.DoJSON(req, &out); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	if strings.TrimSpace(out.MediaURL) == "" {
		return "", fmt.Errorf("%w: backend returned no media url", ErrUploadFailed)
	}

	u.logger.Info("Uploaded media binary", "filename", filename, "mime_type", mimeType, "size", size)
	return out.MediaURL, nil
}
