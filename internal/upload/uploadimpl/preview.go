package uploadimpl

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/mercatale/story-engine/internal/domain"
	"github.com/mercatale/story-engine/internal/upload"
	"golang.org/x/image/draw"
)

// buildPreview produces the local, never-uploaded thumbnail for a draft.
// Images are decoded and downscaled in-process; videos get no local decode,
// the UI shows a placeholder frame instead.
func (i *Impl) buildPreview(f upload.File, mediaType domain.MediaType) (upload.Preview, error) {
	if mediaType != domain.MediaTypeImage {
		return upload.Preview{}, nil
	}

	content, err := f.Open()
	if err != nil {
		return upload.Preview{}, fmt.Errorf("open file for preview: %w", err)
	}
	defer content.Close()

	src, _, err := image.Decode(content)
	if err != nil {
		return upload.Preview{}, fmt.Errorf("decode image: %w", err)
	}

	thumb := downscale(src, i.cfg.Upload.PreviewMaxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return upload.Preview{}, fmt.Errorf("encode preview: %w", err)
	}

	return upload.Preview{
		Data: buf.Bytes(),
		MIME: "image/jpeg",
	}, nil
}

// downscale fits src inside a maxEdge square, preserving aspect ratio. Images
// already small enough pass through untouched.
func downscale(src image.Image, maxEdge int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return src
	}

	if w >= h {
		h = h * maxEdge / w
		w = maxEdge
	} else {
		w = w * maxEdge / h
		h = maxEdge
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
