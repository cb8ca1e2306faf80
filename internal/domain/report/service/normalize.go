package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
)

const (
	// DefaultMaxImageWidth is the width uploads are scaled down to before analysis
	DefaultMaxImageWidth = 1600
	jpegQuality          = 85
)

// NormalizeImage decodes an uploaded image (png, jpeg, gif or webp), scales it
// down to maxWidth if wider and re-encodes it as JPEG for the analysis service.
func NormalizeImage(src io.Reader, filename string, maxWidth int) (entity.UploadedImage, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxImageWidth
	}

	raw, err := io.ReadAll(src)
	if err != nil {
		return entity.UploadedImage{}, fmt.Errorf("reading image: %w", err)
	}
	if len(raw) == 0 {
		return entity.UploadedImage{}, entity.ErrEmptyImage
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return entity.UploadedImage{}, fmt.Errorf("%w: %v", entity.ErrUnsupportedImage, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxWidth {
		newH := h * maxWidth / w
		if newH < 1 {
			newH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return entity.UploadedImage{}, fmt.Errorf("encoding jpeg: %w", err)
	}

	return entity.UploadedImage{
		Filename:    jpegName(filename),
		ContentType: "image/jpeg",
		Content:     buf.Bytes(),
		Size:        buf.Len(),
		Width:       w,
		Height:      h,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

func jpegName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return base + ".jpg"
}
