package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"path"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kirillkom/file-processor/internal/core/domain"
	"github.com/kirillkom/file-processor/internal/core/ports"
)

const (
	DefaultThumbnailMaxSide = 200
	DefaultThumbnailQuality = 80
	thumbnailDir            = "thumbnails"
)

var decodableImageTypes = map[string]bool{
	"image/jpeg":     true,
	"image/jpg":      true,
	"image/pjpeg":    true,
	"image/png":      true,
	"image/gif":      true,
	"image/bmp":      true,
	"image/x-ms-bmp": true,
	"image/tiff":     true,
	"image/webp":     true,
}

type ImageAnalyzer struct {
	storage ports.ObjectStorage
	maxSide int
	quality int
}

func NewImageAnalyzer(storage ports.ObjectStorage, maxSide, quality int) *ImageAnalyzer {
	if maxSide <= 0 {
		maxSide = DefaultThumbnailMaxSide
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultThumbnailQuality
	}
	return &ImageAnalyzer{storage: storage, maxSide: maxSide, quality: quality}
}

func (a *ImageAnalyzer) Analyze(ctx context.Context, req domain.ProcessingRequest) (domain.Analysis, error) {
	mediaType := domain.NormalizeMediaType(req.MediaType)
	if !decodableImageTypes[mediaType] {
		return nil, imageFailure(domain.ErrValidationFailure, fmt.Errorf("image type %q cannot be decoded", mediaType))
	}

	img, format, err := image.Decode(bytes.NewReader(req.Data))
	if err != nil {
		return nil, imageFailure(domain.ErrAnalyzerFailure, fmt.Errorf("decode image: %w", err))
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, imageFailure(domain.ErrAnalyzerFailure, errors.New("image has no pixels"))
	}

	// The thumbnail is fully encoded in memory before anything touches storage.
	var encoded bytes.Buffer
	if err := jpeg.Encode(&encoded, thumbnail(img, a.maxSide), &jpeg.Options{Quality: a.quality}); err != nil {
		return nil, imageFailure(domain.ErrAnalyzerFailure, fmt.Errorf("encode thumbnail: %w", err))
	}
	key := ThumbnailKey(req.FileID, req.Filename)
	if err := a.storage.Save(ctx, key, &encoded); err != nil {
		return nil, imageFailure(domain.ErrResourceFailure, fmt.Errorf("store thumbnail: %w", err))
	}

	channels, hasAlpha, colorSpace := describeColor(img)
	return domain.ImageAnalysis{
		Width:         width,
		Height:        height,
		Format:        format,
		Channels:      channels,
		HasAlpha:      hasAlpha,
		ColorSpace:    colorSpace,
		ThumbnailPath: key,
		AspectRatio:   roundTo(float64(width)/float64(height), 2),
		Megapixels:    roundTo(float64(width)*float64(height)/1e6, 1),
	}, nil
}

func imageFailure(category, err error) error {
	return domain.NewProcessingError(domain.KindImage, category, err)
}

// ThumbnailKey derives the storage key of a file's thumbnail from its id and
// original filename, with the extension replaced by .jpg.
func ThumbnailKey(fileID, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		stem = "image"
	}
	if fileID != "" {
		stem = fileID + "_" + stem
	}
	return path.Join(thumbnailDir, stem+"_thumb.jpg")
}

// fitInside scales (w, h) to fit a limit×limit box, preserving aspect ratio
// and never enlarging.
func fitInside(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, int(math.Round(float64(h)*float64(limit)/float64(w))))
	}
	return max(1, int(math.Round(float64(w)*float64(limit)/float64(h)))), limit
}

func thumbnail(img image.Image, limit int) image.Image {
	src := img.Bounds()
	w, h := fitInside(src.Dx(), src.Dy(), limit)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; flatten transparent areas onto white.
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, xdraw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, src, xdraw.Over, nil)
	return dst
}

func describeColor(img image.Image) (channels int, hasAlpha bool, colorSpace string) {
	switch m := img.(type) {
	case *image.Gray, *image.Gray16:
		return 1, false, "b-w"
	case *image.Alpha, *image.Alpha16:
		return 2, true, "b-w"
	case *image.CMYK:
		return 4, false, "cmyk"
	case *image.YCbCr:
		return 3, false, "srgb"
	case *image.NYCbCrA:
		return 4, true, "srgb"
	case *image.Paletted:
		if paletteHasAlpha(m.Palette) {
			return 4, true, "srgb"
		}
		return 3, false, "srgb"
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return 3, false, "srgb"
	}
	return 4, true, "srgb"
}

func paletteHasAlpha(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a < 0xffff {
			return true
		}
	}
	return false
}
