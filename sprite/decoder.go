package sprite

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp"
)

// Decoder decodes atlas images and extracts icons from them.
type Decoder interface {
	Decode(data []byte) (image.Image, error)
	Crop(img image.Image, rect image.Rectangle) (image.Image, error)
}

// ImageDecoder decodes PNG, JPEG, WebP and SVG atlases.
type ImageDecoder struct {
	// SVGSize is the size SVG atlases without intrinsic size are rasterized
	// to.
	SVGSize int
}

func (d ImageDecoder) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty atlas image")
	}
	if isSVG(data) {
		return rasterizeSVG(data, d.SVGSize)
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("unable to detect atlas image type: %w", err)
	}
	switch kind.Extension {
	case "png", "jpg", "webp":
	default:
		return nil, fmt.Errorf("unsupported atlas image type %q", kind.MIME.Value)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode %s atlas image: %w", kind.Extension, err)
	}
	return img, nil
}

func (d ImageDecoder) Crop(img image.Image, rect image.Rectangle) (image.Image, error) {
	if !rect.In(img.Bounds()) {
		return nil, fmt.Errorf("region %v is outside of atlas %v", rect, img.Bounds())
	}
	return imaging.Crop(img, rect), nil
}

func isSVG(data []byte) bool {
	head := data[:min(len(data), 512)]
	return bytes.Contains(head, []byte("<svg")) ||
		(bytes.HasPrefix(bytes.TrimSpace(head), []byte("<?xml")) && bytes.Contains(data, []byte("<svg")))
}
