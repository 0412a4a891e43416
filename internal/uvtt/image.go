package uvtt

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ImageInfo describes the embedded map image without decoding its pixels.
type ImageInfo struct {
	Format string
	Width  int
	Height int
	Bytes  int
}

// ImageInfo probes the embedded base64 image. Data-URL prefixes written by
// some exporters are stripped before decoding.
func (f *File) ImageInfo() (ImageInfo, error) {
	b64 := f.Image
	if idx := strings.Index(b64, ";base64,"); strings.HasPrefix(b64, "data:") && idx >= 0 {
		b64 = b64[idx+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("decode image: %w", err)
	}
	return ProbeImage(raw)
}

// ProbeImage reads format and dimensions from raw image bytes without
// decoding the pixels. PNG, JPEG and WEBP are recognized.
func ProbeImage(raw []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("probe image: %w", err)
	}
	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height, Bytes: len(raw)}, nil
}
