// Package image decodes page backgrounds and photos and prepares them for
// display.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"mime"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// PDF MIME types.
const (
	MIMEPDF  = "application/pdf"
	MIMEXPDF = "application/x-pdf"
)

// ErrUnsupported is returned for files that are neither images nor PDFs.
var ErrUnsupported = errors.New("image: unsupported format")

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
}

// File is an uploaded file.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// BaseName returns the file name without directory or extension.
func (f File) BaseName() string {
	base := filepath.Base(f.Name)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DetectMIME returns the file's MIME type, falling back to the extension.
func (f File) DetectMIME() string {
	if f.MIMEType != "" {
		if mt, _, err := mime.ParseMediaType(f.MIMEType); err == nil {
			return mt
		}
		return f.MIMEType
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	if mt, ok := imageTypes[ext]; ok {
		return mt
	}
	if ext == ".pdf" {
		return MIMEPDF
	}
	return ""
}

// IsPDF reports whether the file is a PDF by MIME type or extension.
func (f File) IsPDF() bool {
	return IsPDF(f.MIMEType, f.Name)
}

// IsImage reports whether the file is a decodable image type.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.DetectMIME(), "image/")
}

// IsPDF reports whether a MIME type or file name denotes a PDF.
func IsPDF(mimeType, name string) bool {
	switch strings.ToLower(mimeType) {
	case MIMEPDF, MIMEXPDF:
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Decode decodes an image in any registered format.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// AspectRatio returns width/height read from the image header without
// decoding pixels.
func AspectRatio(data []byte) (float64, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, fmt.Errorf("image has no area: %dx%d", cfg.Width, cfg.Height)
	}
	return float64(cfg.Width) / float64(cfg.Height), nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Fit scales img down so neither side exceeds maxW x maxH, keeping its
// aspect ratio. Images already small enough are returned unchanged.
func Fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || (w <= maxW && h <= maxH) {
		return img
	}
	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// SupportedExtensions returns the accepted upload extensions.
func SupportedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp", ".pdf"}
}

// IsSupportedFormat checks if the given path has an accepted extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedExtensions() {
		if ext == format {
			return true
		}
	}
	return false
}
