package document

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	roofimage "titanroof/internal/image"
)

// ErrPDFUnavailable is returned when no PDF renderer is configured.
var ErrPDFUnavailable = errors.New("pdf support is not available")

// RasterPage is one rendered PDF page.
type RasterPage struct {
	Image  image.Image
	Width  int
	Height int
}

// Rasterizer renders every page of a PDF, in order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte) ([]RasterPage, error)
}

// NoRasterizer rejects every PDF.
type NoRasterizer struct{}

// Rasterize implements Rasterizer.
func (NoRasterizer) Rasterize(context.Context, []byte) ([]RasterPage, error) {
	return nil, ErrPDFUnavailable
}

// Pdftoppm renders PDFs with the poppler pdftoppm tool.
type Pdftoppm struct {
	Path string // defaults to "pdftoppm" on PATH
	DPI  int    // defaults to 144, twice the PDF point size
}

// Rasterize implements Rasterizer.
func (r Pdftoppm) Rasterize(ctx context.Context, pdf []byte) ([]RasterPage, error) {
	bin := r.Path
	if bin == "" {
		bin = "pdftoppm"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFUnavailable, err)
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 144
	}

	dir, err := os.MkdirTemp("", "titanroof-pdf-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, bin, "-png", "-r", strconv.Itoa(dpi), in, filepath.Join(dir, "page"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(string(out)))
	}

	files, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	// pdftoppm zero-pads page numbers to the width of the page count.
	sort.Slice(files, func(i, j int) bool {
		return pageNumber(files[i]) < pageNumber(files[j])
	})

	pages := make([]RasterPage, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		img, err := roofimage.Decode(data)
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		pages = append(pages, RasterPage{Image: img, Width: b.Dx(), Height: b.Dy()})
	}
	return pages, nil
}

func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	_, num, _ := strings.Cut(base, "-")
	n, _ := strconv.Atoi(num)
	return n
}
