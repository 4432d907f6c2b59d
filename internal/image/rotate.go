package image

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// RotateQuarter rotates img clockwise by a multiple of 90 degrees. Other
// angles are normalized to the nearest lower quarter turn.
func RotateQuarter(img image.Image, degrees int) (image.Image, error) {
	r := ((degrees%360)+360)%360 - ((degrees%360)+360)%90
	if r == 0 {
		return img, nil
	}

	src, err := toMat(img)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	switch r {
	case 90:
		gocv.Rotate(src, &dst, gocv.Rotate90Clockwise)
	case 180:
		gocv.Rotate(src, &dst, gocv.Rotate180Clockwise)
	case 270:
		gocv.Rotate(src, &dst, gocv.Rotate90CounterClockwise)
	}
	if dst.Empty() {
		return nil, fmt.Errorf("rotate %d: empty result", r)
	}
	return fromMat(dst), nil
}

// toMat converts a Go image to a BGR Mat.
func toMat(img image.Image) (gocv.Mat, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return gocv.Mat{}, fmt.Errorf("empty image")
	}

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(bl>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat, nil
}

// fromMat converts a BGR Mat to an RGBA image, one stripe per CPU.
func fromMat(mat gocv.Mat) *image.RGBA {
	h := mat.Rows()
	w := mat.Cols()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	stride := img.Stride

	workers := runtime.NumCPU()
	rowsPer := (h + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < h; start += rowsPer {
		end := min(start+rowsPer, h)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				row := y * stride
				for x := 0; x < w; x++ {
					off := row + x*4
					img.Pix[off+0] = mat.GetUCharAt(y, x*3+2)
					img.Pix[off+1] = mat.GetUCharAt(y, x*3+1)
					img.Pix[off+2] = mat.GetUCharAt(y, x*3+0)
					img.Pix[off+3] = 255
				}
			}
		}(start, end)
	}
	wg.Wait()
	return img
}
