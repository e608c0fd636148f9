// Package annotate renders detection boxes onto images in pure Go.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"detectserver/internal/model"
)

const thickness = 3

var palette = []color.RGBA{
	{R: 0, G: 255, B: 0, A: 255},
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
	{R: 255, G: 55, B: 199, A: 255},
}

// OutputName is the annotated file name for src. GIF sources are written as JPEG.
func OutputName(src string) string {
	base := filepath.Base(src)
	if strings.EqualFold(filepath.Ext(base), ".gif") {
		return strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
	}
	return base
}

// File decodes src, draws dets on it and writes the result to dst. The
// encoding follows the extension of dst.
func File(src, dst string, dets []model.Detection) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create annotated image: %w", err)
	}

	canvas := Draw(img, dets)
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".png":
		err = png.Encode(out, canvas)
	case ".bmp":
		err = bmp.Encode(out, canvas)
	default:
		err = jpeg.Encode(out, canvas, &jpeg.Options{Quality: 90})
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return nil
}

// Draw returns a copy of img with one labelled rectangle per detection.
func Draw(img image.Image, dets []model.Detection) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	for _, det := range dets {
		col := palette[0]
		if det.ClassIndex >= 0 {
			col = palette[det.ClassIndex%len(palette)]
		}
		x1, y1 := int(det.Box[0])+bounds.Min.X, int(det.Box[1])+bounds.Min.Y
		x2, y2 := int(det.Box[2])+bounds.Min.X, int(det.Box[3])+bounds.Min.Y
		drawRect(canvas, x1, y1, x2, y2, col)
		drawLabel(canvas, x1, y1, fmt.Sprintf("%s %.2f", det.ClassName, det.Confidence), col)
	}
	return canvas
}

func drawRect(img *image.RGBA, x1, y1, x2, y2 int, col color.Color) {
	bounds := img.Bounds()

	setPixel := func(x, y int) {
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			img.Set(x, y, col)
		}
	}

	for t := 0; t < thickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(x, y1+t)
			setPixel(x, y2-t)
		}
		for y := y1; y <= y2; y++ {
			setPixel(x1+t, y)
			setPixel(x2-t, y)
		}
	}
}

func drawLabel(img *image.RGBA, x, y int, text string, bg color.RGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 4
	height := face.Height + 2

	top := y - height
	if top < img.Bounds().Min.Y {
		top = y
	}
	box := image.Rect(x, top, x+width, top+height).Intersect(img.Bounds())
	draw.Draw(img, box, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(x+2, top+face.Ascent+1),
	}
	d.DrawString(text)
}
