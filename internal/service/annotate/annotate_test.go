package annotate

import (
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"detectserver/internal/model"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "a.jpg", OutputName("/x/y/a.jpg"))
	assert.Equal(t, "a.png", OutputName("a.png"))
	assert.Equal(t, "anim.jpg", OutputName("dir/anim.GIF"))
}

func TestDraw_MarksBoxEdges(t *testing.T) {
	dets := []model.Detection{{Box: model.Box{10, 30, 50, 60}, Confidence: 0.9, ClassIndex: 0, ClassName: "person"}}

	out := Draw(solid(100, 100), dets)

	assert.Equal(t, palette[0], out.RGBAAt(30, 30), "top edge")
	assert.Equal(t, palette[0], out.RGBAAt(10, 45), "left edge")
	assert.Equal(t, palette[0], out.RGBAAt(50, 59), "bottom-right corner")
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, out.RGBAAt(30, 45), "inside untouched")
}

func TestDraw_OutOfBoundsBoxIsClipped(t *testing.T) {
	dets := []model.Detection{{Box: model.Box{-20, -20, 500, 500}, ClassIndex: 3, ClassName: "huge"}}
	assert.NotPanics(t, func() { Draw(solid(40, 40), dets) })
}

func TestDraw_DoesNotModifySource(t *testing.T) {
	src := solid(20, 20)
	Draw(src, []model.Detection{{Box: model.Box{0, 0, 19, 19}, ClassIndex: -1, ClassName: "unknown"}})
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, src.RGBAAt(0, 0))
}

func TestFile_Formats(t *testing.T) {
	dir := t.TempDir()
	dets := []model.Detection{{Box: model.Box{2, 2, 30, 30}, Confidence: 0.5, ClassIndex: 1, ClassName: "car"}}

	encoders := map[string]func(f *os.File, img image.Image) error{
		"in.png": func(f *os.File, img image.Image) error { return png.Encode(f, img) },
		"in.jpg": func(f *os.File, img image.Image) error { return jpeg.Encode(f, img, nil) },
		"in.bmp": func(f *os.File, img image.Image) error { return bmp.Encode(f, img) },
		"in.gif": func(f *os.File, img image.Image) error { return gif.Encode(f, img, nil) },
	}

	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			src := filepath.Join(dir, name)
			f, err := os.Create(src)
			require.NoError(t, err)
			require.NoError(t, encode(f, solid(40, 40)))
			require.NoError(t, f.Close())

			dst := filepath.Join(dir, "out_"+OutputName(src))
			require.NoError(t, File(src, dst, dets))

			out, err := os.Open(dst)
			require.NoError(t, err)
			defer out.Close()
			cfg, _, err := image.DecodeConfig(out)
			require.NoError(t, err)
			assert.Equal(t, 40, cfg.Width)
		})
	}
}

func TestFile_UndecodableSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(src, []byte("not an image"), 0644))

	err := File(src, filepath.Join(dir, "out.png"), nil)
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "out.png"))
	assert.True(t, os.IsNotExist(statErr))
}
