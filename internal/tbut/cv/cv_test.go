package cv

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/banshee-data/tearfilm.report/internal/monitoring"
	"github.com/banshee-data/tearfilm.report/internal/tbut"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l1video"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l2polar"
)

func init() {
	monitoring.SetLogger(nil)
}

func filled(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func paint(img *image.Gray, v uint8, inside func(x, y int) bool) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if inside(x, y) {
				img.SetGray(x, y, color.Gray{Y: v})
			}
		}
	}
}

func TestPercentile(t *testing.T) {
	var hist [256]int
	for v := 0; v < 10; v++ {
		hist[v] = 1
	}
	assert.Equal(t, 0.0, percentile(&hist, 10, 0))
	assert.InDelta(t, 4.5, percentile(&hist, 10, 50), 1e-12)
	assert.InDelta(t, 7.65, percentile(&hist, 10, 85), 1e-12)
	assert.Equal(t, 9.0, percentile(&hist, 10, 100))
}

func TestBrightCentroid(t *testing.T) {
	img := filled(20, 20, 0)
	paint(img, 250, func(x, y int) bool { return x >= 3 && x <= 8 && y >= 10 && y <= 15 })

	cx, cy, ok := brightCentroid(img.Pix, 20, 20, 85, 30)
	require.True(t, ok)
	assert.InDelta(t, 5.5, cx, 1e-12)
	assert.InDelta(t, 12.5, cy, 1e-12)

	_, _, ok = brightCentroid(img.Pix, 20, 20, 85, 50)
	assert.False(t, ok, "36 bright pixels is below the minimum")

	// Nothing is strictly above the percentile of a uniform frame.
	_, _, ok = brightCentroid(filled(20, 20, 90).Pix, 20, 20, 85, 1)
	assert.False(t, ok)
}

func TestCalibrate_UniformFrameFallsBackToImageCenter(t *testing.T) {
	c := NewRingCalibrator(tbut.DefaultConfig())

	cal := c.Calibrate(filled(320, 240, 100))

	assert.Equal(t, l2polar.SourceImageCenter, cal.Source)
	assert.InDelta(t, 160, cal.CenterX, 1e-9)
	assert.InDelta(t, 120, cal.CenterY, 1e-9)
	assert.InDelta(t, 80, cal.Radius, 1e-9)
	assert.InDelta(t, 104, cal.MaxRadius, 1e-9)
}

func TestCalibrate_SmallBlobUsesCentroid(t *testing.T) {
	c := NewRingCalibrator(tbut.DefaultConfig())
	img := filled(320, 240, 0)
	paint(img, 255, func(x, y int) bool { return math.Hypot(float64(x-100), float64(y-80)) <= 15 })

	cal := c.Calibrate(img)

	assert.Equal(t, l2polar.SourceCentroid, cal.Source)
	assert.InDelta(t, 100, cal.CenterX, 1)
	assert.InDelta(t, 80, cal.CenterY, 1)
	assert.InDelta(t, 80, cal.Radius, 1e-9)
}

func TestCalibrate_RingFoundByHough(t *testing.T) {
	c := NewRingCalibrator(tbut.DefaultConfig())
	img := filled(400, 400, 0)
	paint(img, 255, func(x, y int) bool {
		d := math.Hypot(float64(x-210), float64(y-190))
		return d >= 98 && d <= 102
	})

	cal := c.Calibrate(img)

	require.Equal(t, l2polar.SourceCircle, cal.Source)
	assert.InDelta(t, 210, cal.CenterX, 3)
	assert.InDelta(t, 190, cal.CenterY, 3)
	assert.InDelta(t, 100, cal.Radius, 5)
	assert.InDelta(t, math.Min(cal.Radius*1.3, 0.48*400), cal.MaxRadius, 1e-9)
}

func TestOpenVideo_Missing(t *testing.T) {
	_, err := OpenVideo(filepath.Join(t.TempDir(), "missing.avi"), l1video.OpenOptions{DefaultFPS: 25})
	require.Error(t, err)
	assert.True(t, errors.Is(err, l1video.ErrVideoOpen))

	var openErr *l1video.VideoOpenError
	require.True(t, errors.As(err, &openErr))
	assert.Contains(t, openErr.Path, "missing.avi")

	_, err = Compute(filepath.Join(t.TempDir(), "missing.avi"))
	assert.True(t, errors.Is(err, l1video.ErrVideoOpen))
}

func TestOpenVideo_NotAVideo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not a video"), 0o644))

	v, err := OpenVideo(path, l1video.OpenOptions{DefaultFPS: 25})
	if err == nil {
		// Some backends open anything and fail on the first read instead.
		defer v.Close()
		_, ok, err := v.Next()
		assert.NoError(t, err)
		assert.False(t, ok)
		return
	}
	assert.True(t, errors.Is(err, l1video.ErrVideoOpen))
}

// writeRingVideo encodes frames to an MJPG AVI, skipping the test when the
// local OpenCV build has no encoder for it.
func writeRingVideo(t *testing.T, frames []*image.Gray, fps float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rings.avi")
	w, h := frames[0].Rect.Dx(), frames[0].Rect.Dy()

	writer, err := gocv.VideoWriterFile(path, "MJPG", fps, w, h, true)
	if err != nil || !writer.IsOpened() {
		t.Skipf("MJPG encoder unavailable: %v", err)
	}
	defer writer.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	for _, f := range frames {
		gray, err := grayToMat(f)
		require.NoError(t, err)
		gocv.CvtColor(gray, &bgr, gocv.ColorGrayToBGR)
		require.NoError(t, writer.Write(bgr))
		gray.Close()
	}
	return path
}

func ringFrame(size int) *image.Gray {
	img := filled(size, size, 0)
	c := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x)-c, float64(y)-c)
			img.Pix[y*img.Stride+x] = uint8(math.Round(128 + 100*math.Cos(2*math.Pi*d/8)))
		}
	}
	return img
}

func TestVideoSource_DecodesFile(t *testing.T) {
	ring, flat := ringFrame(240), filled(240, 240, 128)
	frames := make([]*image.Gray, 30)
	for i := range frames {
		frames[i] = ring
		if i >= 20 {
			frames[i] = flat
		}
	}
	path := writeRingVideo(t, frames, 25)

	v, err := OpenVideo(path, l1video.OpenOptions{FPSHint: 50, DefaultFPS: 10})
	require.NoError(t, err)
	assert.Equal(t, 25.0, v.FPS(), "container rate wins over the hint")

	n := 0
	for {
		f, ok, err := v.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		assert.Equal(t, n, f.Index)
		assert.InDelta(t, float64(n)/25, f.Timestamp, 1e-12)
		assert.Equal(t, 240, f.Width())
		assert.Equal(t, 240, f.Height())
		n++
	}
	assert.Equal(t, 30, n)
	require.NoError(t, v.Close())
	require.NoError(t, v.Close())

	_, _, err = v.Next()
	assert.Error(t, err)
}

func TestEngine_DeterministicOnFile(t *testing.T) {
	ring, flat := ringFrame(240), filled(240, 240, 128)
	frames := make([]*image.Gray, 40)
	for i := range frames {
		frames[i] = ring
		if i >= 25 {
			frames[i] = flat
		}
	}
	path := writeRingVideo(t, frames, 25)

	e, err := NewEngine(tbut.DefaultConfig())
	require.NoError(t, err)

	first, err := e.Analyze(context.Background(), path, tbut.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 40, first.Frames)
	assert.Equal(t, 25.0, first.FPS)

	second, err := e.Compute(path)
	require.NoError(t, err)
	assert.Equal(t, first.Seconds(), second)
}
