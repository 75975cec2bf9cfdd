package cv

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/banshee-data/tearfilm.report/internal/monitoring"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l1video"
)

// VideoSource decodes a container file frame by frame into 8-bit grayscale.
type VideoSource struct {
	path    string
	capture *gocv.VideoCapture
	raw     gocv.Mat
	gray    gocv.Mat
	fps     float64
	next    int
	closed  bool
}

// OpenVideo opens path for a single decoding pass. The frame rate is the
// container rate when it is usable, otherwise opts.FPSHint, otherwise
// opts.DefaultFPS.
func OpenVideo(path string, opts l1video.OpenOptions) (*VideoSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &l1video.VideoOpenError{Path: path, Err: err}
	}
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, &l1video.VideoOpenError{Path: path, Err: err}
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, &l1video.VideoOpenError{Path: path}
	}

	declared := capture.Get(gocv.VideoCaptureFPS)
	fps, source := l1video.ResolveFPS(declared, opts.FPSHint, opts.DefaultFPS)
	if source != "container" {
		monitoring.Logf("cv: %s declares frame rate %v, using %s rate %.2f", path, declared, source, fps)
	}

	return &VideoSource{
		path:    path,
		capture: capture,
		raw:     gocv.NewMat(),
		gray:    gocv.NewMat(),
		fps:     fps,
	}, nil
}

// Open adapts OpenVideo to the engine's opener signature.
func Open(path string, opts l1video.OpenOptions) (l1video.Source, error) {
	v, err := OpenVideo(path, opts)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (v *VideoSource) FPS() float64 { return v.fps }

// Next decodes the next frame. A failed read is treated as end of stream.
func (v *VideoSource) Next() (l1video.Frame, bool, error) {
	if v.closed {
		return l1video.Frame{}, false, errors.New("video source closed")
	}
	if ok := v.capture.Read(&v.raw); !ok || v.raw.Empty() {
		return l1video.Frame{}, false, nil
	}

	img, err := matToGray(v.grayscale())
	if err != nil {
		return l1video.Frame{}, false, fmt.Errorf("%s frame %d: %w", v.path, v.next, err)
	}
	f := l1video.Frame{Index: v.next, Timestamp: l1video.Timestamp(v.next, v.fps), Gray: img}
	v.next++
	return f, true, nil
}

func (v *VideoSource) grayscale() gocv.Mat {
	switch v.raw.Channels() {
	case 1:
		return v.raw
	case 4:
		gocv.CvtColor(v.raw, &v.gray, gocv.ColorBGRAToGray)
	default:
		gocv.CvtColor(v.raw, &v.gray, gocv.ColorBGRToGray)
	}
	return v.gray
}

func (v *VideoSource) Close() error {
	if v.closed {
		return nil
	}
	v.closed = true
	v.raw.Close()
	v.gray.Close()
	return v.capture.Close()
}

// matToGray copies a single-channel 8-bit Mat into an image.Gray.
func matToGray(m gocv.Mat) (*image.Gray, error) {
	if m.Channels() != 1 || m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("expected 8-bit grayscale, got type %v with %d channels", m.Type(), m.Channels())
	}
	w, h := m.Cols(), m.Rows()
	data := m.ToBytes()
	if len(data) < w*h {
		return nil, fmt.Errorf("short frame buffer: %d bytes for %dx%d", len(data), w, h)
	}
	return &image.Gray{Pix: data[:w*h], Stride: w, Rect: image.Rect(0, 0, w, h)}, nil
}

// grayToMat copies img into a new single-channel Mat. The caller closes it.
func grayToMat(img *image.Gray) (gocv.Mat, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	data := make([]byte, w*h)
	for y := 0; y < h; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(data[y*w:(y+1)*w], img.Pix[off:off+w])
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC1, data)
}
