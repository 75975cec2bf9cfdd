package tbut

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/banshee-data/tearfilm.report/internal/monitoring"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l1video"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l2polar"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l3energy"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l4breakup"
	"github.com/banshee-data/tearfilm.report/internal/timeutil"
)

// NoBreak is returned by Compute when no sector breaks.
const NoBreak = l4breakup.NoBreak

// Opener opens a video for a single pass.
type Opener func(path string, opts l1video.OpenOptions) (l1video.Source, error)

// Calibrator locates the ring in the first frame of a video.
type Calibrator interface {
	Calibrate(frame *image.Gray) l2polar.Calibration
}

// CalibratorFunc adapts a function to a Calibrator.
type CalibratorFunc func(frame *image.Gray) l2polar.Calibration

func (f CalibratorFunc) Calibrate(frame *image.Gray) l2polar.Calibration { return f(frame) }

// Observer receives progress for a single run. Callbacks run on the
// analysing goroutine and must not retain the energies slice.
type Observer interface {
	OnCalibrated(cal l2polar.Calibration, width, height int)
	OnFrame(index int, timestamp float64, energies []float64)
	OnComplete(report *Report)
}

// RunOptions are per-call settings.
type RunOptions struct {
	// FPSHint is used when the container does not declare a usable rate.
	FPSHint  float64
	Observer Observer
}

// Report is everything one run produced.
type Report struct {
	Path        string              `json:"path"`
	FPS         float64             `json:"fps"`
	Frames      int                 `json:"frames"`
	Width       int                 `json:"width"`
	Height      int                 `json:"height"`
	Calibration l2polar.Calibration `json:"calibration"`
	Result      l4breakup.Result    `json:"result"`
	Elapsed     time.Duration       `json:"elapsed"`
	Energies    *l3energy.Matrix    `json:"-"`
}

// Seconds is the reported break-up time, or NoBreak.
func (r *Report) Seconds() float64 { return r.Result.Seconds }

// Engine runs the break-up pipeline. It holds only immutable state, so one
// Engine may serve concurrent calls; each call owns its own buffers.
type Engine struct {
	cfg        Config
	open       Opener
	calibrator Calibrator
	projector  *l2polar.Projector
	clock      timeutil.Clock
}

// EngineOption customises an Engine at construction.
type EngineOption func(*Engine)

// WithClock sets the clock used to time runs.
func WithClock(c timeutil.Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// NewEngine validates cfg and binds the decoding and calibration backends.
func NewEngine(cfg Config, open Opener, calibrator Calibrator, options ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if open == nil {
		return nil, errors.New("nil video opener")
	}
	if calibrator == nil {
		return nil, errors.New("nil calibrator")
	}
	// Fail on a bad band/bin combination here rather than on the first video.
	if _, err := l3energy.NewExtractor(cfg.EnergyParams(), cfg.AngleBins, cfg.RadiusBins); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	e := &Engine{
		cfg:        cfg,
		open:       open,
		calibrator: calibrator,
		projector:  l2polar.NewProjector(cfg.AngleBins, cfg.RadiusBins),
		clock:      timeutil.RealClock{},
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Compute returns the break-up time in seconds for the video at path, or
// NoBreak when no sector shows a sustained drop.
func (e *Engine) Compute(path string) (float64, error) {
	rep, err := e.Analyze(context.Background(), path, RunOptions{})
	if err != nil {
		return 0, err
	}
	return rep.Seconds(), nil
}

// Analyze opens path and runs the full pipeline over it.
func (e *Engine) Analyze(ctx context.Context, path string, opts RunOptions) (*Report, error) {
	src, err := e.open(path, l1video.OpenOptions{FPSHint: opts.FPSHint, DefaultFPS: e.cfg.DefaultFPS})
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return e.run(ctx, path, src, opts)
}

// AnalyzeSource runs the pipeline over an already opened source. The caller
// keeps ownership of src.
func (e *Engine) AnalyzeSource(ctx context.Context, src l1video.Source, opts RunOptions) (*Report, error) {
	return e.run(ctx, "", src, opts)
}

func (e *Engine) run(ctx context.Context, path string, src l1video.Source, opts RunOptions) (*Report, error) {
	start := e.clock.Now()
	fps := src.FPS()
	if !l1video.ValidRate(fps) {
		return nil, fmt.Errorf("source %q reports invalid frame rate %v", path, fps)
	}

	first, ok, err := next(ctx, src)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &l1video.EmptyVideoError{Path: path}
	}
	if first.Gray == nil {
		return nil, fmt.Errorf("frame %d has no raster", first.Index)
	}

	cal := e.calibrator.Calibrate(first.Gray)
	if cal.MaxRadius <= 0 {
		return nil, fmt.Errorf("calibration produced non-positive working radius %v", cal.MaxRadius)
	}
	monitoring.Logf("tbut: %s %dx%d @ %.2f fps, %s", label(path), first.Width(), first.Height(), fps, cal)
	if opts.Observer != nil {
		opts.Observer.OnCalibrated(cal, first.Width(), first.Height())
	}

	extractor, err := l3energy.NewExtractor(e.cfg.EnergyParams(), e.cfg.AngleBins, e.cfg.RadiusBins)
	if err != nil {
		return nil, err
	}
	energies := l3energy.NewMatrix(extractor.Sectors(), 0)
	var polar *l2polar.PolarImage
	row := make([]float64, 0, extractor.Sectors())

	for frame := first; ok; frame, ok, err = next(ctx, src) {
		if frame.Gray == nil {
			return nil, fmt.Errorf("frame %d has no raster", frame.Index)
		}
		polar = e.projector.Project(frame.Gray, cal, polar)
		row = extractor.Extract(polar, row[:0])
		if err := energies.Append(row); err != nil {
			return nil, fmt.Errorf("frame %d: %w", frame.Index, err)
		}
		monitoring.Debugf("tbut: frame %d t=%.3fs energies=%.3f", frame.Index, frame.Timestamp, row)
		if opts.Observer != nil {
			opts.Observer.OnFrame(frame.Index, frame.Timestamp, row)
		}
	}
	if err != nil {
		return nil, err
	}

	res, err := l4breakup.Analyze(energies, fps, e.cfg.BreakParams())
	if err != nil {
		return nil, err
	}
	rep := &Report{
		Path:        path,
		FPS:         fps,
		Frames:      energies.Frames(),
		Width:       first.Width(),
		Height:      first.Height(),
		Calibration: cal,
		Result:      res,
		Elapsed:     e.clock.Since(start),
		Energies:    energies,
	}
	if res.Found() {
		monitoring.Logf("tbut: %s break-up %.2fs (%d/%d sectors, earliest %.2fs) over %d frames in %v",
			label(path), res.Seconds, res.Detected, len(res.Events), res.Earliest, rep.Frames, rep.Elapsed)
	} else {
		monitoring.Logf("tbut: %s no break-up over %d frames in %v", label(path), rep.Frames, rep.Elapsed)
	}
	if opts.Observer != nil {
		opts.Observer.OnComplete(rep)
	}
	return rep, nil
}

// next reads one frame, checking for cancellation first.
func next(ctx context.Context, src l1video.Source) (l1video.Frame, bool, error) {
	if err := ctx.Err(); err != nil {
		return l1video.Frame{}, false, err
	}
	f, ok, err := src.Next()
	if err != nil {
		return l1video.Frame{}, false, fmt.Errorf("decode frame: %w", err)
	}
	return f, ok, nil
}

func label(path string) string {
	if path == "" {
		return "<source>"
	}
	return path
}
