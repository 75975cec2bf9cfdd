package cv

import "github.com/banshee-data/tearfilm.report/internal/tbut"

// NewEngine returns an engine that decodes with OpenCV and calibrates with
// a RingCalibrator built from cfg.
func NewEngine(cfg tbut.Config) (*tbut.Engine, error) {
	return tbut.NewEngine(cfg, Open, NewRingCalibrator(cfg))
}

// Compute is the one-call entry point: default configuration, break-up
// time in seconds or tbut.NoBreak.
func Compute(path string) (float64, error) {
	e, err := NewEngine(tbut.DefaultConfig())
	if err != nil {
		return 0, err
	}
	return e.Compute(path)
}
