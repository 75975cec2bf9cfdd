package tbut

import (
	"fmt"

	"github.com/banshee-data/tearfilm.report/internal/config"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l3energy"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l4breakup"
)

// Config is the immutable engine configuration. It is a plain value: copy
// it freely and share it between goroutines.
type Config struct {
	// Ring calibration
	MinCalibrationRadius int
	MaxCalibrationRadius int
	MinBrightPixels      int
	BrightPercentile     float64
	WorkingRadiusScale   float64
	WorkingRadiusClip    float64

	// Polar unwrap and sector energy
	AngleBins      int
	RadiusBins     int
	SectorCount    int
	RadialBand     [2]float64
	BandpassSigmas [2]float64

	// Break detection
	BaselineSeconds float64
	DropRatio       float64 // multiplicative: energy must fall to DropRatio*baseline
	SustainFrames   int
	DefaultFPS      float64
}

// DefaultConfig returns the compiled-in defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// ConfigFromTuning builds a Config from a loaded TuningConfig, filling
// unspecified fields with defaults.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	lo, hi := cfg.GetRadialBand()
	fine, coarse := cfg.GetBandpassSigmas()
	return Config{
		MinCalibrationRadius: cfg.GetMinCalibrationRadius(),
		MaxCalibrationRadius: cfg.GetMaxCalibrationRadius(),
		MinBrightPixels:      cfg.GetMinBrightPixels(),
		BrightPercentile:     cfg.GetBrightPercentile(),
		WorkingRadiusScale:   cfg.GetWorkingRadiusScale(),
		WorkingRadiusClip:    cfg.GetWorkingRadiusClip(),
		AngleBins:            cfg.GetAngleBins(),
		RadiusBins:           cfg.GetRadiusBins(),
		SectorCount:          cfg.GetSectorCount(),
		RadialBand:           [2]float64{lo, hi},
		BandpassSigmas:       [2]float64{fine, coarse},
		BaselineSeconds:      cfg.GetBaselineSeconds(),
		DropRatio:            cfg.GetDropRatio(),
		SustainFrames:        cfg.GetSustainFrames(),
		DefaultFPS:           cfg.GetDefaultFPS(),
	}
}

// EnergyParams returns the L3 extraction parameters.
func (c Config) EnergyParams() l3energy.Params {
	return l3energy.Params{
		Sectors:     c.SectorCount,
		BandLow:     c.RadialBand[0],
		BandHigh:    c.RadialBand[1],
		SigmaFine:   c.BandpassSigmas[0],
		SigmaCoarse: c.BandpassSigmas[1],
	}
}

// BreakParams returns the L4 detection parameters.
func (c Config) BreakParams() l4breakup.Params {
	return l4breakup.Params{
		BaselineSeconds: c.BaselineSeconds,
		DropRatio:       c.DropRatio,
		SustainFrames:   c.SustainFrames,
	}
}

// Validate checks the configuration. It shares the range rules of the
// tuning file so a Config built by hand is held to the same limits.
func (c Config) Validate() error {
	tc := &config.TuningConfig{
		MinCalibrationRadius: &c.MinCalibrationRadius,
		MaxCalibrationRadius: &c.MaxCalibrationRadius,
		MinBrightPixels:      &c.MinBrightPixels,
		BrightPercentile:     &c.BrightPercentile,
		WorkingRadiusScale:   &c.WorkingRadiusScale,
		WorkingRadiusClip:    &c.WorkingRadiusClip,
		AngleBins:            &c.AngleBins,
		RadiusBins:           &c.RadiusBins,
		SectorCount:          &c.SectorCount,
		RadialBand:           c.RadialBand[:],
		BandpassSigmas:       c.BandpassSigmas[:],
		BaselineSeconds:      &c.BaselineSeconds,
		DropRatio:            &c.DropRatio,
		SustainFrames:        &c.SustainFrames,
		DefaultFPS:           &c.DefaultFPS,
	}
	if err := tc.Validate(); err != nil {
		return fmt.Errorf("invalid engine config: %w", err)
	}
	return nil
}
