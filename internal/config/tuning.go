package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Default tuning values. These mirror config/tuning.defaults.json.
const (
	DefaultSectorCount          = 12
	DefaultMinCalibrationRadius = 60
	DefaultMaxCalibrationRadius = 220
	DefaultBaselineSeconds      = 2.0
	DefaultDropRatio            = 0.4
	DefaultSustainFrames        = 5
	DefaultRadialBandLow        = 0.25
	DefaultRadialBandHigh       = 0.95
	DefaultSigmaHigh            = 1.0
	DefaultSigmaLow             = 6.0
	DefaultFPS                  = 25.0
	DefaultAngleBins            = 360
	DefaultRadiusBins           = 200
	DefaultMinBrightPixels      = 50
	DefaultBrightPercentile     = 85.0
	DefaultWorkingRadiusScale   = 1.3
	DefaultWorkingRadiusClip    = 0.48
)

// TuningConfig represents the root configuration for break-up detection.
// Every field is optional; Get* methods fall back to the defaults above, so
// partial files are safe.
type TuningConfig struct {
	// Ring calibration
	MinCalibrationRadius *int     `json:"min_calibration_radius,omitempty" yaml:"min_calibration_radius,omitempty"`
	MaxCalibrationRadius *int     `json:"max_calibration_radius,omitempty" yaml:"max_calibration_radius,omitempty"`
	MinBrightPixels      *int     `json:"min_bright_pixels,omitempty" yaml:"min_bright_pixels,omitempty"`
	BrightPercentile     *float64 `json:"bright_percentile,omitempty" yaml:"bright_percentile,omitempty"`
	WorkingRadiusScale   *float64 `json:"working_radius_scale,omitempty" yaml:"working_radius_scale,omitempty"`
	WorkingRadiusClip    *float64 `json:"working_radius_clip,omitempty" yaml:"working_radius_clip,omitempty"`

	// Polar unwrap and sector energy
	AngleBins      *int      `json:"angle_bins,omitempty" yaml:"angle_bins,omitempty"`
	RadiusBins     *int      `json:"radius_bins,omitempty" yaml:"radius_bins,omitempty"`
	SectorCount    *int      `json:"sector_count,omitempty" yaml:"sector_count,omitempty"`
	RadialBand     []float64 `json:"radial_band,omitempty" yaml:"radial_band,omitempty"`         // [low, high] fraction of max radius
	BandpassSigmas []float64 `json:"bandpass_sigmas,omitempty" yaml:"bandpass_sigmas,omitempty"` // [fine, coarse]

	// Break detection
	BaselineSeconds *float64 `json:"baseline_seconds,omitempty" yaml:"baseline_seconds,omitempty"`
	DropRatio       *float64 `json:"drop_ratio,omitempty" yaml:"drop_ratio,omitempty"`
	SustainFrames   *int     `json:"sustain_frames,omitempty" yaml:"sustain_frames,omitempty"`
	DefaultFPS      *float64 `json:"default_fps,omitempty" yaml:"default_fps,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the compiled-in defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		MinCalibrationRadius: ptrInt(DefaultMinCalibrationRadius),
		MaxCalibrationRadius: ptrInt(DefaultMaxCalibrationRadius),
		MinBrightPixels:      ptrInt(DefaultMinBrightPixels),
		BrightPercentile:     ptrFloat64(DefaultBrightPercentile),
		WorkingRadiusScale:   ptrFloat64(DefaultWorkingRadiusScale),
		WorkingRadiusClip:    ptrFloat64(DefaultWorkingRadiusClip),
		AngleBins:            ptrInt(DefaultAngleBins),
		RadiusBins:           ptrInt(DefaultRadiusBins),
		SectorCount:          ptrInt(DefaultSectorCount),
		RadialBand:           []float64{DefaultRadialBandLow, DefaultRadialBandHigh},
		BandpassSigmas:       []float64{DefaultSigmaHigh, DefaultSigmaLow},
		BaselineSeconds:      ptrFloat64(DefaultBaselineSeconds),
		DropRatio:            ptrFloat64(DefaultDropRatio),
		SustainFrames:        ptrInt(DefaultSustainFrames),
		DefaultFPS:           ptrFloat64(DefaultFPS),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file.
// The extension selects the decoder; the file must be under 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/tbut/l3energy/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SectorCount != nil && *c.SectorCount < 1 {
		return fmt.Errorf("sector_count must be positive, got %d", *c.SectorCount)
	}
	if c.MinCalibrationRadius != nil && *c.MinCalibrationRadius < 0 {
		return fmt.Errorf("min_calibration_radius must be non-negative, got %d", *c.MinCalibrationRadius)
	}
	if c.GetMaxCalibrationRadius() < c.GetMinCalibrationRadius() {
		return fmt.Errorf("max_calibration_radius (%d) must not be below min_calibration_radius (%d)",
			c.GetMaxCalibrationRadius(), c.GetMinCalibrationRadius())
	}
	if c.MinBrightPixels != nil && *c.MinBrightPixels < 0 {
		return fmt.Errorf("min_bright_pixels must be non-negative, got %d", *c.MinBrightPixels)
	}
	if c.BrightPercentile != nil && (*c.BrightPercentile < 0 || *c.BrightPercentile > 100) {
		return fmt.Errorf("bright_percentile must be between 0 and 100, got %f", *c.BrightPercentile)
	}
	if c.WorkingRadiusScale != nil && *c.WorkingRadiusScale <= 0 {
		return fmt.Errorf("working_radius_scale must be positive, got %f", *c.WorkingRadiusScale)
	}
	if c.WorkingRadiusClip != nil && (*c.WorkingRadiusClip <= 0 || *c.WorkingRadiusClip > 1) {
		return fmt.Errorf("working_radius_clip must be in (0, 1], got %f", *c.WorkingRadiusClip)
	}
	if c.AngleBins != nil && *c.AngleBins < 1 {
		return fmt.Errorf("angle_bins must be positive, got %d", *c.AngleBins)
	}
	if c.RadiusBins != nil && *c.RadiusBins < 2 {
		return fmt.Errorf("radius_bins must be at least 2, got %d", *c.RadiusBins)
	}
	if c.GetSectorCount() > c.GetAngleBins() {
		return fmt.Errorf("sector_count (%d) exceeds angle_bins (%d)", c.GetSectorCount(), c.GetAngleBins())
	}
	if c.RadialBand != nil {
		if len(c.RadialBand) != 2 {
			return fmt.Errorf("radial_band must have 2 values, got %d", len(c.RadialBand))
		}
		lo, hi := c.RadialBand[0], c.RadialBand[1]
		if lo < 0 || hi > 1 || lo >= hi {
			return fmt.Errorf("radial_band must satisfy 0 <= low < high <= 1, got [%f, %f]", lo, hi)
		}
	}
	if c.BandpassSigmas != nil {
		if len(c.BandpassSigmas) != 2 {
			return fmt.Errorf("bandpass_sigmas must have 2 values, got %d", len(c.BandpassSigmas))
		}
		if c.BandpassSigmas[0] <= 0 || c.BandpassSigmas[0] >= c.BandpassSigmas[1] {
			return fmt.Errorf("bandpass_sigmas must satisfy 0 < fine < coarse, got %v", c.BandpassSigmas)
		}
	}
	if c.BaselineSeconds != nil && *c.BaselineSeconds < 0 {
		return fmt.Errorf("baseline_seconds must be non-negative, got %f", *c.BaselineSeconds)
	}
	if c.DropRatio != nil && (*c.DropRatio <= 0 || *c.DropRatio >= 1) {
		return fmt.Errorf("drop_ratio must be in (0, 1), got %f", *c.DropRatio)
	}
	if c.SustainFrames != nil && *c.SustainFrames < 1 {
		return fmt.Errorf("sustain_frames must be at least 1, got %d", *c.SustainFrames)
	}
	if c.DefaultFPS != nil && (*c.DefaultFPS <= 0 || math.IsInf(*c.DefaultFPS, 0) || math.IsNaN(*c.DefaultFPS)) {
		return fmt.Errorf("default_fps must be a positive finite rate, got %f", *c.DefaultFPS)
	}
	return nil
}

// GetSectorCount returns the sector_count value or the default.
func (c *TuningConfig) GetSectorCount() int {
	if c.SectorCount == nil {
		return DefaultSectorCount
	}
	return *c.SectorCount
}

// GetMinCalibrationRadius returns the min_calibration_radius value or the default.
func (c *TuningConfig) GetMinCalibrationRadius() int {
	if c.MinCalibrationRadius == nil {
		return DefaultMinCalibrationRadius
	}
	return *c.MinCalibrationRadius
}

// GetMaxCalibrationRadius returns the max_calibration_radius value or the default.
func (c *TuningConfig) GetMaxCalibrationRadius() int {
	if c.MaxCalibrationRadius == nil {
		return DefaultMaxCalibrationRadius
	}
	return *c.MaxCalibrationRadius
}

// GetMinBrightPixels returns the min_bright_pixels value or the default.
func (c *TuningConfig) GetMinBrightPixels() int {
	if c.MinBrightPixels == nil {
		return DefaultMinBrightPixels
	}
	return *c.MinBrightPixels
}

// GetBrightPercentile returns the bright_percentile value or the default.
func (c *TuningConfig) GetBrightPercentile() float64 {
	if c.BrightPercentile == nil {
		return DefaultBrightPercentile
	}
	return *c.BrightPercentile
}

// GetWorkingRadiusScale returns the working_radius_scale value or the default.
func (c *TuningConfig) GetWorkingRadiusScale() float64 {
	if c.WorkingRadiusScale == nil {
		return DefaultWorkingRadiusScale
	}
	return *c.WorkingRadiusScale
}

// GetWorkingRadiusClip returns the working_radius_clip value or the default.
func (c *TuningConfig) GetWorkingRadiusClip() float64 {
	if c.WorkingRadiusClip == nil {
		return DefaultWorkingRadiusClip
	}
	return *c.WorkingRadiusClip
}

// GetAngleBins returns the angle_bins value or the default.
func (c *TuningConfig) GetAngleBins() int {
	if c.AngleBins == nil {
		return DefaultAngleBins
	}
	return *c.AngleBins
}

// GetRadiusBins returns the radius_bins value or the default.
func (c *TuningConfig) GetRadiusBins() int {
	if c.RadiusBins == nil {
		return DefaultRadiusBins
	}
	return *c.RadiusBins
}

// GetRadialBand returns the [low, high] radial band or the default.
func (c *TuningConfig) GetRadialBand() (low, high float64) {
	if len(c.RadialBand) != 2 {
		return DefaultRadialBandLow, DefaultRadialBandHigh
	}
	return c.RadialBand[0], c.RadialBand[1]
}

// GetBandpassSigmas returns the fine and coarse Gaussian widths or the defaults.
func (c *TuningConfig) GetBandpassSigmas() (fine, coarse float64) {
	if len(c.BandpassSigmas) != 2 {
		return DefaultSigmaHigh, DefaultSigmaLow
	}
	return c.BandpassSigmas[0], c.BandpassSigmas[1]
}

// GetBaselineSeconds returns the baseline_seconds value or the default.
func (c *TuningConfig) GetBaselineSeconds() float64 {
	if c.BaselineSeconds == nil {
		return DefaultBaselineSeconds
	}
	return *c.BaselineSeconds
}

// GetDropRatio returns the drop_ratio value or the default.
func (c *TuningConfig) GetDropRatio() float64 {
	if c.DropRatio == nil {
		return DefaultDropRatio
	}
	return *c.DropRatio
}

// GetSustainFrames returns the sustain_frames value or the default.
func (c *TuningConfig) GetSustainFrames() int {
	if c.SustainFrames == nil {
		return DefaultSustainFrames
	}
	return *c.SustainFrames
}

// GetDefaultFPS returns the default_fps value or the default.
func (c *TuningConfig) GetDefaultFPS() float64 {
	if c.DefaultFPS == nil {
		return DefaultFPS
	}
	return *c.DefaultFPS
}
