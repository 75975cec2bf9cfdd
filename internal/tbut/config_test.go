package tbut

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/tearfilm.report/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	want := Config{
		MinCalibrationRadius: 60,
		MaxCalibrationRadius: 220,
		MinBrightPixels:      50,
		BrightPercentile:     85,
		WorkingRadiusScale:   1.3,
		WorkingRadiusClip:    0.48,
		AngleBins:            360,
		RadiusBins:           200,
		SectorCount:          12,
		RadialBand:           [2]float64{0.25, 0.95},
		BandpassSigmas:       [2]float64{1, 6},
		BaselineSeconds:      2.0,
		DropRatio:            0.4,
		SustainFrames:        5,
		DefaultFPS:           25,
	}
	got := DefaultConfig()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DefaultConfig mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, got.Validate())
}

func TestConfigFromTuning_PartialOverride(t *testing.T) {
	tc := config.EmptyTuningConfig()
	sustain := 3
	drop := 0.5
	tc.SustainFrames = &sustain
	tc.DropRatio = &drop
	tc.RadialBand = []float64{0.1, 0.9}

	got := ConfigFromTuning(tc)
	assert.Equal(t, 3, got.SustainFrames)
	assert.Equal(t, 0.5, got.DropRatio)
	assert.Equal(t, [2]float64{0.1, 0.9}, got.RadialBand)
	assert.Equal(t, 12, got.SectorCount)
	assert.Equal(t, 25.0, got.DefaultFPS)

	assert.Equal(t, DefaultConfig(), ConfigFromTuning(nil))
}

func TestConfig_DerivedParams(t *testing.T) {
	cfg := DefaultConfig()

	ep := cfg.EnergyParams()
	assert.Equal(t, 12, ep.Sectors)
	assert.Equal(t, 0.25, ep.BandLow)
	assert.Equal(t, 0.95, ep.BandHigh)
	assert.Equal(t, 1.0, ep.SigmaFine)
	assert.Equal(t, 6.0, ep.SigmaCoarse)

	bp := cfg.BreakParams()
	assert.Equal(t, 2.0, bp.BaselineSeconds)
	assert.Equal(t, 0.4, bp.DropRatio)
	assert.Equal(t, 5, bp.SustainFrames)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero sustain", func(c *Config) { c.SustainFrames = 0 }, "sustain_frames"},
		{"inverted band", func(c *Config) { c.RadialBand = [2]float64{0.9, 0.2} }, "radial_band"},
		{"sigma order", func(c *Config) { c.BandpassSigmas = [2]float64{6, 1} }, "bandpass_sigmas"},
		{"negative baseline", func(c *Config) { c.BaselineSeconds = -1 }, "baseline_seconds"},
		{"zero default fps", func(c *Config) { c.DefaultFPS = 0 }, "default_fps"},
		{"radius range", func(c *Config) { c.MaxCalibrationRadius = 10 }, "max_calibration_radius"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
