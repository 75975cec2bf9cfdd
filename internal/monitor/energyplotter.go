package monitor

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/tearfilm.report/internal/tbut"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l2polar"
)

// EnergyPlotter records per-sector energies during a run and renders them
// as PNG plots afterwards. It implements tbut.Observer.
type EnergyPlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string
	label     string
	dropRatio float64

	cal        l2polar.Calibration
	timestamps []float64
	energies   [][]float64 // frame -> sector
	report     *tbut.Report
}

// NewEnergyPlotter creates a plotter whose titles carry label (usually
// the video name). dropRatio places the threshold line.
func NewEnergyPlotter(label string, dropRatio float64) *EnergyPlotter {
	return &EnergyPlotter{label: label, dropRatio: dropRatio}
}

// Start initializes the plotter for a new run.
// outputDir should be a timestamped directory (see MakePlotOutputDir).
func (ep *EnergyPlotter) Start(outputDir string) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	ep.outputDir = outputDir
	ep.enabled = true
	ep.cal = l2polar.Calibration{}
	ep.timestamps = nil
	ep.energies = nil
	ep.report = nil
	return nil
}

// Stop disables sampling. Call GeneratePlots() to produce output files.
func (ep *EnergyPlotter) Stop() {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.enabled = false
}

// IsEnabled returns true if the plotter is currently recording.
func (ep *EnergyPlotter) IsEnabled() bool {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.enabled
}

func (ep *EnergyPlotter) OnCalibrated(cal l2polar.Calibration, _, _ int) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.enabled {
		ep.cal = cal
	}
}

func (ep *EnergyPlotter) OnFrame(_ int, timestamp float64, energies []float64) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if !ep.enabled {
		return
	}
	ep.timestamps = append(ep.timestamps, timestamp)
	ep.energies = append(ep.energies, append([]float64(nil), energies...))
}

func (ep *EnergyPlotter) OnComplete(report *tbut.Report) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	if ep.enabled {
		ep.report = report
	}
}

// GetOutputDir returns the current output directory for plots.
func (ep *EnergyPlotter) GetOutputDir() string {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return ep.outputDir
}

// GetSampleCount returns the number of frames recorded.
func (ep *EnergyPlotter) GetSampleCount() int {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	return len(ep.energies)
}

// GeneratePlots writes an overview of every sector plus one plot per
// sector with its baseline, threshold and break marker.
// Returns the number of plots generated and any error.
func (ep *EnergyPlotter) GeneratePlots() (int, error) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.outputDir == "" {
		return 0, fmt.Errorf("no output directory configured")
	}
	if len(ep.energies) == 0 {
		return 0, nil
	}

	sectors := len(ep.energies[0])
	colors := generateColors(sectors)

	overview := newEnergyPlot(fmt.Sprintf("%s - Sector Energy", ep.label))
	overview.Title.Text += fmt.Sprintf(" (%s)", ep.cal)
	for s := 0; s < sectors; s++ {
		line, err := plotter.NewLine(ep.series(s))
		if err != nil {
			return 0, err
		}
		line.Color = colors[s]
		line.Width = vg.Points(1)
		overview.Add(line)
		overview.Legend.Add(fmt.Sprintf("S%02d", s), line)
	}
	if err := overview.Save(14*vg.Inch, 6*vg.Inch, filepath.Join(ep.outputDir, "energy_all.png")); err != nil {
		return 0, fmt.Errorf("save overview plot: %w", err)
	}
	plotCount := 1

	for s := 0; s < sectors; s++ {
		if err := ep.generateSectorPlot(s, colors[s]); err != nil {
			return plotCount, fmt.Errorf("sector %d: %w", s, err)
		}
		plotCount++
	}
	return plotCount, nil
}

func (ep *EnergyPlotter) series(s int) plotter.XYs {
	pts := make(plotter.XYs, len(ep.energies))
	for i, row := range ep.energies {
		pts[i] = plotter.XY{X: ep.timestamps[i], Y: row[s]}
	}
	return pts
}

func (ep *EnergyPlotter) generateSectorPlot(s int, c color.Color) error {
	p := newEnergyPlot(fmt.Sprintf("%s - Sector %d", ep.label, s))
	pts := ep.series(s)

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("energy", line)

	if rep := ep.report; rep != nil && s < len(rep.Result.Baseline) {
		t0, t1 := pts[0].X, pts[len(pts)-1].X
		base := rep.Result.Baseline[s]
		if err := addLevel(p, "baseline", t0, t1, base, color.RGBA{G: 128, A: 255}, nil); err != nil {
			return err
		}
		threshold := base * ep.dropRatio
		dashes := []vg.Length{vg.Points(4), vg.Points(2)}
		if err := addLevel(p, "threshold", t0, t1, threshold, color.RGBA{R: 200, A: 255}, dashes); err != nil {
			return err
		}
		if s < len(rep.Result.Events) && rep.Result.Events[s].Found {
			ymin, ymax := plotter.Range(plotter.YValues{XYer: pts})
			at := rep.Result.Events[s].Seconds
			marker, err := plotter.NewLine(plotter.XYs{{X: at, Y: ymin}, {X: at, Y: ymax}})
			if err != nil {
				return err
			}
			marker.Color = color.Black
			marker.Width = vg.Points(1.5)
			p.Add(marker)
			p.Legend.Add(fmt.Sprintf("break %.2fs", at), marker)
		}
	}

	file := filepath.Join(ep.outputDir, fmt.Sprintf("sector_%02d_energy.png", s))
	if err := p.Save(10*vg.Inch, 4*vg.Inch, file); err != nil {
		return fmt.Errorf("save sector plot: %w", err)
	}
	return nil
}
