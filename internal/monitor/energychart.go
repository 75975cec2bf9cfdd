package monitor

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/tearfilm.report/internal/tbut"
)

// WriteEnergyChart renders an interactive HTML line chart of every sector's
// energy over time.
func WriteEnergyChart(w io.Writer, rep *tbut.Report) error {
	if rep == nil || rep.Energies == nil || rep.Energies.Frames() == 0 {
		return fmt.Errorf("report has no energy series")
	}
	m := rep.Energies
	n := m.Frames()

	x := make([]string, n)
	for i := range x {
		x[i] = fmt.Sprintf("%.2f", float64(i)/rep.FPS)
	}

	subtitle := fmt.Sprintf("frames=%d fps=%.2f %s", n, rep.FPS, rep.Calibration)
	if rep.Result.Found() {
		subtitle += fmt.Sprintf(" break=%.2fs (%d sectors, earliest %.2fs)",
			rep.Result.Seconds, rep.Result.Detected, rep.Result.Earliest)
	} else {
		subtitle += " no break"
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Tear Film Sector Energy", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: rep.Path, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Energy", NameLocation: "middle", NameGap: 40}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(x)

	for s := 0; s < m.Sectors(); s++ {
		col := m.Column(s, n)
		data := make([]opts.LineData, n)
		for i, v := range col {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(fmt.Sprintf("S%02d", s), data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}

	return line.Render(w)
}

// WriteEnergyChartFile writes the chart to path.
func WriteEnergyChartFile(path string, rep *tbut.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := WriteEnergyChart(f, rep); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
