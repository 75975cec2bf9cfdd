// Command tbut prints the tear film break-up time of an eye video in
// seconds, or -1 when the film stays intact.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/banshee-data/tearfilm.report/internal/config"
	"github.com/banshee-data/tearfilm.report/internal/db"
	"github.com/banshee-data/tearfilm.report/internal/monitor"
	"github.com/banshee-data/tearfilm.report/internal/monitoring"
	"github.com/banshee-data/tearfilm.report/internal/tbut"
	"github.com/banshee-data/tearfilm.report/internal/tbut/cv"
	"github.com/banshee-data/tearfilm.report/internal/version"
)

var (
	configFile  = flag.String("config", "", "Tuning config file (.json, .yaml or .yml); built-in defaults when empty")
	fpsHint     = flag.Float64("fps", 0, "Frame rate to assume when the container does not declare one")
	dbPath      = flag.String("db", "", "Record the run in this sqlite database")
	plotsDir    = flag.String("plots", "", "Write per-sector PNG energy plots under this directory")
	chartFile   = flag.String("chart", "", "Write an interactive HTML energy chart to this file")
	listRuns    = flag.Int("list", 0, "Print the N most recent runs from -db and exit")
	quiet       = flag.Bool("quiet", false, "Suppress diagnostic logging")
	verbose     = flag.Bool("verbose", false, "Log per-frame sector energies")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// outputs are the optional side effects of one analysis.
type outputs struct {
	fpsHint   float64
	dbPath    string
	plotsDir  string
	chartFile string
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <video>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *quiet {
		monitoring.SetLogger(nil)
	}
	monitoring.SetVerbose(*verbose && !*quiet)

	if *listRuns > 0 {
		if *dbPath == "" {
			log.Fatal("-list requires -db")
		}
		if err := listRecent(os.Stdout, *dbPath, *listRuns); err != nil {
			log.Fatalf("failed to list runs: %v", err)
		}
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	engine, err := cv.NewEngine(cfg)
	if err != nil {
		log.Fatalf("failed to create engine: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := outputs{fpsHint: *fpsHint, dbPath: *dbPath, plotsDir: *plotsDir, chartFile: *chartFile}
	if err := analyze(ctx, os.Stdout, engine, flag.Arg(0), out); err != nil {
		log.Fatalf("tbut: %v", err)
	}
}

func loadConfig(path string) (tbut.Config, error) {
	if path == "" {
		return tbut.DefaultConfig(), nil
	}
	tc, err := config.LoadTuningConfig(path)
	if err != nil {
		return tbut.Config{}, err
	}
	return tbut.ConfigFromTuning(tc), nil
}

// analyze runs the engine on path, prints the scalar result to w and
// writes any requested plots, chart and run record.
func analyze(ctx context.Context, w io.Writer, engine *tbut.Engine, path string, out outputs) error {
	var plotter *monitor.EnergyPlotter
	opts := tbut.RunOptions{FPSHint: out.fpsHint}
	if out.plotsDir != "" {
		plotter = monitor.NewEnergyPlotter(filepath.Base(path), engine.Config().DropRatio)
		if err := plotter.Start(monitor.MakePlotOutputDir(out.plotsDir, path, time.Now())); err != nil {
			return err
		}
		opts.Observer = plotter
	}

	rep, err := engine.Analyze(ctx, path, opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, formatSeconds(rep.Seconds()))

	if plotter != nil {
		plotter.Stop()
		n, err := plotter.GeneratePlots()
		if err != nil {
			return fmt.Errorf("generate plots: %w", err)
		}
		monitoring.Logf("wrote %d plots to %s", n, plotter.GetOutputDir())
	}
	if out.chartFile != "" {
		if err := monitor.WriteEnergyChartFile(out.chartFile, rep); err != nil {
			return err
		}
		monitoring.Logf("wrote chart to %s", out.chartFile)
	}
	if out.dbPath != "" {
		store, err := db.NewDB(out.dbPath)
		if err != nil {
			return fmt.Errorf("open run log: %w", err)
		}
		defer store.Close()
		id, err := store.RecordRun(db.RunFromReport(rep, engine.Config()))
		if err != nil {
			return err
		}
		monitoring.Logf("recorded run %s in %s", id, out.dbPath)
	}
	return nil
}

func listRecent(w io.Writer, path string, limit int) error {
	store, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(limit)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %-6s  %2d/%-2d  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.RunID,
			formatSeconds(r.ResultSeconds), r.DetectedSectors, len(r.SectorBreaks), r.VideoPath)
	}
	return nil
}

func formatSeconds(v float64) string {
	if v == tbut.NoBreak {
		return "-1"
	}
	return fmt.Sprintf("%.2f", v)
}
