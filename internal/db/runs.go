package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tearfilm.report/internal/tbut"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l4breakup"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// createdLayout is fixed width so created_at sorts as text.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one logged analysis.
type Run struct {
	RunID             string                 `json:"run_id"`
	VideoPath         string                 `json:"video_path"`
	FPS               float64                `json:"fps"`
	FrameCount        int                    `json:"frame_count"`
	Width             int                    `json:"width"`
	Height            int                    `json:"height"`
	CenterX           float64                `json:"center_x"`
	CenterY           float64                `json:"center_y"`
	RingRadius        float64                `json:"ring_radius"`
	WorkingRadius     float64                `json:"working_radius"`
	CalibrationSource string                 `json:"calibration_source"`
	ResultSeconds     float64                `json:"result_seconds"`
	DetectedSectors   int                    `json:"detected_sectors"`
	EarliestSeconds   float64                `json:"earliest_seconds"`
	SectorBreaks      []l4breakup.BreakEvent `json:"sector_breaks"`
	Config            tbut.Config            `json:"config"`
	ElapsedMs         int64                  `json:"elapsed_ms"`
	CreatedAt         time.Time              `json:"created_at"`
}

// RunFromReport flattens an engine report for storage.
func RunFromReport(rep *tbut.Report, cfg tbut.Config) Run {
	return Run{
		VideoPath:         rep.Path,
		FPS:               rep.FPS,
		FrameCount:        rep.Frames,
		Width:             rep.Width,
		Height:            rep.Height,
		CenterX:           rep.Calibration.CenterX,
		CenterY:           rep.Calibration.CenterY,
		RingRadius:        rep.Calibration.Radius,
		WorkingRadius:     rep.Calibration.MaxRadius,
		CalibrationSource: string(rep.Calibration.Source),
		ResultSeconds:     rep.Result.Seconds,
		DetectedSectors:   rep.Result.Detected,
		EarliestSeconds:   rep.Result.Earliest,
		SectorBreaks:      rep.Result.Events,
		Config:            cfg,
		ElapsedMs:         rep.Elapsed.Milliseconds(),
	}
}

// RecordRun stores r, assigning RunID and CreatedAt when unset, and returns
// the stored id.
func (db *DB) RecordRun(r Run) (string, error) {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = db.clock.Now()
	}
	breaks, err := json.Marshal(r.SectorBreaks)
	if err != nil {
		return "", fmt.Errorf("failed to encode sector breaks: %w", err)
	}
	cfg, err := json.Marshal(r.Config)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO runs (
			run_id, video_path, fps, frame_count, width, height,
			center_x, center_y, ring_radius, working_radius, calibration_source,
			result_seconds, detected_sectors, earliest_seconds,
			sector_breaks, config_json, elapsed_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.VideoPath, r.FPS, r.FrameCount, r.Width, r.Height,
		r.CenterX, r.CenterY, r.RingRadius, r.WorkingRadius, r.CalibrationSource,
		r.ResultSeconds, r.DetectedSectors, r.EarliestSeconds,
		string(breaks), string(cfg), r.ElapsedMs, r.CreatedAt.UTC().Format(createdLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return r.RunID, nil
}

const selectRun = `
	SELECT run_id, video_path, fps, frame_count, width, height,
		center_x, center_y, ring_radius, working_radius, calibration_source,
		result_seconds, detected_sectors, earliest_seconds,
		sector_breaks, config_json, elapsed_ms, created_at
	FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var breaks, cfg, created string
	err := row.Scan(
		&r.RunID, &r.VideoPath, &r.FPS, &r.FrameCount, &r.Width, &r.Height,
		&r.CenterX, &r.CenterY, &r.RingRadius, &r.WorkingRadius, &r.CalibrationSource,
		&r.ResultSeconds, &r.DetectedSectors, &r.EarliestSeconds,
		&breaks, &cfg, &r.ElapsedMs, &created,
	)
	if err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(breaks), &r.SectorBreaks); err != nil {
		return Run{}, fmt.Errorf("run %s: bad sector_breaks: %w", r.RunID, err)
	}
	if err := json.Unmarshal([]byte(cfg), &r.Config); err != nil {
		return Run{}, fmt.Errorf("run %s: bad config_json: %w", r.RunID, err)
	}
	if r.CreatedAt, err = time.Parse(createdLayout, created); err != nil {
		return Run{}, fmt.Errorf("run %s: bad created_at: %w", r.RunID, err)
	}
	return r, nil
}

// GetRun loads one run by id.
func (db *DB) GetRun(id string) (Run, error) {
	r, err := scanRun(db.QueryRow(selectRun+` WHERE run_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// ListRuns returns the most recent runs first. A non-positive limit
// returns every run.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	query := selectRun + ` ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
