package db

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/tearfilm.report/internal/monitoring"
	"github.com/banshee-data/tearfilm.report/internal/tbut"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l2polar"
	"github.com/banshee-data/tearfilm.report/internal/tbut/l4breakup"
	"github.com/banshee-data/tearfilm.report/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleReport() *tbut.Report {
	return &tbut.Report{
		Path:   "/videos/left_eye.mp4",
		FPS:    30,
		Frames: 240,
		Width:  640,
		Height: 480,
		Calibration: l2polar.Calibration{
			CenterX: 321.5, CenterY: 238.25, Radius: 140, MaxRadius: 182, Source: l2polar.SourceCircle,
		},
		Result: l4breakup.Result{
			Seconds:  4.5,
			Detected: 2,
			Earliest: 4.0,
			Baseline: []float64{0.8, 0.7},
			Events: []l4breakup.BreakEvent{
				{Sector: 0, Found: true, Frame: 120, Seconds: 4.0},
				{Sector: 1, Found: true, Frame: 150, Seconds: 5.0},
				{Sector: 2, Found: false, Frame: -1, Seconds: l4breakup.NoBreak},
			},
		},
		Elapsed: 1500 * time.Millisecond,
	}
}

func TestMigrateUpAndDown(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp())
	require.NoError(t, db.MigrateUp(), "second run is a no-op")
	v, dirty, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateDown())
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='runs'`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestRecordAndGetRun(t *testing.T) {
	db := setupTestDB(t)
	cfg := tbut.DefaultConfig()

	run := RunFromReport(sampleReport(), cfg)
	run.CreatedAt = time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	id, err := db.RecordRun(run)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := db.GetRun(id)
	require.NoError(t, err)

	want := run
	want.RunID = id
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetRun mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "circle", got.CalibrationSource)
	assert.Equal(t, int64(1500), got.ElapsedMs)
}

func TestRecordRun_KeepsCallerID(t *testing.T) {
	db := setupTestDB(t)

	id, err := db.RecordRun(Run{RunID: "fixed-id", VideoPath: "a.mp4", ResultSeconds: l4breakup.NoBreak})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)

	_, err = db.RecordRun(Run{RunID: "fixed-id"})
	assert.Error(t, err, "duplicate id")
}

func TestGetRun_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetRun("nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Sub-second offsets that would misorder under a trimmed layout.
	offsets := []time.Duration{100 * time.Millisecond, 120 * time.Millisecond, 2 * time.Second}
	for i, off := range offsets {
		_, err := db.RecordRun(Run{
			VideoPath: filepath.Join("v", string(rune('a'+i))+".mp4"),
			CreatedAt: base.Add(off),
		})
		require.NoError(t, err)
	}

	all, err := db.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "v/c.mp4", all[0].VideoPath)
	assert.Equal(t, "v/b.mp4", all[1].VideoPath)
	assert.Equal(t, "v/a.mp4", all[2].VideoPath)

	top, err := db.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "v/c.mp4", top[0].VideoPath)

	empty := setupTestDB(t)
	none, err := empty.ListRuns(5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordRun_StampsFromClock(t *testing.T) {
	db := setupTestDB(t)
	at := time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)
	db.SetClock(timeutil.NewMockClock(at))

	id, err := db.RecordRun(Run{VideoPath: "clocked.mp4"})
	require.NoError(t, err)

	got, err := db.GetRun(id)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(at), "created_at = %v", got.CreatedAt)
}
