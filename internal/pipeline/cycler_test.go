package pipeline

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/perspective.grid/internal/camera"
	"github.com/banshee-data/perspective.grid/internal/config"
	"github.com/banshee-data/perspective.grid/internal/frames"
	"github.com/banshee-data/perspective.grid/internal/monitoring"
	"github.com/banshee-data/perspective.grid/internal/perspective"
	"github.com/banshee-data/perspective.grid/internal/segments"
	"github.com/banshee-data/perspective.grid/internal/timeutil"
)

// steppingClock advances by step every time it is read, so a cycle
// appears to take a fixed amount of time.
type steppingClock struct {
	*timeutil.MockClock
	step time.Duration
}

func (c steppingClock) Now() time.Time {
	c.MockClock.Advance(c.step)
	return c.MockClock.Now()
}

func (c steppingClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

type recordingSink struct {
	indices []int
	err     error
}

func (s *recordingSink) RecordCycle(index int, _ Output) error {
	s.indices = append(s.indices, index)
	return s.err
}

func standing() Snapshot {
	robotToGround := frames.Translation[frames.Robot, frames.Ground](0, 0, 0.5)
	return Snapshot{
		HeadToRobot:   frames.Translation[frames.Head, frames.Robot](0, 0, 0.1265),
		RobotToGround: &robotToGround,
		Bottom: CameraFrame{
			ScanGrid: segments.ScanGrid{VerticalScanLines: []segments.ScanLine{
				{Position: 100, Segments: []segments.Segment{{Start: 440, End: 470}}},
				{Position: 320, Segments: []segments.Segment{{Start: 300, End: 340}, {Start: 400, End: 420}}},
			}},
			Claimed: segments.NewClaimedPixels(segments.Pixel{X: 320, Y: 300}),
		},
	}
}

func quiet(t *testing.T) *bytes.Buffer {
	t.Helper()
	ops := &bytes.Buffer{}
	monitoring.SetLogWriters(monitoring.LogWriters{Ops: ops})
	t.Cleanup(func() { monitoring.SetLogWriters(monitoring.LogWriters{}) })
	return ops
}

func TestCycler_RunProducesBothCameras(t *testing.T) {
	quiet(t)
	store := config.NewStore("", nil)
	c := NewCycler(store, timeutil.NewMockClock(time.Now()))

	out, err := c.Run(standing())
	require.NoError(t, err)

	for _, p := range camera.Positions {
		m := out.Matrices.At(p)
		assert.Equal(t, camera.DefaultImageSize, m.ImageSize, p.String())
		assert.NotEmpty(t, out.At(p).Rows, p.String())
	}
	assert.Len(t, out.FieldLines.Top, 5)

	// The cycle output matches running the generators on the same matrix.
	bottom := out.Matrices.Bottom
	params := store.Snapshot().GridParameters(camera.Bottom)
	wantRows := perspective.GenerateRows(bottom, bottom.Horizon, camera.DefaultImageSize,
		params.MinimumRadius, params.FallbackRadius, params.ObjectRadius)
	if diff := cmp.Diff(wantRows, out.Bottom.Rows); diff != "" {
		t.Errorf("bottom rows mismatch (-want +got):\n%s", diff)
	}
	snap := standing()
	wantCandidates := perspective.GenerateCandidates(snap.Bottom.ScanGrid.VerticalScanLines, snap.Bottom.Claimed, wantRows)
	if diff := cmp.Diff(wantCandidates, out.Bottom.Candidates); diff != "" {
		t.Errorf("bottom candidates mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, out.Bottom.Stats.Claimed)
	assert.Empty(t, out.Top.Candidates.Circles)
}

func TestCycler_NoGroundContact(t *testing.T) {
	quiet(t)
	c := NewCycler(config.NewStore("", nil), timeutil.NewMockClock(time.Now()))
	sink := &recordingSink{}
	c.SetSink(sink)

	snap := standing()
	snap.RobotToGround = nil
	out, err := c.Run(snap)

	assert.True(t, errors.Is(err, ErrNoGroundContact))
	assert.Empty(t, out.Top.Rows)
	assert.Empty(t, out.Bottom.Candidates.Circles)
	assert.Equal(t, camera.Matrices{}, out.Matrices)
	assert.Empty(t, sink.indices)
}

func TestCycler_InvalidKinematics(t *testing.T) {
	nanGround := frames.Translation[frames.Robot, frames.Ground](0, 0, math.NaN())
	tests := []struct {
		name    string
		mutate  func(*Snapshot)
		wantMsg string
	}{
		{
			name:    "head to robot",
			mutate:  func(s *Snapshot) { s.HeadToRobot = frames.Translation[frames.Head, frames.Robot](math.NaN(), 0, 0) },
			wantMsg: "head to robot transform is not rigid",
		},
		{
			name:    "robot to ground",
			mutate:  func(s *Snapshot) { s.RobotToGround = &nanGround },
			wantMsg: "robot to ground transform is not rigid",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := quiet(t)
			c := NewCycler(config.NewStore("", nil), timeutil.NewMockClock(time.Now()))
			sink := &recordingSink{}
			c.SetSink(sink)

			snap := standing()
			tt.mutate(&snap)
			out, err := c.Run(snap)

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidKinematics), "got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Contains(t, ops.String(), "cycle 0: invalid kinematics")
			assert.Equal(t, camera.Matrices{}, out.Matrices)
			assert.Empty(t, out.Bottom.Candidates.Circles)
			assert.Empty(t, sink.indices)

			cycles, _ := c.Stats()
			assert.Equal(t, 1, cycles)
		})
	}
}

func TestCycler_ReportsOverrun(t *testing.T) {
	ops := quiet(t)
	budget := "5ms"
	store := config.NewStore("", &config.VisionConfig{CycleBudget: &budget})
	clock := steppingClock{MockClock: timeutil.NewMockClock(time.Now()), step: 6 * time.Millisecond}
	c := NewCycler(store, clock)

	out, err := c.Run(standing())
	require.NoError(t, err)
	assert.True(t, out.Overrun)
	assert.Equal(t, 6*time.Millisecond, out.Elapsed)
	// A late result is still a full result.
	assert.NotEmpty(t, out.Bottom.Rows)
	assert.Contains(t, ops.String(), "budget 5ms")

	cycles, overruns := c.Stats()
	assert.Equal(t, 1, cycles)
	assert.Equal(t, 1, overruns)
}

func TestCycler_WithinBudget(t *testing.T) {
	ops := quiet(t)
	c := NewCycler(config.NewStore("", nil), timeutil.NewMockClock(time.Now()))

	out, err := c.Run(standing())
	require.NoError(t, err)
	assert.False(t, out.Overrun)
	assert.Empty(t, ops.String())
}

func TestCycler_SnapshotCorrectionsOverrideConfig(t *testing.T) {
	quiet(t)
	store := config.NewStore("", &config.VisionConfig{CorrectionInCameraTop: &[3]float64{0, 3, 0}})
	c := NewCycler(store, nil)

	configured, err := c.Run(standing())
	require.NoError(t, err)

	snap := standing()
	snap.Corrections = &camera.Corrections{}
	overridden, err := c.Run(snap)
	require.NoError(t, err)

	assert.NotEqual(t, configured.Matrices.Top.Horizon, overridden.Matrices.Top.Horizon)
	assert.InDelta(t, configured.Matrices.Bottom.Horizon.LeftY, overridden.Matrices.Bottom.Horizon.LeftY, 1e-9)
}

func TestCycler_UsesLatestConfigEachCycle(t *testing.T) {
	quiet(t)
	path := filepath.Join(t.TempDir(), "vision.json")
	write := func(body string) {
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}
	write(`{"bottom": {"fallback_radius": 42, "minimum_radius": 5}}`)
	store, err := config.OpenStore(path)
	require.NoError(t, err)
	c := NewCycler(store, nil)

	first, err := c.Run(standing())
	require.NoError(t, err)

	write(`{"bottom": {"fallback_radius": 42, "minimum_radius": 20}}`)
	require.NoError(t, store.Reload())
	second, err := c.Run(standing())
	require.NoError(t, err)

	assert.Less(t, len(second.Bottom.Rows), len(first.Bottom.Rows))
	for _, r := range second.Bottom.Rows {
		assert.GreaterOrEqual(t, r.Radius, 20.0)
	}
}

func TestCycler_SinkReceivesEveryCycle(t *testing.T) {
	quiet(t)
	c := NewCycler(config.NewStore("", nil), nil)
	sink := &recordingSink{}
	c.SetSink(sink)

	for range 3 {
		_, err := c.Run(standing())
		require.NoError(t, err)
	}
	assert.Equal(t, []int{0, 1, 2}, sink.indices)

	sink.err = errors.New("disk full")
	_, err := c.Run(standing())
	assert.ErrorContains(t, err, "failed to record cycle 3")
	assert.ErrorIs(t, err, sink.err)
}
