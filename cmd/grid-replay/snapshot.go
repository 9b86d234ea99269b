package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/perspective.grid/internal/camera"
	"github.com/banshee-data/perspective.grid/internal/frames"
	"github.com/banshee-data/perspective.grid/internal/pipeline"
	"github.com/banshee-data/perspective.grid/internal/segments"
)

// maxLineSize bounds one snapshot line; full scan grids run to a few
// hundred kilobytes.
const maxLineSize = 8 * 1024 * 1024

// poseRecord is a rigid transform: translation in metres, rotation as
// roll, pitch and yaw in radians.
type poseRecord struct {
	Translation [3]float64 `json:"translation"`
	Rotation    [3]float64 `json:"rotation"`
}

type segmentRecord struct {
	Start uint16 `json:"start"`
	End   uint16 `json:"end"`
}

type scanLineRecord struct {
	X        uint16          `json:"x"`
	Segments []segmentRecord `json:"segments"`
}

type cameraRecord struct {
	ScanLines []scanLineRecord `json:"scan_lines"`
	// Claimed lists [x, y] segment start pixels.
	Claimed [][2]uint16 `json:"claimed"`
}

type correctionsRecord struct {
	InRobot        [3]float64 `json:"in_robot"`
	InCameraTop    [3]float64 `json:"in_camera_top"`
	InCameraBottom [3]float64 `json:"in_camera_bottom"`
}

// snapshotRecord is one line of a replay file.
type snapshotRecord struct {
	HeadToRobot   poseRecord         `json:"head_to_robot"`
	RobotToGround *poseRecord        `json:"robot_to_ground"`
	Corrections   *correctionsRecord `json:"corrections,omitempty"`
	Top           cameraRecord       `json:"top"`
	Bottom        cameraRecord       `json:"bottom"`
}

func isometry[From, To frames.Frame](p poseRecord) (frames.Isometry3[From, To], error) {
	for _, v := range append(p.Translation[:], p.Rotation[:]...) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return frames.Isometry3[From, To]{}, fmt.Errorf("non-finite pose value %v", v)
		}
	}
	return frames.NewIsometry3[From, To](
		frames.EulerQuat(p.Rotation[0], p.Rotation[1], p.Rotation[2]),
		r3.Vec{X: p.Translation[0], Y: p.Translation[1], Z: p.Translation[2]},
	), nil
}

func (c cameraRecord) frame() pipeline.CameraFrame {
	grid := segments.ScanGrid{VerticalScanLines: make([]segments.ScanLine, 0, len(c.ScanLines))}
	for _, l := range c.ScanLines {
		line := segments.ScanLine{Position: l.X, Segments: make([]segments.Segment, 0, len(l.Segments))}
		for _, s := range l.Segments {
			line.Segments = append(line.Segments, segments.Segment{Start: s.Start, End: s.End})
		}
		grid.VerticalScanLines = append(grid.VerticalScanLines, line)
	}
	claimed := segments.NewClaimedPixels()
	for _, p := range c.Claimed {
		claimed.Claim(segments.Pixel{X: p[0], Y: p[1]})
	}
	return pipeline.CameraFrame{ScanGrid: grid, Claimed: claimed}
}

func (r snapshotRecord) snapshot() (pipeline.Snapshot, error) {
	var s pipeline.Snapshot
	var err error
	if s.HeadToRobot, err = isometry[frames.Head, frames.Robot](r.HeadToRobot); err != nil {
		return s, fmt.Errorf("head_to_robot: %w", err)
	}
	if r.RobotToGround != nil {
		robotToGround, err := isometry[frames.Robot, frames.Ground](*r.RobotToGround)
		if err != nil {
			return s, fmt.Errorf("robot_to_ground: %w", err)
		}
		s.RobotToGround = &robotToGround
	}
	if c := r.Corrections; c != nil {
		s.Corrections = &camera.Corrections{
			InRobot:        frames.NewRotation3[frames.Robot](c.InRobot[0], c.InRobot[1], c.InRobot[2]),
			InCameraTop:    frames.NewRotation3[frames.Camera](c.InCameraTop[0], c.InCameraTop[1], c.InCameraTop[2]),
			InCameraBottom: frames.NewRotation3[frames.Camera](c.InCameraBottom[0], c.InCameraBottom[1], c.InCameraBottom[2]),
		}
	}
	s.Top = r.Top.frame()
	s.Bottom = r.Bottom.frame()
	return s, nil
}

// readSnapshots decodes a JSON-lines replay stream. Blank lines and lines
// starting with '#' are skipped.
func readSnapshots(r io.Reader) ([]pipeline.Snapshot, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var out []pipeline.Snapshot
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var rec snapshotRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		s, err := rec.snapshot()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}
	return out, nil
}
