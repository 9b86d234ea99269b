// Package pipeline runs one vision cycle: camera matrices from kinematics,
// then the perspective grid of each camera, timed against a budget.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/perspective.grid/internal/camera"
	"github.com/banshee-data/perspective.grid/internal/config"
	"github.com/banshee-data/perspective.grid/internal/frames"
	"github.com/banshee-data/perspective.grid/internal/monitoring"
	"github.com/banshee-data/perspective.grid/internal/perspective"
	"github.com/banshee-data/perspective.grid/internal/segments"
	"github.com/banshee-data/perspective.grid/internal/timeutil"
)

// ErrNoGroundContact is returned when the cycle has no robot-to-ground
// estimate, so no camera matrices can be built.
var ErrNoGroundContact = errors.New("no robot-to-ground transform")

// ErrInvalidKinematics is returned when a kinematic transform of the
// snapshot is not a finite rigid motion.
var ErrInvalidKinematics = errors.New("invalid kinematics")

// CameraFrame is one camera's share of a cycle snapshot.
type CameraFrame struct {
	ScanGrid segments.ScanGrid
	// Claimed holds segment start pixels already used by line detection.
	Claimed segments.ClaimedPixels
}

// Snapshot is the immutable input of one cycle.
type Snapshot struct {
	HeadToRobot   frames.Isometry3[frames.Head, frames.Robot]
	RobotToGround *frames.Isometry3[frames.Robot, frames.Ground]
	// Corrections overrides the configured static corrections when set.
	Corrections *camera.Corrections

	Top    CameraFrame
	Bottom CameraFrame
}

// Output is everything one cycle publishes.
type Output struct {
	Matrices   camera.Matrices
	FieldLines camera.ProjectedFieldLines
	Top        perspective.Output
	Bottom     perspective.Output

	Elapsed time.Duration
	Overrun bool
}

// At returns the grid output of camera p.
func (o Output) At(p camera.Position) perspective.Output {
	if p == camera.Top {
		return o.Top
	}
	return o.Bottom
}

// Sink receives every completed cycle, for recording or visualisation.
type Sink interface {
	RecordCycle(index int, out Output) error
}

// Cycler wires the camera calculator and both grid providers to the
// current configuration. Run is not safe for concurrent use; the config
// store is.
type Cycler struct {
	store  *config.Store
	clock  timeutil.Clock
	calc   *camera.Calculator
	top    *perspective.Provider
	bottom *perspective.Provider
	sink   Sink

	cycles   int
	overruns int
}

// NewCycler returns a cycler reading parameters from store. clock may be
// nil for the real clock.
func NewCycler(store *config.Store, clock timeutil.Clock) *Cycler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Cycler{
		store:  store,
		clock:  clock,
		calc:   camera.NewCalculator(),
		top:    perspective.NewProvider(camera.Top.String()),
		bottom: perspective.NewProvider(camera.Bottom.String()),
	}
}

// SetSink installs a sink for completed cycles. Pass nil to remove it.
func (c *Cycler) SetSink(s Sink) {
	c.sink = s
}

// Stats returns how many cycles ran and how many overran their budget.
func (c *Cycler) Stats() (cycles, overruns int) {
	return c.cycles, c.overruns
}

// Run executes one cycle. Without a robot-to-ground transform it returns
// an empty output and ErrNoGroundContact. A cycle that overruns its budget
// is logged and still returned.
func (c *Cycler) Run(s Snapshot) (Output, error) {
	sw := timeutil.StartStopwatch(c.clock)
	cfg := c.store.Snapshot()
	index := c.cycles
	c.cycles++

	if err := checkKinematics(s); err != nil {
		monitoring.Opsf("cycle %d: %v", index, err)
		return Output{Elapsed: sw.Elapsed()}, err
	}

	corrections := cfg.GetCorrections()
	if s.Corrections != nil {
		corrections = *s.Corrections
	}

	calc, ok := c.calc.Cycle(camera.CycleInputs{
		HeadToRobot:   s.HeadToRobot,
		RobotToGround: s.RobotToGround,
		Top:           cfg.Top.Parameters(),
		Bottom:        cfg.Bottom.Parameters(),
		Field:         cfg.GetField(),
		ImageSize:     cfg.GetImageSize(),
		Corrections:   corrections,
	})
	if !ok {
		monitoring.Diagf("cycle %d: %v", index, ErrNoGroundContact)
		return Output{Elapsed: sw.Elapsed()}, ErrNoGroundContact
	}

	out := Output{
		Matrices:   calc.Matrices,
		FieldLines: calc.ProjectedFieldLines,
		Top:        c.runCamera(c.top, camera.Top, calc.Matrices, s.Top, cfg),
		Bottom:     c.runCamera(c.bottom, camera.Bottom, calc.Matrices, s.Bottom, cfg),
	}

	budget := cfg.GetCycleBudget()
	out.Elapsed, out.Overrun = sw.Overran(budget)
	if out.Overrun {
		c.overruns++
		monitoring.Opsf("cycle %d took %v, budget %v (%d overruns in %d cycles)",
			index, out.Elapsed, budget, c.overruns, c.cycles)
	}

	if c.sink != nil {
		if err := c.sink.RecordCycle(index, out); err != nil {
			return out, fmt.Errorf("failed to record cycle %d: %w", index, err)
		}
	}
	return out, nil
}

func (c *Cycler) runCamera(p *perspective.Provider, pos camera.Position, ms camera.Matrices, f CameraFrame, cfg *config.VisionConfig) perspective.Output {
	return p.Cycle(perspective.Inputs{
		Camera:    ms.At(pos),
		ScanGrid:  f.ScanGrid,
		Claimed:   f.Claimed,
		ImageSize: cfg.GetImageSize(),
	}, cfg.GridParameters(pos))
}

func checkKinematics(s Snapshot) error {
	if err := checkRigid(s.HeadToRobot); err != nil {
		return err
	}
	if s.RobotToGround != nil {
		return checkRigid(*s.RobotToGround)
	}
	return nil
}

func checkRigid[From, To frames.Frame](iso frames.Isometry3[From, To]) error {
	if iso.IsRigid() {
		return nil
	}
	return fmt.Errorf("%w: %s to %s transform is not rigid", ErrInvalidKinematics, frames.Name[From](), frames.Name[To]())
}
