package camera

import (
	"github.com/banshee-data/perspective.grid/internal/frames"
)

// Corrections are the online rotational drift corrections estimated by
// the calibration stage. The zero value applies no correction.
type Corrections struct {
	InRobot        frames.Rotation3[frames.Robot]
	InCameraTop    frames.Rotation3[frames.Camera]
	InCameraBottom frames.Rotation3[frames.Camera]
}

// CycleInputs is everything the calculator needs for one cycle.
type CycleInputs struct {
	// HeadToRobot comes from forward kinematics of the neck joints.
	HeadToRobot frames.Isometry3[frames.Head, frames.Robot]
	// RobotToGround is nil while the robot has no ground contact estimate.
	RobotToGround *frames.Isometry3[frames.Robot, frames.Ground]

	Top       Parameters
	Bottom    Parameters
	Field     FieldDimensions
	ImageSize ImageSize

	Corrections Corrections
}

// CycleOutputs is the calculator's result for one cycle.
type CycleOutputs struct {
	Matrices            Matrices
	ProjectedFieldLines ProjectedFieldLines
}

// Calculator builds both camera matrices each cycle. It holds no state;
// every call is a pure function of its inputs.
type Calculator struct{}

// NewCalculator returns a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Cycle builds the corrected camera matrices and the projected penalty
// area. It reports false when the robot-to-ground transform is unknown.
// Field lines are projected with the uncorrected matrices so overlays show
// the raw calibration.
func (c *Calculator) Cycle(in CycleInputs) (CycleOutputs, bool) {
	if in.RobotToGround == nil {
		return CycleOutputs{}, false
	}
	size := in.ImageSize
	if size.IsEmpty() {
		size = DefaultImageSize
	}

	groundToRobot := in.RobotToGround.Inverse()
	robotToHead := in.HeadToRobot.Inverse()

	top := FromNormalizedFocalAndCenter(
		in.Top.FocalLengths,
		in.Top.OpticalCenter,
		size,
		groundToRobot,
		robotToHead,
		CameraToHead(Top, in.Top.ExtrinsicRotations).Inverse(),
	)
	bottom := FromNormalizedFocalAndCenter(
		in.Bottom.FocalLengths,
		in.Bottom.OpticalCenter,
		size,
		groundToRobot,
		robotToHead,
		CameraToHead(Bottom, in.Bottom.ExtrinsicRotations).Inverse(),
	)

	return CycleOutputs{
		Matrices: Matrices{
			Top:    top.ToCorrected(in.Corrections.InRobot, in.Corrections.InCameraTop),
			Bottom: bottom.ToCorrected(in.Corrections.InRobot, in.Corrections.InCameraBottom),
		},
		ProjectedFieldLines: ProjectedFieldLines{
			Top:    ProjectPenaltyArea(in.Field, top),
			Bottom: ProjectPenaltyArea(in.Field, bottom),
		},
	}, true
}
