package camera

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/perspective.grid/internal/frames"
)

func defaultParameters() Parameters {
	return Parameters{
		FocalLengths:  Vector2{X: 0.8, Y: 1.07},
		OpticalCenter: Vector2{X: 0.5, Y: 0.5},
	}
}

func standingInputs() CycleInputs {
	robotToGround := frames.NewIsometry3[frames.Robot, frames.Ground](frames.EulerQuat(0, 0, 0), r3.Vec{Z: 0.5})
	return CycleInputs{
		HeadToRobot:   frames.Translation[frames.Head, frames.Robot](0, 0, 0.1265),
		RobotToGround: &robotToGround,
		Top:           defaultParameters(),
		Bottom:        defaultParameters(),
		Field:         DefaultFieldDimensions(),
	}
}

func TestCameraToHead_Top(t *testing.T) {
	iso := CameraToHead(Top, frames.Vector3[frames.Camera]{})

	origin := iso.Origin()
	checkNear(t, "origin X", origin.X, NeckToTopCamera.X, tol)
	checkNear(t, "origin Z", origin.Z, NeckToTopCamera.Z, tol)

	axis := iso.ApplyVector(frames.V3[frames.Camera](1, 0, 0))
	pitch := TopCameraPitchDeg * math.Pi / 180
	checkNear(t, "axis X", axis.X, math.Cos(pitch), tol)
	checkNear(t, "axis Z", axis.Z, -math.Sin(pitch), tol)
}

func TestCameraToHead_ExtrinsicYaw(t *testing.T) {
	iso := CameraToHead(Bottom, frames.V3[frames.Camera](0, 0, 90))

	origin := iso.Origin()
	checkNear(t, "origin X", origin.X, NeckToBottomCamera.X, tol)

	// Yaw by 90 degrees maps the optical axis onto head +Y before the
	// mounting pitch, which leaves Y untouched.
	axis := iso.ApplyVector(frames.V3[frames.Camera](1, 0, 0))
	checkNear(t, "axis Y", axis.Y, 1, tol)
}

func TestCalculator_NoGroundContact(t *testing.T) {
	in := standingInputs()
	in.RobotToGround = nil

	out, ok := NewCalculator().Cycle(in)
	if ok {
		t.Fatal("Cycle succeeded without ground contact")
	}
	if out.Matrices != (Matrices{}) || out.ProjectedFieldLines.Top != nil || out.ProjectedFieldLines.Bottom != nil {
		t.Errorf("Cycle output = %+v, want zero", out)
	}
}

func TestCalculator_BuildsBothCameras(t *testing.T) {
	out, ok := NewCalculator().Cycle(standingInputs())
	if !ok {
		t.Fatal("Cycle failed")
	}

	for _, p := range Positions {
		m := out.Matrices.At(p)
		if m.ImageSize != DefaultImageSize {
			t.Errorf("%s: ImageSize = %+v, want %+v", p, m.ImageSize, DefaultImageSize)
		}
		checkNear(t, p.String()+" focal X", m.FocalLength.X, 0.8*640, tol)
		if !m.GroundToCamera().IsRigid() {
			t.Errorf("%s: ground to camera transform is not rigid", p)
		}
	}

	// The bottom camera is pitched further down, so its horizon sits
	// higher in the image.
	if top, bottom := out.Matrices.Top.Horizon.LeftY, out.Matrices.Bottom.Horizon.LeftY; bottom >= top {
		t.Errorf("bottom horizon %v should be above top horizon %v", bottom, top)
	}
	if got := len(out.ProjectedFieldLines.Top); got != 5 {
		t.Errorf("projected top lines = %d, want 5", got)
	}
}

func TestCalculator_AppliesCorrections(t *testing.T) {
	in := standingInputs()
	plain, ok := NewCalculator().Cycle(in)
	if !ok {
		t.Fatal("Cycle failed")
	}

	in.Corrections = Corrections{InCameraTop: frames.NewRotation3[frames.Camera](0, 0.05, 0)}
	corrected, ok := NewCalculator().Cycle(in)
	if !ok {
		t.Fatal("corrected Cycle failed")
	}

	if plain.Matrices.Top.Horizon == corrected.Matrices.Top.Horizon {
		t.Error("top correction did not move the top horizon")
	}
	checkNear(t, "bottom LeftY", corrected.Matrices.Bottom.Horizon.LeftY, plain.Matrices.Bottom.Horizon.LeftY, 1e-6)
	// Field lines are projected before correction.
	if diff := cmp.Diff(plain.ProjectedFieldLines, corrected.ProjectedFieldLines); diff != "" {
		t.Errorf("projected field lines mismatch (-plain +corrected):\n%s", diff)
	}
}

func TestCalculator_CustomImageSize(t *testing.T) {
	in := standingInputs()
	in.ImageSize = ImageSize{Width: 320, Height: 240}

	out, ok := NewCalculator().Cycle(in)
	if !ok {
		t.Fatal("Cycle failed")
	}
	if out.Matrices.Top.ImageSize != in.ImageSize {
		t.Errorf("ImageSize = %+v, want %+v", out.Matrices.Top.ImageSize, in.ImageSize)
	}
	checkNear(t, "center X", out.Matrices.Top.OpticalCenter.X, 160, tol)
}

func TestProjectPenaltyArea(t *testing.T) {
	m := pitchedCamera(0.5, 0.05, DefaultImageSize)
	lines := ProjectPenaltyArea(DefaultFieldDimensions(), m)
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}

	// Goal line corners are further away than the penalty line, so they
	// project closer to the horizon.
	goalLine, penaltyLine := lines[0], lines[1]
	if goalLine.Start.Y >= penaltyLine.Start.Y {
		t.Errorf("goal line y %v should be above penalty line y %v", goalLine.Start.Y, penaltyLine.Start.Y)
	}
	// Ground +Y is to the robot's left, which is image left.
	if goalLine.Start.X >= goalLine.End.X {
		t.Errorf("goal line runs right to left: %+v", goalLine)
	}
}

func TestProjectPenaltyArea_FacingAway(t *testing.T) {
	robotToGround := frames.NewIsometry3[frames.Robot, frames.Ground](frames.EulerQuat(0, 0.05, math.Pi), r3.Vec{Z: 0.5})
	m := FromNormalizedFocalAndCenter(
		Vector2{X: 1, Y: 1}, Vector2{X: 0.5, Y: 0.5}, DefaultImageSize,
		robotToGround.Inverse(),
		frames.Identity[frames.Robot, frames.Head](),
		frames.Identity[frames.Head, frames.Camera](),
	)
	if lines := ProjectPenaltyArea(DefaultFieldDimensions(), m); lines != nil {
		t.Errorf("lines = %v, want nil", lines)
	}
}
