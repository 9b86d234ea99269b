package camera

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/perspective.grid/internal/frames"
)

// Position identifies one of the two physical cameras.
type Position int

const (
	// Top is the forehead camera looking towards the horizon.
	Top Position = iota
	// Bottom is the mouth camera looking down at the feet.
	Bottom
)

// Positions lists every camera in a stable order.
var Positions = [...]Position{Top, Bottom}

// String returns the lower-case camera name used in config keys and logs.
func (p Position) String() string {
	switch p {
	case Top:
		return "top"
	case Bottom:
		return "bottom"
	default:
		return fmt.Sprintf("position(%d)", int(p))
	}
}

// ImageSize is an image resolution in pixels.
type ImageSize struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// DefaultImageSize is the native resolution of both cameras.
var DefaultImageSize = ImageSize{Width: 640, Height: 480}

// IsEmpty reports whether either dimension is zero.
func (s ImageSize) IsEmpty() bool {
	return s.Width == 0 || s.Height == 0
}

// Vector2 is an untagged pair used for focal lengths and fields of view.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Mul multiplies element-wise by an image size.
func (v Vector2) Mul(s ImageSize) Vector2 {
	return Vector2{X: v.X * float64(s.Width), Y: v.Y * float64(s.Height)}
}

// Intrinsics is a 3x4 pinhole matrix in row-major order.
type Intrinsics [12]float64

// NewIntrinsics assembles a zero-skew pinhole matrix:
//
//	[fx  0 cx 0]
//	[ 0 fy cy 0]
//	[ 0  0  1 0]
func NewIntrinsics(focal Vector2, center frames.Point2[frames.Pixel]) Intrinsics {
	return Intrinsics{
		focal.X, 0, center.X, 0,
		0, focal.Y, center.Y, 0,
		0, 0, 1, 0,
	}
}

// At returns the element at row i, column j.
func (k Intrinsics) At(i, j int) float64 {
	return k[i*4+j]
}

// Dense returns a freshly allocated copy of the matrix.
func (k Intrinsics) Dense() *mat.Dense {
	data := make([]float64, len(k))
	copy(data, k[:])
	return mat.NewDense(3, 4, data)
}

// Matrix is the projection model of one camera for one cycle.
type Matrix struct {
	GroundToRobot frames.Isometry3[frames.Ground, frames.Robot]
	RobotToHead   frames.Isometry3[frames.Robot, frames.Head]
	HeadToCamera  frames.Isometry3[frames.Head, frames.Camera]

	Intrinsics    Intrinsics
	FocalLength   Vector2
	OpticalCenter frames.Point2[frames.Pixel]
	FieldOfView   Vector2
	Horizon       Horizon
	ImageSize     ImageSize
}

// FromNormalizedFocalAndCenter builds a Matrix from device-independent
// calibration: focal length and optical center are fractions of the image
// size and are scaled element-wise to pixels. The fractions are not
// range-checked here.
func FromNormalizedFocalAndCenter(
	focalLength Vector2,
	opticalCenter Vector2,
	imageSize ImageSize,
	groundToRobot frames.Isometry3[frames.Ground, frames.Robot],
	robotToHead frames.Isometry3[frames.Robot, frames.Head],
	headToCamera frames.Isometry3[frames.Head, frames.Camera],
) Matrix {
	center := opticalCenter.Mul(imageSize)
	return build(
		focalLength.Mul(imageSize),
		frames.P2[frames.Pixel](center.X, center.Y),
		imageSize,
		groundToRobot,
		robotToHead,
		headToCamera,
	)
}

func build(
	focalLength Vector2,
	opticalCenter frames.Point2[frames.Pixel],
	imageSize ImageSize,
	groundToRobot frames.Isometry3[frames.Ground, frames.Robot],
	robotToHead frames.Isometry3[frames.Robot, frames.Head],
	headToCamera frames.Isometry3[frames.Head, frames.Camera],
) Matrix {
	// Order matters: robot first, then head, then camera.
	groundToCamera := frames.Compose(headToCamera, frames.Compose(robotToHead, groundToRobot))
	intrinsics := NewIntrinsics(focalLength, opticalCenter)

	return Matrix{
		GroundToRobot: groundToRobot,
		RobotToHead:   robotToHead,
		HeadToCamera:  headToCamera,
		Intrinsics:    intrinsics,
		FocalLength:   focalLength,
		OpticalCenter: opticalCenter,
		FieldOfView:   FieldOfView(focalLength, imageSize),
		Horizon:       HorizonFromParameters(groundToCamera.Inverse(), intrinsics, float64(imageSize.Width)),
		ImageSize:     imageSize,
	}
}

// FieldOfView returns the opening angle per axis in radians:
// 2*atan(dimension / (2*focal)). Focal length and image size must be in
// the same unit, so normalized focal lengths pair with a 1x1 image.
func FieldOfView(focalLength Vector2, imageSize ImageSize) Vector2 {
	return Vector2{
		X: 2 * math.Atan(float64(imageSize.Width)*0.5/focalLength.X),
		Y: 2 * math.Atan(float64(imageSize.Height)*0.5/focalLength.Y),
	}
}

// GroundToCamera returns the full extrinsic chain.
func (m Matrix) GroundToCamera() frames.Isometry3[frames.Ground, frames.Camera] {
	return frames.Compose(m.HeadToCamera, frames.Compose(m.RobotToHead, m.GroundToRobot))
}

// CameraToGround returns the inverse of GroundToCamera.
func (m Matrix) CameraToGround() frames.Isometry3[frames.Camera, frames.Ground] {
	return m.GroundToCamera().Inverse()
}

// ToCorrected returns a copy of m with small rotational drift corrections
// applied: correctionInRobot acts in the robot frame before the neck,
// correctionInCamera acts in the camera frame after the mount. Field of
// view and horizon are recomputed; m itself is left untouched.
func (m Matrix) ToCorrected(correctionInRobot frames.Rotation3[frames.Robot], correctionInCamera frames.Rotation3[frames.Camera]) Matrix {
	return build(
		m.FocalLength,
		m.OpticalCenter,
		m.ImageSize,
		m.GroundToRobot,
		frames.Compose(m.RobotToHead, correctionInRobot.AsIsometry()),
		frames.Compose(correctionInCamera.AsIsometry(), m.HeadToCamera),
	)
}

// Matrices holds one Matrix per physical camera.
type Matrices struct {
	Top    Matrix
	Bottom Matrix
}

// At returns the matrix for the given camera. Unknown positions return
// the bottom camera's matrix.
func (ms Matrices) At(p Position) Matrix {
	if p == Top {
		return ms.Top
	}
	return ms.Bottom
}
