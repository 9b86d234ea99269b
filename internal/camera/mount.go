package camera

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/perspective.grid/internal/frames"
)

// Neck-to-camera offsets in metres, measured in the head frame.
var (
	NeckToTopCamera    = frames.V3[frames.Head](0.05871, 0.0, 0.06364)
	NeckToBottomCamera = frames.V3[frames.Head](0.05071, 0.0, 0.01774)
)

// Fixed mounting pitch of each camera in degrees.
const (
	TopCameraPitchDeg    = 1.2
	BottomCameraPitchDeg = 39.7
)

// Parameters is the calibration of one camera. Focal lengths and optical
// center are normalized to [0, 1] of the image size; extrinsic rotations
// are roll, pitch and yaw corrections in degrees.
type Parameters struct {
	FocalLengths       Vector2
	OpticalCenter      Vector2
	ExtrinsicRotations frames.Vector3[frames.Camera]
}

// CameraToHead returns the mounting transform of a camera: neck offset,
// fixed mounting pitch, then the calibrated extrinsic rotation.
func CameraToHead(position Position, extrinsicRotationsDeg frames.Vector3[frames.Camera]) frames.Isometry3[frames.Camera, frames.Head] {
	angles := extrinsicRotationsDeg.Map(degToRad)
	extrinsic := frames.EulerQuat(angles.X, angles.Y, angles.Z)

	offset, pitchDeg := NeckToBottomCamera, BottomCameraPitchDeg
	if position == Top {
		offset, pitchDeg = NeckToTopCamera, TopCameraPitchDeg
	}
	mountPitch := quat.Number(r3.NewRotation(degToRad(pitchDeg), r3.Vec{Y: 1}))

	return frames.NewIsometry3[frames.Camera, frames.Head](
		quat.Mul(mountPitch, extrinsic),
		r3.Vec{X: offset.X, Y: offset.Y, Z: offset.Z},
	)
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}
