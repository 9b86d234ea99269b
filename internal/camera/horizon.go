package camera

import (
	"math"

	"github.com/banshee-data/perspective.grid/internal/frames"
)

// horizonEpsilon guards the division by the camera's vertical alignment
// with the ground normal. Below it the camera looks straight along the
// ground plane and the horizon is undefined.
const horizonEpsilon = 1e-9

// Horizon is where the ground plane's vanishing line crosses the left
// (x = 0) and right (x = width-1) image borders, in pixel rows.
type Horizon struct {
	LeftY  float64 `json:"left_horizon_y"`
	RightY float64 `json:"right_horizon_y"`
}

// HorizonFromParameters computes the horizon for a camera given its pose
// relative to the ground and its intrinsics. A pixel lies on the horizon
// when its viewing ray is parallel to the ground plane. If no such row
// exists the zero Horizon is returned.
func HorizonFromParameters(cameraToGround frames.Isometry3[frames.Camera, frames.Ground], intrinsics Intrinsics, imageWidth float64) Horizon {
	fx, fy := intrinsics.At(0, 0), intrinsics.At(1, 1)
	cx, cy := intrinsics.At(0, 2), intrinsics.At(1, 2)
	if fx == 0 || fy == 0 {
		return Horizon{}
	}

	r := cameraToGround.RotationMatrix()
	if math.Abs(r[2][2]) < horizonEpsilon {
		return Horizon{}
	}

	// Ray through (u, v) in camera coordinates is (1, -(u-cx)/fx, -(v-cy)/fy);
	// its ground Z component vanishes on the horizon.
	rowAt := func(u float64) float64 {
		return cy + fy*(r[2][0]-r[2][1]*(u-cx)/fx)/r[2][2]
	}

	right := imageWidth - 1
	if right < 0 {
		right = 0
	}
	h := Horizon{LeftY: rowAt(0), RightY: rowAt(right)}
	if math.IsNaN(h.LeftY) || math.IsInf(h.LeftY, 0) || math.IsNaN(h.RightY) || math.IsInf(h.RightY, 0) {
		return Horizon{}
	}
	return h
}

// YAt linearly interpolates the horizon row at column x for an image of
// the given width.
func (h Horizon) YAt(x, imageWidth float64) float64 {
	if imageWidth <= 1 {
		return h.LeftY
	}
	return h.LeftY + (h.RightY-h.LeftY)*x/(imageWidth-1)
}

