package camera

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/perspective.grid/internal/frames"
)

var (
	// ErrBehindCamera is returned when a point lies on or behind the image
	// plane and has no pixel.
	ErrBehindCamera = errors.New("point is behind the camera")
	// ErrAboveHorizon is returned when a pixel's ray does not hit the
	// requested plane in front of the camera.
	ErrAboveHorizon = errors.New("pixel ray does not intersect the plane")
	// ErrNotFinite is returned when the projection degenerates into NaN or
	// infinity, e.g. with zero focal length.
	ErrNotFinite = errors.New("projection is not finite")
)

// CameraToPixel projects a point in camera coordinates onto the image.
func (m Matrix) CameraToPixel(p frames.Point3[frames.Camera]) (frames.Point2[frames.Pixel], error) {
	if !(p.X > 0) {
		return frames.Point2[frames.Pixel]{}, ErrBehindCamera
	}

	// Optical axis is camera X; image right is camera -Y, image down is -Z.
	ray := mat.NewVecDense(4, []float64{-p.Y, -p.Z, p.X, 1})
	var img mat.VecDense
	img.MulVec(m.Intrinsics.Dense(), ray)

	pixel := frames.P2[frames.Pixel](img.AtVec(0)/img.AtVec(2), img.AtVec(1)/img.AtVec(2))
	if !pixel.IsFinite() {
		return frames.Point2[frames.Pixel]{}, ErrNotFinite
	}
	return pixel, nil
}

// PixelToCamera returns the viewing ray through a pixel, scaled so that
// its X component is one.
func (m Matrix) PixelToCamera(p frames.Point2[frames.Pixel]) frames.Vector3[frames.Camera] {
	return frames.V3[frames.Camera](
		1,
		-(p.X-m.OpticalCenter.X)/m.FocalLength.X,
		-(p.Y-m.OpticalCenter.Y)/m.FocalLength.Y,
	)
}

// PixelToGroundWithZ intersects a pixel's viewing ray with the horizontal
// plane at height z above the ground.
func (m Matrix) PixelToGroundWithZ(p frames.Point2[frames.Pixel], z float64) (frames.Point3[frames.Ground], error) {
	cameraToGround := m.CameraToGround()
	origin := cameraToGround.Origin()
	direction := cameraToGround.ApplyVector(m.PixelToCamera(p))

	t := (z - origin.Z) / direction.Z
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return frames.Point3[frames.Ground]{}, fmt.Errorf("pixel (%.1f, %.1f): %w", p.X, p.Y, ErrNotFinite)
	}
	if t <= 0 {
		return frames.Point3[frames.Ground]{}, fmt.Errorf("pixel (%.1f, %.1f) at z=%.3f: %w", p.X, p.Y, z, ErrAboveHorizon)
	}

	hit := origin.Add(direction.Scale(t))
	if !hit.IsFinite() {
		return frames.Point3[frames.Ground]{}, fmt.Errorf("pixel (%.1f, %.1f): %w", p.X, p.Y, ErrNotFinite)
	}
	return hit, nil
}

// PixelToGround intersects a pixel's viewing ray with the ground plane.
func (m Matrix) PixelToGround(p frames.Point2[frames.Pixel]) (frames.Point2[frames.Ground], error) {
	hit, err := m.PixelToGroundWithZ(p, 0)
	if err != nil {
		return frames.Point2[frames.Ground]{}, err
	}
	return frames.P2[frames.Ground](hit.X, hit.Y), nil
}

// GroundWithZToPixel projects a ground-frame point onto the image.
func (m Matrix) GroundWithZToPixel(p frames.Point3[frames.Ground]) (frames.Point2[frames.Pixel], error) {
	return m.CameraToPixel(m.GroundToCamera().Apply(p))
}

// GroundToPixel projects a point on the ground plane onto the image.
func (m Matrix) GroundToPixel(p frames.Point2[frames.Ground]) (frames.Point2[frames.Pixel], error) {
	return m.GroundWithZToPixel(frames.P3[frames.Ground](p.X, p.Y, 0))
}

// PixelRadius estimates the radius in pixels of a sphere with the given
// real-world radius resting on the ground at the spot seen through pixel.
// It reports false for degenerate geometry: rays at or above the horizon,
// zero focal length, an empty image, or a sphere enclosing the camera.
func (m Matrix) PixelRadius(radius float64, pixel frames.Point2[frames.Pixel], imageSize ImageSize) (float64, bool) {
	if imageSize.IsEmpty() || !(radius > 0) || math.IsInf(radius, 0) {
		return 0, false
	}

	center, err := m.PixelToGroundWithZ(pixel, radius)
	if err != nil {
		return 0, false
	}

	distance := center.Sub(m.CameraToGround().Origin()).Norm()
	if distance <= radius {
		return 0, false
	}

	angle := math.Asin(radius / distance)
	pixelRadius := m.FocalLength.Y * math.Tan(angle)
	if math.IsNaN(pixelRadius) || math.IsInf(pixelRadius, 0) || pixelRadius <= 0 {
		return 0, false
	}
	return pixelRadius, true
}
