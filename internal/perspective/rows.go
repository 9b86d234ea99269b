package perspective

import (
	"math"

	"github.com/banshee-data/perspective.grid/internal/camera"
	"github.com/banshee-data/perspective.grid/internal/frames"
)

// RadiusProjector estimates the pixel radius of a sphere resting on the
// ground at the spot seen through a pixel. camera.Matrix implements it.
type RadiusProjector interface {
	PixelRadius(radius float64, pixel frames.Point2[frames.Pixel], imageSize camera.ImageSize) (float64, bool)
}

var _ RadiusProjector = camera.Matrix{}

// Row is one band of the perspective grid: circles of Radius pixels
// centered on image row CenterY.
type Row struct {
	Radius  float64
	CenterY float64
}

// Contains reports whether y lies within one radius of the row center.
// Rows with a non-positive or non-finite radius contain nothing.
func (r Row) Contains(y float64) bool {
	if !validRadius(r.Radius) {
		return false
	}
	return math.Abs(r.CenterY-y) <= r.Radius
}

// GenerateRows lays out rows from the bottom image row up to the horizon.
// Each row's radius is the projected size of objectRadius at that row;
// when the projection fails the previous radius (initially
// fallbackRadius) is reused. Consecutive rows touch: the next center is
// two radii above the current one. Generation stops at the horizon or at
// the first radius below minimumRadius.
//
// Degenerate inputs (empty image, non-positive or non-finite object or
// minimum radius) yield no rows.
func GenerateRows(
	projector RadiusProjector,
	horizon camera.Horizon,
	imageSize camera.ImageSize,
	minimumRadius float64,
	fallbackRadius float64,
	objectRadius float64,
) []Row {
	if imageSize.IsEmpty() || !validRadius(objectRadius) || !validRadius(minimumRadius) {
		return nil
	}

	// Sample along the border where the horizon is higher. The reference
	// row is the left horizon value on both branches.
	reference := frames.P2[frames.Pixel](float64(imageSize.Width)-1, horizon.LeftY)
	if horizon.LeftY < horizon.RightY {
		reference.X = 0
	}

	radius := fallbackRadius
	centerY := float64(imageSize.Height) - 1

	var rows []Row
	for centerY >= reference.Y && centerY+objectRadius > 0 {
		if r, ok := projector.PixelRadius(objectRadius, frames.P2[frames.Pixel](reference.X, centerY), imageSize); ok {
			radius = r
		}
		if radius < minimumRadius || !validRadius(radius) {
			break
		}
		rows = append(rows, Row{Radius: radius, CenterY: centerY})
		// Radii far below a pixel no longer move the center.
		next := centerY - 2*radius
		if !(next < centerY) {
			break
		}
		centerY = next
	}
	return rows
}

func validRadius(r float64) bool {
	return r > 0 && !math.IsInf(r, 0)
}
