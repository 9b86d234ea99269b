package frames

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is implemented by the marker types that tag geometric values.
type Frame interface {
	Ground | Robot | Head | Camera | Pixel
}

// Ground is the field plane frame below the robot: X forward, Y left, Z up,
// origin on the ground between the feet.
type Ground struct{}

// Robot is the torso frame.
type Robot struct{}

// Head is the frame after the neck joints.
type Head struct{}

// Camera is a camera body frame: X along the optical axis, Y left, Z up.
type Camera struct{}

// Pixel is the image plane frame: X right, Y down, origin at the top-left
// pixel.
type Pixel struct{}

// Name returns a short lower-case name for the frame F.
func Name[F Frame]() string {
	var f F
	switch any(f).(type) {
	case Ground:
		return "ground"
	case Robot:
		return "robot"
	case Head:
		return "head"
	case Camera:
		return "camera"
	default:
		return "pixel"
	}
}

// Point2 is a 2-D point in frame F.
type Point2[F Frame] struct {
	X, Y float64
}

// P2 constructs a Point2 in frame F.
func P2[F Frame](x, y float64) Point2[F] {
	return Point2[F]{X: x, Y: y}
}

// Distance returns the Euclidean distance to q.
func (p Point2[F]) Distance(q Point2[F]) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// IsFinite reports whether both coordinates are finite.
func (p Point2[F]) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y)
}

// Line2 is a line segment between two points in frame F.
type Line2[F Frame] struct {
	Start, End Point2[F]
}

// Length returns the segment length.
func (l Line2[F]) Length() float64 {
	return l.Start.Distance(l.End)
}

// Point3 is a 3-D point in frame F.
type Point3[F Frame] struct {
	X, Y, Z float64
}

// P3 constructs a Point3 in frame F.
func P3[F Frame](x, y, z float64) Point3[F] {
	return Point3[F]{X: x, Y: y, Z: z}
}

func (p Point3[F]) vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Sub returns the vector from q to p.
func (p Point3[F]) Sub(q Point3[F]) Vector3[F] {
	return vector3[F](r3.Sub(p.vec(), q.vec()))
}

// Add offsets p by v.
func (p Point3[F]) Add(v Vector3[F]) Point3[F] {
	return point3[F](r3.Add(p.vec(), v.vec()))
}

// IsFinite reports whether all coordinates are finite.
func (p Point3[F]) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

// Vector3 is a free 3-D vector in frame F. Unlike Point3 it is unaffected
// by the translation part of a transform.
type Vector3[F Frame] struct {
	X, Y, Z float64
}

// V3 constructs a Vector3 in frame F.
func V3[F Frame](x, y, z float64) Vector3[F] {
	return Vector3[F]{X: x, Y: y, Z: z}
}

func (v Vector3[F]) vec() r3.Vec {
	return r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
}

// Norm returns the Euclidean length of v.
func (v Vector3[F]) Norm() float64 {
	return r3.Norm(v.vec())
}

// Scale returns v multiplied by f.
func (v Vector3[F]) Scale(f float64) Vector3[F] {
	return vector3[F](r3.Scale(f, v.vec()))
}

// Map applies fn to every component, e.g. for degree to radian conversion.
func (v Vector3[F]) Map(fn func(float64) float64) Vector3[F] {
	return Vector3[F]{X: fn(v.X), Y: fn(v.Y), Z: fn(v.Z)}
}

func point3[F Frame](v r3.Vec) Point3[F] {
	return Point3[F]{X: v.X, Y: v.Y, Z: v.Z}
}

func vector3[F Frame](v r3.Vec) Vector3[F] {
	return Vector3[F]{X: v.X, Y: v.Y, Z: v.Z}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
