package frames

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// RigidTolerance is the tolerance used by IsRigid when checking the
// rotation part of a transform.
const RigidTolerance = 1e-6

// Isometry3 is a rigid transform mapping values expressed in frame From
// into frame To: p_To = R * p_From + t.
//
// The zero value is the identity transform.
type Isometry3[From, To Frame] struct {
	rotation    quat.Number
	translation r3.Vec
}

// Identity returns the identity transform between two frames that
// coincide.
func Identity[From, To Frame]() Isometry3[From, To] {
	return Isometry3[From, To]{rotation: quat.Number{Real: 1}}
}

// NewIsometry3 builds a transform from a rotation quaternion and a
// translation expressed in frame To. The quaternion is normalised; a zero
// quaternion is treated as no rotation.
func NewIsometry3[From, To Frame](rotation quat.Number, translation r3.Vec) Isometry3[From, To] {
	return Isometry3[From, To]{rotation: normalise(rotation), translation: translation}
}

// Translation returns a pure translation transform.
func Translation[From, To Frame](x, y, z float64) Isometry3[From, To] {
	return NewIsometry3[From, To](quat.Number{Real: 1}, r3.Vec{X: x, Y: y, Z: z})
}

// Rotation returns a pure rotation transform built from Euler angles in
// radians: roll about X, then pitch about Y, then yaw about Z (R = Rz*Ry*Rx).
func Rotation[From, To Frame](roll, pitch, yaw float64) Isometry3[From, To] {
	return NewIsometry3[From, To](EulerQuat(roll, pitch, yaw), r3.Vec{})
}

// Apply maps a point from frame From to frame To.
func (iso Isometry3[From, To]) Apply(p Point3[From]) Point3[To] {
	return point3[To](r3.Add(iso.rotate(p.vec()), iso.translation))
}

// ApplyVector maps a free vector from frame From to frame To. Only the
// rotation is applied.
func (iso Isometry3[From, To]) ApplyVector(v Vector3[From]) Vector3[To] {
	return vector3[To](iso.rotate(v.vec()))
}

// Inverse returns the transform mapping To back into From.
func (iso Isometry3[From, To]) Inverse() Isometry3[To, From] {
	inv := quat.Conj(iso.quat())
	t := r3.Rotation(inv).Rotate(iso.translation)
	return Isometry3[To, From]{rotation: inv, translation: r3.Scale(-1, t)}
}

// Origin returns the origin of frame From expressed in frame To.
func (iso Isometry3[From, To]) Origin() Point3[To] {
	return point3[To](iso.translation)
}

// RotationMatrix returns the 3x3 rotation part, row-major.
func (iso Isometry3[From, To]) RotationMatrix() [3][3]float64 {
	var m [3][3]float64
	basis := [3]r3.Vec{{X: 1}, {Y: 1}, {Z: 1}}
	for col, e := range basis {
		c := iso.rotate(e)
		m[0][col] = c.X
		m[1][col] = c.Y
		m[2][col] = c.Z
	}
	return m
}

// Matrix returns the homogeneous 4x4 transform as a row-major array:
// m00,m01,m02,m03, m10,... with the last row [0 0 0 1].
func (iso Isometry3[From, To]) Matrix() [16]float64 {
	r := iso.RotationMatrix()
	return [16]float64{
		r[0][0], r[0][1], r[0][2], iso.translation.X,
		r[1][0], r[1][1], r[1][2], iso.translation.Y,
		r[2][0], r[2][1], r[2][2], iso.translation.Z,
		0, 0, 0, 1,
	}
}

// IsRigid reports whether the rotation part is a proper rotation (unit
// determinant) and every entry is finite.
func (iso Isometry3[From, To]) IsRigid() bool {
	m := iso.Matrix()
	for _, v := range m {
		if !isFinite(v) {
			return false
		}
	}
	r00, r01, r02 := m[0], m[1], m[2]
	r10, r11, r12 := m[4], m[5], m[6]
	r20, r21, r22 := m[8], m[9], m[10]
	det := r00*(r11*r22-r12*r21) - r01*(r10*r22-r12*r20) + r02*(r10*r21-r11*r20)
	return scalar.EqualWithinAbs(det, 1, RigidTolerance)
}

func (iso Isometry3[From, To]) quat() quat.Number {
	if iso.rotation == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return iso.rotation
}

func (iso Isometry3[From, To]) rotate(v r3.Vec) r3.Vec {
	return r3.Rotation(iso.quat()).Rotate(v)
}

// Compose chains two transforms: the result applies ab first, then bc.
// The shared frame B must match, which the compiler enforces.
func Compose[A, B, C Frame](bc Isometry3[B, C], ab Isometry3[A, B]) Isometry3[A, C] {
	q := normalise(quat.Mul(bc.quat(), ab.quat()))
	t := r3.Add(bc.rotate(ab.translation), bc.translation)
	return Isometry3[A, C]{rotation: q, translation: t}
}

// Rotation3 is a pure rotation acting within a single frame F. It is used
// for small calibration corrections.
//
// The zero value is no rotation.
type Rotation3[F Frame] struct {
	q quat.Number
}

// NewRotation3 builds a rotation from Euler angles in radians (R = Rz*Ry*Rx).
func NewRotation3[F Frame](roll, pitch, yaw float64) Rotation3[F] {
	return Rotation3[F]{q: EulerQuat(roll, pitch, yaw)}
}

// AsIsometry returns the rotation as a transform from F to itself.
func (r Rotation3[F]) AsIsometry() Isometry3[F, F] {
	return NewIsometry3[F, F](r.q, r3.Vec{})
}

// Angle returns the rotation angle in radians, in [0, pi].
func (r Rotation3[F]) Angle() float64 {
	q := r.AsIsometry().quat()
	return 2 * math.Atan2(math.Sqrt(q.Imag*q.Imag+q.Jmag*q.Jmag+q.Kmag*q.Kmag), math.Abs(q.Real))
}

// EulerQuat returns the unit quaternion for roll (X), pitch (Y) and yaw (Z)
// in radians, applied in that order.
func EulerQuat(roll, pitch, yaw float64) quat.Number {
	qx := quat.Number(r3.NewRotation(roll, r3.Vec{X: 1}))
	qy := quat.Number(r3.NewRotation(pitch, r3.Vec{Y: 1}))
	qz := quat.Number(r3.NewRotation(yaw, r3.Vec{Z: 1}))
	return normalise(quat.Mul(qz, quat.Mul(qy, qx)))
}

func normalise(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || !isFinite(n) {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}
