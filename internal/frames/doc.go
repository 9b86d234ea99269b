// Package frames owns the coordinate frames of the vision pipeline.
//
// Responsibilities: frame-tagged points and vectors, rigid transforms
// between frames, and rotation construction from Euler angles.
// Key types: Point2, Point3, Vector3, Isometry3, Rotation3.
//
// Every geometric value carries its frame as a type parameter (Ground,
// Robot, Head, Camera, Pixel). Moving a value between frames requires an
// Isometry3 whose source and target tags match, so mixing frames is a
// compile error rather than a runtime bug.
//
// Dependency rule: frames depends on gonum only. No image, config or
// storage code is allowed in this package.
package frames
