// Package camera owns the per-cycle projection model of the robot's two
// cameras.
//
// Responsibilities: composing calibration intrinsics with the kinematic
// chain (Ground -> Robot -> Head -> Camera), field of view and horizon
// derivation, pixel/ground projection, online rotational corrections and
// projection of known field geometry for overlays.
// Key types: Matrix, Matrices, Horizon, Calculator.
//
// A Matrix is rebuilt from scratch every cycle and never mutated after
// construction; corrections produce a new value.
//
// Dependency rule: camera depends on frames and gonum. It knows nothing
// about scan lines, candidate grids, configuration files or storage.
package camera
