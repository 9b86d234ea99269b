// Package perspective builds the perspective grid of ball candidates.
//
// Responsibilities: walking the image from the bottom row towards the
// horizon to lay out rows of touching sampling circles sized like the
// ball at that distance (GenerateRows), and snapping classified segments
// onto that grid, one candidate per cell (GenerateCandidates).
// Key types: Row, Circle, Candidates, Provider.
//
// Everything here is a pure function of one cycle's inputs. Projection is
// consumed through the RadiusProjector interface so tests can supply a
// hand-computed model.
//
// Dependency rule: perspective may depend on camera, frames and segments,
// never on pipeline, config or storage.
package perspective
