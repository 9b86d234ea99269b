package perspective

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/perspective.grid/internal/camera"
	"github.com/banshee-data/perspective.grid/internal/frames"
)

// fixedProjector returns a scripted sequence of radii and records every
// queried pixel. Once the script runs out it returns last (and ok).
type fixedProjector struct {
	script  []float64
	last    float64
	ok      bool
	queries []frames.Point2[frames.Pixel]
}

func (f *fixedProjector) PixelRadius(_ float64, pixel frames.Point2[frames.Pixel], _ camera.ImageSize) (float64, bool) {
	f.queries = append(f.queries, pixel)
	if len(f.script) > 0 {
		r := f.script[0]
		f.script = f.script[1:]
		return r, true
	}
	return f.last, f.ok
}

// countingProjector forwards to a real projector and counts queries.
type countingProjector struct {
	RadiusProjector
	queries int
}

func (c *countingProjector) PixelRadius(radius float64, pixel frames.Point2[frames.Pixel], size camera.ImageSize) (float64, bool) {
	c.queries++
	return c.RadiusProjector.PixelRadius(radius, pixel, size)
}

func lookingDown(height, pitch float64, size camera.ImageSize) camera.Matrix {
	robotToGround := frames.NewIsometry3[frames.Robot, frames.Ground](frames.EulerQuat(0, pitch, 0), r3.Vec{Z: height})
	return camera.FromNormalizedFocalAndCenter(
		camera.Vector2{X: 1, Y: 1},
		camera.Vector2{X: 0.5, Y: 0.5},
		size,
		robotToGround.Inverse(),
		frames.Identity[frames.Robot, frames.Head](),
		frames.Identity[frames.Head, frames.Camera](),
	)
}

func checkPacked(t *testing.T, rows []Row) {
	t.Helper()
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1], rows[i]
		gap := math.Abs(cur.CenterY - prev.CenterY)
		if !scalar.EqualWithinAbs(gap, 2*prev.Radius, 0.001) {
			t.Errorf("rows %d/%d: gap %.4f, want %.4f", i-1, i, gap, 2*prev.Radius)
		}
		if cur.CenterY >= prev.CenterY {
			t.Errorf("rows %d/%d: center %.4f not above %.4f", i-1, i, cur.CenterY, prev.CenterY)
		}
	}
}

func TestGenerateRows_DefaultCameraNonEmpty(t *testing.T) {
	var m camera.Matrix
	size := camera.ImageSize{Width: 512, Height: 512}

	rows := GenerateRows(m, m.Horizon, size, 5, 42, 0.05)

	// Projection fails for the zero matrix, so every row keeps the
	// fallback radius.
	if len(rows) != 7 {
		t.Fatalf("got %d rows, want 7", len(rows))
	}
	for i, r := range rows {
		if r.Radius != 42 {
			t.Errorf("row %d radius = %v, want 42", i, r.Radius)
		}
	}
	if rows[0].CenterY != 511 {
		t.Errorf("first row center = %v, want 511", rows[0].CenterY)
	}
	checkPacked(t, rows)
}

func TestGenerateRows_IdentityPoseNonEmpty(t *testing.T) {
	size := camera.ImageSize{Width: 512, Height: 512}
	m := camera.FromNormalizedFocalAndCenter(
		camera.Vector2{X: 1, Y: 1},
		camera.Vector2{X: 0.5, Y: 0.5},
		size,
		frames.Identity[frames.Ground, frames.Robot](),
		frames.Identity[frames.Robot, frames.Head](),
		frames.Identity[frames.Head, frames.Camera](),
	)

	rows := GenerateRows(m, m.Horizon, size, 5, 42, 0.05)
	if len(rows) == 0 {
		t.Fatal("expected rows for an identity pose")
	}
	checkPacked(t, rows)
}

func TestGenerateRows_SpacedCorrectly(t *testing.T) {
	size := camera.ImageSize{Width: 512, Height: 512}
	m := lookingDown(0.5, 0.3, size)

	rows := GenerateRows(m, m.Horizon, size, 5, 42, 0.05)
	if len(rows) <= 2 {
		t.Fatalf("got %d rows, want more than 2", len(rows))
	}
	checkPacked(t, rows)

	// Circles shrink towards the horizon.
	for i := 1; i < len(rows); i++ {
		if rows[i].Radius >= rows[i-1].Radius {
			t.Errorf("row %d radius %v not below %v", i, rows[i].Radius, rows[i-1].Radius)
		}
	}
}

func TestGenerateRows_NeverBelowMinimum(t *testing.T) {
	size := camera.ImageSize{Width: 640, Height: 480}
	m := lookingDown(0.5, 0.3, size)

	for _, minimum := range []float64{1, 5, 12, 30} {
		for i, r := range GenerateRows(m, m.Horizon, size, minimum, 42, 0.05) {
			if r.Radius < minimum {
				t.Errorf("minimum %v: row %d radius %v", minimum, i, r.Radius)
			}
		}
	}
}

func TestGenerateRows_StopsAtMinimumWithoutEmitting(t *testing.T) {
	p := &fixedProjector{script: []float64{20, 10, 4}, last: 3, ok: true}
	size := camera.ImageSize{Width: 100, Height: 200}

	rows := GenerateRows(p, camera.Horizon{}, size, 5, 42, 0.05)
	want := []Row{{Radius: 20, CenterY: 199}, {Radius: 10, CenterY: 159}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if len(p.queries) != 3 {
		t.Errorf("got %d queries, want 3", len(p.queries))
	}
}

func TestGenerateRows_FirstQueryFailsUsesFallback(t *testing.T) {
	p := &fixedProjector{ok: false}
	size := camera.ImageSize{Width: 100, Height: 200}

	rows := GenerateRows(p, camera.Horizon{LeftY: 100, RightY: 100}, size, 5, 42, 0.05)
	want := []Row{{Radius: 42, CenterY: 199}, {Radius: 42, CenterY: 115}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateRows_CarriesRadiusForward(t *testing.T) {
	p := &fixedProjector{script: []float64{30, 15}, ok: false}
	size := camera.ImageSize{Width: 100, Height: 300}

	rows := GenerateRows(p, camera.Horizon{}, size, 5, 42, 0.05)
	if len(rows) < 3 {
		t.Fatalf("got %d rows, want at least 3", len(rows))
	}
	if rows[0].Radius != 30 {
		t.Errorf("first radius = %v, want 30", rows[0].Radius)
	}
	for i, r := range rows[1:] {
		if r.Radius != 15 {
			t.Errorf("row %d radius = %v, want 15", i+1, r.Radius)
		}
	}
	checkPacked(t, rows)
}

// The reference row is always the left horizon value, even when the
// right border is sampled. Pinned deliberately with a tilted horizon.
func TestGenerateRows_TiltedHorizonUsesLeftValue(t *testing.T) {
	size := camera.ImageSize{Width: 640, Height: 480}

	tests := []struct {
		name     string
		horizon  camera.Horizon
		wantRows int
		wantLast float64
		wantX    float64
	}{
		{"right border higher", camera.Horizon{LeftY: 300, RightY: 100}, 9, 319, 639},
		{"left border higher", camera.Horizon{LeftY: 100, RightY: 300}, 19, 119, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fixedProjector{last: 10, ok: true}
			rows := GenerateRows(p, tt.horizon, size, 5, 42, 0.05)

			if len(rows) != tt.wantRows {
				t.Fatalf("got %d rows, want %d", len(rows), tt.wantRows)
			}
			if last := rows[len(rows)-1].CenterY; last != tt.wantLast {
				t.Errorf("last center = %v, want %v", last, tt.wantLast)
			}
			for _, q := range p.queries {
				if q.X != tt.wantX {
					t.Errorf("queried x = %v, want %v", q.X, tt.wantX)
				}
			}
		})
	}
}

func TestGenerateRows_HorizonBelowImage(t *testing.T) {
	p := &fixedProjector{last: 10, ok: true}
	rows := GenerateRows(p, camera.Horizon{LeftY: 600, RightY: 600}, camera.ImageSize{Width: 640, Height: 480}, 5, 42, 0.05)
	if len(rows) != 0 || len(p.queries) != 0 {
		t.Errorf("got %d rows and %d queries, want none", len(rows), len(p.queries))
	}
}

func TestGenerateRows_DegenerateInputs(t *testing.T) {
	size := camera.ImageSize{Width: 640, Height: 480}

	tests := []struct {
		name      string
		projector *fixedProjector
		size      camera.ImageSize
		minimum   float64
		fallback  float64
		object    float64
	}{
		{"zero object radius", &fixedProjector{last: 10, ok: true}, size, 5, 42, 0},
		{"negative object radius", &fixedProjector{last: 10, ok: true}, size, 5, 42, -0.05},
		{"nan object radius", &fixedProjector{last: 10, ok: true}, size, 5, 42, math.NaN()},
		{"infinite object radius", &fixedProjector{last: 10, ok: true}, size, 5, 42, math.Inf(1)},
		{"zero width", &fixedProjector{last: 10, ok: true}, camera.ImageSize{Height: 480}, 5, 42, 0.05},
		{"zero height", &fixedProjector{last: 10, ok: true}, camera.ImageSize{Width: 640}, 5, 42, 0.05},
		{"fallback under minimum", &fixedProjector{ok: false}, size, 5, 4, 0.05},
		{"zero minimum", &fixedProjector{last: 10, ok: true}, size, 0, 42, 0.05},
		{"negative minimum", &fixedProjector{last: 10, ok: true}, size, -1, 42, 0.05},
		{"nan minimum", &fixedProjector{last: 10, ok: true}, size, math.NaN(), 42, 0.05},
		{"nan radius", &fixedProjector{last: math.NaN(), ok: true}, size, 5, 42, 0.05},
		{"infinite radius", &fixedProjector{last: math.Inf(1), ok: true}, size, 5, 42, 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rows := GenerateRows(tt.projector, camera.Horizon{}, tt.size, tt.minimum, tt.fallback, tt.object); len(rows) != 0 {
				t.Errorf("got %d rows, want none", len(rows))
			}
		})
	}
}

// A real camera's radii shrink geometrically towards the horizon; without
// a positive minimum the rows would never reach it.
func TestGenerateRows_InvalidMinimumOnRealCamera(t *testing.T) {
	size := camera.ImageSize{Width: 640, Height: 480}
	m := lookingDown(0.5, 0.3, size)

	for _, minimum := range []float64{0, math.NaN()} {
		p := &countingProjector{RadiusProjector: m}
		rows := GenerateRows(p, m.Horizon, size, minimum, 42, 0.05)
		if len(rows) != 0 || p.queries != 0 {
			t.Errorf("minimum %v: got %d rows and %d queries, want none", minimum, len(rows), p.queries)
		}
	}
}

func TestGenerateRows_StopsWhenCenterStalls(t *testing.T) {
	p := &fixedProjector{last: 1e-300, ok: true}
	size := camera.ImageSize{Width: 640, Height: 480}

	rows := GenerateRows(p, camera.Horizon{}, size, 1e-300, 42, 0.05)
	want := []Row{{Radius: 1e-300, CenterY: 479}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if len(p.queries) != 1 {
		t.Errorf("got %d queries, want 1", len(p.queries))
	}
}

func TestGenerateRows_Deterministic(t *testing.T) {
	size := camera.ImageSize{Width: 640, Height: 480}
	m := lookingDown(0.55, 0.25, size)

	first := GenerateRows(m, m.Horizon, size, 5, 42, 0.05)
	second := GenerateRows(m, m.Horizon, size, 5, 42, 0.05)
	if len(first) == 0 {
		t.Fatal("expected rows")
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("rows differ between runs (-first +second):\n%s", diff)
	}
}

func TestRow_Contains(t *testing.T) {
	tests := []struct {
		row  Row
		y    float64
		want bool
	}{
		{Row{Radius: 10, CenterY: 30}, 20, true},
		{Row{Radius: 10, CenterY: 30}, 40, true},
		{Row{Radius: 10, CenterY: 30}, 40.5, false},
		{Row{Radius: 0, CenterY: 30}, 30, false},
		{Row{Radius: -5, CenterY: 30}, 30, false},
		{Row{Radius: math.Inf(1), CenterY: 30}, 30, false},
	}
	for _, tt := range tests {
		if got := tt.row.Contains(tt.y); got != tt.want {
			t.Errorf("%+v.Contains(%v) = %v, want %v", tt.row, tt.y, got, tt.want)
		}
	}
}
