package perspective

import (
	"github.com/banshee-data/perspective.grid/internal/camera"
	"github.com/banshee-data/perspective.grid/internal/monitoring"
	"github.com/banshee-data/perspective.grid/internal/segments"
)

// Parameters are the per-camera tuning values, read fresh every cycle.
type Parameters struct {
	// ObjectRadius is the real ball radius in metres.
	ObjectRadius float64
	// FallbackRadius is used for rows whose projection fails, in pixels.
	FallbackRadius float64
	// MinimumRadius stops row generation once circles get this small.
	MinimumRadius float64
}

// Inputs is one cycle's data for a single camera.
type Inputs struct {
	Camera    camera.Matrix
	ScanGrid  segments.ScanGrid
	Claimed   segments.ClaimedPixels
	ImageSize camera.ImageSize
}

// Output is what the provider publishes for one camera per cycle.
type Output struct {
	Rows       []Row
	Candidates Candidates
	Stats      CandidateStats
}

// Provider produces the perspective grid candidates of one camera.
type Provider struct {
	instance string
}

// NewProvider returns a provider labelled with its camera instance name,
// which only appears in logs.
func NewProvider(instance string) *Provider {
	return &Provider{instance: instance}
}

// Cycle generates rows from the camera's horizon and projection, then
// maps the scan grid onto them.
func (p *Provider) Cycle(in Inputs, params Parameters) Output {
	size := in.ImageSize
	if size.IsEmpty() {
		size = in.Camera.ImageSize
	}

	rows := GenerateRows(in.Camera, in.Camera.Horizon, size, params.MinimumRadius, params.FallbackRadius, params.ObjectRadius)
	candidates, stats := generateCandidates(in.ScanGrid.VerticalScanLines, in.Claimed, rows)

	monitoring.Tracef("%s: rows=%d segments=%d claimed=%d unmatched=%d duplicates=%d candidates=%d",
		p.instance, len(rows), in.ScanGrid.SegmentCount(), stats.Claimed, stats.Unmatched, stats.Duplicates, stats.Emitted)
	if len(rows) == 0 {
		monitoring.Diagf("%s: no rows (horizon left=%.1f right=%.1f, size=%dx%d)",
			p.instance, in.Camera.Horizon.LeftY, in.Camera.Horizon.RightY, size.Width, size.Height)
	}

	return Output{Rows: rows, Candidates: candidates, Stats: stats}
}
