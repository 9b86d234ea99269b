// Package render draws perspective grids for offline inspection: PNG
// plots with gonum/plot and interactive HTML with go-echarts.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/perspective.grid/internal/camera"
	"github.com/banshee-data/perspective.grid/internal/perspective"
	"github.com/banshee-data/perspective.grid/internal/pipeline"
)

// ErrEmptyImage is returned when a frame has no image size to draw into.
var ErrEmptyImage = errors.New("render: empty image size")

// Frame is one camera's grid in image coordinates.
type Frame struct {
	Camera  string
	Size    camera.ImageSize
	Horizon camera.Horizon
	Grid    perspective.Output
}

// FramesFromOutput splits a cycle output into one frame per camera.
func FramesFromOutput(out pipeline.Output) []Frame {
	frames := make([]Frame, 0, len(camera.Positions))
	for _, p := range camera.Positions {
		m := out.Matrices.At(p)
		frames = append(frames, Frame{
			Camera:  p.String(),
			Size:    m.ImageSize,
			Horizon: m.Horizon,
			Grid:    out.At(p),
		})
	}
	return frames
}

var (
	rowColor     = color.RGBA{R: 160, G: 160, B: 160, A: 255}
	circleColor  = color.RGBA{R: 220, G: 60, B: 40, A: 255}
	horizonColor = color.RGBA{R: 40, G: 90, B: 220, A: 255}
)

// circleSegments is the polygon resolution used to draw candidate circles.
const circleSegments = 24

// NewPlot builds the plot of f with the image's y axis pointing down.
func NewPlot(f Frame) (*plot.Plot, error) {
	if f.Size.IsEmpty() {
		return nil, ErrEmptyImage
	}
	width, height := float64(f.Size.Width), float64(f.Size.Height)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s camera: %d rows, %d candidates", f.Camera, len(f.Grid.Rows), len(f.Grid.Candidates.Circles))
	p.X.Label.Text = "u (px)"
	p.Y.Label.Text = "v (px)"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	for i, row := range f.Grid.Rows {
		line, err := plotter.NewLine(plotter.XYs{{X: 0, Y: row.CenterY}, {X: width - 1, Y: row.CenterY}})
		if err != nil {
			return nil, err
		}
		line.Color = rowColor
		line.Width = vg.Points(0.5)
		p.Add(line)
		if i == 0 {
			p.Legend.Add("rows", line)
		}
	}

	for i, c := range f.Grid.Candidates.Circles {
		poly, err := plotter.NewPolygon(circleXYs(c.Center.X, c.Center.Y, c.Radius))
		if err != nil {
			return nil, err
		}
		poly.Color = nil
		poly.LineStyle.Color = circleColor
		poly.LineStyle.Width = vg.Points(1)
		p.Add(poly)
		if i == 0 {
			p.Legend.Add("candidates", poly)
		}
	}

	if f.Horizon != (camera.Horizon{}) {
		horizon, err := plotter.NewLine(plotter.XYs{{X: 0, Y: f.Horizon.LeftY}, {X: width - 1, Y: f.Horizon.RightY}})
		if err != nil {
			return nil, err
		}
		horizon.Color = horizonColor
		horizon.Width = vg.Points(1)
		horizon.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(horizon)
		p.Legend.Add("horizon", horizon)
	}

	// Fix the view to the image regardless of what the data spans.
	p.X.Min, p.X.Max = 0, width
	p.Y.Min, p.Y.Max = 0, height
	return p, nil
}

func circleXYs(cx, cy, r float64) plotter.XYs {
	xys := make(plotter.XYs, circleSegments)
	for i := range xys {
		a := 2 * math.Pi * float64(i) / circleSegments
		xys[i] = plotter.XY{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)}
	}
	return xys
}

// plotSize maps image pixels to points, keeping the aspect ratio.
func plotSize(size camera.ImageSize) (vg.Length, vg.Length) {
	return vg.Points(float64(size.Width)), vg.Points(float64(size.Height))
}

// WritePNG renders f as a PNG image to w.
func WritePNG(w io.Writer, f Frame) error {
	p, err := NewPlot(f)
	if err != nil {
		return err
	}
	width, height := plotSize(f.Size)
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to create png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// SavePNG renders f to the file at path; the extension selects the
// format as in plot.Save.
func SavePNG(path string, f Frame) error {
	p, err := NewPlot(f)
	if err != nil {
		return err
	}
	width, height := plotSize(f.Size)
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
