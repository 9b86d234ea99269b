package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// AssetsHost is where the generated pages load echarts from. Point it at
// a local copy for offline use.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// NewScatter builds an interactive chart of f: one point per candidate
// (sized by its radius) and one per row start.
func NewScatter(f Frame) (*charts.Scatter, error) {
	if f.Size.IsEmpty() {
		return nil, ErrEmptyImage
	}
	width, height := float64(f.Size.Width), float64(f.Size.Height)

	candidates := make([]opts.ScatterData, 0, len(f.Grid.Candidates.Circles))
	for _, c := range f.Grid.Candidates.Circles {
		candidates = append(candidates, opts.ScatterData{
			Value:      []interface{}{c.Center.X, c.Center.Y, c.Radius},
			SymbolSize: symbolSize(c.Radius),
		})
	}
	rows := make([]opts.ScatterData, 0, len(f.Grid.Rows))
	for _, r := range f.Grid.Rows {
		rows = append(rows, opts.ScatterData{
			Value:      []interface{}{0, r.CenterY, r.Radius},
			Symbol:     "rect",
			SymbolSize: symbolSize(r.Radius),
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:  "Perspective grid",
			Width:      fmt.Sprintf("%dpx", f.Size.Width+120),
			Height:     fmt.Sprintf("%dpx", f.Size.Height+120),
			AssetsHost: AssetsHost,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s camera", f.Camera),
			Subtitle: fmt.Sprintf("rows=%d candidates=%d horizon=%.1f..%.1f", len(f.Grid.Rows), len(candidates), f.Horizon.LeftY, f.Horizon.RightY),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: 0, Max: width, Name: "u (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: height, Name: "v (px)", Inverse: opts.Bool(true), NameLocation: "middle", NameGap: 35}),
	)
	scatter.AddSeries("candidates", candidates)
	scatter.AddSeries("rows", rows)
	return scatter, nil
}

// symbolSize maps a radius in pixels to an echarts symbol diameter.
func symbolSize(radius float64) int {
	d := int(2 * radius)
	if d < 2 {
		return 2
	}
	return d
}

// WriteHTML renders one chart per frame into a single page.
func WriteHTML(w io.Writer, frames ...Frame) error {
	page := components.NewPage()
	page.PageTitle = "Perspective grid"
	page.AssetsHost = AssetsHost
	for _, f := range frames {
		scatter, err := NewScatter(f)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Camera, err)
		}
		page.AddCharts(scatter)
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
