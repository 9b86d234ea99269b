package perspective

import (
	"math"
	"sort"

	"github.com/banshee-data/perspective.grid/internal/frames"
	"github.com/banshee-data/perspective.grid/internal/segments"
)

// Circle is one sampling region of the candidate grid.
type Circle struct {
	Center frames.Point2[frames.Pixel]
	Radius float64
}

// Candidates is the candidate grid of one image: deduplicated circles
// ordered nearest first (descending y), then left to right.
type Candidates struct {
	Circles []Circle
}

// CandidateStats counts what happened to each segment during candidate
// generation.
type CandidateStats struct {
	Segments   int
	Claimed    int
	Unmatched  int
	Duplicates int
	Emitted    int
}

// cell identifies a grid position: row index and column within the row.
type cell struct {
	row    int
	column int
}

// GenerateCandidates snaps every unclaimed segment onto the row grid and
// returns one circle per occupied cell.
func GenerateCandidates(scanLines []segments.ScanLine, claimed segments.ClaimedPixels, rows []Row) Candidates {
	c, _ := generateCandidates(scanLines, claimed, rows)
	return c
}

func generateCandidates(scanLines []segments.ScanLine, claimed segments.ClaimedPixels, rows []Row) (Candidates, CandidateStats) {
	var stats CandidateStats
	occupied := make(map[cell]struct{})
	var circles []Circle

	for _, line := range scanLines {
		x := float64(line.Position)
		for _, segment := range line.Segments {
			stats.Segments++
			if claimed.Contains(segments.Pixel{X: line.Position, Y: segment.Start}) {
				stats.Claimed++
				continue
			}

			index, ok := findMatchingRow(rows, segment.Center())
			if !ok {
				stats.Unmatched++
				continue
			}
			row := rows[index]

			quotient := math.Floor(x / (2 * row.Radius))
			if math.IsNaN(quotient) || quotient > math.MaxInt32 {
				// Radius too small to index columns.
				stats.Unmatched++
				continue
			}
			column := int(quotient)
			key := cell{row: index, column: column}
			if _, dup := occupied[key]; dup {
				stats.Duplicates++
				continue
			}
			occupied[key] = struct{}{}

			circles = append(circles, Circle{
				Center: frames.P2[frames.Pixel](row.Radius+2*row.Radius*float64(column), row.CenterY),
				Radius: row.Radius,
			})
		}
	}

	sort.SliceStable(circles, func(i, j int) bool {
		a, b := circles[i].Center, circles[j].Center
		if a.Y != b.Y {
			return a.Y > b.Y
		}
		return a.X < b.X
	})

	stats.Emitted = len(circles)
	return Candidates{Circles: circles}, stats
}

// findMatchingRow returns the index of the first row containing y.
func findMatchingRow(rows []Row, y float64) (int, bool) {
	for i, row := range rows {
		if row.Contains(y) {
			return i, true
		}
	}
	return 0, false
}
