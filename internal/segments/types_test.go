package segments

import (
	"testing"
)

func TestSegment_CenterAndLength(t *testing.T) {
	s := Segment{Start: 20, End: 51}
	if got := s.Center(); got != 35.5 {
		t.Errorf("Center() = %v, want 35.5", got)
	}
	if got := s.Length(); got != 31 {
		t.Errorf("Length() = %v, want 31", got)
	}
}

func TestClaimedPixels(t *testing.T) {
	var none ClaimedPixels
	if none.Contains(Pixel{X: 1, Y: 2}) {
		t.Error("nil set claims a pixel")
	}

	c := NewClaimedPixels(Pixel{X: 0, Y: 18}, Pixel{X: 42, Y: 5})
	if !c.Contains(Pixel{X: 42, Y: 5}) {
		t.Error("missing claimed pixel (42, 5)")
	}
	if c.Contains(Pixel{X: 5, Y: 42}) {
		t.Error("transposed pixel reported claimed")
	}

	c.Claim(Pixel{X: 110, Y: 45})
	if !c.Contains(Pixel{X: 110, Y: 45}) || len(c) != 3 {
		t.Errorf("after Claim: %v", c)
	}
}

func TestScanGrid_SegmentCount(t *testing.T) {
	g := ScanGrid{VerticalScanLines: []ScanLine{
		{Position: 0, Segments: make([]Segment, 3)},
		{Position: 8},
		{Position: 16, Segments: make([]Segment, 2)},
	}}
	if got := g.SegmentCount(); got != 5 {
		t.Errorf("SegmentCount() = %d, want 5", got)
	}
}

func TestEdgeType_String(t *testing.T) {
	if got := ImageBorder.String(); got != "image_border" {
		t.Errorf("ImageBorder = %q", got)
	}
	if got := EdgeType(9).String(); got != "edge(9)" {
		t.Errorf("EdgeType(9) = %q", got)
	}
}
