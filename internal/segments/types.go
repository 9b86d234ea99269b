// Package segments holds the image segmentation output consumed by the
// candidate stage: vertical scan lines, their classified segments, and the
// set of pixels already claimed by higher-priority detectors.
//
// These types are produced upstream; this package only models them.
package segments

import "fmt"

// EdgeType classifies the luminance edge at a segment boundary.
type EdgeType int

const (
	// Rising is a dark-to-bright transition.
	Rising EdgeType = iota
	// Falling is a bright-to-dark transition.
	Falling
	// ImageBorder marks a segment clipped by the image edge.
	ImageBorder
	// LimitedSegment marks a segment cut short by the maximum length.
	LimitedSegment
)

func (e EdgeType) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	case ImageBorder:
		return "image_border"
	case LimitedSegment:
		return "limited_segment"
	default:
		return fmt.Sprintf("edge(%d)", int(e))
	}
}

// Intensity is the field-color likelihood of a segment.
type Intensity int

const (
	Low Intensity = iota
	High
)

// YCbCr444 is a single full-resolution YCbCr color.
type YCbCr444 struct {
	Y, Cb, Cr uint8
}

// Segment is a run of similar pixels on a vertical scan line, spanning
// rows [Start, End).
type Segment struct {
	Start         uint16
	End           uint16
	StartEdgeType EdgeType
	EndEdgeType   EdgeType
	Color         YCbCr444
	FieldColor    Intensity
}

// Center returns the vertical midpoint of the segment.
func (s Segment) Center() float64 {
	return (float64(s.Start) + float64(s.End)) / 2
}

// Length returns the number of rows covered.
func (s Segment) Length() int {
	return int(s.End) - int(s.Start)
}

// ScanLine is an ordered list of segments at one image column.
type ScanLine struct {
	Position uint16
	Segments []Segment
}

// ScanGrid is the filtered segmentation of one image.
type ScanGrid struct {
	VerticalScanLines []ScanLine
}

// SegmentCount returns the total number of segments over all scan lines.
func (g ScanGrid) SegmentCount() int {
	n := 0
	for _, l := range g.VerticalScanLines {
		n += len(l.Segments)
	}
	return n
}

// Pixel is an integer image coordinate.
type Pixel struct {
	X, Y uint16
}

// ClaimedPixels is the set of segment start pixels already attributed to
// another detector (e.g. field lines). A nil set claims nothing.
type ClaimedPixels map[Pixel]struct{}

// NewClaimedPixels returns a set holding the given pixels.
func NewClaimedPixels(pixels ...Pixel) ClaimedPixels {
	c := make(ClaimedPixels, len(pixels))
	for _, p := range pixels {
		c[p] = struct{}{}
	}
	return c
}

// Claim adds a pixel to the set.
func (c ClaimedPixels) Claim(p Pixel) {
	c[p] = struct{}{}
}

// Contains reports whether p is claimed.
func (c ClaimedPixels) Contains(p Pixel) bool {
	_, ok := c[p]
	return ok
}

