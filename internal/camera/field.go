package camera

import (
	"github.com/banshee-data/perspective.grid/internal/frames"
)

// FieldDimensions describes the pitch and ball in metres.
type FieldDimensions struct {
	Length            float64
	Width             float64
	PenaltyAreaLength float64
	PenaltyAreaWidth  float64
	BallRadius        float64
}

// DefaultFieldDimensions returns the standard competition pitch.
func DefaultFieldDimensions() FieldDimensions {
	return FieldDimensions{
		Length:            9.0,
		Width:             6.0,
		PenaltyAreaLength: 0.6,
		PenaltyAreaWidth:  2.2,
		BallRadius:        0.05,
	}
}

// ProjectedFieldLines holds known field lines projected into each image,
// used for calibration overlays.
type ProjectedFieldLines struct {
	Top    []frames.Line2[frames.Pixel]
	Bottom []frames.Line2[frames.Pixel]
}

// ProjectPenaltyArea projects the opponent penalty area and goal line
// into the image of m, assuming the robot stands at the field origin
// facing the opponent goal. It returns nil if any corner does not
// project.
func ProjectPenaltyArea(field FieldDimensions, m Matrix) []frames.Line2[frames.Pixel] {
	halfLength := field.Length / 2
	corners := [...]frames.Point2[frames.Ground]{
		frames.P2[frames.Ground](halfLength, field.PenaltyAreaWidth/2),
		frames.P2[frames.Ground](halfLength, -field.PenaltyAreaWidth/2),
		frames.P2[frames.Ground](halfLength-field.PenaltyAreaLength, field.PenaltyAreaWidth/2),
		frames.P2[frames.Ground](halfLength-field.PenaltyAreaLength, -field.PenaltyAreaWidth/2),
		frames.P2[frames.Ground](halfLength, field.Width/2),
		frames.P2[frames.Ground](halfLength, -field.Width/2),
	}

	var px [len(corners)]frames.Point2[frames.Pixel]
	for i, c := range corners {
		p, err := m.GroundToPixel(c)
		if err != nil {
			return nil
		}
		px[i] = p
	}
	topLeft, topRight, bottomLeft, bottomRight, cornerLeft, cornerRight := px[0], px[1], px[2], px[3], px[4], px[5]

	return []frames.Line2[frames.Pixel]{
		{Start: topLeft, End: topRight},
		{Start: bottomLeft, End: bottomRight},
		{Start: bottomLeft, End: topLeft},
		{Start: bottomRight, End: topRight},
		{Start: cornerLeft, End: cornerRight},
	}
}
