package detection

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r2"
)

// EdgeType is a bitmask describing a detected line: the kind of edge that
// produced it and the polarity of its responses.
type EdgeType uint8

const (
	// EdgeBar marks a thin line with similar background on both sides.
	EdgeBar EdgeType = 1 << iota
	// EdgeStep marks a boundary between two differently shaded regions.
	EdgeStep
	// EdgeSignPositive marks a bright bar or a step from bright (left/top) to dark.
	EdgeSignPositive
	// EdgeSignNegative marks a dark bar or a step from dark (left/top) to bright.
	EdgeSignNegative
)

// Kind returns only the bar/step bits.
func (t EdgeType) Kind() EdgeType { return t & (EdgeBar | EdgeStep) }

// Sign returns only the polarity bits.
func (t EdgeType) Sign() EdgeType { return t & (EdgeSignPositive | EdgeSignNegative) }

// String renders the type as "bar+", "step-" and so on.
func (t EdgeType) String() string {
	var b strings.Builder
	switch t.Kind() {
	case EdgeBar:
		b.WriteString("bar")
	case EdgeStep:
		b.WriteString("step")
	case EdgeBar | EdgeStep:
		b.WriteString("bar|step")
	default:
		b.WriteString("unknown")
	}
	switch t.Sign() {
	case EdgeSignPositive:
		b.WriteByte('+')
	case EdgeSignNegative:
		b.WriteByte('-')
	}
	return b.String()
}

// ScanDirection selects which edge orientations DetectLines looks for.
type ScanDirection uint8

const (
	// ScanVertical finds edges whose gradient runs along a row, i.e. vertical lines.
	ScanVertical ScanDirection = 1 << iota
	// ScanHorizontal finds edges whose gradient runs along a column, i.e. horizontal lines.
	ScanHorizontal
	// ScanBoth runs both passes.
	ScanBoth = ScanVertical | ScanHorizontal
)

// ParseScanDirection accepts "vertical", "horizontal" or "both".
func ParseScanDirection(s string) (ScanDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical":
		return ScanVertical, nil
	case "horizontal":
		return ScanHorizontal, nil
	case "both", "":
		return ScanBoth, nil
	}
	return 0, fmt.Errorf("%w: unknown scan direction %q", ErrInvalidParameter, s)
}

func (d ScanDirection) String() string {
	switch d {
	case ScanVertical:
		return "vertical"
	case ScanHorizontal:
		return "horizontal"
	case ScanBoth:
		return "both"
	}
	return fmt.Sprintf("ScanDirection(%d)", uint8(d))
}

// FiniteLine is a straight segment between two points in image coordinates.
type FiniteLine struct {
	Start r2.Point
	End   r2.Point
}

// NewFiniteLine builds a segment from raw coordinates.
func NewFiniteLine(x1, y1, x2, y2 float64) FiniteLine {
	return FiniteLine{Start: r2.Point{X: x1, Y: y1}, End: r2.Point{X: x2, Y: y2}}
}

// Length returns the Euclidean distance between the end points.
func (l FiniteLine) Length() float64 {
	return l.End.Sub(l.Start).Norm()
}

// AngleDegrees returns the direction from Start to End, 0 = rightward, 90 = downward.
func (l FiniteLine) AngleDegrees() float64 {
	d := l.End.Sub(l.Start)
	return math.Atan2(d.Y, d.X) * 180 / math.Pi
}

// Translate shifts both end points by (dx, dy).
func (l FiniteLine) Translate(dx, dy float64) FiniteLine {
	off := r2.Point{X: dx, Y: dy}
	return FiniteLine{Start: l.Start.Add(off), End: l.End.Add(off)}
}

// Result holds the lines found by DetectLines. Types is parallel to Lines.
type Result struct {
	Lines []FiniteLine
	Types []EdgeType
}

// Len returns the number of lines.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Lines)
}
