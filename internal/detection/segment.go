package detection

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// chainSpan is an inclusive index range of a pixel chain.
type chainSpan struct {
	first, last int
}

// separateStraightLines splits the chain positions[first..last] into
// straight pieces and appends one segment per piece to lines.
//
// positions is indexed by the minor (scan) coordinate and holds the major
// coordinate. A piece is accepted when no interior sample lies farther than
// maxOffset from the line through its end samples; otherwise it is split
// at the farthest sample, which then belongs to both halves. Pieces with
// length <= minimalLength are dropped. Output order is left to right.
//
// With majorIsY unset the segments are (major, minor) points, i.e. the
// chain ran down a column; with majorIsY set they are (minor, major).
func separateStraightLines(positions []int, first, last, minimalLength int, maxOffset float64, majorIsY, refine bool, lines []FiniteLine) []FiniteLine {
	stack := []chainSpan{{first, last}}

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		length := s.last - s.first + 1
		if length <= minimalLength || length < 2 {
			continue
		}

		worst, worstIndex := maxDeviation(positions, s.first, s.last)
		if worst <= maxOffset {
			lines = append(lines, fitSegment(positions, s.first, s.last, majorIsY, refine))
			continue
		}

		// right half first so the left half is popped next
		stack = append(stack, chainSpan{worstIndex, s.last}, chainSpan{s.first, worstIndex})
	}

	return lines
}

// maxDeviation returns the largest perpendicular distance of an interior
// sample from the line through the end samples, and that sample's index.
// The earliest index wins ties. Returns (0, -1) for chains without interior samples.
func maxDeviation(positions []int, first, last int) (float64, int) {
	startMajor := float64(positions[first])
	slope := float64(positions[last]-positions[first]) / float64(last-first)

	// offsets are measured along the major axis; all share the same
	// projection factor onto the normal of the ideal line
	normal := 1 / math.Sqrt(1+slope*slope)

	worst, worstIndex := 0.0, -1
	for i := first + 1; i < last; i++ {
		ideal := startMajor + slope*float64(i-first)
		offset := math.Abs(float64(positions[i])-ideal) * normal
		if offset > worst {
			worst, worstIndex = offset, i
		}
	}
	return worst, worstIndex
}

// fitSegment turns an accepted chain into a segment spanning its minor
// range. With refine set the major coordinates of both ends come from a
// least squares fit of major against minor.
func fitSegment(positions []int, first, last int, majorIsY, refine bool) FiniteLine {
	startMinor, endMinor := float64(first), float64(last)
	startMajor, endMajor := float64(positions[first]), float64(positions[last])

	if refine {
		n := last - first + 1
		xs := make([]float64, n)
		ys := make([]float64, n)
		for i := 0; i < n; i++ {
			xs[i] = float64(i)
			ys[i] = float64(positions[first+i]) - startMajor
		}

		alpha, beta := stat.LinearRegression(xs, ys, nil, false)
		endMajor = startMajor + alpha + beta*float64(last-first)
		startMajor += alpha
	}

	if majorIsY {
		return NewFiniteLine(startMinor, startMajor, endMinor, endMajor)
	}
	return NewFiniteLine(startMajor, startMinor, endMajor, endMinor)
}
