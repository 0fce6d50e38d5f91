package detection

import "math"

// suppressNonMaxima applies 3-neighbour non-maximum suppression to the
// samples line[i*stride] for i in [first, end).
//
// A positive response survives only if it is strictly greater than its
// predecessor and not smaller than its successor; negative responses
// mirror that. Decisions always read unsuppressed neighbours: each result
// is written one step late, after the next position has been read.
// line[(first-1)*stride] is overwritten with 0.
func suppressNonMaxima(line []int16, stride, first, end int) {
	if end <= first {
		return
	}

	var delayed int16
	for i := first; i < end; i++ {
		p := i * stride
		left, center, right := line[p-stride], line[p], line[p+stride]

		line[p-stride] = delayed

		if (center > 0 && (center <= left || center < right)) || (center < 0 && (center >= left || center > right)) {
			delayed = 0
		} else {
			delayed = center
		}
	}
	line[(end-1)*stride] = delayed
}

func clampInt16(v int64) int16 {
	if v < math.MinInt16 {
		return math.MinInt16
	}
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(v)
}

// clearRows zeroes rows [from, to) of a width-wide response buffer within columns [x0, x1).
func clearRows(responses []int16, width, from, to, x0, x1 int) {
	for y := max(from, 0); y < to; y++ {
		clear(responses[y*width+x0 : y*width+x1])
	}
}
