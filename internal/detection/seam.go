package detection

// Seams are traced through a response buffer of width x height values
// stored row-major without padding. Every visited cell is set to 0, so a
// cell contributes to at most one seam and 0 doubles as the visited mark.

// extraction holds the thresholds and fitting parameters shared by every
// seam of one detector pass.
type extraction struct {
	start         int // |response| needed to seed a seam
	intermediate  int // |response| needed to extend a seam
	minimalLength int
	maxDistance   float64
	refine        bool
	branchFree    bool
	edgeType      EdgeType
}

func matchesThreshold(v, threshold int, positive bool) bool {
	if positive {
		return v >= threshold
	}
	return v <= threshold
}

// followVertical walks from the seed (x, y) one row at a time in direction
// dir (+1 down, -1 up) and records the column of each visited cell in
// positions[y]. threshold carries the seam's sign. At every row the
// strongest qualifying cell among x, x-1 and x+1 is taken, preferring the
// center, then x-1, then x+1 on equal values. Returns the last row reached.
func followVertical(data []int16, width, height, x, y, threshold, dir int, positions []int) int {
	positive := threshold > 0

	data[y*width+x] = 0
	positions[y] = x

	last := y
	for ny := y + dir; ny >= 0 && ny < height; ny += dir {
		row := data[ny*width : (ny+1)*width]

		best, offset, found := threshold, 0, false
		if x < width-1 && matchesThreshold(int(row[x+1]), best, positive) {
			best, offset, found = int(row[x+1]), 1, true
		}
		if x >= 1 && matchesThreshold(int(row[x-1]), best, positive) {
			best, offset, found = int(row[x-1]), -1, true
		}
		if matchesThreshold(int(row[x]), best, positive) {
			offset, found = 0, true
		}
		if !found {
			break
		}

		x += offset
		row[x] = 0
		positions[ny] = x
		last = ny
	}
	return last
}

// followVerticalBranchFree selects the same cells as followVertical using
// 0/1 arithmetic instead of nested comparisons.
func followVerticalBranchFree(data []int16, width, height, x, y, threshold, dir int, positions []int) int {
	sign := 1
	if threshold < 0 {
		sign = -1
	}
	t := threshold * sign

	data[y*width+x] = 0
	positions[y] = x

	last := y
	for ny := y + dir; ny >= 0 && ny < height; ny += dir {
		row := data[ny*width : (ny+1)*width]

		// at the image border the missing neighbour reads the center
		left := int(row[x-b2i(x >= 1)]) * sign
		center := int(row[x]) * sign
		right := int(row[x+b2i(x < width-1)]) * sign

		useCenter := b2i(center >= t && center >= left && center >= right)
		useLeft := b2i(left >= t && left > center && left >= right)
		useRight := b2i(right >= t && right > center && right > left)

		if useCenter+useLeft+useRight == 0 {
			break
		}

		x += useRight - useLeft
		row[x] = 0
		positions[ny] = x
		last = ny
	}
	return last
}

// followHorizontal is followVertical with rows and columns exchanged:
// it walks columns and records the row of each visited cell in positions[x].
func followHorizontal(data []int16, width, height, x, y, threshold, dir int, positions []int) int {
	positive := threshold > 0

	data[y*width+x] = 0
	positions[x] = y

	last := x
	for nx := x + dir; nx >= 0 && nx < width; nx += dir {
		best, offset, found := threshold, 0, false
		if y < height-1 && matchesThreshold(int(data[(y+1)*width+nx]), best, positive) {
			best, offset, found = int(data[(y+1)*width+nx]), 1, true
		}
		if y >= 1 && matchesThreshold(int(data[(y-1)*width+nx]), best, positive) {
			best, offset, found = int(data[(y-1)*width+nx]), -1, true
		}
		if matchesThreshold(int(data[y*width+nx]), best, positive) {
			offset, found = 0, true
		}
		if !found {
			break
		}

		y += offset
		data[y*width+nx] = 0
		positions[nx] = y
		last = nx
	}
	return last
}

// seedThreshold returns the signed continuation threshold and edge sign
// for a seed value, or ok=false when v is too weak to start a seam.
func (e *extraction) seedThreshold(v int16) (threshold int, sign EdgeType, ok bool) {
	value := int(v)
	switch {
	case value >= e.start:
		return e.intermediate, EdgeSignPositive, true
	case -value >= e.start:
		return -e.intermediate, EdgeSignNegative, true
	}
	return 0, 0, false
}

// extractVerticalLines traces seams running down the buffer and appends
// their straight pieces to res. With transposed set, the buffer belongs to
// a transposed frame and the lines are reported in untransposed coordinates.
func (e *extraction) extractVerticalLines(responses []int16, width, height int, transposed bool, res *Result) {
	follow := followVertical
	if e.branchFree {
		follow = followVerticalBranchFree
	}

	positions := make([]int, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			threshold, sign, ok := e.seedThreshold(responses[y*width+x])
			if !ok {
				continue
			}

			last := follow(responses, width, height, x, y, threshold, 1, positions)
			first := follow(responses, width, height, x, y, threshold, -1, positions)

			if last-first+1 > e.minimalLength {
				e.appendLines(res, positions, first, last, transposed, sign)
			}
		}
	}
}

// extractHorizontalLines traces seams running across the buffer.
func (e *extraction) extractHorizontalLines(responses []int16, width, height int, res *Result) {
	positions := make([]int, width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			threshold, sign, ok := e.seedThreshold(responses[y*width+x])
			if !ok {
				continue
			}

			last := followHorizontal(responses, width, height, x, y, threshold, 1, positions)
			first := followHorizontal(responses, width, height, x, y, threshold, -1, positions)

			if last-first+1 > e.minimalLength {
				e.appendLines(res, positions, first, last, true, sign)
			}
		}
	}
}

func (e *extraction) appendLines(res *Result, positions []int, first, last int, majorIsY bool, sign EdgeType) {
	before := len(res.Lines)
	res.Lines = separateStraightLines(positions, first, last, e.minimalLength, e.maxDistance, majorIsY, e.refine, res.Lines)
	for i := 0; i < len(res.Lines)-before; i++ {
		res.Types = append(res.Types, e.edgeType|sign)
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
