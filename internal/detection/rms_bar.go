package detection

import (
	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/line-detector-mcp/internal/imaging"
)

// barSize is the width of the center bar of the bar detectors.
const barSize = 3

// rmsBarResponse returns the squared RMS bar response of one center pixel.
//
// minus, center and plus are the three bar pixels. sumL/sqrL and sumR/sqrR
// are the sums and squared sums of the windows on either side, separated
// from center by one pixel. The response is the squared ratio between the
// bar's peak deviation from the background mean and the background residual,
// scaled by 64, negative for dark bars.
func rmsBarResponse(window, minimalDeltaArea2 int, minus, center, plus uint8, sumL, sumR, sqrL, sqrR int) int16 {
	// the center must lie strictly above or below both side windows
	valueWindow := int(center) * window
	if !((valueWindow < sumL && valueWindow < sumR) || (valueWindow > sumL && valueWindow > sumR)) {
		return 0
	}

	area := 2 * window
	sum := sumL + sumR

	// area² * variance of the background, floored at a residual of 1
	residual := int64(area)*int64(sqrL+sqrR) - int64(sum)*int64(sum)
	residual = max(residual, int64(area*area))

	valueMinus := int(minus)*area - sum
	valueCenter := int(center)*area - sum
	valuePlus := int(plus)*area - sum

	var peak int
	dark := valueCenter < 0
	if dark {
		if valueMinus < valueCenter || valueCenter >= valuePlus {
			return 0
		}
		peak = valueCenter + min(valueMinus, valuePlus)
	} else {
		if valueMinus > valueCenter || valueCenter <= valuePlus {
			return 0
		}
		peak = valueCenter + max(valueMinus, valuePlus)
	}

	if abs(peak) < minimalDeltaArea2 {
		return 0
	}

	p := int64(peak)
	response := (p*p*64 + residual/2) / residual
	if dark {
		response = -response
	}
	return clampInt16(response)
}

// rmsBarRow fills out for one row. Responses exist for x in
// [window+1, width-window-1); everything else is zeroed.
func rmsBarRow(row []uint8, window, minimalDelta int, sums []uint16, sqrSums []uint32, out []int16) {
	clear(out)

	w1 := window + barSize/2
	minimalDeltaArea2 := minimalDelta * 2 * window * 2

	for x := w1; x < len(row)-w1; x++ {
		l, r := x-w1, x+2
		out[x] = rmsBarResponse(window, minimalDeltaArea2, row[x-1], row[x], row[x+1],
			int(sums[l]), int(sums[r]), int(sqrSums[l]), int(sqrSums[r]))
	}
}

func rmsBarVertical(d EdgeDetector, f *imaging.Frame, responses []int16) {
	width := f.Width
	parallel.Line(f.Height, func(start, end int) {
		sums := make([]uint16, width-d.window+1)
		sqrSums := make([]uint32, width-d.window+1)

		for y := start; y < end; y++ {
			row := f.Row(y)
			determineRowSumsAndSquares(row, d.window, sums, sqrSums)
			rmsBarRow(row, d.window, d.minimalDelta, sums, sqrSums, responses[y*width:(y+1)*width])
		}
	})
}

func rmsBarHasHorizontal(d EdgeDetector, width, height int) bool {
	return width >= 8 && height >= 2*d.window+barSize
}

// rmsBarHorizontal scans columns directly. Each worker owns a strip of
// columns and slides running sums of the window above (rows
// [y-window-1, y-2]) and the window below (rows [y+2, y+window+1]) down
// the strip, one row in and one row out per step.
func rmsBarHorizontal(d EdgeDetector, f *imaging.Frame, responses []int16) {
	width, height, window := f.Width, f.Height, d.window
	w1 := window + barSize/2
	minimalDeltaArea2 := d.minimalDelta * 2 * window * 2

	parallel.Line(width, func(x0, x1 int) {
		n := x1 - x0
		top, topSqr := make([]uint16, n), make([]uint32, n)
		bottom, bottomSqr := make([]uint16, n), make([]uint32, n)

		clearRows(responses, width, 0, w1, x0, x1)
		clearRows(responses, width, height-w1, height, x0, x1)

		for y := 0; y < window; y++ {
			applyRowSumAndSquares(f.Row(y)[x0:x1], top, topSqr, true)
		}
		for y := w1 + 2; y < w1+2+window; y++ {
			applyRowSumAndSquares(f.Row(y)[x0:x1], bottom, bottomSqr, true)
		}

		for y := w1; y < height-w1; y++ {
			if y > w1 {
				applyRowSumAndSquares(f.Row(y-w1-1)[x0:x1], top, topSqr, false)
				applyRowSumAndSquares(f.Row(y-2)[x0:x1], top, topSqr, true)
				applyRowSumAndSquares(f.Row(y+1)[x0:x1], bottom, bottomSqr, false)
				applyRowSumAndSquares(f.Row(y+window+1)[x0:x1], bottom, bottomSqr, true)
			}

			above, center, below := f.Row(y - 1)[x0:x1], f.Row(y)[x0:x1], f.Row(y + 1)[x0:x1]
			out := responses[y*width+x0 : y*width+x1]
			for i := range out {
				out[i] = rmsBarResponse(window, minimalDeltaArea2, above[i], center[i], below[i],
					int(top[i]), int(bottom[i]), int(topSqr[i]), int(bottomSqr[i]))
			}
		}
	})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
