package detection

import (
	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/line-detector-mcp/internal/imaging"
)

// rmsStepResponse returns the squared RMS step response between the window
// ending just before a pixel (sumL, sqrL) and the window starting just after
// it (sumR, sqrR). Positive when the first window is brighter.
func rmsStepResponse(window, sumL, sumR, sqrL, sqrR int) int16 {
	w := int64(window)
	residualL := w*int64(sqrL) - int64(sumL)*int64(sumL)
	residualR := w*int64(sqrR) - int64(sumR)*int64(sumR)

	// both residuals floored at 1 (times window²)
	residual := max(residualL+residualR, 2*w*w)

	delta := int64(sumL - sumR)
	response := (delta*delta*32 + residual/2) / residual
	if delta < 0 {
		response = -response
	}
	return clampInt16(response)
}

// rmsStepRow fills out for one row, followed by non-maximum suppression.
// Responses exist for x in [window, width-window).
func rmsStepRow(row []uint8, window int, sums []uint16, sqrSums []uint32, out []int16) {
	clear(out)

	width := len(row)
	for x := window; x < width-window; x++ {
		l, r := x-window, x+1
		out[x] = rmsStepResponse(window, int(sums[l]), int(sums[r]), int(sqrSums[l]), int(sqrSums[r]))
	}

	suppressNonMaxima(out, 1, window, width-window)
}

func rmsStepVertical(d EdgeDetector, f *imaging.Frame, responses []int16) {
	width := f.Width
	parallel.Line(f.Height, func(start, end int) {
		sums := make([]uint16, width-d.window+1)
		sqrSums := make([]uint32, width-d.window+1)

		for y := start; y < end; y++ {
			row := f.Row(y)
			determineRowSumsAndSquares(row, d.window, sums, sqrSums)
			rmsStepRow(row, d.window, sums, sqrSums, responses[y*width:(y+1)*width])
		}
	})
}

func rmsStepHasHorizontal(d EdgeDetector, width, height int) bool {
	return width >= 8 && height >= 2*d.window+1
}

// rmsStepHorizontal slides the window above (rows [y-window, y-1]) and the
// window below (rows [y+1, y+window]) down each column strip, then
// suppresses non-maxima along every column of the strip.
func rmsStepHorizontal(d EdgeDetector, f *imaging.Frame, responses []int16) {
	width, height, window := f.Width, f.Height, d.window

	parallel.Line(width, func(x0, x1 int) {
		n := x1 - x0
		top, topSqr := make([]uint16, n), make([]uint32, n)
		bottom, bottomSqr := make([]uint16, n), make([]uint32, n)

		clearRows(responses, width, 0, window, x0, x1)
		clearRows(responses, width, height-window, height, x0, x1)

		for y := 0; y < window; y++ {
			applyRowSumAndSquares(f.Row(y)[x0:x1], top, topSqr, true)
		}
		for y := window + 1; y <= 2*window; y++ {
			applyRowSumAndSquares(f.Row(y)[x0:x1], bottom, bottomSqr, true)
		}

		for y := window; y < height-window; y++ {
			if y > window {
				applyRowSumAndSquares(f.Row(y-window-1)[x0:x1], top, topSqr, false)
				applyRowSumAndSquares(f.Row(y-1)[x0:x1], top, topSqr, true)
				applyRowSumAndSquares(f.Row(y)[x0:x1], bottom, bottomSqr, false)
				applyRowSumAndSquares(f.Row(y+window)[x0:x1], bottom, bottomSqr, true)
			}

			out := responses[y*width+x0 : y*width+x1]
			for i := range out {
				out[i] = rmsStepResponse(window, int(top[i]), int(bottom[i]), int(topSqr[i]), int(bottomSqr[i]))
			}
		}

		for x := x0; x < x1; x++ {
			suppressNonMaxima(responses[x:], width, window, height-window)
		}
	})
}
