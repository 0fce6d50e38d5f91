package detection

import (
	"math"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/line-detector-mcp/internal/imaging"
)

// The floating point RMS detectors compute unsquared responses with
// floating point means and residuals. They are slower than the integer
// detectors and exist to validate them; thresholds apply unchanged.

// maxRMSStepResponseF is the largest magnitude of an RMS step float response, about sqrt(2^15).
const maxRMSStepResponseF = 181

// residualF returns sqrt(n*sqr - sum²) with the radicand rounded to float32.
func residualF(n, sum, sqr int64) float64 {
	return math.Sqrt(float64(float32(n*sqr - sum*sum)))
}

func rmsBarFRow(row []uint8, window, minimalDelta int, sums, sqrSums []uint32, out []int16) {
	clear(out)

	width := len(row)
	w1 := window + barSize/2
	ww := float64(2 * window)

	for x := w1; x < width-w1; x++ {
		sumL, sumR := int64(sums[x-w1]), int64(sums[x+2])
		sqrL, sqrR := int64(sqrSums[x-w1]), int64(sqrSums[x+2])

		avgL := float64(sumL) / float64(window)
		avgR := float64(sumR) / float64(window)
		avg := (avgL + avgR) * 0.5

		v := float64(row[x])
		if !((v < avgL && v < avgR) || (v > avgL && v > avgR)) {
			continue
		}

		res := max(1, residualF(int64(2*window), sumL+sumR, sqrL+sqrR)/ww)

		cen := v - avg
		cenPlus := float64(row[x+1]) - avg
		cenMinus := float64(row[x-1]) - avg
		sign := 1.0
		if cen < 0 {
			sign = -1
			cen, cenPlus, cenMinus = -cen, -cenPlus, -cenMinus
		}

		// equal neighbours: the right one wins
		cenPlus += 1e-4
		cenPlus = max(cenMinus, cenPlus)
		if cen < cenPlus {
			cen = 0
		} else {
			cen = (cen + cenPlus) / 2
		}

		if math.Abs(cen) < float64(minimalDelta) {
			continue
		}
		out[x] = clampInt16(int64(math.Round(sign * 16 * math.Abs(cen) / res)))
	}
}

func rmsBarFVertical(d EdgeDetector, f *imaging.Frame, responses []int16) {
	width := f.Width
	parallel.Line(f.Height, func(start, end int) {
		sums := make([]uint32, width-d.window+1)
		sqrSums := make([]uint32, width-d.window+1)

		for y := start; y < end; y++ {
			row := f.Row(y)
			determineRowSumsAndSquares(row, d.window, sums, sqrSums)
			rmsBarFRow(row, d.window, d.minimalDelta, sums, sqrSums, responses[y*width:(y+1)*width])
		}
	})
}

// rmsStepFRow writes unsuppressed responses for x in [window, width-window),
// then keeps the local extrema in [window+1, width-window-1).
func rmsStepFRow(window int, sums, sqrSums []uint32, out []int16) {
	clear(out)

	width := len(out)
	w := float64(window)
	for x := window; x < width-window; x++ {
		sumL, sumR := int64(sums[x-window]), int64(sums[x+1])
		sqrL, sqrR := int64(sqrSums[x-window]), int64(sqrSums[x+1])

		avgL := float64(sumL) / w
		avgR := float64(sumR) / w

		resL := residualF(int64(window), sumL, sqrL)
		resR := residualF(int64(window), sumR, sqrR)
		res := max(1, (resL+resR)/(2*w))

		r := int64((avgL - avgR) * 4 / res)
		out[x] = int16(min(maxRMSStepResponseF, max(-maxRMSStepResponseF, r)))
	}

	first, end := window+1, width-window-1
	if end <= first {
		clear(out)
		return
	}
	suppressNonMaxima(out, 1, first, end)
	out[end] = 0
}

func rmsStepFVertical(d EdgeDetector, f *imaging.Frame, responses []int16) {
	width := f.Width
	parallel.Line(f.Height, func(start, end int) {
		sums := make([]uint32, width-d.window+1)
		sqrSums := make([]uint32, width-d.window+1)

		for y := start; y < end; y++ {
			determineRowSumsAndSquares(f.Row(y), d.window, sums, sqrSums)
			rmsStepFRow(d.window, sums, sqrSums, responses[y*width:(y+1)*width])
		}
	})
}
