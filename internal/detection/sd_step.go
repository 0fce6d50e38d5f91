package detection

import (
	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/line-detector-mcp/internal/imaging"
)

// sdStepRow writes sum(left window) - sum(right window) with stepSize pixels
// between the windows, then suppresses non-maxima.
// Response i sits at x = window + stepSize/2 + i.
func sdStepRow(width, window, stepSize int, sums []uint16, out []int16) {
	clear(out)

	offset := window + stepSize/2
	count := width - 2*offset
	for i := 0; i < count; i++ {
		out[offset+i] = int16(int(sums[i]) - int(sums[i+window+stepSize]))
	}

	suppressNonMaxima(out, 1, offset, width-offset)
}

func sdStepVertical(d EdgeDetector, f *imaging.Frame, responses []int16) {
	width := f.Width
	parallel.Line(f.Height, func(start, end int) {
		sums := make([]uint16, width-d.window+1)

		for y := start; y < end; y++ {
			determineRowSums(f.Row(y), d.window, sums)
			sdStepRow(width, d.window, d.stepSize, sums, responses[y*width:(y+1)*width])
		}
	})
}

func sdStepHasHorizontal(d EdgeDetector, width, height int) bool {
	return width >= 8 && height >= 2*d.window+d.stepSize
}

// sdStepHorizontal slides the upper window (rows [y-offset, y-offset+window-1])
// and the lower window (starting window+stepSize rows further down) along
// each column strip.
func sdStepHorizontal(d EdgeDetector, f *imaging.Frame, responses []int16) {
	width, height := f.Width, f.Height
	window, stepSize := d.window, d.stepSize
	offset := window + stepSize/2
	gap := window + stepSize

	parallel.Line(width, func(x0, x1 int) {
		n := x1 - x0
		top, bottom := make([]uint16, n), make([]uint16, n)

		clearRows(responses, width, 0, offset, x0, x1)
		clearRows(responses, width, height-offset, height, x0, x1)

		for y := 0; y < window; y++ {
			applyRowSum(f.Row(y)[x0:x1], top, true)
			applyRowSum(f.Row(y + gap)[x0:x1], bottom, true)
		}

		for i := 0; i < height-2*offset; i++ {
			if i > 0 {
				applyRowSum(f.Row(i-1)[x0:x1], top, false)
				applyRowSum(f.Row(i+window-1)[x0:x1], top, true)
				applyRowSum(f.Row(i-1+gap)[x0:x1], bottom, false)
				applyRowSum(f.Row(i+window-1+gap)[x0:x1], bottom, true)
			}

			y := offset + i
			out := responses[y*width+x0 : y*width+x1]
			for k := range out {
				out[k] = int16(int(top[k]) - int(bottom[k]))
			}
		}

		for x := x0; x < x1; x++ {
			suppressNonMaxima(responses[x:], width, offset, height-offset)
		}
	})
}
