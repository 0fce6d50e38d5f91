package detection

import (
	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/line-detector-mcp/internal/imaging"
)

// adBarResponse compares the 3-pixel bar sum with each side window. Both
// differences must exceed 10 grey levels per pixel in the same direction;
// the response is their mean.
func adBarResponse(window int, minus, center, plus uint8, sumL, sumR int) int16 {
	bar := (int(minus) + int(center) + int(plus)) * window
	deltaL := bar - sumL*barSize
	deltaR := bar - sumR*barSize

	threshold := 10 * window * barSize
	if (deltaL >= threshold && deltaR >= threshold) || (deltaL <= -threshold && deltaR <= -threshold) {
		return clampInt16(int64((deltaL + deltaR) / 2))
	}
	return 0
}

func adBarRow(row []uint8, window int, sums []uint32, out []int16) {
	clear(out)

	w1 := window + barSize/2
	for x := w1; x < len(row)-w1; x++ {
		out[x] = adBarResponse(window, row[x-1], row[x], row[x+1], int(sums[x-w1]), int(sums[x+2]))
	}
}

func adBarVertical(d EdgeDetector, f *imaging.Frame, responses []int16) {
	width := f.Width
	parallel.Line(f.Height, func(start, end int) {
		sums := make([]uint32, width-d.window+1)

		for y := start; y < end; y++ {
			row := f.Row(y)
			determineRowSums(row, d.window, sums)
			adBarRow(row, d.window, sums, responses[y*width:(y+1)*width])
		}
	})
}
