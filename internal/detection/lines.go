package detection

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/line-detector-mcp/internal/imaging"
	"github.com/ironsheep/line-detector-mcp/internal/logger"
)

const (
	// MinimalFrameSize is the smallest width and height DetectLines processes.
	MinimalFrameSize = 20

	// MaxThreshold is the largest accepted threshold. Responses are 16 bit,
	// so nothing above it could ever seed a seam.
	MaxThreshold = math.MaxInt16

	// MaxFramePixels bounds the response buffer allocated per call.
	MaxFramePixels = 1 << 28
)

// Options controls DetectLines.
type Options struct {
	// Threshold is the minimal response strength, in caller units, that
	// starts a seam. Each detector maps it to its own units; seams are
	// extended down to the mapped value of (Threshold+1)/2.
	Threshold uint

	// MinimalLength is the number of chain pixels a seam, and every straight
	// piece of it, must exceed.
	MinimalLength uint

	// MaximalStraightLineDistance is the largest distance, in pixels, a chain
	// pixel may lie from the segment approximating it.
	MaximalStraightLineDistance float64

	ScanDirection ScanDirection

	// RawEndpoints skips the least squares refinement and reports the first
	// and last chain pixels as segment end points.
	RawEndpoints bool

	// BranchFreeFollower traces vertical seams with the arithmetic follower.
	BranchFreeFollower bool
}

// DefaultOptions returns threshold 50, minimal length 20, distance 1.6, both directions.
func DefaultOptions() Options {
	return Options{
		Threshold:                   50,
		MinimalLength:               20,
		MaximalStraightLineDistance: 1.6,
		ScanDirection:               ScanBoth,
	}
}

// DetectLines finds straight line segments in f with each detector in turn.
//
// Lines of all detectors are appended in detector order without merging,
// and Result.Types carries one tag per line. Frames smaller than
// MinimalFrameSize in either dimension, an empty detector list, a window
// that does not fit the scanned axis, and out of range options all yield
// an empty result and a nil error. The only error is ErrFrameTooLarge.
//
// f is only read. Horizontal passes of detectors without a column path
// run on a transposed copy of f, built at most once per call.
func DetectLines(f *imaging.Frame, detectors []EdgeDetector, opts Options) (*Result, error) {
	res := &Result{}

	// judged from the header alone, before the pixel buffer is validated
	if !f.Empty() && int64(f.Width)*int64(f.Height) > MaxFramePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrFrameTooLarge, f.Width, f.Height, MaxFramePixels)
	}

	if reason := rejectInput(f, detectors, opts); reason != "" {
		fields := logrus.Fields{"reason": reason, "detectors": len(detectors)}
		if f != nil {
			fields["width"], fields["height"] = f.Width, f.Height
		}
		logger.WithFields(fields).Debug("line detection skipped")
		return res, nil
	}

	responses := make([]int16, f.Width*f.Height)
	transposed := lazyTranspose{src: f}

	for _, d := range detectors {
		ex := &extraction{
			start:         thresholdInt(d.AdjustThreshold(opts.Threshold)),
			intermediate:  thresholdInt(d.AdjustThreshold((opts.Threshold + 1) / 2)),
			minimalLength: int(min(opts.MinimalLength, math.MaxInt32)),
			maxDistance:   opts.MaximalStraightLineDistance,
			refine:        !opts.RawEndpoints,
			branchFree:    opts.BranchFreeFollower,
			edgeType:      d.EdgeType(),
		}
		before := res.Len()

		if opts.ScanDirection&ScanVertical != 0 {
			kernels[d.kind].invokeVertical(d, f, responses)
			ex.extractVerticalLines(responses, f.Width, f.Height, false, res)
		}

		if opts.ScanDirection&ScanHorizontal != 0 {
			if d.HasInvokeHorizontal(f.Width, f.Height) {
				kernels[d.kind].invokeHorizontal(d, f, responses)
				ex.extractHorizontalLines(responses, f.Width, f.Height, res)
			} else {
				t := transposed.get()
				kernels[d.kind].invokeVertical(d, t, responses)
				ex.extractVerticalLines(responses, t.Width, t.Height, true, res)
			}
		}

		logger.WithFields(logrus.Fields{
			"detector":               d.String(),
			"start_threshold":        ex.start,
			"intermediate_threshold": ex.intermediate,
			"lines":                  res.Len() - before,
		}).Debug("detector pass finished")
	}

	logger.WithFields(logrus.Fields{
		"lines":      res.Len(),
		"transposes": transposed.builds,
	}).Debug("line detection finished")

	return res, nil
}

// lazyTranspose builds the transposed frame on first use and reuses it.
type lazyTranspose struct {
	src    *imaging.Frame
	frame  *imaging.Frame
	builds int
}

func (l *lazyTranspose) get() *imaging.Frame {
	if l.frame == nil {
		l.frame = l.src.Transposed()
		l.builds++
	}
	return l.frame
}

// rejectInput returns why the input cannot be processed, or "" when it can.
func rejectInput(f *imaging.Frame, detectors []EdgeDetector, opts Options) string {
	switch {
	case f.Empty():
		return "empty frame"
	case f.Width < MinimalFrameSize || f.Height < MinimalFrameSize:
		return fmt.Sprintf("frame smaller than %dx%d", MinimalFrameSize, MinimalFrameSize)
	case len(f.Pix) < (f.Height-1)*f.StrideElements()+f.Width:
		return "pixel buffer shorter than frame"
	case len(detectors) == 0:
		return "no detectors"
	case opts.Threshold == 0 || opts.Threshold > MaxThreshold:
		return fmt.Sprintf("threshold %d outside [1, %d]", opts.Threshold, MaxThreshold)
	case opts.MaximalStraightLineDistance < 0 || math.IsNaN(opts.MaximalStraightLineDistance):
		return "negative maximal straight line distance"
	case opts.ScanDirection&ScanBoth == 0:
		return "no scan direction"
	}

	for _, d := range detectors {
		if !d.Valid() {
			return fmt.Sprintf("detector %v was not constructed", d)
		}
		if opts.ScanDirection&ScanVertical != 0 && d.window >= f.Width {
			return fmt.Sprintf("window %d does not fit width %d", d.window, f.Width)
		}
		if opts.ScanDirection&ScanHorizontal != 0 && d.window >= f.Height {
			return fmt.Sprintf("window %d does not fit height %d", d.window, f.Height)
		}
	}
	return ""
}

func thresholdInt(t uint) int {
	return int(min(t, math.MaxInt32))
}
