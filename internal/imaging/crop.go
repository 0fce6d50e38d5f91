package imaging

import (
	"fmt"
)

// Region is a rectangle in pixel coordinates. (X1, Y1) is inclusive and
// (X2, Y2) is exclusive.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns X2-X1.
func (r Region) Width() int { return r.X2 - r.X1 }

// Height returns Y2-Y1.
func (r Region) Height() int { return r.Y2 - r.Y1 }

// Crop returns a view of region r of f without copying pixels.
// The columns outside the region become row padding of the returned frame.
func Crop(f *Frame, r Region) (*Frame, error) {
	if r.X1 < 0 || r.Y1 < 0 || r.X2 > f.Width || r.Y2 > f.Height {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (0,0)-(%d,%d)",
			r.X1, r.Y1, r.X2, r.Y2, f.Width, f.Height)
	}
	if r.X1 >= r.X2 || r.Y1 >= r.Y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	stride := f.StrideElements()
	start := r.Y1*stride + r.X1
	return &Frame{
		Pix:             f.Pix[start:],
		Width:           r.Width(),
		Height:          r.Height(),
		PaddingElements: stride - r.Width(),
	}, nil
}

// NamedRegion resolves a named part of a width x height image.
func NamedRegion(width, height int, name string) (Region, error) {
	midX := width / 2
	midY := height / 2

	var x1, y1, x2, y2 int

	switch name {
	case "full", "":
		x1, y1, x2, y2 = 0, 0, width, height
	case "top-left":
		x1, y1, x2, y2 = 0, 0, midX, midY
	case "top-right":
		x1, y1, x2, y2 = midX, 0, width, midY
	case "bottom-left":
		x1, y1, x2, y2 = 0, midY, midX, height
	case "bottom-right":
		x1, y1, x2, y2 = midX, midY, width, height
	case "top-half":
		x1, y1, x2, y2 = 0, 0, width, midY
	case "bottom-half":
		x1, y1, x2, y2 = 0, midY, width, height
	case "left-half":
		x1, y1, x2, y2 = 0, 0, midX, height
	case "right-half":
		x1, y1, x2, y2 = midX, 0, width, height
	case "center":
		// Center 50% of the image
		qW := width / 4
		qH := height / 4
		x1, y1, x2, y2 = qW, qH, width-qW, height-qH
	default:
		return Region{}, fmt.Errorf("unknown region: %s", name)
	}

	return Region{X1: x1, Y1: y1, X2: x2, Y2: y2}, nil
}
