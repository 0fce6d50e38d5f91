package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidFrame is returned when a frame's dimensions and backing slice disagree.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is an 8-bit single-channel pixel buffer.
//
// Rows are stored top to bottom. Each row holds Width pixels followed by
// PaddingElements unused bytes, so the distance between two rows is
// Width+PaddingElements. Detection treats a Frame as read-only.
type Frame struct {
	Pix             []uint8
	Width           int
	Height          int
	PaddingElements int
}

// NewFrame allocates a zeroed, unpadded frame.
func NewFrame(width, height int) *Frame {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Frame{
		Pix:    make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// NewFrameFromPixels wraps an existing buffer without copying it.
func NewFrameFromPixels(pix []uint8, width, height, paddingElements int) (*Frame, error) {
	if width < 0 || height < 0 || paddingElements < 0 {
		return nil, fmt.Errorf("%w: negative dimension %dx%d padding %d", ErrInvalidFrame, width, height, paddingElements)
	}
	if height > 0 {
		need := (height-1)*(width+paddingElements) + width
		if len(pix) < need {
			return nil, fmt.Errorf("%w: buffer holds %d bytes, %dx%d with padding %d needs %d",
				ErrInvalidFrame, len(pix), width, height, paddingElements, need)
		}
	}
	return &Frame{Pix: pix, Width: width, Height: height, PaddingElements: paddingElements}, nil
}

// StrideElements returns the number of bytes between the starts of two rows.
func (f *Frame) StrideElements() int {
	return f.Width + f.PaddingElements
}

// Row returns the Width pixels of row y.
func (f *Frame) Row(y int) []uint8 {
	start := y * f.StrideElements()
	return f.Pix[start : start+f.Width]
}

// At returns the pixel at (x, y).
func (f *Frame) At(x, y int) uint8 {
	return f.Pix[y*f.StrideElements()+x]
}

// Set writes the pixel at (x, y).
func (f *Frame) Set(x, y int, v uint8) {
	f.Pix[y*f.StrideElements()+x] = v
}

// Empty reports whether the frame has no pixels.
func (f *Frame) Empty() bool {
	return f == nil || f.Width == 0 || f.Height == 0 || f.Pix == nil
}

// Gray returns the frame as an *image.Gray sharing the same memory.
func (f *Frame) Gray() *image.Gray {
	return &image.Gray{
		Pix:    f.Pix,
		Stride: f.StrideElements(),
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Transposed returns an owned, unpadded copy of the frame with rows and columns swapped.
func (f *Frame) Transposed() *Frame {
	if f.Empty() {
		return NewFrame(0, 0)
	}
	nrgba := imaging.Transpose(f.Gray())
	out := NewFrame(f.Height, f.Width)
	copyChannel(nrgba, out)
	return out
}

// FrameFromGray wraps img without copying. The frame's origin is img.Rect.Min.
func FrameFromGray(img *image.Gray) *Frame {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w <= 0 || h <= 0 {
		return NewFrame(0, 0)
	}
	offset := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y)
	return &Frame{
		Pix:             img.Pix[offset:],
		Width:           w,
		Height:          h,
		PaddingElements: img.Stride - w,
	}
}

// FrameFromImage converts any image to an 8-bit luma frame.
// *image.Gray inputs are wrapped without copying.
func FrameFromImage(img image.Image) *Frame {
	if g, ok := img.(*image.Gray); ok {
		return FrameFromGray(g)
	}
	gray := imaging.Grayscale(img)
	out := NewFrame(gray.Rect.Dx(), gray.Rect.Dy())
	copyChannel(gray, out)
	return out
}

// FrameFromImageLightness converts an image using CIE L* instead of luma.
// Lightness separates facade edges under coloured light better than luma does.
func FrameFromImageLightness(img image.Image) *Frame {
	b := img.Bounds()
	out := NewFrame(b.Dx(), b.Dy())
	parallel.Line(out.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := out.Row(y)
			for x := range row {
				row[x] = lightness(img.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	})
	return out
}

func lightness(c color.Color) uint8 {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		// fully transparent
		return 0
	}
	l, _, _ := cf.Lab()
	v := l*255 + 0.5
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// copyChannel copies the red channel of a grayscale NRGBA image into dst.
func copyChannel(src *image.NRGBA, dst *Frame) {
	parallel.Line(dst.Height, func(start, end int) {
		for y := start; y < end; y++ {
			row := dst.Row(y)
			si := y * src.Stride
			for x := range row {
				row[x] = src.Pix[si+x*4]
			}
		}
	})
}
