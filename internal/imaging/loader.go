package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// Conversion selects how colour pixels are reduced to a single 8-bit channel.
type Conversion int

const (
	// ConversionLuma uses the Rec. 601 weighted sum of R, G and B.
	ConversionLuma Conversion = iota
	// ConversionLightness uses CIE L*.
	ConversionLightness
)

// String returns the conversion name used in tool arguments.
func (c Conversion) String() string {
	if c == ConversionLightness {
		return "lightness"
	}
	return "luma"
}

type frameKey struct {
	path       string
	conversion Conversion
}

// ImageCache keeps decoded images and their grayscale frames keyed by file path.
//
// Frames are derived lazily from the decoded image the first time a given
// conversion is requested and are shared by every later caller, so callers
// must treat them as read-only. ImageCache is safe for concurrent use.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	frames map[frameKey]*Frame
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
		frames: make(map[frameKey]*Frame),
	}
}

// Load returns the decoded image at path, reading it from disk on first use.
// EXIF orientation is applied while decoding. PNG, JPEG and GIF are supported.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// LoadFrame returns the grayscale frame of the image at path.
func (c *ImageCache) LoadFrame(path string, conversion Conversion) (*Frame, error) {
	key := frameKey{path: path, conversion: conversion}

	c.mu.RLock()
	if fr, ok := c.frames[key]; ok {
		c.mu.RUnlock()
		return fr, nil
	}
	c.mu.RUnlock()

	img, err := c.Load(path)
	if err != nil {
		return nil, err
	}

	var fr *Frame
	switch conversion {
	case ConversionLightness:
		fr = FrameFromImageLightness(img)
	default:
		fr = FrameFromImage(img)
	}

	c.mu.Lock()
	c.frames[key] = fr
	c.mu.Unlock()

	return fr, nil
}

// Clear drops every cached image and frame.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.frames = make(map[frameKey]*Frame)
	c.mu.Unlock()
}

// Evict drops the image at path and all frames derived from it.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	for k := range c.frames {
		if k.path == path {
			delete(c.frames, k)
		}
	}
	c.mu.Unlock()
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	ColorDepth    string `json:"color_depth"`
	Grayscale     bool   `json:"grayscale"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// LoadImageInfo loads the image at path and describes it.
//
// Format is derived from the file extension. Grayscale is true when the
// decoded image is already single-channel, in which case line detection
// reads it without conversion.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	colorDepth := "8-bit"
	grayscale := false
	switch img.(type) {
	case *image.Gray:
		grayscale = true
	case *image.Gray16:
		grayscale = true
		colorDepth = "16-bit"
	case *image.RGBA64, *image.NRGBA64:
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorDepth:    colorDepth,
		Grayscale:     grayscale,
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the size of the image at path.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
