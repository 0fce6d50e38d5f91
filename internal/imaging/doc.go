// Package imaging turns image files into 8-bit grayscale frames for line detection.
//
// A Frame is a row-major single-channel buffer with optional per-row padding.
// Frames are produced from decoded images (luma or CIE lightness), wrapped
// around existing *image.Gray memory, or cut out of other frames as zero-copy
// views. The ImageCache decodes each file once and remembers its frames.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. For regions, (x1,y1) is
// inclusive and (x2,y2) is exclusive.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Frames returned by the
// cache are shared and must not be modified.
package imaging
