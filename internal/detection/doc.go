// Package detection finds straight line segments in 8-bit grayscale frames.
//
// Detection runs in three stages per edge detector:
//
//  1. An EdgeDetector fills a response buffer with one signed 16-bit value
//     per pixel. Bar detectors respond to thin lines, step detectors to
//     boundaries between regions. Positive values mark bright bars and
//     bright-to-dark steps, negative values the opposite polarity.
//  2. Seams are traced through the buffer: a response at or above the
//     start threshold seeds a chain that is extended row by row (or column
//     by column) while neighbours stay above half the threshold.
//  3. Each chain is split recursively at its farthest pixel until every
//     piece is straight within MaximalStraightLineDistance, and each piece
//     becomes a FiniteLine.
//
// # Detectors
//
//   - rms_bar, rms_step: integer RMS detectors with squared responses
//   - rms_bar_f, rms_step_f: floating point RMS detectors
//   - ad_bar: absolute difference bar detector
//   - sd_step: sum difference step detector
//
// Window sizes are limited per detector so the running window sums fit
// their accumulator width; the constructors reject anything larger with
// ErrInvalidWindow.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Line end points lie on pixel centers of the chain's first and last
// samples, refined by a least squares fit unless Options.RawEndpoints is set.
package detection
