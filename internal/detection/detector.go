package detection

import (
	"errors"
	"fmt"

	"github.com/ironsheep/line-detector-mcp/internal/imaging"
)

var (
	// ErrInvalidWindow is returned when a window size violates a detector's accumulator policy.
	ErrInvalidWindow = errors.New("invalid window size")

	// ErrInvalidParameter is returned for any other malformed detector or detection argument.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrFrameTooLarge is returned when the scratch buffers for a frame would exceed MaxFramePixels.
	ErrFrameTooLarge = errors.New("frame too large")
)

// DetectorKind enumerates the edge detectors. The set is closed.
type DetectorKind uint8

const (
	// KindRMSBar is the integer RMS bar detector.
	KindRMSBar DetectorKind = iota
	// KindRMSStep is the integer RMS step detector.
	KindRMSStep
	// KindRMSBarF is the floating point RMS bar detector.
	KindRMSBarF
	// KindRMSStepF is the floating point RMS step detector.
	KindRMSStepF
	// KindADBar is the absolute difference bar detector.
	KindADBar
	// KindSDStep is the sum difference step detector.
	KindSDStep

	numDetectorKinds
)

const (
	// DefaultMinimalDelta is the minimal center-to-background intensity difference of bar detectors.
	DefaultMinimalDelta = 2

	// DefaultStepSize is the gap between the two windows of the SD step detector.
	DefaultStepSize = 1
)

// EdgeDetector is an immutable edge detector configuration. Values are
// created by the New*Detector constructors and may be shared between
// goroutines and reused across DetectLines calls.
type EdgeDetector struct {
	kind         DetectorKind
	window       int
	minimalDelta int
	stepSize     int
}

// kernel is the per-kind function table EdgeDetector dispatches through.
type kernel struct {
	name     string
	edgeType EdgeType

	// invokeVertical fills responses (width*height, unpadded) for edges
	// whose gradient runs along a row.
	invokeVertical func(d EdgeDetector, f *imaging.Frame, responses []int16)

	// hasInvokeHorizontal is nil when the kernel has no column path.
	hasInvokeHorizontal func(d EdgeDetector, width, height int) bool
	invokeHorizontal    func(d EdgeDetector, f *imaging.Frame, responses []int16)

	adjustThreshold func(threshold uint) uint
}

var kernels = [numDetectorKinds]kernel{
	KindRMSBar: {
		name:                "rms_bar",
		edgeType:            EdgeBar,
		invokeVertical:      rmsBarVertical,
		hasInvokeHorizontal: rmsBarHasHorizontal,
		invokeHorizontal:    rmsBarHorizontal,
		adjustThreshold:     squareThreshold,
	},
	KindRMSStep: {
		name:                "rms_step",
		edgeType:            EdgeStep,
		invokeVertical:      rmsStepVertical,
		hasInvokeHorizontal: rmsStepHasHorizontal,
		invokeHorizontal:    rmsStepHorizontal,
		adjustThreshold:     squareThreshold,
	},
	KindRMSBarF: {
		name:            "rms_bar_f",
		edgeType:        EdgeBar,
		invokeVertical:  rmsBarFVertical,
		adjustThreshold: identityThreshold,
	},
	KindRMSStepF: {
		name:            "rms_step_f",
		edgeType:        EdgeStep,
		invokeVertical:  rmsStepFVertical,
		adjustThreshold: identityThreshold,
	},
	KindADBar: {
		name:            "ad_bar",
		edgeType:        EdgeBar,
		invokeVertical:  adBarVertical,
		adjustThreshold: identityThreshold,
	},
	KindSDStep: {
		name:                "sd_step",
		edgeType:            EdgeStep,
		invokeVertical:      sdStepVertical,
		hasInvokeHorizontal: sdStepHasHorizontal,
		invokeHorizontal:    sdStepHorizontal,
		adjustThreshold:     identityThreshold,
	},
}

func squareThreshold(t uint) uint   { return t * t }
func identityThreshold(t uint) uint { return t }

func newDetector(kind DetectorKind, window, minimalDelta, stepSize int) (EdgeDetector, error) {
	if !policyAllows(kind, window) {
		p := accumulatorPolicies[kind]
		return EdgeDetector{}, fmt.Errorf("%w: %s window %d outside [1, %d] (%s)",
			ErrInvalidWindow, kernels[kind].name, window, p.maxWindow, p.limit)
	}
	if minimalDelta < 0 || minimalDelta > 255 {
		return EdgeDetector{}, fmt.Errorf("%w: minimal delta %d outside [0, 255]", ErrInvalidParameter, minimalDelta)
	}
	if stepSize < 0 {
		return EdgeDetector{}, fmt.Errorf("%w: step size %d is negative", ErrInvalidParameter, stepSize)
	}
	return EdgeDetector{kind: kind, window: window, minimalDelta: minimalDelta, stepSize: stepSize}, nil
}

// NewRMSBarDetector creates the integer RMS bar detector. window must be in [1, 11].
func NewRMSBarDetector(window, minimalDelta int) (EdgeDetector, error) {
	return newDetector(KindRMSBar, window, minimalDelta, 0)
}

// NewRMSStepDetector creates the integer RMS step detector. window must be in [1, 255].
func NewRMSStepDetector(window int) (EdgeDetector, error) {
	return newDetector(KindRMSStep, window, 0, 0)
}

// NewRMSBarDetectorF creates the floating point RMS bar detector.
func NewRMSBarDetectorF(window, minimalDelta int) (EdgeDetector, error) {
	return newDetector(KindRMSBarF, window, minimalDelta, 0)
}

// NewRMSStepDetectorF creates the floating point RMS step detector.
func NewRMSStepDetectorF(window int) (EdgeDetector, error) {
	return newDetector(KindRMSStepF, window, 0, 0)
}

// NewADBarDetector creates the absolute difference bar detector. window must be in [1, 42].
func NewADBarDetector(window int) (EdgeDetector, error) {
	return newDetector(KindADBar, window, 0, 0)
}

// NewSDStepDetector creates the sum difference step detector. window must
// be in [1, 127] and stepSize, the number of pixels between the two
// windows, must be at least 1.
func NewSDStepDetector(window, stepSize int) (EdgeDetector, error) {
	if stepSize < 1 {
		return EdgeDetector{}, fmt.Errorf("%w: step size %d must be >= 1", ErrInvalidParameter, stepSize)
	}
	return newDetector(KindSDStep, window, 0, stepSize)
}

// Kind returns the detector kind.
func (d EdgeDetector) Kind() DetectorKind { return d.kind }

// Window returns the window size.
func (d EdgeDetector) Window() int { return d.window }

// EdgeType returns EdgeBar or EdgeStep.
func (d EdgeDetector) EdgeType() EdgeType { return kernels[d.kind].edgeType }

// Name returns the short identifier of the detector kind.
func (d EdgeDetector) Name() string { return kernels[d.kind].name }

// Valid reports whether d was built by a constructor. The zero value is not valid.
func (d EdgeDetector) Valid() bool {
	return d.kind < numDetectorKinds && policyAllows(d.kind, d.window)
}

func (d EdgeDetector) String() string {
	switch d.kind {
	case KindRMSBar, KindRMSBarF:
		return fmt.Sprintf("%s(window=%d, minimal_delta=%d)", d.Name(), d.window, d.minimalDelta)
	case KindSDStep:
		return fmt.Sprintf("%s(window=%d, step=%d)", d.Name(), d.window, d.stepSize)
	}
	return fmt.Sprintf("%s(window=%d)", d.Name(), d.window)
}

// AdjustThreshold maps a caller threshold into the detector's response units.
func (d EdgeDetector) AdjustThreshold(threshold uint) uint {
	return kernels[d.kind].adjustThreshold(threshold)
}

// checkInvocation validates the frame and response buffer for one pass
// along an axis of length scanLength.
func (d EdgeDetector) checkInvocation(f *imaging.Frame, responses []int16, scanLength int) error {
	if !d.Valid() {
		return fmt.Errorf("%w: detector %v was not constructed", ErrInvalidParameter, d)
	}
	if f.Empty() {
		return fmt.Errorf("%w: empty frame", ErrInvalidParameter)
	}
	if d.window >= scanLength {
		return fmt.Errorf("%w: window %d not below scan length %d", ErrInvalidWindow, d.window, scanLength)
	}
	if len(responses) < f.Width*f.Height {
		return fmt.Errorf("%w: response buffer holds %d values, need %d", ErrInvalidParameter, len(responses), f.Width*f.Height)
	}
	return nil
}

// InvokeVertical writes one response per pixel into responses, row-major
// without padding, for edges whose gradient runs along a row.
func (d EdgeDetector) InvokeVertical(f *imaging.Frame, responses []int16) error {
	if err := d.checkInvocation(f, responses, f.Width); err != nil {
		return err
	}
	kernels[d.kind].invokeVertical(d, f, responses)
	return nil
}

// HasInvokeHorizontal reports whether the detector can scan columns of a
// width x height frame directly.
func (d EdgeDetector) HasInvokeHorizontal(width, height int) bool {
	has := kernels[d.kind].hasInvokeHorizontal
	return has != nil && d.window < height && has(d, width, height)
}

// InvokeHorizontal writes one response per pixel for edges whose gradient
// runs along a column. It fails when HasInvokeHorizontal is false.
func (d EdgeDetector) InvokeHorizontal(f *imaging.Frame, responses []int16) error {
	if err := d.checkInvocation(f, responses, f.Height); err != nil {
		return err
	}
	if !d.HasInvokeHorizontal(f.Width, f.Height) {
		return fmt.Errorf("%w: %v has no column path for %dx%d", ErrInvalidParameter, d, f.Width, f.Height)
	}
	kernels[d.kind].invokeHorizontal(d, f, responses)
	return nil
}
