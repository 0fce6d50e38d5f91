package detection

import (
	"fmt"
	"strings"
)

// DefaultWindow is the window size used by the presets when none is given.
const DefaultWindow = 4

// Preset names accepted by DetectorsForPreset.
const (
	PresetDefault = "default"
	PresetFast    = "fast"
	PresetFloat   = "float"
)

// DefaultDetectors returns the integer RMS bar and step detectors.
func DefaultDetectors(window int) ([]EdgeDetector, error) {
	bar, err := NewRMSBarDetector(window, DefaultMinimalDelta)
	if err != nil {
		return nil, err
	}
	step, err := NewRMSStepDetector(window)
	if err != nil {
		return nil, err
	}
	return []EdgeDetector{bar, step}, nil
}

// FastDetectors returns the AD bar and SD step detectors.
func FastDetectors(window int) ([]EdgeDetector, error) {
	bar, err := NewADBarDetector(window)
	if err != nil {
		return nil, err
	}
	step, err := NewSDStepDetector(window, DefaultStepSize)
	if err != nil {
		return nil, err
	}
	return []EdgeDetector{bar, step}, nil
}

// FloatDetectors returns the floating point RMS bar and step detectors.
func FloatDetectors(window int) ([]EdgeDetector, error) {
	bar, err := NewRMSBarDetectorF(window, DefaultMinimalDelta)
	if err != nil {
		return nil, err
	}
	step, err := NewRMSStepDetectorF(window)
	if err != nil {
		return nil, err
	}
	return []EdgeDetector{bar, step}, nil
}

// DetectorsForPreset resolves a preset name. An empty name selects the default preset.
func DetectorsForPreset(name string, window int) ([]EdgeDetector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetDefault, "":
		return DefaultDetectors(window)
	case PresetFast, "performance":
		return FastDetectors(window)
	case PresetFloat:
		return FloatDetectors(window)
	}
	return nil, fmt.Errorf("%w: unknown preset %q (want %s, %s or %s)",
		ErrInvalidParameter, name, PresetDefault, PresetFast, PresetFloat)
}

// DetectorForKind builds a single detector by kind name, e.g. "rms_step".
func DetectorForKind(name string, window int) (EdgeDetector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rms_bar":
		return NewRMSBarDetector(window, DefaultMinimalDelta)
	case "rms_step":
		return NewRMSStepDetector(window)
	case "rms_bar_f":
		return NewRMSBarDetectorF(window, DefaultMinimalDelta)
	case "rms_step_f":
		return NewRMSStepDetectorF(window)
	case "ad_bar":
		return NewADBarDetector(window)
	case "sd_step":
		return NewSDStepDetector(window, DefaultStepSize)
	}
	return EdgeDetector{}, fmt.Errorf("%w: unknown detector %q", ErrInvalidParameter, name)
}
