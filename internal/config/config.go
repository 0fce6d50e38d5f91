// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ironsheep/line-detector-mcp/internal/detection"
)

// Config holds the logging settings and the detection defaults applied when
// a tool call leaves an argument out.
type Config struct {
	LogLevel string
	LogJSON  bool

	Preset                      string
	Window                      int
	Threshold                   uint
	MinimalLength               uint
	MaximalStraightLineDistance float64
	ScanDirection               detection.ScanDirection
}

// DetectionOptions returns the configured defaults as detection options.
func (c *Config) DetectionOptions() detection.Options {
	opts := detection.DefaultOptions()
	opts.Threshold = c.Threshold
	opts.MinimalLength = c.MinimalLength
	opts.MaximalStraightLineDistance = c.MaximalStraightLineDistance
	opts.ScanDirection = c.ScanDirection
	return opts
}

// Default returns the configuration used when no variables are set.
func Default() *Config {
	opts := detection.DefaultOptions()
	return &Config{
		LogLevel:                    "info",
		Preset:                      detection.PresetDefault,
		Window:                      detection.DefaultWindow,
		Threshold:                   opts.Threshold,
		MinimalLength:               opts.MinimalLength,
		MaximalStraightLineDistance: opts.MaximalStraightLineDistance,
		ScanDirection:               opts.ScanDirection,
	}
}

// LoadFromEnv reads LINE_MCP_* variables on top of Default.
// A set but malformed variable is an error naming that variable.
func LoadFromEnv() (*Config, error) {
	def := Default()
	cfg := &Config{
		LogLevel: strings.ToLower(getEnvOrDefault("LINE_MCP_LOG_LEVEL", def.LogLevel)),
		Preset:   strings.ToLower(getEnvOrDefault("LINE_MCP_PRESET", def.Preset)),
	}

	var err error
	if cfg.LogJSON, err = parseBoolOrDefault("LINE_MCP_LOG_JSON", false); err != nil {
		return nil, err
	}
	window, err := parseUintOrDefault("LINE_MCP_WINDOW", uint64(def.Window))
	if err != nil {
		return nil, err
	}
	cfg.Window = int(window)

	threshold, err := parseUintOrDefault("LINE_MCP_THRESHOLD", uint64(def.Threshold))
	if err != nil {
		return nil, err
	}
	cfg.Threshold = uint(threshold)

	minimalLength, err := parseUintOrDefault("LINE_MCP_MINIMAL_LENGTH", uint64(def.MinimalLength))
	if err != nil {
		return nil, err
	}
	cfg.MinimalLength = uint(minimalLength)

	if cfg.MaximalStraightLineDistance, err = parseFloatOrDefault("LINE_MCP_MAX_LINE_DISTANCE", def.MaximalStraightLineDistance); err != nil {
		return nil, err
	}

	if cfg.ScanDirection, err = detection.ParseScanDirection(getEnvOrDefault("LINE_MCP_SCAN_DIRECTION", "both")); err != nil {
		return nil, fmt.Errorf("invalid LINE_MCP_SCAN_DIRECTION: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and that the preset can be built with the window.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid LINE_MCP_LOG_LEVEL: %q", c.LogLevel)
	}
	if c.Threshold == 0 || c.Threshold > detection.MaxThreshold {
		return fmt.Errorf("LINE_MCP_THRESHOLD must be in [1, %d] (got %d)", detection.MaxThreshold, c.Threshold)
	}
	if c.MaximalStraightLineDistance < 0 || math.IsNaN(c.MaximalStraightLineDistance) {
		return fmt.Errorf("LINE_MCP_MAX_LINE_DISTANCE must be a number >= 0 (got %g)", c.MaximalStraightLineDistance)
	}
	if _, err := detection.DetectorsForPreset(c.Preset, c.Window); err != nil {
		return fmt.Errorf("invalid LINE_MCP_PRESET/LINE_MCP_WINDOW: %w", err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseUintOrDefault(key string, defaultValue uint64) (uint64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return v, nil
}

func parseFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, value)
	}
	return v, nil
}

func parseBoolOrDefault(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", key, value)
	}
	return v, nil
}
