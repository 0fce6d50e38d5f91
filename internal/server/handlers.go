package server

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/line-detector-mcp/internal/detection"
	"github.com/ironsheep/line-detector-mcp/internal/imaging"
	"github.com/ironsheep/line-detector-mcp/internal/logger"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_detect_lines").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	started := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	entry := logger.WithFields(logrus.Fields{
		"tool":     params.Name,
		"duration": time.Since(started),
	})
	if err != nil {
		entry.WithError(err).Warn("tool call failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	entry.Debug("tool call finished")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_unload":
		return s.handleImageUnload(args)

	// Line Detection
	case "image_detect_lines":
		return s.handleImageDetectLines(args)
	case "image_edge_responses":
		return s.handleImageEdgeResponses(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

func (s *Server) handleImageUnload(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	s.cache.Evict(a.Path)
	return map[string]interface{}{"path": a.Path, "unloaded": true}, nil
}

// === Frame Selection ===

// frameArgs are the arguments shared by the tools that scan a frame.
type frameArgs struct {
	Path        string          `json:"path"`
	Region      *imaging.Region `json:"region,omitempty"`
	NamedRegion string          `json:"named_region"`
	Lightness   bool            `json:"lightness"`
}

// loadFrame returns the requested part of the image as a grayscale frame
// together with the region it covers in the full image.
func (s *Server) loadFrame(a frameArgs) (*imaging.Frame, imaging.Region, error) {
	conversion := imaging.ConversionLuma
	if a.Lightness {
		conversion = imaging.ConversionLightness
	}

	frame, err := s.cache.LoadFrame(a.Path, conversion)
	if err != nil {
		return nil, imaging.Region{}, err
	}

	var region imaging.Region
	switch {
	case a.Region != nil:
		region = *a.Region
	default:
		if region, err = imaging.NamedRegion(frame.Width, frame.Height, a.NamedRegion); err != nil {
			return nil, imaging.Region{}, err
		}
	}

	if region == (imaging.Region{X2: frame.Width, Y2: frame.Height}) {
		return frame, region, nil
	}
	sub, err := imaging.Crop(frame, region)
	if err != nil {
		return nil, imaging.Region{}, err
	}
	return sub, region, nil
}

// === Line Detection Handlers ===

type imageDetectLinesArgs struct {
	frameArgs

	Preset                      string   `json:"preset"`
	Window                      *int     `json:"window"`
	Threshold                   *uint    `json:"threshold"`
	MinimalLength               *uint    `json:"minimal_length"`
	MaximalStraightLineDistance *float64 `json:"maximal_straight_line_distance"`
	ScanDirection               string   `json:"scan_direction"`
	RawEndpoints                bool     `json:"raw_endpoints"`
	Overlay                     bool     `json:"overlay"`
	OverlayColor                string   `json:"overlay_color"`
}

// Point is a line end point in full-image pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LineInfo describes one detected segment.
type LineInfo struct {
	Start        Point   `json:"start"`
	End          Point   `json:"end"`
	Length       float64 `json:"length"`
	AngleDegrees float64 `json:"angle_degrees"`
	Type         string  `json:"type"`
}

// DetectLinesResult is the result of image_detect_lines.
type DetectLinesResult struct {
	Lines  []LineInfo     `json:"lines"`
	Count  int            `json:"count"`
	Region imaging.Region `json:"region"`

	Detectors                   []string `json:"detectors"`
	Threshold                   uint     `json:"threshold"`
	MinimalLength               uint     `json:"minimal_length"`
	MaximalStraightLineDistance float64  `json:"maximal_straight_line_distance"`
	ScanDirection               string   `json:"scan_direction"`

	Overlay *imaging.OverlayResult `json:"overlay,omitempty"`
}

// detectionOptions merges explicit arguments over the configured defaults.
func (s *Server) detectionOptions(a imageDetectLinesArgs) (detection.Options, error) {
	opts := s.cfg.DetectionOptions()
	if a.Threshold != nil {
		opts.Threshold = *a.Threshold
	}
	if a.MinimalLength != nil {
		opts.MinimalLength = *a.MinimalLength
	}
	if a.MaximalStraightLineDistance != nil {
		opts.MaximalStraightLineDistance = *a.MaximalStraightLineDistance
	}
	if a.ScanDirection != "" {
		dir, err := detection.ParseScanDirection(a.ScanDirection)
		if err != nil {
			return opts, err
		}
		opts.ScanDirection = dir
	}
	opts.RawEndpoints = a.RawEndpoints

	if err := checkThreshold(opts.Threshold); err != nil {
		return opts, err
	}
	if opts.MaximalStraightLineDistance < 0 {
		return opts, fmt.Errorf("maximal_straight_line_distance must be >= 0 (got %g)", opts.MaximalStraightLineDistance)
	}
	return opts, nil
}

// checkThreshold rejects thresholds no 16-bit response can reach.
func checkThreshold(t uint) error {
	if t == 0 || t > detection.MaxThreshold {
		return fmt.Errorf("threshold must be in [1, %d] (got %d)", detection.MaxThreshold, t)
	}
	return nil
}

func (s *Server) handleImageDetectLines(args json.RawMessage) (interface{}, error) {
	var a imageDetectLinesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	preset := s.cfg.Preset
	if a.Preset != "" {
		preset = a.Preset
	}
	window := s.cfg.Window
	if a.Window != nil {
		window = *a.Window
	}
	detectors, err := detection.DetectorsForPreset(preset, window)
	if err != nil {
		return nil, err
	}

	opts, err := s.detectionOptions(a)
	if err != nil {
		return nil, err
	}

	var overlayColor *color.NRGBA
	if a.Overlay && a.OverlayColor != "" {
		c, err := imaging.ParseHexColor(a.OverlayColor)
		if err != nil {
			return nil, fmt.Errorf("invalid overlay_color %q: %w", a.OverlayColor, err)
		}
		overlayColor = &c
	}

	frame, region, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, err
	}

	res, err := detection.DetectLines(frame, detectors, opts)
	if err != nil {
		return nil, err
	}

	result := &DetectLinesResult{
		Lines:                       make([]LineInfo, 0, res.Len()),
		Count:                       res.Len(),
		Region:                      region,
		Threshold:                   opts.Threshold,
		MinimalLength:               opts.MinimalLength,
		MaximalStraightLineDistance: opts.MaximalStraightLineDistance,
		ScanDirection:               opts.ScanDirection.String(),
	}
	for _, d := range detectors {
		result.Detectors = append(result.Detectors, d.String())
	}
	for i, l := range res.Lines {
		l = l.Translate(float64(region.X1), float64(region.Y1))
		result.Lines = append(result.Lines, LineInfo{
			Start:        Point{X: round2(l.Start.X), Y: round2(l.Start.Y)},
			End:          Point{X: round2(l.End.X), Y: round2(l.End.Y)},
			Length:       round2(l.Length()),
			AngleDegrees: round2(l.AngleDegrees()),
			Type:         res.Types[i].String(),
		})
	}

	if a.Overlay {
		if result.Overlay, err = s.renderOverlay(a.Path, result.Lines, res.Types, overlayColor); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// edgeColor picks a fixed overlay color per edge type: warm hues for bars,
// cool hues for steps.
func edgeColor(t detection.EdgeType) color.NRGBA {
	hue := 0.0
	switch {
	case t.Kind() == detection.EdgeBar && t.Sign() == detection.EdgeSignNegative:
		hue = 30
	case t.Kind() == detection.EdgeStep && t.Sign() == detection.EdgeSignPositive:
		hue = 120
	case t.Kind() == detection.EdgeStep:
		hue = 200
	}
	r, g, b := colorful.Hsv(hue, 1, 1).RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// renderOverlay draws the reported lines over the full source image. Each
// line is labelled with its 1-based index in the result.
func (s *Server) renderOverlay(path string, lines []LineInfo, types []detection.EdgeType, override *color.NRGBA) (*imaging.OverlayResult, error) {
	img, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}

	segs := make([]imaging.OverlaySegment, len(lines))
	for i, l := range lines {
		c := edgeColor(types[i])
		if override != nil {
			c = *override
		}
		segs[i] = imaging.OverlaySegment{
			X0: l.Start.X, Y0: l.Start.Y,
			X1: l.End.X, Y1: l.End.Y,
			Color: c,
			Label: strconv.Itoa(i + 1),
		}
	}
	return imaging.Overlay(img, segs)
}

type imageEdgeResponsesArgs struct {
	frameArgs

	Detector  string `json:"detector"`
	Window    *int   `json:"window"`
	Threshold *uint  `json:"threshold"`
	Direction string `json:"direction"`
}

// EdgeResponsesResult summarizes one detector pass over a frame.
type EdgeResponsesResult struct {
	Detector  string         `json:"detector"`
	Direction string         `json:"direction"`
	Region    imaging.Region `json:"region"`

	// Threshold in caller units and its detector-specific start and
	// continuation values.
	Threshold             uint `json:"threshold"`
	StartThreshold        uint `json:"start_threshold"`
	IntermediateThreshold uint `json:"intermediate_threshold"`

	Pixels            int     `json:"pixels"`
	NonZero           int     `json:"non_zero"`
	Positive          int     `json:"positive"`
	Negative          int     `json:"negative"`
	Min               int16   `json:"min"`
	Max               int16   `json:"max"`
	MeanMagnitude     float64 `json:"mean_magnitude"`
	StdDevMagnitude   float64 `json:"stddev_magnitude"`
	AboveStart        int     `json:"above_start"`
	AboveIntermediate int     `json:"above_intermediate"`
}

func (s *Server) handleImageEdgeResponses(args json.RawMessage) (interface{}, error) {
	var a imageEdgeResponsesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Detector == "" {
		a.Detector = "rms_step"
	}
	if a.Direction == "" {
		a.Direction = "vertical"
	}
	window := s.cfg.Window
	if a.Window != nil {
		window = *a.Window
	}
	threshold := s.cfg.Threshold
	if a.Threshold != nil {
		threshold = *a.Threshold
	}
	if err := checkThreshold(threshold); err != nil {
		return nil, err
	}

	d, err := detection.DetectorForKind(a.Detector, window)
	if err != nil {
		return nil, err
	}

	frame, region, err := s.loadFrame(a.frameArgs)
	if err != nil {
		return nil, err
	}

	responses := make([]int16, frame.Width*frame.Height)
	switch a.Direction {
	case "vertical":
		err = d.InvokeVertical(frame, responses)
	case "horizontal":
		if d.HasInvokeHorizontal(frame.Width, frame.Height) {
			err = d.InvokeHorizontal(frame, responses)
		} else {
			// the transposed pass covers the same pixels, only in column order
			err = d.InvokeVertical(frame.Transposed(), responses)
		}
	default:
		return nil, fmt.Errorf("direction must be vertical or horizontal (got %q)", a.Direction)
	}
	if err != nil {
		return nil, err
	}

	result := &EdgeResponsesResult{
		Detector:              d.String(),
		Direction:             a.Direction,
		Region:                region,
		Threshold:             threshold,
		StartThreshold:        d.AdjustThreshold(threshold),
		IntermediateThreshold: d.AdjustThreshold((threshold + 1) / 2),
		Pixels:                len(responses),
	}
	summarizeResponses(responses, result)
	return result, nil
}

// summarizeResponses fills the counters and magnitude statistics of r.
func summarizeResponses(responses []int16, r *EdgeResponsesResult) {
	magnitudes := make([]float64, 0, len(responses)/8)
	for _, v := range responses {
		r.Min = min(r.Min, v)
		r.Max = max(r.Max, v)
		if v == 0 {
			continue
		}

		if v > 0 {
			r.Positive++
		} else {
			r.Negative++
		}
		m := math.Abs(float64(v))
		magnitudes = append(magnitudes, m)
		if m >= float64(r.StartThreshold) {
			r.AboveStart++
		}
		if m >= float64(r.IntermediateThreshold) {
			r.AboveIntermediate++
		}
	}
	r.NonZero = len(magnitudes)

	if len(magnitudes) > 1 {
		r.MeanMagnitude, r.StdDevMagnitude = stat.MeanStdDev(magnitudes, nil)
	} else if len(magnitudes) == 1 {
		r.MeanMagnitude = magnitudes[0]
	}
	r.MeanMagnitude = round2(r.MeanMagnitude)
	r.StdDevMagnitude = round2(r.StdDevMagnitude)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
