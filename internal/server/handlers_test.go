package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/line-detector-mcp/internal/config"
	"github.com/ironsheep/line-detector-mcp/internal/detection"
	"github.com/ironsheep/line-detector-mcp/internal/imaging"
)

// createTestImageFile writes a PNG built from a pixel function and returns its path
func createTestImageFile(t *testing.T, width, height int, pixel func(x, y int) color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, pixel(x, y))
		}
	}

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// createStepImage writes a 40x40 image, dark left of column 20.
func createStepImage(t *testing.T) string {
	return createTestImageFile(t, 40, 40, func(x, _ int) color.Color {
		if x < 20 {
			return color.Gray{Y: 30}
		}
		return color.Gray{Y: 220}
	})
}

func solid(c color.Color) func(int, int) color.Color {
	return func(int, int) color.Color { return c }
}

// callTool runs a tools/call request and decodes the text content into out.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPResponse {
	t.Helper()

	paramsJSON, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatal(err)
	}
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil || out == nil {
		return resp
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), out); err != nil {
		t.Fatalf("failed to decode tool result: %v", err)
	}
	return resp
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New(nil)
	imgPath := createTestImageFile(t, 100, 80, solid(color.RGBA{255, 0, 0, 255}))

	var info imaging.ImageInfo
	resp := callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}, &info)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if info.Width != 100 || info.Height != 80 || info.Format != "png" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := New(nil)
	imgPath := createTestImageFile(t, 200, 150, solid(color.RGBA{0, 255, 0, 255}))

	var dims imaging.DimensionsResult
	resp := callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}, &dims)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("dimensions: got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_ImageUnload(t *testing.T) {
	s := New(nil)
	imgPath := createStepImage(t)

	callTool(t, s, "image_detect_lines", map[string]interface{}{"path": imgPath}, nil)

	var out map[string]interface{}
	resp := callTool(t, s, "image_unload", map[string]interface{}{"path": imgPath}, &out)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if out["unloaded"] != true {
		t.Errorf("unexpected result: %v", out)
	}

	// the file is gone, so a reload must fail instead of hitting the cache
	if err := os.Remove(imgPath); err != nil {
		t.Fatal(err)
	}
	resp = callTool(t, s, "image_detect_lines", map[string]interface{}{"path": imgPath}, nil)
	if resp.Error == nil {
		t.Error("expected an error after unloading a deleted file")
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New(nil)
	resp := callTool(t, s, "image_load", map[string]interface{}{"path": "/nonexistent/image.png"}, nil)

	if resp.Error == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New(nil)
	resp := callTool(t, s, "image_detect_circles", map[string]interface{}{}, nil)

	if resp.Error == nil {
		t.Fatal("Expected error for unknown tool")
	}
	if resp.Error.Data != "unknown tool: image_detect_circles" {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(nil)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{invalid json}`),
	}

	resp := s.handleToolsCall(req)
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("Expected -32602, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_DetectLines(t *testing.T) {
	s := New(nil)
	imgPath := createStepImage(t)

	var result DetectLinesResult
	resp := callTool(t, s, "image_detect_lines", map[string]interface{}{"path": imgPath}, &result)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	want := []LineInfo{{
		Start:        Point{X: 19, Y: 0},
		End:          Point{X: 19, Y: 39},
		Length:       39,
		AngleDegrees: 90,
		Type:         "step-",
	}}
	if diff := cmp.Diff(want, result.Lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if result.Count != 1 {
		t.Errorf("Count: got %d, want 1", result.Count)
	}
	if diff := cmp.Diff([]string{"rms_bar(window=4, minimal_delta=2)", "rms_step(window=4)"}, result.Detectors); diff != "" {
		t.Errorf("detectors mismatch (-want +got):\n%s", diff)
	}
	if result.Region != (imaging.Region{X2: 40, Y2: 40}) {
		t.Errorf("Region: got %+v", result.Region)
	}
}

func TestHandleToolsCall_DetectLines_Region(t *testing.T) {
	s := New(nil)
	imgPath := createStepImage(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want []LineInfo
	}{
		{
			name: "explicit region",
			args: map[string]interface{}{
				"region": map[string]interface{}{"x1": 10, "y1": 5, "x2": 40, "y2": 40},
			},
			want: []LineInfo{{Start: Point{19, 5}, End: Point{19, 39}, Length: 34, AngleDegrees: 90, Type: "step-"}},
		},
		{
			name: "named center",
			args: map[string]interface{}{"named_region": "center", "minimal_length": 10},
			want: []LineInfo{{Start: Point{19, 10}, End: Point{19, 29}, Length: 19, AngleDegrees: 90, Type: "step-"}},
		},
		{
			name: "named right half",
			args: map[string]interface{}{"named_region": "right-half"},
			want: []LineInfo{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["path"] = imgPath
			var result DetectLinesResult
			resp := callTool(t, s, "image_detect_lines", tt.args, &result)
			if resp.Error != nil {
				t.Fatalf("Unexpected error: %v", resp.Error)
			}
			if diff := cmp.Diff(tt.want, result.Lines); diff != "" {
				t.Errorf("lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandleToolsCall_DetectLines_Options(t *testing.T) {
	imgPath := createStepImage(t)

	tests := []struct {
		name      string
		cfg       *config.Config
		args      map[string]interface{}
		wantCount int
	}{
		{"lightness", nil, map[string]interface{}{"lightness": true}, 1},
		{"fast preset", nil, map[string]interface{}{"preset": "fast"}, 1},
		{"float preset", nil, map[string]interface{}{"preset": "float", "threshold": 100}, 1},
		{"horizontal only", nil, map[string]interface{}{"scan_direction": "horizontal"}, 0},
		{"threshold too high", nil, map[string]interface{}{"threshold": 32767}, 0},
		{"too long", nil, map[string]interface{}{"minimal_length": 40}, 0},
		{"raw endpoints", nil, map[string]interface{}{"raw_endpoints": true}, 1},
		{"config threshold", func() *config.Config {
			c := config.Default()
			c.Threshold = 32767
			return c
		}(), map[string]interface{}{}, 0},
		{"argument beats config", func() *config.Config {
			c := config.Default()
			c.Threshold = 32767
			return c
		}(), map[string]interface{}{"threshold": 50}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.cfg)
			tt.args["path"] = imgPath

			var result DetectLinesResult
			resp := callTool(t, s, "image_detect_lines", tt.args, &result)
			if resp.Error != nil {
				t.Fatalf("Unexpected error: %v", resp.Error)
			}
			if result.Count != tt.wantCount {
				t.Errorf("Count: got %d, want %d (%+v)", result.Count, tt.wantCount, result.Lines)
			}
		})
	}
}

func TestHandleToolsCall_DetectLines_InvalidArguments(t *testing.T) {
	s := New(nil)
	imgPath := createStepImage(t)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"unknown preset", map[string]interface{}{"preset": "hough"}},
		{"window too wide", map[string]interface{}{"window": 12}},
		{"zero threshold", map[string]interface{}{"threshold": 0}},
		{"bad direction", map[string]interface{}{"scan_direction": "diagonal"}},
		{"negative distance", map[string]interface{}{"maximal_straight_line_distance": -1}},
		{"region out of bounds", map[string]interface{}{"region": map[string]interface{}{"x1": 0, "y1": 0, "x2": 50, "y2": 40}}},
		{"unknown named region", map[string]interface{}{"named_region": "middle"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["path"] = imgPath
			resp := callTool(t, s, "image_detect_lines", tt.args, nil)
			if resp.Error == nil || resp.Error.Code != -32000 {
				t.Errorf("expected tool error, got %+v", resp.Error)
			}
		})
	}
}

func overlayPixel(t *testing.T, o *imaging.OverlayResult, x, y int) color.NRGBA {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(o.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode png: %v", err)
	}
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

func TestHandleToolsCall_DetectLines_Overlay(t *testing.T) {
	s := New(nil)
	imgPath := createStepImage(t)

	var plain DetectLinesResult
	callTool(t, s, "image_detect_lines", map[string]interface{}{"path": imgPath}, &plain)
	if plain.Overlay != nil {
		t.Error("overlay returned without being requested")
	}

	tests := []struct {
		name string
		args map[string]interface{}
		want color.NRGBA
	}{
		{
			name: "edge type palette",
			args: map[string]interface{}{"path": imgPath, "overlay": true},
			want: edgeColor(detection.EdgeStep | detection.EdgeSignNegative),
		},
		{
			name: "explicit color",
			args: map[string]interface{}{"path": imgPath, "overlay": true, "overlay_color": "#FF00FF"},
			want: color.NRGBA{R: 255, B: 255, A: 255},
		},
		{
			// the overlay covers the full image even when only a region is scanned
			name: "region",
			args: map[string]interface{}{"path": imgPath, "overlay": true, "region": map[string]int{"x1": 10, "y1": 5, "x2": 40, "y2": 40}},
			want: edgeColor(detection.EdgeStep | detection.EdgeSignNegative),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result DetectLinesResult
			resp := callTool(t, s, "image_detect_lines", tt.args, &result)
			if resp.Error != nil {
				t.Fatalf("unexpected error: %v", resp.Error)
			}
			if result.Overlay == nil {
				t.Fatal("overlay missing")
			}
			if result.Overlay.Width != 40 || result.Overlay.Height != 40 || result.Overlay.Segments != 1 {
				t.Errorf("overlay: got %dx%d with %d segments, want 40x40 with 1",
					result.Overlay.Width, result.Overlay.Height, result.Overlay.Segments)
			}
			if got := overlayPixel(t, result.Overlay, 19, 30); got != tt.want {
				t.Errorf("line pixel: got %v, want %v", got, tt.want)
			}
			if got := overlayPixel(t, result.Overlay, 35, 30); got != (color.NRGBA{R: 220, G: 220, B: 220, A: 255}) {
				t.Errorf("background pixel: got %v, want gray 220", got)
			}
		})
	}

	resp := callTool(t, s, "image_detect_lines", map[string]interface{}{"path": imgPath, "overlay": true, "overlay_color": "red"}, nil)
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("invalid overlay_color: got %+v, want tool error", resp.Error)
	}
}

func TestEdgeColor(t *testing.T) {
	types := []detection.EdgeType{
		detection.EdgeBar | detection.EdgeSignPositive,
		detection.EdgeBar | detection.EdgeSignNegative,
		detection.EdgeStep | detection.EdgeSignPositive,
		detection.EdgeStep | detection.EdgeSignNegative,
	}
	seen := make(map[color.NRGBA]detection.EdgeType)
	for _, et := range types {
		c := edgeColor(et)
		if c.A != 255 {
			t.Errorf("%s: alpha %d, want 255", et, c.A)
		}
		if prev, ok := seen[c]; ok {
			t.Errorf("%s shares color %v with %s", et, c, prev)
		}
		seen[c] = et
	}
	if got := edgeColor(detection.EdgeBar | detection.EdgeSignPositive); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("bright bar color: got %v, want pure red", got)
	}
}

func TestHandleToolsCall_EdgeResponses(t *testing.T) {
	s := New(nil)
	imgPath := createStepImage(t)

	var result EdgeResponsesResult
	resp := callTool(t, s, "image_edge_responses", map[string]interface{}{"path": imgPath}, &result)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	want := EdgeResponsesResult{
		Detector:              "rms_step(window=4)",
		Direction:             "vertical",
		Region:                imaging.Region{X2: 40, Y2: 40},
		Threshold:             50,
		StartThreshold:        2500,
		IntermediateThreshold: 625,
		Pixels:                1600,
		NonZero:               40,
		Negative:              40,
		Min:                   -32768,
		MeanMagnitude:         32768,
		AboveStart:            40,
		AboveIntermediate:     40,
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleToolsCall_EdgeResponses_ThresholdRange(t *testing.T) {
	s := New(nil)
	imgPath := createStepImage(t)

	for _, threshold := range []uint64{0, 32768, 1 << 40} {
		resp := callTool(t, s, "image_edge_responses", map[string]interface{}{
			"path":      imgPath,
			"threshold": threshold,
		}, nil)
		if resp.Error == nil || resp.Error.Code != -32000 {
			t.Errorf("threshold %d: expected tool error, got %+v", threshold, resp.Error)
		}
	}

	var result EdgeResponsesResult
	resp := callTool(t, s, "image_edge_responses", map[string]interface{}{"path": imgPath, "threshold": 32767}, &result)
	if resp.Error != nil {
		t.Fatalf("threshold 32767: unexpected error %v", resp.Error)
	}
	if result.StartThreshold != 32767*32767 {
		t.Errorf("StartThreshold: got %d, want %d", result.StartThreshold, 32767*32767)
	}
}

func TestHandleToolsCall_EdgeResponses_Horizontal(t *testing.T) {
	s := New(nil)
	imgPath := createStepImage(t)

	for _, detector := range []string{"rms_step", "ad_bar", "rms_step_f"} {
		var result EdgeResponsesResult
		resp := callTool(t, s, "image_edge_responses", map[string]interface{}{
			"path":      imgPath,
			"detector":  detector,
			"direction": "horizontal",
		}, &result)
		if resp.Error != nil {
			t.Fatalf("%s: Unexpected error: %v", detector, resp.Error)
		}
		// columns are uniform, so nothing responds across rows
		if result.NonZero != 0 {
			t.Errorf("%s: NonZero: got %d, want 0", detector, result.NonZero)
		}
	}

	resp := callTool(t, s, "image_edge_responses", map[string]interface{}{
		"path":      imgPath,
		"direction": "diagonal",
	}, nil)
	if resp.Error == nil {
		t.Error("expected error for unknown direction")
	}
}

func TestExecuteTool_AllTools(t *testing.T) {
	s := New(nil)
	imgPath := createStepImage(t)
	args, _ := json.Marshal(map[string]interface{}{"path": imgPath})

	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if _, err := s.executeTool(tool.Name, args); err != nil {
				t.Errorf("executeTool(%s) failed: %v", tool.Name, err)
			}
		})
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New(nil)
	for _, tool := range GetToolDefinitions() {
		if _, err := s.executeTool(tool.Name, json.RawMessage(`{not json`)); err == nil {
			t.Errorf("executeTool(%s) accepted invalid JSON", tool.Name)
		}
	}
}

func TestSummarizeResponses(t *testing.T) {
	r := &EdgeResponsesResult{StartThreshold: 10, IntermediateThreshold: 5}
	summarizeResponses([]int16{0, 4, -6, 12, 0, -20}, r)

	want := &EdgeResponsesResult{
		StartThreshold:        10,
		IntermediateThreshold: 5,
		NonZero:               4,
		Positive:              2,
		Negative:              2,
		Min:                   -20,
		Max:                   12,
		MeanMagnitude:         10.5,
		StdDevMagnitude:       7.19,
		AboveStart:            2,
		AboveIntermediate:     3,
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
