package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// namedRegions lists the region names accepted by named_region.
var namedRegions = []string{"full", "top-left", "top-right", "bottom-left", "bottom-right", "top-half", "bottom-half", "left-half", "right-half", "center"}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// regionProperties are shared by the tools that scan a sub-rectangle.
func regionProperties() map[string]interface{} {
	return map[string]interface{}{
		"region": map[string]interface{}{
			"type":        "object",
			"description": "Optional rectangle to scan. x1/y1 inclusive, x2/y2 exclusive. Reported coordinates stay in full-image space.",
			"properties": map[string]interface{}{
				"x1": map[string]interface{}{"type": "integer"},
				"y1": map[string]interface{}{"type": "integer"},
				"x2": map[string]interface{}{"type": "integer"},
				"y2": map[string]interface{}{"type": "integer"},
			},
			"required": []string{"x1", "y1", "x2", "y2"},
		},
		"named_region": map[string]interface{}{
			"type":        "string",
			"enum":        namedRegions,
			"description": "Optional named part of the image to scan. Ignored when region is given.",
		},
		"lightness": map[string]interface{}{
			"type":        "boolean",
			"description": "Convert colour images with CIE L* lightness instead of luma. Default false",
			"default":     false,
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. The image stays cached for subsequent calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_unload",
			Description: "Drop an image and its grayscale frames from the cache, e.g. after the file changed on disk.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Line Detection
		{
			Name: "image_detect_lines",
			Description: "Detect straight line segments (thin bars and region boundaries) in an image. " +
				"Returns each segment's end points, length, angle and edge type (bar/step with +/- polarity).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"path": pathProperty(),
					"preset": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"default", "fast", "float"},
						"description": "Detector set: default (integer RMS bar + step), fast (AD bar + SD step) or float (floating point RMS bar + step)",
					},
					"window": map[string]interface{}{
						"type":        "integer",
						"description": "Length in pixels of each side window next to the tested pixels. Default 4",
					},
					"threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Minimal response strength that starts a line, 1-32767. Default 50",
					},
					"minimal_length": map[string]interface{}{
						"type":        "integer",
						"description": "Segments must span more than this many pixels. Default 20",
					},
					"maximal_straight_line_distance": map[string]interface{}{
						"type":        "number",
						"description": "Largest distance in pixels a traced pixel may lie from its segment. Default 1.6",
					},
					"scan_direction": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"vertical", "horizontal", "both"},
						"description": "Which line orientations to look for. Default both",
					},
					"raw_endpoints": map[string]interface{}{
						"type":        "boolean",
						"description": "Report the first and last traced pixels instead of least squares end points. Default false",
						"default":     false,
					},
					"overlay": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the full image with the detected lines drawn over it as a base64 PNG. Default false",
						"default":     false,
					},
					"overlay_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color (#RRGGBB or #RRGGBBAA) for all overlay lines. By default bars are drawn red/orange and steps green/blue",
					},
				}, regionProperties()),
				"required": []string{"path"},
			},
		},
		{
			Name: "image_edge_responses",
			Description: "Run a single edge detector over an image and report statistics of its response map. " +
				"Use it to pick a threshold for image_detect_lines.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(map[string]interface{}{
					"path": pathProperty(),
					"detector": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"rms_bar", "rms_step", "rms_bar_f", "rms_step_f", "ad_bar", "sd_step"},
						"description": "Detector to run. Default rms_step",
					},
					"window": map[string]interface{}{
						"type":        "integer",
						"description": "Length in pixels of each side window next to the tested pixels. Default 4",
					},
					"threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Threshold whose detector-specific values are reported. Default 50",
					},
					"direction": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"vertical", "horizontal"},
						"description": "vertical scans rows for vertical edges, horizontal scans columns. Default vertical",
					},
				}, regionProperties()),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
