// Package server implements the MCP (Model Context Protocol) server for line detection.
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//   - image_unload: Drop an image from the cache
//
// Line Detection:
//   - image_detect_lines: Find straight bar and step segments
//   - image_edge_responses: Response statistics of one detector, for threshold tuning
//
// Omitted detection arguments fall back to the config.Config the server
// was created with. A region or named_region restricts the scan to a
// sub-rectangle; reported coordinates are always in full-image space.
//
// # Image Caching
//
// Decoded images and their grayscale frames are cached by path for the
// lifetime of the process, or until image_unload.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	cfg, err := config.LoadFromEnv()
//	if err != nil {
//	    return err
//	}
//	return server.New(cfg).Run()
package server
