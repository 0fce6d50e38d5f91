package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/line-detector-mcp/internal/config"
	"github.com/ironsheep/line-detector-mcp/internal/logger"
	"github.com/ironsheep/line-detector-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("line-detector-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("line-detector-mcp - MCP server for straight line detection in images")
			fmt.Println()
			fmt.Println("Usage: line-detector-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  LINE_MCP_LOG_LEVEL=debug          debug, info, warn or error (default info)")
			fmt.Println("  LINE_MCP_LOG_JSON=true            Log as JSON instead of text")
			fmt.Println("  LINE_MCP_PRESET=default           Detector set: default, fast or float")
			fmt.Println("  LINE_MCP_WINDOW=4                 Detector window in pixels")
			fmt.Println("  LINE_MCP_THRESHOLD=50             Minimal response that starts a line")
			fmt.Println("  LINE_MCP_MINIMAL_LENGTH=20        Segments must be longer than this")
			fmt.Println("  LINE_MCP_MAX_LINE_DISTANCE=1.6    Straightness tolerance in pixels")
			fmt.Println("  LINE_MCP_SCAN_DIRECTION=both      vertical, horizontal or both")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}
	logger.SetJSON(cfg.LogJSON)

	logger.WithFields(map[string]interface{}{
		"version":    Version,
		"build_time": BuildTime,
		"commit":     GitCommit,
		"preset":     cfg.Preset,
		"window":     cfg.Window,
		"threshold":  cfg.Threshold,
	}).Debug("starting line detector MCP server")

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}
