// Package server exposes the detector, injector and process controller as
// Model Context Protocol tools.
package server

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
	"github.com/mj1618/screen-macro/internal/process"
	"github.com/mj1618/screen-macro/internal/version"
)

// Locator finds reference images on screen.
type Locator interface {
	Locate(path string, region *platform.Bounds) (model.Match, bool)
	LocateAll(path string, region *platform.Bounds) []model.Match
	WaitFor(ctx context.Context, path string, region *platform.Bounds, timeout, interval time.Duration) (model.Match, bool)
}

// Input delivers pointer and keyboard input and manages windows.
type Input interface {
	Click(ctx context.Context, x, y int, target string) bool
	DoubleClick(ctx context.Context, x, y int, target string) bool
	RightClick(ctx context.Context, x, y int, target string) bool
	EnterText(ctx context.Context, text string, clearExisting bool, target string) bool
	PressKey(ctx context.Context, key string, repeat int, interval time.Duration, target string) bool
	Focus(ctx context.Context, title string) (model.Window, bool)
	Windows(opts platform.ListOptions) ([]model.Window, error)
}

// Processes finds and terminates processes by name.
type Processes interface {
	FindByName(ctx context.Context, name string) ([]process.Info, error)
	TerminateByName(ctx context.Context, name string, force bool) bool
}

// Screen captures the display.
type Screen interface {
	Capture(region *platform.Bounds) (*image.RGBA, error)
}

// Deps are the capabilities served as tools.
type Deps struct {
	Locator   Locator
	Input     Input
	Processes Processes
	Screen    Screen
}

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Port      int
	CacheTTL  time.Duration
}

// Server wraps the MCP server. Input tools are serialised: the screen and
// keyboard focus are a single shared resource.
type Server struct {
	deps  Deps
	cache *WindowCache
	mu    sync.Mutex
	mcp   *mcpserver.MCPServer
	log   *slog.Logger
}

// New creates a Server with every tool registered.
func New(deps Deps, cfg Config) *Server {
	s := &Server{
		deps:  deps,
		cache: NewWindowCache(cfg.CacheTTL),
		mcp:   mcpserver.NewMCPServer("screen-macro", version.Version),
		log:   slog.Default().With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server with the configured transport.
func (s *Server) Serve(cfg Config) error {
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		addr := fmt.Sprintf(":%d", cfg.Port)
		s.log.Info("serving", "transport", cfg.Transport, "addr", addr)
		return mcpserver.NewStreamableHTTPServer(s.mcp).Start(addr)
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	region := mcp.WithString("region", mcp.Description("Search region as x,y,width,height in screen pixels"))
	window := mcp.WithString("window", mcp.Description("Bring the window with this title (exact, else substring) to the foreground first"))

	s.mcp.AddTool(
		mcp.NewTool("locate",
			mcp.WithDescription("Find a reference image on screen. Returns the center and confidence of the best match, or every match with all=true."),
			mcp.WithString("image", mcp.Required(), mcp.Description("Path to the reference image (png, jpg, ppm, pgm)")),
			region,
			mcp.WithBoolean("all", mcp.Description("Return every match above the threshold")),
		),
		s.handleLocate,
	)

	s.mcp.AddTool(
		mcp.NewTool("wait",
			mcp.WithDescription("Poll the screen until a reference image appears or the timeout is spent"),
			mcp.WithString("image", mcp.Required(), mcp.Description("Path to the reference image")),
			region,
			mcp.WithNumber("timeout", mcp.Description("Max seconds to wait (default 30)")),
			mcp.WithNumber("interval", mcp.Description("Polling interval in milliseconds (default 500)")),
		),
		s.handleWait,
	)

	s.mcp.AddTool(
		mcp.NewTool("click",
			mcp.WithDescription("Click at absolute screen coordinates"),
			mcp.WithNumber("x", mcp.Required(), mcp.Description("X coordinate")),
			mcp.WithNumber("y", mcp.Required(), mcp.Description("Y coordinate")),
			mcp.WithString("button", mcp.Description("Mouse button: left or right (default left)"), mcp.Enum("left", "right")),
			mcp.WithBoolean("double", mcp.Description("Double-click (left button only)")),
			window,
		),
		s.handleClick,
	)

	s.mcp.AddTool(
		mcp.NewTool("type",
			mcp.WithDescription("Type text into the focused field"),
			mcp.WithString("text", mcp.Required(), mcp.Description("Text to type")),
			mcp.WithBoolean("clear", mcp.Description("Select all and delete existing content first")),
			window,
		),
		s.handleType,
	)

	s.mcp.AddTool(
		mcp.NewTool("key",
			mcp.WithDescription("Press a key or combo (e.g. 'enter', 'ctrl+a') one or more times"),
			mcp.WithString("key", mcp.Required(), mcp.Description("Key or combo")),
			mcp.WithNumber("repeat", mcp.Description("Number of presses (default 1)")),
			mcp.WithNumber("interval", mcp.Description("Milliseconds between presses")),
			window,
		),
		s.handleKey,
	)

	s.mcp.AddTool(
		mcp.NewTool("focus",
			mcp.WithDescription("Bring a window to the foreground by title"),
			mcp.WithString("window", mcp.Required(), mcp.Description("Window title (exact, else substring)")),
		),
		s.handleFocus,
	)

	s.mcp.AddTool(
		mcp.NewTool("windows",
			mcp.WithDescription("List top-level windows"),
			mcp.WithString("title", mcp.Description("Filter by title substring")),
			mcp.WithNumber("pid", mcp.Description("Filter by process ID")),
		),
		s.handleWindows,
	)

	s.mcp.AddTool(
		mcp.NewTool("processes",
			mcp.WithDescription("Find running processes by name (case-insensitive, .exe optional)"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Process name")),
		),
		s.handleProcesses,
	)

	s.mcp.AddTool(
		mcp.NewTool("kill",
			mcp.WithDescription("Terminate every process matching a name"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Process name")),
			mcp.WithBoolean("force", mcp.Description("Kill instead of asking the process to exit")),
		),
		s.handleKill,
	)

	s.mcp.AddTool(
		mcp.NewTool("screenshot",
			mcp.WithDescription("Capture the screen or a region as PNG"),
			region,
		),
		s.handleScreenshot,
	)
}
