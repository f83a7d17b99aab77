package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
	"github.com/mj1618/screen-macro/internal/process"
)

// ActionResult is the reply of an input tool.
type ActionResult struct {
	OK     bool   `yaml:"ok"               json:"ok"`
	Action string `yaml:"action"           json:"action"`
	X      int    `yaml:"x,omitempty"      json:"x,omitempty"`
	Y      int    `yaml:"y,omitempty"      json:"y,omitempty"`
	Window string `yaml:"window,omitempty" json:"window,omitempty"`
	Error  string `yaml:"error,omitempty"  json:"error,omitempty"`
}

// LocateResult is the reply of locate and wait.
type LocateResult struct {
	Found   bool          `yaml:"found"             json:"found"`
	Match   *model.Match  `yaml:"match,omitempty"   json:"match,omitempty"`
	Matches []model.Match `yaml:"matches,omitempty" json:"matches,omitempty"`
	Elapsed string        `yaml:"elapsed,omitempty" json:"elapsed,omitempty"`
}

// toText serializes v to YAML for an MCP response.
func toText(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

func textResult(v interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(toText(v)), nil
}

// actionResult reports a best-effort input action. A false ok is a tool
// error so the agent can react, not a protocol error.
func (s *Server) actionResult(res ActionResult) (*mcp.CallToolResult, error) {
	s.cache.Invalidate()
	if !res.OK {
		if res.Error == "" {
			res.Error = "no input strategy succeeded"
		}
		return mcp.NewToolResultError(toText(res)), nil
	}
	return textResult(res)
}

func regionParam(params map[string]interface{}) (*platform.Bounds, error) {
	return platform.ParseRegion(StringParam(params, "region", ""))
}

func (s *Server) handleLocate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	image := StringParam(params, "image", "")
	if image == "" {
		return mcp.NewToolResultError("image is required"), nil
	}
	region, err := regionParam(params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if BoolParam(params, "all", false) {
		matches := s.deps.Locator.LocateAll(image, region)
		return textResult(LocateResult{Found: len(matches) > 0, Matches: matches})
	}
	m, ok := s.deps.Locator.Locate(image, region)
	if !ok {
		return textResult(LocateResult{Found: false})
	}
	return textResult(LocateResult{Found: true, Match: &m})
}

func (s *Server) handleWait(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	image := StringParam(params, "image", "")
	if image == "" {
		return mcp.NewToolResultError("image is required"), nil
	}
	region, err := regionParam(params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeout := time.Duration(FloatParam(params, "timeout", 30) * float64(time.Second))
	interval := time.Duration(IntParam(params, "interval", 500)) * time.Millisecond

	start := time.Now()
	m, ok := s.deps.Locator.WaitFor(ctx, image, region, timeout, interval)
	res := LocateResult{Found: ok, Elapsed: time.Since(start).Round(time.Millisecond).String()}
	if ok {
		res.Match = &m
	}
	return textResult(res)
}

func (s *Server) handleClick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	x, y := IntParam(params, "x", -1), IntParam(params, "y", -1)
	if x < 0 || y < 0 {
		return mcp.NewToolResultError("x and y are required"), nil
	}
	window := StringParam(params, "window", "")
	button, err := platform.ParseMouseButton(StringParam(params, "button", "left"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	double := BoolParam(params, "double", false)

	action, click := "click", s.deps.Input.Click
	switch {
	case button == platform.MouseMiddle:
		return mcp.NewToolResultError("middle button clicks are not supported"), nil
	case button == platform.MouseRight && double:
		return mcp.NewToolResultError("double applies to the left button only"), nil
	case button == platform.MouseRight:
		action, click = "right-click", s.deps.Input.RightClick
	case double:
		action, click = "double-click", s.deps.Input.DoubleClick
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ok := click(ctx, x, y, window)
	return s.actionResult(ActionResult{OK: ok, Action: action, X: x, Y: y, Window: window})
}

func (s *Server) handleType(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	text := StringParam(params, "text", "")
	window := StringParam(params, "window", "")

	s.mu.Lock()
	defer s.mu.Unlock()

	ok := s.deps.Input.EnterText(ctx, text, BoolParam(params, "clear", false), window)
	return s.actionResult(ActionResult{OK: ok, Action: "type", Window: window})
}

func (s *Server) handleKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	key := StringParam(params, "key", "")
	if key == "" {
		return mcp.NewToolResultError("key is required"), nil
	}
	repeat := IntParam(params, "repeat", 1)
	interval := time.Duration(IntParam(params, "interval", 0)) * time.Millisecond
	window := StringParam(params, "window", "")

	s.mu.Lock()
	defer s.mu.Unlock()

	ok := s.deps.Input.PressKey(ctx, key, repeat, interval, window)
	return s.actionResult(ActionResult{OK: ok, Action: "key", Window: window})
}

func (s *Server) handleFocus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	title := StringParam(params, "window", "")
	if title == "" {
		return mcp.NewToolResultError("window is required"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	win, ok := s.deps.Input.Focus(ctx, title)
	res := ActionResult{OK: ok, Action: "focus", Window: win.Title}
	if !ok {
		res.Window = title
		res.Error = "window not found or could not be focused"
	}
	return s.actionResult(res)
}

func (s *Server) handleWindows(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	opts := platform.ListOptions{
		Title: StringParam(params, "title", ""),
		PID:   IntParam(params, "pid", 0),
	}
	windows, err := s.cache.Windows(s.deps.Input.Windows, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if windows == nil {
		windows = []model.Window{}
	}
	return textResult(windows)
}

func (s *Server) handleProcesses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := StringParam(request.GetArguments(), "name", "")
	procs, err := s.deps.Processes.FindByName(ctx, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if procs == nil {
		procs = []process.Info{}
	}
	return textResult(procs)
}

func (s *Server) handleKill(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	name := StringParam(params, "name", "")
	if name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}
	ok := s.deps.Processes.TerminateByName(ctx, name, BoolParam(params, "force", false))
	res := ActionResult{OK: ok, Action: "kill"}
	if !ok {
		res.Error = fmt.Sprintf("no process named %q was terminated", name)
	}
	return s.actionResult(res)
}

func (s *Server) handleScreenshot(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	region, err := regionParam(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	img, err := s.deps.Screen.Capture(region)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode png: %v", err)), nil
	}
	b := img.Bounds()
	caption := fmt.Sprintf("screenshot %dx%d at %d,%d", b.Dx(), b.Dy(), b.Min.X, b.Min.Y)
	return mcp.NewToolResultImage(caption, base64.StdEncoding.EncodeToString(buf.Bytes()), "image/png"), nil
}
