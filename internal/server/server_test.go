package server

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
	"github.com/mj1618/screen-macro/internal/process"
)

type fakeLocator struct {
	match   model.Match
	found   bool
	all     []model.Match
	region  *platform.Bounds
	timeout time.Duration
}

func (f *fakeLocator) Locate(_ string, region *platform.Bounds) (model.Match, bool) {
	f.region = region
	return f.match, f.found
}

func (f *fakeLocator) LocateAll(_ string, region *platform.Bounds) []model.Match {
	f.region = region
	return f.all
}

func (f *fakeLocator) WaitFor(_ context.Context, _ string, region *platform.Bounds, timeout, _ time.Duration) (model.Match, bool) {
	f.region, f.timeout = region, timeout
	return f.match, f.found
}

type fakeInput struct {
	ok         bool
	calls      []string
	windows    []model.Window
	listCalls  int
	lastRepeat int
}

func (f *fakeInput) Click(_ context.Context, _, _ int, _ string) bool {
	f.calls = append(f.calls, "click")
	return f.ok
}

func (f *fakeInput) DoubleClick(_ context.Context, _, _ int, _ string) bool {
	f.calls = append(f.calls, "double")
	return f.ok
}

func (f *fakeInput) RightClick(_ context.Context, _, _ int, _ string) bool {
	f.calls = append(f.calls, "right")
	return f.ok
}

func (f *fakeInput) EnterText(_ context.Context, text string, _ bool, _ string) bool {
	f.calls = append(f.calls, "type:"+text)
	return f.ok
}

func (f *fakeInput) PressKey(_ context.Context, key string, repeat int, _ time.Duration, _ string) bool {
	f.calls = append(f.calls, "key:"+key)
	f.lastRepeat = repeat
	return f.ok
}

func (f *fakeInput) Focus(_ context.Context, title string) (model.Window, bool) {
	w, ok := model.FindWindow(f.windows, title)
	return w, ok
}

func (f *fakeInput) Windows(platform.ListOptions) ([]model.Window, error) {
	f.listCalls++
	return f.windows, nil
}

type fakeProcs struct {
	procs []process.Info
	err   error
}

func (f *fakeProcs) FindByName(context.Context, string) ([]process.Info, error) {
	return f.procs, f.err
}

func (f *fakeProcs) TerminateByName(context.Context, string, bool) bool {
	return len(f.procs) > 0
}

type fakeScreen struct{}

func (fakeScreen) Capture(*platform.Bounds) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 4, 3)), nil
}

func newTestServer(ttl time.Duration) (*Server, *fakeLocator, *fakeInput, *fakeProcs) {
	loc := &fakeLocator{}
	in := &fakeInput{ok: true, windows: []model.Window{{App: "game.exe", PID: 9, Title: "Where Winds Meet", Visible: true}}}
	procs := &fakeProcs{}
	s := New(Deps{Locator: loc, Input: in, Processes: procs, Screen: fakeScreen{}}, Config{CacheTTL: ttl})
	return s, loc, in, procs
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func TestHandleLocate(t *testing.T) {
	s, loc, _, _ := newTestServer(0)
	loc.match, loc.found = model.Match{X: 5, Y: 6, Confidence: 0.9}, true

	res, err := s.handleLocate(context.Background(), call(map[string]interface{}{"image": "step1.png", "region": "10,20,30,40"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var out LocateResult
	require.NoError(t, yaml.Unmarshal([]byte(text(t, res)), &out))
	assert.True(t, out.Found)
	assert.Equal(t, 5, out.Match.X)
	assert.Equal(t, &platform.Bounds{X: 10, Y: 20, Width: 30, Height: 40}, loc.region)
}

func TestHandleLocate_All(t *testing.T) {
	s, loc, _, _ := newTestServer(0)
	loc.all = []model.Match{{X: 1}, {X: 2}}

	res, err := s.handleLocate(context.Background(), call(map[string]interface{}{"image": "a.png", "all": true}))
	require.NoError(t, err)

	var out LocateResult
	require.NoError(t, yaml.Unmarshal([]byte(text(t, res)), &out))
	assert.Len(t, out.Matches, 2)
	assert.Nil(t, loc.region)
}

func TestHandleLocate_BadArgs(t *testing.T) {
	s, _, _, _ := newTestServer(0)

	res, _ := s.handleLocate(context.Background(), call(map[string]interface{}{}))
	assert.True(t, res.IsError)

	res, _ = s.handleLocate(context.Background(), call(map[string]interface{}{"image": "a.png", "region": "1,2"}))
	assert.True(t, res.IsError)
}

func TestHandleWait_Timeout(t *testing.T) {
	s, loc, _, _ := newTestServer(0)

	res, err := s.handleWait(context.Background(), call(map[string]interface{}{"image": "a.png", "timeout": 1.5}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "found: false")
	assert.Equal(t, 1500*time.Millisecond, loc.timeout)
}

func TestHandleClick(t *testing.T) {
	s, _, in, _ := newTestServer(0)

	res, err := s.handleClick(context.Background(), call(map[string]interface{}{"x": 10.0, "y": 20.0, "double": true}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, []string{"double"}, in.calls)
	assert.Contains(t, text(t, res), "action: double-click")

	res, _ = s.handleClick(context.Background(), call(map[string]interface{}{"x": 10.0}))
	assert.True(t, res.IsError)
}

func TestHandleClick_Button(t *testing.T) {
	s, _, in, _ := newTestServer(0)

	res, err := s.handleClick(context.Background(), call(map[string]interface{}{"x": 10.0, "y": 20.0, "button": "right"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, []string{"right"}, in.calls)
	assert.Contains(t, text(t, res), "right-click")

	for _, args := range []map[string]interface{}{
		{"x": 1.0, "y": 1.0, "button": "middle"},
		{"x": 1.0, "y": 1.0, "button": "thumb"},
		{"x": 1.0, "y": 1.0, "button": "right", "double": true},
	} {
		res, err = s.handleClick(context.Background(), call(args))
		require.NoError(t, err)
		assert.True(t, res.IsError, "%v", args)
	}
	assert.Equal(t, []string{"right"}, in.calls)
}

func TestHandleClick_FailureIsToolError(t *testing.T) {
	s, _, in, _ := newTestServer(0)
	in.ok = false

	res, err := s.handleClick(context.Background(), call(map[string]interface{}{"x": 1.0, "y": 1.0}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "no input strategy succeeded")
}

func TestHandleTypeAndKey(t *testing.T) {
	s, _, in, _ := newTestServer(0)

	_, err := s.handleType(context.Background(), call(map[string]interface{}{"text": "hello"}))
	require.NoError(t, err)
	_, err = s.handleKey(context.Background(), call(map[string]interface{}{"key": "r", "repeat": 4.0}))
	require.NoError(t, err)

	assert.Equal(t, []string{"type:hello", "key:r"}, in.calls)
	assert.Equal(t, 4, in.lastRepeat)
}

func TestHandleFocus(t *testing.T) {
	s, _, _, _ := newTestServer(0)

	res, _ := s.handleFocus(context.Background(), call(map[string]interface{}{"window": "winds"}))
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "Where Winds Meet")

	res, _ = s.handleFocus(context.Background(), call(map[string]interface{}{"window": "nope"}))
	assert.True(t, res.IsError)
}

func TestHandleWindows_Cached(t *testing.T) {
	s, _, in, _ := newTestServer(time.Minute)

	for i := 0; i < 3; i++ {
		res, err := s.handleWindows(context.Background(), call(nil))
		require.NoError(t, err)
		assert.Contains(t, text(t, res), "Where Winds Meet")
	}
	assert.Equal(t, 1, in.listCalls)

	// Input invalidates the listing.
	_, _ = s.handleClick(context.Background(), call(map[string]interface{}{"x": 1.0, "y": 1.0}))
	_, _ = s.handleWindows(context.Background(), call(nil))
	assert.Equal(t, 2, in.listCalls)
}

func TestHandleProcessesAndKill(t *testing.T) {
	s, _, _, procs := newTestServer(0)

	res, _ := s.handleProcesses(context.Background(), call(map[string]interface{}{"name": "wwm"}))
	assert.Equal(t, "[]\n", text(t, res))

	res, _ = s.handleKill(context.Background(), call(map[string]interface{}{"name": "wwm"}))
	assert.True(t, res.IsError)

	procs.procs = []process.Info{{PID: 42, Name: "wwm.exe"}}
	res, _ = s.handleProcesses(context.Background(), call(map[string]interface{}{"name": "wwm"}))
	assert.Contains(t, text(t, res), "pid: 42")

	res, _ = s.handleKill(context.Background(), call(map[string]interface{}{"name": "wwm", "force": true}))
	assert.False(t, res.IsError)

	procs.err = errors.New("boom")
	res, _ = s.handleProcesses(context.Background(), call(map[string]interface{}{"name": "wwm"}))
	assert.True(t, res.IsError)
}

func TestHandleScreenshot(t *testing.T) {
	s, _, _, _ := newTestServer(0)

	res, err := s.handleScreenshot(context.Background(), call(nil))
	require.NoError(t, err)
	require.Len(t, res.Content, 2)
	assert.Contains(t, text(t, res), "4x3")
	img, ok := res.Content[1].(mcp.ImageContent)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
}

func TestServe_UnknownTransport(t *testing.T) {
	s, _, _, _ := newTestServer(0)
	assert.Error(t, s.Serve(Config{Transport: "carrier-pigeon"}))
}

func TestParams(t *testing.T) {
	p := map[string]interface{}{"s": "v", "f": 2.5, "i": 3, "b": true}
	assert.Equal(t, "v", StringParam(p, "s", ""))
	assert.Equal(t, "d", StringParam(p, "missing", "d"))
	assert.Equal(t, 2, IntParam(p, "f", 0))
	assert.Equal(t, 3, IntParam(p, "i", 0))
	assert.Equal(t, 2.5, FloatParam(p, "f", 0))
	assert.Equal(t, 3.0, FloatParam(p, "i", 0))
	assert.True(t, BoolParam(p, "b", false))
	assert.False(t, BoolParam(p, "s", false))
}
