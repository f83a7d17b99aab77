// Package process finds and terminates processes by executable name.
//
// Lookups go through gopsutil. When enumeration fails, or a matching process
// refuses to die, termination falls back to the operating system's own tool
// (taskkill on Windows, pkill -x elsewhere), which can still reach processes
// gopsutil cannot open. The fallback matches the exact process name only.
package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	gopsprocess "github.com/shirou/gopsutil/v3/process"
)

// Info identifies a running process.
type Info struct {
	PID  int    `yaml:"pid"  json:"pid"`
	Name string `yaml:"name" json:"name"`
}

// handle is the subset of a gopsutil process the controller needs.
type handle interface {
	PID() int
	Name(ctx context.Context) (string, error)
	Terminate(ctx context.Context) error
	Kill(ctx context.Context) error
}

type gopsHandle struct{ p *gopsprocess.Process }

func (h gopsHandle) PID() int { return int(h.p.Pid) }

func (h gopsHandle) Name(ctx context.Context) (string, error) { return h.p.NameWithContext(ctx) }
func (h gopsHandle) Terminate(ctx context.Context) error      { return h.p.TerminateWithContext(ctx) }
func (h gopsHandle) Kill(ctx context.Context) error           { return h.p.KillWithContext(ctx) }

func listProcesses(ctx context.Context) ([]handle, error) {
	procs, err := gopsprocess.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]handle, len(procs))
	for i, p := range procs {
		out[i] = gopsHandle{p}
	}
	return out, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Controller finds and terminates processes.
type Controller struct {
	list func(context.Context) ([]handle, error)
	run  func(ctx context.Context, name string, args ...string) error
	goos string
	self int
	log  *slog.Logger
}

// New creates a Controller backed by gopsutil and the OS kill command.
func New() *Controller {
	return &Controller{
		list: listProcesses,
		run:  runCommand,
		goos: runtime.GOOS,
		self: os.Getpid(),
		log:  slog.Default().With("component", "process"),
	}
}

// baseName lower-cases name and strips a trailing ".exe".
func baseName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(n, ".exe")
}

// FindByName returns processes whose name contains name, compared
// case-insensitively with any ".exe" suffix removed.
func (c *Controller) FindByName(ctx context.Context, name string) ([]Info, error) {
	needle := baseName(name)
	if needle == "" {
		return []Info{}, nil
	}
	procs, err := c.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	return c.match(ctx, procs, needle), nil
}

func (c *Controller) match(ctx context.Context, procs []handle, needle string) []Info {
	out := []Info{}
	for _, p := range procs {
		if p.PID() == c.self {
			continue
		}
		pname, err := p.Name(ctx)
		if err != nil || pname == "" {
			// Exited or not accessible.
			continue
		}
		if strings.Contains(baseName(pname), needle) {
			out = append(out, Info{PID: p.PID(), Name: pname})
		}
	}
	return out
}

// TerminateByName ends every process matching name: a graceful terminate,
// or an immediate kill with force. It reports whether anything was ended.
func (c *Controller) TerminateByName(ctx context.Context, name string, force bool) bool {
	needle := baseName(name)
	if needle == "" {
		return false
	}
	procs, err := c.list(ctx)
	if err != nil {
		c.log.Warn("process enumeration failed, using system command", "error", err)
		return c.fallback(ctx, name, force)
	}

	matched, killed := 0, 0
	for _, p := range procs {
		if p.PID() == c.self {
			continue
		}
		pname, err := p.Name(ctx)
		if err != nil || !strings.Contains(baseName(pname), needle) {
			continue
		}
		matched++
		if force {
			err = p.Kill(ctx)
		} else {
			err = p.Terminate(ctx)
		}
		if err != nil {
			c.log.Warn("could not end process", "pid", p.PID(), "name", pname, "force", force, "error", err)
			continue
		}
		c.log.Info("process ended", "pid", p.PID(), "name", pname, "force", force)
		killed++
	}
	switch {
	case killed > 0:
		return true
	case matched == 0:
		c.log.Debug("no matching process running", "name", name)
		return false
	}
	c.log.Debug("matching processes survived, trying system command", "name", name)
	return c.fallback(ctx, name, force)
}

func (c *Controller) fallback(ctx context.Context, name string, force bool) bool {
	cmd, args := killCommand(c.goos, name, force)
	if err := c.run(ctx, cmd, args...); err != nil {
		c.log.Debug("system kill command failed", "command", cmd, "error", err)
		return false
	}
	c.log.Info("process ended by system command", "command", cmd, "name", name)
	return true
}

// killCommand builds the OS-native kill invocation for name.
func killCommand(goos, name string, force bool) (string, []string) {
	if goos == "windows" {
		image := strings.TrimSpace(name)
		if !strings.HasSuffix(strings.ToLower(image), ".exe") {
			image += ".exe"
		}
		args := []string{"/IM", image}
		if force {
			args = append([]string{"/F"}, args...)
		}
		return "taskkill", args
	}
	image := strings.TrimSpace(name)
	if strings.HasSuffix(strings.ToLower(image), ".exe") {
		image = image[:len(image)-len(".exe")]
	}
	args := []string{"-x", image}
	if force {
		args = append([]string{"-9"}, args...)
	}
	return "pkill", args
}
