package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/output"
	"github.com/mj1618/screen-macro/internal/platform"
)

// FocusResult is the output of a successful focus.
type FocusResult struct {
	OK     bool   `yaml:"ok"               json:"ok"`
	Action string `yaml:"action"           json:"action"`
	App    string `yaml:"app,omitempty"    json:"app,omitempty"`
	Window string `yaml:"window,omitempty" json:"window,omitempty"`
	PID    int    `yaml:"pid,omitempty"    json:"pid,omitempty"`
}

var focusCmd = &cobra.Command{
	Use:   "focus [title]",
	Short: "Bring a window to the foreground",
	Long:  "Focus a window by exact title, falling back to a case-insensitive substring match across visible windows.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFocus,
}

func init() {
	rootCmd.AddCommand(focusCmd)
}

func runFocus(cmd *cobra.Command, args []string) error {
	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}

	title := appConfig.Run.Window
	if len(args) == 1 {
		title = args[0]
	}
	if title == "" {
		return fmt.Errorf("specify a window title or set run.window")
	}

	ctx, cancel := signalContext()
	defer cancel()

	win, ok := newInjector(cmd, provider).Focus(ctx, title)
	if !ok {
		return fmt.Errorf("no window matching %q could be focused", title)
	}
	return output.Print(FocusResult{
		OK:     true,
		Action: "focus",
		App:    win.App,
		Window: win.Title,
		PID:    win.PID,
	})
}
