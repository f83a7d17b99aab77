package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/output"
	"github.com/mj1618/screen-macro/internal/platform"
)

// WaitResult is the output of a wait command.
type WaitResult struct {
	OK       bool         `yaml:"ok"                  json:"ok"`
	Action   string       `yaml:"action"              json:"action"`
	Elapsed  string       `yaml:"elapsed"             json:"elapsed"`
	Match    *model.Match `yaml:"match,omitempty"     json:"match,omitempty"`
	TimedOut bool         `yaml:"timed_out,omitempty" json:"timed_out,omitempty"`
}

var waitCmd = &cobra.Command{
	Use:   "wait <image>",
	Short: "Wait for a reference image to appear on screen",
	Long:  "Poll the screen until the reference image matches above the threshold or the timeout is reached.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWait,
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().Duration("timeout", 30*time.Second, "Max time to wait")
	waitCmd.Flags().Duration("interval", 500*time.Millisecond, "Polling interval")
	waitCmd.Flags().String("region", "", "Search region x,y,w,h")
	addThresholdFlag(waitCmd)
}

func runWait(cmd *cobra.Command, args []string) error {
	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}
	region, err := regionFlag(cmd)
	if err != nil {
		return err
	}
	det, err := newDetector(cmd, provider)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	m, ok := det.WaitFor(ctx, args[0], region, timeout, interval)
	elapsed := time.Since(start).Round(time.Millisecond)

	if !ok {
		if err := output.Print(WaitResult{Action: "wait", Elapsed: elapsed.String(), TimedOut: ctx.Err() == nil}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("timed out after %s waiting for %s", timeout, args[0])
	}
	return output.Print(WaitResult{OK: true, Action: "wait", Elapsed: elapsed.String(), Match: &m})
}
