package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/detect"
	"github.com/mj1618/screen-macro/internal/inject"
	"github.com/mj1618/screen-macro/internal/platform"
)

// ActionResult is the output of a single input command.
type ActionResult struct {
	OK     bool   `yaml:"ok"               json:"ok"`
	Action string `yaml:"action"           json:"action"`
	X      int    `yaml:"x,omitempty"      json:"x,omitempty"`
	Y      int    `yaml:"y,omitempty"      json:"y,omitempty"`
	Window string `yaml:"window,omitempty" json:"window,omitempty"`
}

// signalContext returns a context cancelled on Ctrl-C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newDetector builds a Detector from the loaded configuration. A changed
// --threshold flag on cmd overrides the configured value.
func newDetector(cmd *cobra.Command, p *platform.Provider) (*detect.Detector, error) {
	if p.Screenshotter == nil {
		return nil, fmt.Errorf("screen capture %w on this platform", platform.ErrUnsupported)
	}
	threshold := appConfig.Run.Threshold
	if f := cmd.Flags().Lookup("threshold"); f != nil && f.Changed {
		threshold, _ = cmd.Flags().GetFloat64("threshold")
	}
	return detect.New(p.Screenshotter, detect.Options{
		Threshold:        threshold,
		PyramidMinPixels: appConfig.Detect.PyramidMinPixels,
		Workers:          appConfig.Detect.Workers,
	})
}

// newInjector builds an Injector over the provider's strategies. A changed
// --paste flag on cmd overrides the configured entry mode.
func newInjector(cmd *cobra.Command, p *platform.Provider) *inject.Injector {
	paste := appConfig.Run.Paste
	if f := cmd.Flags().Lookup("paste"); f != nil && f.Changed {
		paste, _ = cmd.Flags().GetBool("paste")
	}
	return inject.NewFromProvider(p, inject.Options{
		FocusSettle: appConfig.Timing.FocusSettle,
		KeyDelay:    appConfig.Timing.KeyDelay,
		ClearSettle: appConfig.Timing.ClearSettle,
		Paste:       paste,
	})
}

// regionFlag reads the optional --region flag.
func regionFlag(cmd *cobra.Command) (*platform.Bounds, error) {
	s, _ := cmd.Flags().GetString("region")
	return platform.ParseRegion(s)
}

// addThresholdFlag registers --threshold on detection commands.
func addThresholdFlag(cmd *cobra.Command) {
	cmd.Flags().Float64("threshold", 0.8, "Minimum match confidence 0.0-1.0 (default from config)")
}

// windowFlag returns --window, falling back to the configured target window.
func windowFlag(cmd *cobra.Command) string {
	if w, _ := cmd.Flags().GetString("window"); w != "" {
		return w
	}
	return appConfig.Run.Window
}
