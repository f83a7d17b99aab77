package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/output"
	"github.com/mj1618/screen-macro/internal/platform"
)

var clickCmd = &cobra.Command{
	Use:   "click",
	Short: "Click at coordinates or on a reference image",
	Long: `Click at absolute screen coordinates, or locate a reference image and click
its center. The target window, when given, is brought to the foreground first.`,
	RunE: runClick,
}

func init() {
	rootCmd.AddCommand(clickCmd)
	clickCmd.Flags().Int("x", -1, "Click at absolute X screen coordinate")
	clickCmd.Flags().Int("y", -1, "Click at absolute Y screen coordinate")
	clickCmd.Flags().String("image", "", "Locate this reference image and click its center")
	clickCmd.Flags().String("region", "", "Search region x,y,w,h (with --image)")
	clickCmd.Flags().Bool("double", false, "Double-click")
	clickCmd.Flags().Bool("right", false, "Right-click")
	clickCmd.Flags().String("window", "", "Bring this window to the foreground first")
	addThresholdFlag(clickCmd)
}

func runClick(cmd *cobra.Command, args []string) error {
	x, _ := cmd.Flags().GetInt("x")
	y, _ := cmd.Flags().GetInt("y")
	image, _ := cmd.Flags().GetString("image")
	double, _ := cmd.Flags().GetBool("double")
	right, _ := cmd.Flags().GetBool("right")
	window := windowFlag(cmd)
	if double && right {
		return fmt.Errorf("--double and --right cannot be combined")
	}

	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}

	if image != "" {
		region, err := regionFlag(cmd)
		if err != nil {
			return err
		}
		det, err := newDetector(cmd, provider)
		if err != nil {
			return err
		}
		m, ok := det.Locate(image, region)
		if !ok {
			return fmt.Errorf("%s not found on screen", image)
		}
		x, y = m.X, m.Y
	} else if x < 0 || y < 0 {
		return fmt.Errorf("specify --x and --y, or --image")
	}

	ctx, cancel := signalContext()
	defer cancel()

	inj := newInjector(cmd, provider)
	action, click := "click", inj.Click
	switch {
	case double:
		action, click = "double-click", inj.DoubleClick
	case right:
		action, click = "right-click", inj.RightClick
	}
	if !click(ctx, x, y, window) {
		return fmt.Errorf("%s at %d,%d failed: no input strategy succeeded", action, x, y)
	}
	return output.Print(ActionResult{OK: true, Action: action, X: x, Y: y, Window: window})
}
