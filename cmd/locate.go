package cmd

import (
	"fmt"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/output"
	"github.com/mj1618/screen-macro/internal/platform"
)

// LocateResult is the output of the locate command.
type LocateResult struct {
	Found     bool          `yaml:"found"               json:"found"`
	Template  string        `yaml:"template"            json:"template"`
	Threshold float64       `yaml:"threshold"           json:"threshold"`
	Matches   []model.Match `yaml:"matches"             json:"matches"`
	Annotated string        `yaml:"annotated,omitempty" json:"annotated,omitempty"`
}

var locateCmd = &cobra.Command{
	Use:   "locate <image>",
	Short: "Find a reference image on screen",
	Long: `Search the screen for a reference image and print the center of the best
match. With --all every non-overlapping match above the threshold is listed.
Exits non-zero when nothing is found.

Examples:
  screen-macro locate templates/step3.png
  screen-macro locate templates/step3.png --all --annotate found.png
  screen-macro locate button.png --region 0,0,1280,720 --threshold 0.9`,
	Args: cobra.ExactArgs(1),
	RunE: runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)
	locateCmd.Flags().Bool("all", false, "List every match, not just the best")
	locateCmd.Flags().String("region", "", "Search region x,y,w,h")
	locateCmd.Flags().String("annotate", "", "Write a PNG of the searched area with matches outlined")
	addThresholdFlag(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
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

	all, _ := cmd.Flags().GetBool("all")
	annotate, _ := cmd.Flags().GetString("annotate")
	path := args[0]

	var matches []model.Match
	if all {
		matches = det.LocateAll(path, region)
	} else if m, ok := det.Locate(path, region); ok {
		matches = []model.Match{m}
	}

	result := LocateResult{
		Found:     len(matches) > 0,
		Template:  path,
		Threshold: det.Threshold(),
		Matches:   matches,
	}
	if result.Matches == nil {
		result.Matches = []model.Match{}
	}

	if annotate != "" {
		if err := writeAnnotated(provider.Screenshotter, region, matches, annotate); err != nil {
			return err
		}
		result.Annotated = annotate
	}

	if err := output.Print(result); err != nil {
		return err
	}
	if !result.Found {
		return fmt.Errorf("%s not found on screen", path)
	}
	return nil
}

// writeAnnotated captures region again and saves it with matches outlined.
func writeAnnotated(screen platform.Screenshotter, region *platform.Bounds, matches []model.Match, path string) error {
	shot, err := screen.Capture(region)
	if err != nil {
		return fmt.Errorf("capture screen: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, annotateMatches(shot, matches)); err != nil {
		f.Close()
		return fmt.Errorf("encode annotated png: %w", err)
	}
	return f.Close()
}
