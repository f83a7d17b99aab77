package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/ledger"
	"github.com/mj1618/screen-macro/internal/orchestrator"
	"github.com/mj1618/screen-macro/internal/output"
	"github.com/mj1618/screen-macro/internal/platform"
	"github.com/mj1618/screen-macro/internal/process"
	"github.com/mj1618/screen-macro/internal/steps"
)

// StepInfo describes one discovered step and its behaviour.
type StepInfo struct {
	Step      int    `yaml:"step"                 json:"step"`
	Image     string `yaml:"image"                json:"image"`
	Effect    string `yaml:"effect"               json:"effect"`
	SkipAfter int    `yaml:"skip_after,omitempty" json:"skip_after,omitempty"`
	Settle    string `yaml:"settle,omitempty"     json:"settle,omitempty"`
	Key       string `yaml:"key,omitempty"        json:"key,omitempty"`
	Count     int    `yaml:"count,omitempty"      json:"count,omitempty"`
}

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "List the discovered steps and their behaviour",
	Long:  "Show the step sequence the run command would execute, with the effect and skip rule of each step.",
	RunE:  runSteps,
}

var stepsTestCmd = &cobra.Command{
	Use:   "test <step>",
	Short: "Run a single step once",
	Long: `Run one step the way the run command would: wait for its image, click it
and perform its effect, retrying per the configured policy. Credentials come
from the next eligible ledger account. The ledger is never updated.

With --detect-only the step image is located once and nothing is clicked.

Examples:
  screen-macro steps test 4
  screen-macro steps test 9 --detect-only --threshold 0.7`,
	Args: cobra.ExactArgs(1),
	RunE: runStepsTest,
}

func init() {
	rootCmd.AddCommand(stepsCmd)
	stepsCmd.AddCommand(stepsTestCmd)
	stepsTestCmd.Flags().Bool("detect-only", false, "Only locate the step image")
	stepsTestCmd.Flags().String("window", "", "Title of the window to focus before each action (default from config)")
	stepsTestCmd.Flags().Bool("paste", false, "Enter credentials through the clipboard instead of typing")
	addThresholdFlag(stepsTestCmd)
}

func runSteps(cmd *cobra.Command, args []string) error {
	seq, err := steps.Discover(appConfig.Paths.Templates)
	if err != nil {
		return err
	}
	table, err := loadStepTable(appConfig.Paths.StepsFile)
	if err != nil {
		return err
	}
	return output.Print(describeSteps(seq, table))
}

func runStepsTest(cmd *cobra.Command, args []string) error {
	ordinal, err := parseStepOrdinal(args[0])
	if err != nil {
		return err
	}
	detectOnly, _ := cmd.Flags().GetBool("detect-only")

	seq, err := steps.Discover(appConfig.Paths.Templates)
	if err != nil {
		return err
	}
	table, err := loadStepTable(appConfig.Paths.StepsFile)
	if err != nil {
		return err
	}

	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}
	det, err := newDetector(cmd, provider)
	if err != nil {
		return err
	}

	cfg := orchestrator.FromConfig(appConfig)
	cfg.Window = windowFlag(cmd)
	engine := orchestrator.New(cfg, seq, table, orchestrator.Deps{
		Detector:  det,
		Injector:  newInjector(cmd, provider),
		Processes: process.New(),
		Queue:     ledger.Open(appConfig.Paths.Ledger),
	}, orchestrator.WithObserver(logTransition))

	ctx, cancel := signalContext()
	defer cancel()

	res, err := engine.TestStep(ctx, ordinal, detectOnly)
	if err != nil {
		return err
	}
	return output.Print(res)
}

// parseStepOrdinal reads a step number argument.
func parseStepOrdinal(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid step %q: must be a number >= 1", s)
	}
	return n, nil
}

func describeSteps(seq []steps.Step, table steps.Table) []StepInfo {
	out := make([]StepInfo, 0, len(seq))
	for _, s := range seq {
		b := table.For(s.Ordinal)
		info := StepInfo{
			Step:      s.Ordinal,
			Image:     s.Image,
			Effect:    b.Effect.String(),
			SkipAfter: b.SkipAfter,
			Key:       b.Key,
			Count:     b.Count,
		}
		if b.Settle > 0 {
			info.Settle = b.Settle.String()
		}
		out = append(out, info)
	}
	return out
}
