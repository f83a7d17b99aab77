package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/ledger"
	"github.com/mj1618/screen-macro/internal/orchestrator"
	"github.com/mj1618/screen-macro/internal/output"
	"github.com/mj1618/screen-macro/internal/platform"
	"github.com/mj1618/screen-macro/internal/process"
	"github.com/mj1618/screen-macro/internal/steps"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the macro for accounts in the ledger",
	Long: `Run the step sequence found in the templates directory (step1.png,
step2.png, ...) once per eligible ledger account. An account is eligible while
its completion_state column is empty; it is marked done after the final step.

Each step waits for its reference image, clicks its center and performs the
step's side effect. A step that keeps failing is retried, then skipped if the
step table allows it, then the whole sequence restarts after the target
process is killed. An account that exhausts its restart budget stops the run
and is left unmarked.

Examples:
  screen-macro run
  screen-macro run --iterations 0 --ledger data/account.csv
  screen-macro run --steps-file steps.yaml --window "Where Winds Meet"`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	f := runCmd.Flags()
	f.String("templates", "templates", "Directory holding stepN reference images")
	f.String("ledger", "data/account.csv", "Account CSV ledger")
	f.String("steps-file", "", "YAML step behaviour table (default: built-in table)")
	f.String("window", "", "Title of the window to focus before each action")
	f.String("process", "wwm.exe", "Executable name killed on restart and after the final step")
	f.Float64("threshold", 0.8, "Minimum match confidence 0.0-1.0")
	f.Int("max-retries", 10, "Retries per step before escalating (0 = unlimited)")
	f.Duration("retry-delay", 2*time.Second, "Wait between attempts of the same step")
	f.Int("max-restarts", 3, "Whole-sequence restarts allowed per account")
	f.Int("iterations", 1, "Accounts to process (0 = until none are eligible)")
	f.String("done-marker", "done", "Value written to completion_state on success")
	f.Bool("paste", false, "Enter credentials through the clipboard instead of typing")

	bindFlags(runCmd, map[string]string{
		"templates":    "paths.templates",
		"ledger":       "paths.ledger",
		"steps-file":   "paths.steps_file",
		"window":       "run.window",
		"process":      "run.process",
		"threshold":    "run.threshold",
		"max-retries":  "run.max_retries",
		"retry-delay":  "run.retry_delay",
		"max-restarts": "run.max_restarts",
		"iterations":   "run.iterations",
		"done-marker":  "run.done_marker",
		"paste":        "run.paste",
	})
}

func runRun(cmd *cobra.Command, args []string) error {
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

	engine := orchestrator.New(orchestrator.FromConfig(appConfig), seq, table, orchestrator.Deps{
		Detector:  det,
		Injector:  newInjector(cmd, provider),
		Processes: process.New(),
		Queue:     ledger.Open(appConfig.Paths.Ledger),
	}, orchestrator.WithObserver(logTransition))

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("run started",
		"run_id", engine.RunID(),
		"steps", len(seq),
		"ledger", appConfig.Paths.Ledger,
		"iterations", appConfig.Run.Iterations,
	)
	sum, runErr := engine.Run(ctx)

	if output.IsTerminal(os.Stderr) {
		fmt.Fprintln(os.Stderr, output.RenderSummary(sum, output.Width(os.Stderr)))
	}
	if err := output.Print(sum); err != nil {
		return err
	}

	if ctx.Err() != nil && errors.Is(runErr, ctx.Err()) {
		slog.Warn("run interrupted", "run_id", engine.RunID())
	}
	return runErr
}

// loadStepTable reads the YAML table at path, or returns the built-in table.
func loadStepTable(path string) (steps.Table, error) {
	if path == "" {
		return steps.DefaultTable(), nil
	}
	return steps.LoadTable(path)
}

// logTransition reports engine state changes at debug level, and the
// escalations at info.
func logTransition(ev orchestrator.Event) {
	attrs := []any{"account", ev.Account, "state", ev.State.String(), "step", ev.Step, "attempt", ev.Attempt, "restarts", ev.Restarts}
	switch ev.State {
	case orchestrator.RestartingSequence, orchestrator.Skipping, orchestrator.Failed:
		slog.Info("state", attrs...)
	default:
		slog.Debug("state", attrs...)
	}
}
