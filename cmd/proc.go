package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/output"
	"github.com/mj1618/screen-macro/internal/process"
)

var procCmd = &cobra.Command{
	Use:   "proc",
	Short: "Find or terminate the target process",
}

var procFindCmd = &cobra.Command{
	Use:   "find [name]",
	Short: "List processes matching an executable name",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProcFind,
}

var procKillCmd = &cobra.Command{
	Use:   "kill [name]",
	Short: "Terminate processes matching an executable name",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProcKill,
}

func init() {
	rootCmd.AddCommand(procCmd)
	procCmd.AddCommand(procFindCmd, procKillCmd)
	procKillCmd.Flags().Bool("force", false, "Kill immediately instead of asking the process to exit")
}

// processName returns the name argument, or the configured target process.
func processName(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if appConfig.Run.Process == "" {
		return "", fmt.Errorf("specify a process name or set run.process")
	}
	return appConfig.Run.Process, nil
}

func runProcFind(cmd *cobra.Command, args []string) error {
	name, err := processName(args)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	procs, err := process.New().FindByName(ctx, name)
	if err != nil {
		return err
	}
	return output.Print(procs)
}

func runProcKill(cmd *cobra.Command, args []string) error {
	name, err := processName(args)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")

	ctx, cancel := signalContext()
	defer cancel()

	if !process.New().TerminateByName(ctx, name, force) {
		return fmt.Errorf("no process matching %q was terminated", name)
	}
	return output.Print(ActionResult{OK: true, Action: "kill"})
}
