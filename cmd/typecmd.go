package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/output"
	"github.com/mj1618/screen-macro/internal/platform"
)

var typeCmd = &cobra.Command{
	Use:   "type [text]",
	Short: "Type text into the focused field",
	Args:  cobra.ExactArgs(1),
	RunE:  runType,
}

var keyCmd = &cobra.Command{
	Use:   "key [combo]",
	Short: "Press a key or key combination",
	Long: `Press a key or combination one or more times.

Examples:
  screen-macro key enter
  screen-macro key ctrl+a
  screen-macro key r --repeat 4 --interval 1s`,
	Args: cobra.ExactArgs(1),
	RunE: runKey,
}

func init() {
	rootCmd.AddCommand(typeCmd)
	typeCmd.Flags().Bool("clear", false, "Select all and delete existing content first")
	typeCmd.Flags().Bool("paste", false, "Paste through the clipboard instead of typing")
	typeCmd.Flags().String("window", "", "Bring this window to the foreground first")

	rootCmd.AddCommand(keyCmd)
	keyCmd.Flags().Int("repeat", 1, "Number of presses")
	keyCmd.Flags().Duration("interval", 0, "Pause between presses")
	keyCmd.Flags().String("window", "", "Bring this window to the foreground first")
}

func runType(cmd *cobra.Command, args []string) error {
	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}
	clearFirst, _ := cmd.Flags().GetBool("clear")
	window := windowFlag(cmd)

	ctx, cancel := signalContext()
	defer cancel()

	if !newInjector(cmd, provider).EnterText(ctx, args[0], clearFirst, window) {
		return fmt.Errorf("type failed: no input strategy succeeded")
	}
	return output.Print(ActionResult{OK: true, Action: "type", Window: window})
}

func runKey(cmd *cobra.Command, args []string) error {
	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}
	if _, err := platform.ParseKeyCombo(args[0]); err != nil {
		return err
	}
	repeat, _ := cmd.Flags().GetInt("repeat")
	interval, _ := cmd.Flags().GetDuration("interval")
	window := windowFlag(cmd)
	if repeat < 1 {
		return fmt.Errorf("--repeat must be >= 1")
	}
	if interval < 0 {
		return fmt.Errorf("--interval must not be negative")
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !newInjector(cmd, provider).PressKey(ctx, args[0], repeat, interval, window) {
		return fmt.Errorf("key %s failed: no input strategy succeeded", args[0])
	}
	return output.Print(ActionResult{OK: true, Action: "key", Window: window})
}
