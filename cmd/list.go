package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/output"
	"github.com/mj1618/screen-macro/internal/platform"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open windows",
	Long:  "List top-level windows with their app name, title, PID and bounds.",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("apps", false, "List applications owning windows instead")
	listCmd.Flags().Int("pid", 0, "Filter windows by PID")
	listCmd.Flags().String("title", "", "Filter windows by title substring")
	listCmd.Flags().Bool("all", false, "Include hidden windows")
}

// appEntry is the output for --apps mode.
type appEntry struct {
	App string `yaml:"app" json:"app"`
	PID int    `yaml:"pid" json:"pid"`
}

func runList(cmd *cobra.Command, args []string) error {
	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}
	if provider.WindowManager == nil {
		return fmt.Errorf("window listing %w on this platform", platform.ErrUnsupported)
	}

	apps, _ := cmd.Flags().GetBool("apps")
	pid, _ := cmd.Flags().GetInt("pid")
	title, _ := cmd.Flags().GetString("title")
	all, _ := cmd.Flags().GetBool("all")

	windows, err := provider.WindowManager.ListWindows(platform.ListOptions{
		Title:       title,
		PID:         pid,
		VisibleOnly: !all,
	})
	if err != nil {
		return err
	}

	if apps {
		return output.Print(uniqueApps(windows))
	}
	if windows == nil {
		windows = []model.Window{}
	}
	return output.Print(windows)
}

// uniqueApps aggregates windows to one entry per application.
func uniqueApps(windows []model.Window) []appEntry {
	seen := make(map[string]bool)
	entries := []appEntry{}
	for _, w := range windows {
		if !seen[w.App] {
			seen[w.App] = true
			entries = append(entries, appEntry{App: w.App, PID: w.PID})
		}
	}
	return entries
}
