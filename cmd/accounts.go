package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mj1618/screen-macro/internal/ledger"
	"github.com/mj1618/screen-macro/internal/output"
)

// AccountView is a ledger row with the password masked.
type AccountView struct {
	ID       string `yaml:"id"              json:"id"`
	Username string `yaml:"username"        json:"username"`
	Password string `yaml:"password"        json:"password"`
	State    string `yaml:"state,omitempty" json:"state,omitempty"`
}

// MarkResult is the output of accounts mark.
type MarkResult struct {
	OK     bool   `yaml:"ok"     json:"ok"`
	ID     string `yaml:"id"     json:"id"`
	Marker string `yaml:"marker" json:"marker"`
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Inspect and update the account ledger",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ledger accounts",
	RunE:  runAccountsList,
}

var accountsNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next account the run would process",
	RunE:  runAccountsNext,
}

var accountsMarkCmd = &cobra.Command{
	Use:   "mark <id>",
	Short: "Set an account's completion state",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsMark,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd, accountsNextCmd, accountsMarkCmd)
	accountsListCmd.Flags().Bool("pending", false, "Only accounts without a completion state")
	accountsMarkCmd.Flags().String("marker", "", "Completion value to write (default from run.done_marker)")
}

func viewAccount(a ledger.Account) AccountView {
	return AccountView{ID: a.ID, Username: a.Username, Password: maskPassword(a.Password), State: a.State}
}

func maskPassword(s string) string {
	if s == "" {
		return ""
	}
	return strings.Repeat("*", 8)
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	pending, _ := cmd.Flags().GetBool("pending")

	accts, err := ledger.Open(appConfig.Paths.Ledger).List()
	if err != nil {
		return err
	}
	out := make([]AccountView, 0, len(accts))
	for _, a := range accts {
		if pending && a.Done() {
			continue
		}
		out = append(out, viewAccount(a))
	}
	return output.Print(out)
}

func runAccountsNext(cmd *cobra.Command, args []string) error {
	a, ok, err := ledger.Open(appConfig.Paths.Ledger).NextEligible()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no eligible account in %s", appConfig.Paths.Ledger)
	}
	return output.Print(viewAccount(a))
}

func runAccountsMark(cmd *cobra.Command, args []string) error {
	marker, _ := cmd.Flags().GetString("marker")
	if marker == "" {
		marker = appConfig.Run.DoneMarker
	}
	if err := ledger.Open(appConfig.Paths.Ledger).MarkDone(args[0], marker); err != nil {
		return err
	}
	return output.Print(MarkResult{OK: true, ID: args[0], Marker: marker})
}
