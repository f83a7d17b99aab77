package orchestrator

import (
	"time"

	"github.com/mj1618/screen-macro/internal/model"
)

// Per-account results.
const (
	ResultDone    = "done"
	ResultFailed  = "failed"
	ResultStopped = "stopped"
)

// AccountResult is the outcome of one account attempt.
type AccountResult struct {
	Account  string        `yaml:"account"           json:"account"`
	Result   string        `yaml:"result"            json:"result"`
	Restarts int           `yaml:"restarts"          json:"restarts"`
	Skipped  []int         `yaml:"skipped,omitempty" json:"skipped,omitempty"`
	Elapsed  time.Duration `yaml:"elapsed"           json:"elapsed"`
}

// Summary describes a whole run.
type Summary struct {
	RunID    string          `yaml:"run_id"   json:"run_id"`
	Started  time.Time       `yaml:"started"  json:"started"`
	Elapsed  time.Duration   `yaml:"elapsed"  json:"elapsed"`
	Accounts []AccountResult `yaml:"accounts" json:"accounts"`
	// Exhausted is set when the run stopped because no eligible account
	// remained.
	Exhausted bool `yaml:"exhausted" json:"exhausted"`
}

// Count returns how many accounts ended with result.
func (s Summary) Count(result string) int {
	n := 0
	for _, a := range s.Accounts {
		if a.Result == result {
			n++
		}
	}
	return n
}

// StepResult describes a single step run by TestStep. Outcome is empty for
// detection-only runs.
type StepResult struct {
	Step    int          `yaml:"step"              json:"step"`
	Image   string       `yaml:"image"             json:"image"`
	Account string       `yaml:"account,omitempty" json:"account,omitempty"`
	Found   bool         `yaml:"found"             json:"found"`
	Match   *model.Match `yaml:"match,omitempty"   json:"match,omitempty"`
	Outcome string       `yaml:"outcome,omitempty" json:"outcome,omitempty"`
}
