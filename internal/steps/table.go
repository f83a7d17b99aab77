package steps

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Effect is the side effect a step performs after its click succeeds.
type Effect string

const (
	EffectNone          Effect = ""
	EffectEnterUsername Effect = "enter_username"
	EffectEnterPassword Effect = "enter_password"
	// EffectKeyBurst waits Settle, then presses Key Count times, Interval apart.
	EffectKeyBurst Effect = "key_burst"
	// EffectEndSequence terminates the target process, waits Settle and
	// finishes the account.
	EffectEndSequence Effect = "end_sequence"
)

// Valid reports whether e is a known effect.
func (e Effect) Valid() bool {
	switch e {
	case EffectNone, EffectEnterUsername, EffectEnterPassword, EffectKeyBurst, EffectEndSequence:
		return true
	}
	return false
}

func (e Effect) String() string {
	if e == EffectNone {
		return "none"
	}
	return string(e)
}

// Behavior overrides the defaults for one step.
type Behavior struct {
	// SkipAfter skips the step after this many failed attempts instead of
	// escalating to a restart (0 = no override).
	SkipAfter int           `yaml:"skip_after,omitempty"`
	Effect    Effect        `yaml:"effect,omitempty"`
	Settle    time.Duration `yaml:"settle,omitempty"`
	Key       string        `yaml:"key,omitempty"`
	Count     int           `yaml:"count,omitempty"`
	Interval  time.Duration `yaml:"interval,omitempty"`
}

// Table maps step ordinals to their behaviour. Steps absent from the table
// just click.
type Table map[int]Behavior

// For returns the behaviour of ordinal, or the zero Behavior.
func (t Table) For(ordinal int) Behavior {
	return t[ordinal]
}

// Ordinals returns the configured ordinals in ascending order.
func (t Table) Ordinals() []int {
	out := make([]int, 0, len(t))
	for n := range t {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// DefaultTable is the behaviour of the stock macro: credentials at steps 4
// and 6, a flaky step 8, the dialog at step 9 and the final step 11.
func DefaultTable() Table {
	return Table{
		4:  {Effect: EffectEnterUsername},
		6:  {Effect: EffectEnterPassword},
		8:  {SkipAfter: 10},
		9:  {Effect: EffectKeyBurst, Settle: 20 * time.Second, Key: "r", Count: 4, Interval: time.Second},
		11: {Effect: EffectEndSequence, Settle: 2 * time.Second},
	}
}

// Validate checks every entry and returns all problems joined.
func (t Table) Validate() error {
	var errs []error
	for _, n := range t.Ordinals() {
		b := t[n]
		if n < 1 {
			errs = append(errs, fmt.Errorf("step %d: ordinal must be >= 1", n))
		}
		if !b.Effect.Valid() {
			errs = append(errs, fmt.Errorf("step %d: unknown effect %q", n, b.Effect))
		}
		if b.SkipAfter < 0 {
			errs = append(errs, fmt.Errorf("step %d: skip_after must be >= 0", n))
		}
		if b.Settle < 0 || b.Interval < 0 {
			errs = append(errs, fmt.Errorf("step %d: durations must not be negative", n))
		}
		if b.Effect == EffectKeyBurst {
			if strings.TrimSpace(b.Key) == "" {
				errs = append(errs, fmt.Errorf("step %d: key_burst needs a key", n))
			}
			if b.Count < 1 {
				errs = append(errs, fmt.Errorf("step %d: key_burst count must be >= 1", n))
			}
		}
	}
	return errors.Join(errs...)
}

type tableFile struct {
	Steps Table `yaml:"steps"`
}

// LoadTable reads a YAML step table. The file replaces the default table
// entirely:
//
//	steps:
//	  4: {effect: enter_username}
//	  8: {skip_after: 10}
//	  9: {effect: key_burst, settle: 20s, key: r, count: 4, interval: 1s}
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read step table: %w", err)
	}
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse step table %s: %w", path, err)
	}
	if f.Steps == nil {
		f.Steps = Table{}
	}
	if err := f.Steps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid step table %s: %w", path, err)
	}
	return f.Steps, nil
}
