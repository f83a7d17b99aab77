package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError describes one invalid configuration value
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is returned by Load when one or more fields are invalid
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Run.Threshold < 0 || c.Run.Threshold > 1 {
		errs = append(errs, ValidationError{"run.threshold", c.Run.Threshold, "must be between 0.0 and 1.0"})
	}
	if c.Run.MaxRetries < 0 {
		errs = append(errs, ValidationError{"run.max_retries", c.Run.MaxRetries, "must be >= 0 (0 = unlimited)"})
	}
	if c.Run.RetryDelay < 0 {
		errs = append(errs, ValidationError{"run.retry_delay", c.Run.RetryDelay, "must not be negative"})
	}
	if c.Run.MaxRestarts < 0 {
		errs = append(errs, ValidationError{"run.max_restarts", c.Run.MaxRestarts, "must be >= 0"})
	}
	if c.Run.Iterations < 0 {
		errs = append(errs, ValidationError{"run.iterations", c.Run.Iterations, "must be >= 0 (0 = until no accounts remain)"})
	}
	if strings.TrimSpace(c.Run.DoneMarker) == "" {
		errs = append(errs, ValidationError{"run.done_marker", c.Run.DoneMarker, "must not be empty"})
	}
	if c.Paths.Templates == "" {
		errs = append(errs, ValidationError{"paths.templates", c.Paths.Templates, "must not be empty"})
	}
	if c.Paths.Ledger == "" {
		errs = append(errs, ValidationError{"paths.ledger", c.Paths.Ledger, "must not be empty"})
	}
	if c.Detect.PyramidMinPixels < 0 {
		errs = append(errs, ValidationError{"detect.pyramid_min_pixels", c.Detect.PyramidMinPixels, "must be >= 0"})
	}
	if c.Detect.Workers < 0 {
		errs = append(errs, ValidationError{"detect.workers", c.Detect.Workers, "must be >= 0"})
	}

	timings := []struct {
		field string
		value time.Duration
	}{
		{"timing.pre_click", c.Timing.PreClick},
		{"timing.between_steps", c.Timing.BetweenSteps},
		{"timing.after_skip", c.Timing.AfterSkip},
		{"timing.restart_wait", c.Timing.RestartWait},
		{"timing.kill_wait", c.Timing.KillWait},
		{"timing.between_runs", c.Timing.BetweenRuns},
		{"timing.credential_gap", c.Timing.CredentialGap},
		{"timing.key_delay", c.Timing.KeyDelay},
		{"timing.clear_settle", c.Timing.ClearSettle},
		{"timing.focus_settle", c.Timing.FocusSettle},
	}
	for _, t := range timings {
		if t.value < 0 {
			errs = append(errs, ValidationError{t.field, t.value, "must not be negative"})
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{"logging.level", c.Logging.Level, "must be one of debug, info, warn, error"})
	}

	return errs
}
