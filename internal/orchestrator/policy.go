package orchestrator

import (
	"time"

	"github.com/mj1618/screen-macro/internal/steps"
)

// RetryPolicy bounds the attempts made at one step.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first failed attempt
	// (0 = retry forever).
	MaxRetries int
	Delay      time.Duration
}

// RetryContext tracks the failed attempts at the step being executed.
type RetryContext struct {
	Step     steps.Step
	Attempts int
}

// afterFailure records a failed detection or click and decides what happens
// next: Retry the same step, Skip it, or Restart the sequence.
func (p RetryPolicy) afterFailure(rc *RetryContext, b steps.Behavior) Outcome {
	rc.Attempts++
	switch {
	case b.SkipAfter > 0 && rc.Attempts >= b.SkipAfter:
		return Skip
	case p.MaxRetries == 0 || rc.Attempts <= p.MaxRetries:
		return Retry
	case b.SkipAfter > 0:
		return Skip
	default:
		return Restart
	}
}
