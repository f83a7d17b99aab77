// Package orchestrator runs the step sequence for each account in the
// ledger, escalating failures from per-step retries to a designated skip, to
// a whole-sequence restart with the target process killed, and finally to
// giving up on the account.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mj1618/screen-macro/internal/config"
	"github.com/mj1618/screen-macro/internal/ledger"
	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
	"github.com/mj1618/screen-macro/internal/steps"
)

var (
	// ErrNoSteps is returned by Run when no step images were discovered.
	ErrNoSteps = errors.New("no step images found")
	// ErrEscalationExhausted is returned when an account used up its
	// restart budget. The account is left unmarked.
	ErrEscalationExhausted = errors.New("restart budget exhausted")
	// ErrStepNotFound is returned by TestStep for an ordinal with no image.
	ErrStepNotFound = errors.New("step not found")
)

// Detector finds a reference image on screen.
type Detector interface {
	Locate(path string, region *platform.Bounds) (model.Match, bool)
}

// Injector delivers input. Every method is best-effort.
type Injector interface {
	Click(ctx context.Context, x, y int, target string) bool
	EnterText(ctx context.Context, text string, clearExisting bool, target string) bool
	PressKey(ctx context.Context, key string, repeat int, interval time.Duration, target string) bool
}

// Processes terminates the target application.
type Processes interface {
	TerminateByName(ctx context.Context, name string, force bool) bool
}

// Queue is the account ledger.
type Queue interface {
	NextEligible() (ledger.Account, bool, error)
	MarkDone(id, marker string) error
}

// Timing holds the fixed pauses between actions.
type Timing struct {
	PreClick      time.Duration
	BetweenSteps  time.Duration
	AfterSkip     time.Duration
	RestartWait   time.Duration
	KillWait      time.Duration
	BetweenRuns   time.Duration
	CredentialGap time.Duration
}

// Config is the immutable run configuration.
type Config struct {
	Window      string
	Process     string
	Retry       RetryPolicy
	MaxRestarts int
	Iterations  int // 0 = until the ledger has no eligible account
	DoneMarker  string
	Timing      Timing
}

// FromConfig builds the engine configuration from the loaded settings.
func FromConfig(c *config.Config) Config {
	return Config{
		Window:      c.Run.Window,
		Process:     c.Run.Process,
		Retry:       RetryPolicy{MaxRetries: c.Run.MaxRetries, Delay: c.Run.RetryDelay},
		MaxRestarts: c.Run.MaxRestarts,
		Iterations:  c.Run.Iterations,
		DoneMarker:  c.Run.DoneMarker,
		Timing: Timing{
			PreClick:      c.Timing.PreClick,
			BetweenSteps:  c.Timing.BetweenSteps,
			AfterSkip:     c.Timing.AfterSkip,
			RestartWait:   c.Timing.RestartWait,
			KillWait:      c.Timing.KillWait,
			BetweenRuns:   c.Timing.BetweenRuns,
			CredentialGap: c.Timing.CredentialGap,
		},
	}
}

// Deps are the collaborators driven by the engine.
type Deps struct {
	Detector  Detector
	Injector  Injector
	Processes Processes
	Queue     Queue
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers a hook called on every state transition.
func WithObserver(fn Observer) Option {
	return func(o *Orchestrator) { o.observe = fn }
}

// WithSleeper replaces the context-aware sleep used for every pause.
func WithSleeper(fn func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// Orchestrator executes the step sequence. It is strictly sequential: one
// account, one step, one action at a time.
type Orchestrator struct {
	cfg     Config
	seq     []steps.Step
	table   steps.Table
	deps    Deps
	sleep   func(context.Context, time.Duration) error
	observe Observer
	runID   string
	log     *slog.Logger
}

// New creates an Orchestrator for the discovered steps.
func New(cfg Config, seq []steps.Step, table steps.Table, deps Deps, opts ...Option) *Orchestrator {
	if table == nil {
		table = steps.Table{}
	}
	if cfg.DoneMarker == "" {
		cfg.DoneMarker = "done"
	}
	o := &Orchestrator{
		cfg:     cfg,
		seq:     seq,
		table:   table,
		deps:    deps,
		sleep:   sleepCtx,
		observe: func(Event) {},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}
	o.log = slog.Default().With("component", "orchestrator", "run_id", o.runID)
	return o
}

// RunID identifies this run in logs and the summary.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run processes accounts until the iteration budget is spent, no eligible
// account remains, an account exhausts its restart budget or ctx is
// cancelled. The summary covers every account attempted, even on error.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: o.runID, Started: time.Now()}

	if len(o.seq) == 0 {
		return sum, fmt.Errorf("%w in templates directory", ErrNoSteps)
	}
	o.log.Info("run started", "steps", len(o.seq), "iterations", o.cfg.Iterations)

	for n := 1; o.cfg.Iterations == 0 || n <= o.cfg.Iterations; n++ {
		if n > 1 {
			if err := o.sleep(ctx, o.cfg.Timing.BetweenRuns); err != nil {
				return o.finish(sum), err
			}
		}

		acct, ok, err := o.deps.Queue.NextEligible()
		if err != nil {
			return o.finish(sum), fmt.Errorf("load next account: %w", err)
		}
		if !ok {
			o.log.Info("no eligible accounts remain")
			sum.Exhausted = true
			break
		}

		res, err := o.RunAccount(ctx, acct)
		sum.Accounts = append(sum.Accounts, res)
		if err != nil {
			return o.finish(sum), err
		}
	}
	return o.finish(sum), nil
}

func (o *Orchestrator) finish(sum Summary) Summary {
	sum.Elapsed = time.Since(sum.Started)
	o.log.Info("run finished",
		"done", sum.Count(ResultDone),
		"failed", sum.Count(ResultFailed),
		"stopped", sum.Count(ResultStopped),
		"elapsed", sum.Elapsed.Round(time.Second))
	return sum
}

// RunAccount drives the whole sequence for one account, restarting it as
// needed. The account is marked done only when the sequence ends.
func (o *Orchestrator) RunAccount(ctx context.Context, acct ledger.Account) (AccountResult, error) {
	start := time.Now()
	res := AccountResult{Account: acct.ID}
	log := o.log.With("account", acct.ID)
	log.Info("account loaded", "username", acct.Username, "password", mask(acct.Password))
	o.transition(Event{Account: acct.ID, State: Idle})

	for {
		outcome, skipped := o.runSequence(ctx, acct, res.Restarts)
		res.Skipped = append(res.Skipped, skipped...)

		switch outcome {
		case EndSequence:
			res.Elapsed = time.Since(start)
			if err := o.deps.Queue.MarkDone(acct.ID, o.cfg.DoneMarker); err != nil {
				res.Result = ResultFailed
				return res, fmt.Errorf("mark account %s done: %w", acct.ID, err)
			}
			res.Result = ResultDone
			log.Info("account done", "restarts", res.Restarts, "skipped", len(res.Skipped))
			return res, nil

		case Restart:
			o.transition(Event{Account: acct.ID, State: RestartingSequence, Restarts: res.Restarts})
			log.Warn("restarting sequence", "process", o.cfg.Process)
			o.terminate(ctx)
			if err := o.sleep(ctx, o.cfg.Timing.RestartWait); err != nil {
				return o.stopped(res, start), err
			}
			res.Restarts++
			if res.Restarts > o.cfg.MaxRestarts {
				res.Result = ResultFailed
				res.Elapsed = time.Since(start)
				o.transition(Event{Account: acct.ID, State: Failed, Restarts: res.Restarts})
				log.Error("account failed", "restarts", res.Restarts, "max_restarts", o.cfg.MaxRestarts)
				return res, fmt.Errorf("account %s: %w after %d restarts", acct.ID, ErrEscalationExhausted, o.cfg.MaxRestarts)
			}

		default:
			log.Warn("run interrupted", "error", ctx.Err())
			return o.stopped(res, start), ctx.Err()
		}
	}
}

// TestStep runs a single step outside the sequence, using the credentials
// of the next eligible account when one exists. With detectOnly the step
// image is only located. The ledger is never written.
func (o *Orchestrator) TestStep(ctx context.Context, ordinal int, detectOnly bool) (StepResult, error) {
	res := StepResult{Step: ordinal}
	var step steps.Step
	found := false
	for _, s := range o.seq {
		if s.Ordinal == ordinal {
			step, found = s, true
			break
		}
	}
	if !found {
		return res, fmt.Errorf("%w: %d", ErrStepNotFound, ordinal)
	}
	res.Image = step.Image

	if detectOnly {
		m, ok := o.deps.Detector.Locate(step.Image, nil)
		res.Found = ok
		if ok {
			res.Match = &m
		}
		o.log.Info("step detection", "step", ordinal, "found", ok)
		return res, nil
	}

	acct, ok, err := o.deps.Queue.NextEligible()
	if err != nil {
		return res, fmt.Errorf("load next account: %w", err)
	}
	if ok {
		res.Account = acct.ID
	} else {
		o.log.Warn("no eligible account, credentials will be empty", "step", ordinal)
	}

	out := o.runStep(ctx, step, acct, 0)
	res.Outcome = out.String()
	res.Found = out == Success || out == EndSequence
	if out == Fatal && ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

func (o *Orchestrator) stopped(res AccountResult, start time.Time) AccountResult {
	res.Result = ResultStopped
	res.Elapsed = time.Since(start)
	return res
}

// runSequence executes every step once in ascending order. It returns
// EndSequence when the account is finished, Restart or Fatal otherwise,
// plus the ordinals that were skipped.
func (o *Orchestrator) runSequence(ctx context.Context, acct ledger.Account, restarts int) (Outcome, []int) {
	var skipped []int
	for i, step := range o.seq {
		if i > 0 {
			if err := o.sleep(ctx, o.cfg.Timing.BetweenSteps); err != nil {
				return Fatal, skipped
			}
		}

		switch out := o.runStep(ctx, step, acct, restarts); out {
		case Success:
		case Skip:
			skipped = append(skipped, step.Ordinal)
			if err := o.sleep(ctx, o.cfg.Timing.AfterSkip); err != nil {
				return Fatal, skipped
			}
		default:
			return out, skipped
		}
	}

	o.transition(Event{Account: acct.ID, State: EndingSequence, Restarts: restarts})
	o.log.Info("all steps completed", "account", acct.ID)
	o.terminate(ctx)
	if err := o.sleep(ctx, o.cfg.Timing.KillWait); err != nil {
		return Fatal, skipped
	}
	return EndSequence, skipped
}

// runStep is the per-step loop. Every attempt is bounded by the retry
// policy so the loop always terminates unless MaxRetries is 0.
func (o *Orchestrator) runStep(ctx context.Context, step steps.Step, acct ledger.Account, restarts int) Outcome {
	behavior := o.table.For(step.Ordinal)
	rc := RetryContext{Step: step}
	log := o.log.With("account", acct.ID, "step", step.Ordinal)

	for {
		if ctx.Err() != nil {
			return Fatal
		}
		state := RunningStep
		if rc.Attempts > 0 {
			state = Retrying
		}
		o.transition(Event{Account: acct.ID, State: state, Step: step.Ordinal, Attempt: rc.Attempts, Restarts: restarts})

		if ok, fatal := o.attempt(ctx, step, log); fatal {
			return Fatal
		} else if ok {
			return o.effect(ctx, step, behavior, acct, log)
		}

		switch out := o.cfg.Retry.afterFailure(&rc, behavior); out {
		case Retry:
			log.Info("retrying step", "attempt", rc.Attempts, "delay", o.cfg.Retry.Delay)
			if err := o.sleep(ctx, o.cfg.Retry.Delay); err != nil {
				return Fatal
			}
		case Skip:
			o.transition(Event{Account: acct.ID, State: Skipping, Step: step.Ordinal, Attempt: rc.Attempts, Restarts: restarts})
			log.Warn("skipping step", "attempts", rc.Attempts)
			return Skip
		default:
			log.Warn("step retries exhausted", "attempts", rc.Attempts)
			return out
		}
	}
}

// attempt locates the step image and clicks it. fatal is set when ctx was
// cancelled during the pre-click pause.
func (o *Orchestrator) attempt(ctx context.Context, step steps.Step, log *slog.Logger) (ok, fatal bool) {
	m, found := o.deps.Detector.Locate(step.Image, nil)
	if !found {
		log.Debug("step image not found")
		return false, false
	}
	log.Debug("step image found", "x", m.X, "y", m.Y, "confidence", m.Confidence)

	if err := o.sleep(ctx, o.cfg.Timing.PreClick); err != nil {
		return false, true
	}
	if !o.deps.Injector.Click(ctx, m.X, m.Y, o.cfg.Window) {
		if ctx.Err() != nil {
			return false, true
		}
		log.Warn("click failed", "x", m.X, "y", m.Y)
		return false, false
	}
	return true, false
}

// effect performs the step's side effect after a successful click.
// Failures of credential entry or key bursts are logged and the sequence
// carries on: the next step's detection shows whether the screen advanced.
func (o *Orchestrator) effect(ctx context.Context, step steps.Step, b steps.Behavior, acct ledger.Account, log *slog.Logger) Outcome {
	switch b.Effect {
	case steps.EffectEnterUsername, steps.EffectEnterPassword:
		field, value := "username", acct.Username
		if b.Effect == steps.EffectEnterPassword {
			field, value = "password", acct.Password
		}
		if value == "" {
			log.Warn("account has no value to enter", "field", field)
			return Success
		}
		if err := o.sleep(ctx, o.cfg.Timing.CredentialGap); err != nil {
			return Fatal
		}
		if !o.deps.Injector.EnterText(ctx, value, true, o.cfg.Window) {
			if ctx.Err() != nil {
				return Fatal
			}
			log.Warn("credential entry failed", "field", field)
		}

	case steps.EffectKeyBurst:
		log.Info("waiting before key burst", "settle", b.Settle, "key", b.Key, "count", b.Count)
		if err := o.sleep(ctx, b.Settle); err != nil {
			return Fatal
		}
		if !o.deps.Injector.PressKey(ctx, b.Key, b.Count, b.Interval, o.cfg.Window) {
			if ctx.Err() != nil {
				return Fatal
			}
			log.Warn("key burst failed", "key", b.Key)
		}

	case steps.EffectEndSequence:
		o.transition(Event{Account: acct.ID, State: EndingSequence, Step: step.Ordinal})
		o.terminate(ctx)
		wait := b.Settle
		if wait == 0 {
			wait = o.cfg.Timing.KillWait
		}
		if err := o.sleep(ctx, wait); err != nil {
			return Fatal
		}
		return EndSequence
	}

	log.Info("step completed")
	return Success
}

func (o *Orchestrator) terminate(ctx context.Context) {
	if o.cfg.Process == "" {
		return
	}
	if !o.deps.Processes.TerminateByName(ctx, o.cfg.Process, true) {
		o.log.Debug("target process not terminated", "process", o.cfg.Process)
	}
}

func (o *Orchestrator) transition(ev Event) {
	o.observe(ev)
}

func mask(s string) string {
	return strings.Repeat("*", len(s))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
