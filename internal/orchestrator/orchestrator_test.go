package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/screen-macro/internal/config"
	"github.com/mj1618/screen-macro/internal/ledger"
	"github.com/mj1618/screen-macro/internal/steps"
)

func TestRun_FullMacro(t *testing.T) {
	h := newHarness("1")
	o := h.orchestrator(testConfig(), sequence(11), steps.DefaultTable())

	sum, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, h.inj.clicks, 11)
	assert.Equal(t, "100,200@Game", h.inj.clicks[0])
	assert.Equal(t, []string{"[clear]user1", "[clear]pass1"}, h.inj.texts)
	assert.Equal(t, []keyPress{{"r", 4, time.Second}}, h.inj.keys)
	assert.Equal(t, 1, h.sleep.count(20*time.Second))
	assert.Equal(t, 2, h.sleep.count(300*time.Millisecond))

	// The final step kills the target exactly once and the account is marked.
	assert.Equal(t, []string{"wwm.exe force=true"}, h.procs.kills)
	assert.Equal(t, []string{"1"}, h.queue.marks)
	assert.Equal(t, "done", h.queue.accounts[0].State)

	require.Len(t, sum.Accounts, 1)
	assert.Equal(t, AccountResult{Account: "1", Result: ResultDone, Elapsed: sum.Accounts[0].Elapsed}, sum.Accounts[0])
	assert.Equal(t, "test-run", sum.RunID)
	assert.False(t, sum.Exhausted)
	assert.Equal(t, EndingSequence, h.events[len(h.events)-1].State)
}

func TestRun_RetriesThenRestartsFromFirstStep(t *testing.T) {
	h := newHarness("1")
	h.det.misses["step2.png"] = 4
	o := h.orchestrator(testConfig(), sequence(3), nil)

	sum, err := o.Run(context.Background())
	require.NoError(t, err)

	// Four detections of step 2 (three retries) before the restart, then
	// the same account starts over at step 1.
	assert.Equal(t, []string{
		"step1.png", "step2.png", "step2.png", "step2.png", "step2.png",
		"step1.png", "step2.png", "step3.png",
	}, h.det.calls)
	assert.Equal(t, 3, h.sleep.count(2*time.Second))
	assert.Equal(t, 1, h.sleep.count(3*time.Second))

	// One kill for the restart, one after the plain completion.
	assert.Len(t, h.procs.kills, 2)
	assert.Equal(t, []string{"1"}, h.queue.marks)
	assert.Equal(t, 1, sum.Accounts[0].Restarts)

	assert.Equal(t, []State{
		Idle,
		RunningStep, RunningStep, Retrying, Retrying, Retrying,
		RestartingSequence,
		RunningStep, RunningStep, RunningStep,
		EndingSequence,
	}, h.states())
}

func TestRun_RestartResetsRetryCounters(t *testing.T) {
	h := newHarness("1")
	// Step 3 fails through the first pass and once more on the second pass.
	h.det.misses["step3.png"] = 5
	cfg := testConfig()
	cfg.Retry.MaxRetries = 3
	o := h.orchestrator(cfg, sequence(3), nil)

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	var attempts []int
	for _, ev := range h.events {
		if ev.Step == 3 {
			attempts = append(attempts, ev.Attempt)
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3, 0, 1}, attempts)
	assert.Equal(t, []string{"1"}, h.queue.marks)
}

func TestRun_EscalationExhausted(t *testing.T) {
	h := newHarness("1", "2")
	h.det.misses["step2.png"] = never
	cfg := testConfig()
	cfg.Retry.MaxRetries = 1
	cfg.MaxRestarts = 2
	cfg.Iterations = 0
	o := h.orchestrator(cfg, sequence(3), nil)

	sum, err := o.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEscalationExhausted)

	assert.Equal(t, 3, h.det.count("step1.png"))
	assert.Equal(t, 6, h.det.count("step2.png"))
	assert.Zero(t, h.det.count("step3.png"))
	assert.Len(t, h.procs.kills, 3)

	// The failed account stays unmarked and the next one is not attempted.
	assert.Empty(t, h.queue.marks)
	require.Len(t, sum.Accounts, 1)
	assert.Equal(t, ResultFailed, sum.Accounts[0].Result)
	assert.Equal(t, 3, sum.Accounts[0].Restarts)
	assert.Equal(t, Failed, h.events[len(h.events)-1].State)
}

func TestRun_ZeroRestartBudgetFailsOnFirstRestart(t *testing.T) {
	h := newHarness("1")
	h.det.misses["step1.png"] = never
	cfg := testConfig()
	cfg.MaxRestarts = 0
	o := h.orchestrator(cfg, sequence(2), nil)

	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, ErrEscalationExhausted)
	assert.Equal(t, 4, h.det.count("step1.png"))
}

func TestRun_FlakyStepSkipsWithoutRestart(t *testing.T) {
	h := newHarness("1")
	h.det.misses["step2.png"] = never
	cfg := testConfig()
	cfg.Retry.MaxRetries = 0
	o := h.orchestrator(cfg, sequence(3), steps.Table{2: {SkipAfter: 10}})

	sum, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, h.det.count("step2.png"))
	assert.Equal(t, 1, h.det.count("step3.png"))
	assert.Equal(t, 9, h.sleep.count(2*time.Second))
	assert.Equal(t, 1, h.sleep.count(502*time.Millisecond))
	assert.NotContains(t, h.states(), RestartingSequence)
	assert.Contains(t, h.states(), Skipping)

	assert.Equal(t, []int{2}, sum.Accounts[0].Skipped)
	assert.Zero(t, sum.Accounts[0].Restarts)
	assert.Equal(t, []string{"1"}, h.queue.marks)
}

func TestRun_ClickFailureRetries(t *testing.T) {
	h := newHarness("1")
	h.inj.failClicks = 2
	o := h.orchestrator(testConfig(), sequence(1), nil)

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, h.det.count("step1.png"))
	assert.Len(t, h.inj.clicks, 1)
	assert.Equal(t, 2, h.sleep.count(2*time.Second))
}

func TestRun_CredentialFailureDoesNotStopSequence(t *testing.T) {
	h := newHarness("1")
	h.inj.failText = true
	o := h.orchestrator(testConfig(), sequence(6), steps.DefaultTable())

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, h.inj.clicks, 6)
	assert.Equal(t, []string{"1"}, h.queue.marks)
}

func TestRun_EmptyCredentialIsNotTyped(t *testing.T) {
	h := newHarness("1")
	h.queue.accounts[0].Username = ""
	o := h.orchestrator(testConfig(), sequence(6), steps.DefaultTable())

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"[clear]pass1"}, h.inj.texts)
}

func TestRun_NoEligibleAccount(t *testing.T) {
	h := newHarness("1")
	h.queue.accounts[0].State = "done"
	o := h.orchestrator(testConfig(), sequence(3), nil)

	sum, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.Exhausted)
	assert.Empty(t, sum.Accounts)
	assert.Empty(t, h.det.calls)
}

func TestRun_IterationBudget(t *testing.T) {
	tests := []struct {
		name       string
		iterations int
		marks      []string
		exhausted  bool
		pauses     int
	}{
		{"bounded", 2, []string{"1", "2"}, false, 1},
		// The pause before the final lookup that finds nothing counts too.
		{"unbounded", 0, []string{"1", "2", "3"}, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("1", "2", "3")
			cfg := testConfig()
			cfg.Iterations = tt.iterations
			o := h.orchestrator(cfg, sequence(2), nil)

			sum, err := o.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.marks, h.queue.marks)
			assert.Equal(t, tt.exhausted, sum.Exhausted)
			assert.Equal(t, len(tt.marks), sum.Count(ResultDone))
			assert.Equal(t, tt.pauses, h.sleep.count(time.Second))
		})
	}
}

func TestRun_CancelStopsWithoutMarking(t *testing.T) {
	h := newHarness("1")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.sleep.cancel, h.sleep.cancelAt = cancel, 1
	o := h.orchestrator(testConfig(), sequence(3), nil)

	sum, err := o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.inj.clicks)
	assert.Empty(t, h.queue.marks)
	require.Len(t, sum.Accounts, 1)
	assert.Equal(t, ResultStopped, sum.Accounts[0].Result)
}

func TestRun_CancelDuringRetryDelay(t *testing.T) {
	h := newHarness("1")
	h.det.misses["step1.png"] = never
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.sleep.cancel, h.sleep.cancelAt = cancel, 2
	cfg := testConfig()
	cfg.Retry.MaxRetries = 0
	o := h.orchestrator(cfg, sequence(2), nil)

	_, err := o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, h.det.count("step1.png"))
	assert.Empty(t, h.procs.kills)
}

func TestRun_NoSteps(t *testing.T) {
	h := newHarness("1")
	o := h.orchestrator(testConfig(), nil, nil)

	_, err := o.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoSteps)
}

func TestRun_QueueErrors(t *testing.T) {
	t.Run("next", func(t *testing.T) {
		h := newHarness("1")
		h.queue.nextErr = ledger.ErrLedgerMissing
		_, err := h.orchestrator(testConfig(), sequence(1), nil).Run(context.Background())
		assert.ErrorIs(t, err, ledger.ErrLedgerMissing)
	})
	t.Run("mark", func(t *testing.T) {
		h := newHarness("1")
		h.queue.markErr = errors.New("disk full")
		sum, err := h.orchestrator(testConfig(), sequence(1), nil).Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Equal(t, ResultFailed, sum.Accounts[0].Result)
	})
}

func TestRun_NoProcessConfigured(t *testing.T) {
	h := newHarness("1")
	cfg := testConfig()
	cfg.Process = ""
	_, err := h.orchestrator(cfg, sequence(2), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, h.procs.kills)
}

func TestRun_WithLedgerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "account.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,user,pass,state\n1,a,pa,done\n2,b,pb,\n"), 0644))

	h := newHarness()
	cfg := testConfig()
	cfg.Iterations = 0
	o := New(cfg, sequence(4), steps.Table{2: {Effect: steps.EffectEnterUsername}, 4: {Effect: steps.EffectEndSequence}},
		Deps{Detector: h.det, Injector: h.inj, Processes: h.procs, Queue: ledger.Open(path)},
		WithSleeper(h.sleep.sleep))

	sum, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sum.Accounts, 1)
	assert.Equal(t, "2", sum.Accounts[0].Account)
	assert.Equal(t, []string{"[clear]b"}, h.inj.texts)
	assert.Len(t, h.procs.kills, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id,user,pass,state\n1,a,pa,done\n2,b,pb,done\n", string(data))
}

func TestTestStep_EntersNextEligibleCredentials(t *testing.T) {
	h := newHarness("1", "2")
	h.queue.accounts[0].State = "done"
	o := h.orchestrator(testConfig(), sequence(11), steps.DefaultTable())

	res, err := o.TestStep(context.Background(), 4, false)
	require.NoError(t, err)

	assert.Equal(t, StepResult{Step: 4, Image: "step4.png", Account: "2", Found: true, Outcome: "success"}, res)
	assert.Equal(t, []string{"step4.png"}, h.det.calls)
	assert.Equal(t, []string{"100,200@Game"}, h.inj.clicks)
	assert.Equal(t, []string{"[clear]user2"}, h.inj.texts)
	assert.Empty(t, h.queue.marks)
	assert.Empty(t, h.procs.kills)
}

func TestTestStep_DetectOnly(t *testing.T) {
	h := newHarness("1")
	o := h.orchestrator(testConfig(), sequence(11), steps.DefaultTable())

	res, err := o.TestStep(context.Background(), 6, true)
	require.NoError(t, err)

	assert.True(t, res.Found)
	require.NotNil(t, res.Match)
	assert.Equal(t, 100, res.Match.X)
	assert.Empty(t, res.Outcome)
	assert.Empty(t, res.Account)
	assert.Equal(t, []string{"step6.png"}, h.det.calls)
	assert.Empty(t, h.inj.clicks)
	assert.Empty(t, h.inj.texts)
	assert.Empty(t, h.queue.marks)
}

func TestTestStep_DetectOnlyMiss(t *testing.T) {
	h := newHarness("1")
	h.det.misses["step2.png"] = never
	o := h.orchestrator(testConfig(), sequence(3), nil)

	res, err := o.TestStep(context.Background(), 2, true)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Nil(t, res.Match)
	assert.Len(t, h.det.calls, 1)
}

func TestTestStep_NoEligibleAccount(t *testing.T) {
	h := newHarness()
	o := h.orchestrator(testConfig(), sequence(11), steps.DefaultTable())

	res, err := o.TestStep(context.Background(), 4, false)
	require.NoError(t, err)
	assert.Equal(t, "success", res.Outcome)
	assert.Empty(t, res.Account)
	assert.Len(t, h.inj.clicks, 1)
	assert.Empty(t, h.inj.texts)
}

func TestTestStep_RetriesExhausted(t *testing.T) {
	h := newHarness("1")
	h.det.misses["step2.png"] = never
	o := h.orchestrator(testConfig(), sequence(3), nil)

	res, err := o.TestStep(context.Background(), 2, false)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, "restart", res.Outcome)
	assert.Equal(t, 4, h.det.count("step2.png"))
	// The sequence is not restarted and nothing is killed or marked.
	assert.Empty(t, h.procs.kills)
	assert.Empty(t, h.queue.marks)
}

func TestTestStep_UnknownStep(t *testing.T) {
	h := newHarness("1")
	o := h.orchestrator(testConfig(), sequence(3), nil)

	_, err := o.TestStep(context.Background(), 7, false)
	assert.ErrorIs(t, err, ErrStepNotFound)
	assert.Empty(t, h.det.calls)
}

func TestTestStep_QueueError(t *testing.T) {
	h := newHarness("1")
	h.queue.nextErr = errors.New("locked")
	o := h.orchestrator(testConfig(), sequence(3), nil)

	_, err := o.TestStep(context.Background(), 1, false)
	assert.ErrorContains(t, err, "locked")
	assert.Empty(t, h.inj.clicks)
}

func TestTestStep_Cancelled(t *testing.T) {
	h := newHarness("1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := h.orchestrator(testConfig(), sequence(3), nil)

	res, err := o.TestStep(ctx, 1, false)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "fatal", res.Outcome)
	assert.Empty(t, h.det.calls)
}

func TestAfterFailure(t *testing.T) {
	tests := []struct {
		name     string
		policy   RetryPolicy
		behavior steps.Behavior
		want     []Outcome // outcome after each consecutive failure
	}{
		{"bounded", RetryPolicy{MaxRetries: 3}, steps.Behavior{}, []Outcome{Retry, Retry, Retry, Restart}},
		{"no retries", RetryPolicy{MaxRetries: 0}, steps.Behavior{SkipAfter: 2}, []Outcome{Retry, Skip}},
		{"skip before budget", RetryPolicy{MaxRetries: 5}, steps.Behavior{SkipAfter: 3}, []Outcome{Retry, Retry, Skip}},
		{"budget before skip", RetryPolicy{MaxRetries: 1}, steps.Behavior{SkipAfter: 10}, []Outcome{Retry, Skip}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := RetryContext{}
			var got []Outcome
			for range tt.want {
				got = append(got, tt.policy.afterFailure(&rc, tt.behavior))
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), rc.Attempts)
		})
	}
}

func TestAfterFailure_Unbounded(t *testing.T) {
	rc := RetryContext{}
	p := RetryPolicy{}
	for i := 0; i < 1000; i++ {
		require.Equal(t, Retry, p.afterFailure(&rc, steps.Behavior{}))
	}
}

func TestFromConfig(t *testing.T) {
	c := config.Default()
	c.Run.Window = "Game"
	cfg := FromConfig(c)

	assert.Equal(t, "Game", cfg.Window)
	assert.Equal(t, "wwm.exe", cfg.Process)
	assert.Equal(t, RetryPolicy{MaxRetries: 10, Delay: 2 * time.Second}, cfg.Retry)
	assert.Equal(t, 3, cfg.MaxRestarts)
	assert.Equal(t, 3*time.Second, cfg.Timing.RestartWait)
	assert.Equal(t, 300*time.Millisecond, cfg.Timing.CredentialGap)
}

func TestNew_GeneratesRunID(t *testing.T) {
	o := New(testConfig(), sequence(1), nil, Deps{})
	_, err := uuid.Parse(o.RunID())
	assert.NoError(t, err)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "end_sequence", EndSequence.String())
	assert.Equal(t, "restarting_sequence", RestartingSequence.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
