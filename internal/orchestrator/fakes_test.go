package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/mj1618/screen-macro/internal/ledger"
	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
	"github.com/mj1618/screen-macro/internal/steps"
)

// never is a miss budget that is never used up.
const never = -1

type fakeDetector struct {
	mu     sync.Mutex
	calls  []string
	misses map[string]int // image -> misses left before it is found (never = always missing)
}

func newFakeDetector() *fakeDetector {
	return &fakeDetector{misses: make(map[string]int)}
}

func (d *fakeDetector) Locate(path string, _ *platform.Bounds) (model.Match, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, filepath.Base(path))
	switch n, ok := d.misses[path]; {
	case !ok:
	case n == never:
		return model.Match{}, false
	case n > 0:
		d.misses[path] = n - 1
		return model.Match{}, false
	}
	return model.Match{X: 100, Y: 200, Confidence: 0.97}, true
}

func (d *fakeDetector) count(name string) int {
	n := 0
	for _, c := range d.calls {
		if c == name {
			n++
		}
	}
	return n
}

type keyPress struct {
	key      string
	repeat   int
	interval time.Duration
}

type fakeInjector struct {
	clicks     []string
	texts      []string
	keys       []keyPress
	failClicks int
	failText   bool
}

func (i *fakeInjector) Click(_ context.Context, x, y int, target string) bool {
	if i.failClicks > 0 {
		i.failClicks--
		return false
	}
	i.clicks = append(i.clicks, fmt.Sprintf("%d,%d@%s", x, y, target))
	return true
}

func (i *fakeInjector) EnterText(_ context.Context, text string, clearExisting bool, _ string) bool {
	if i.failText {
		return false
	}
	if clearExisting {
		text = "[clear]" + text
	}
	i.texts = append(i.texts, text)
	return true
}

func (i *fakeInjector) PressKey(_ context.Context, key string, repeat int, interval time.Duration, _ string) bool {
	i.keys = append(i.keys, keyPress{key, repeat, interval})
	return true
}

type fakeProcesses struct {
	kills []string
}

func (p *fakeProcesses) TerminateByName(_ context.Context, name string, force bool) bool {
	p.kills = append(p.kills, fmt.Sprintf("%s force=%v", name, force))
	return true
}

type fakeQueue struct {
	accounts []ledger.Account
	marks    []string
	nextErr  error
	markErr  error
}

func newFakeQueue(ids ...string) *fakeQueue {
	q := &fakeQueue{}
	for _, id := range ids {
		q.accounts = append(q.accounts, ledger.Account{ID: id, Username: "user" + id, Password: "pass" + id})
	}
	return q
}

func (q *fakeQueue) NextEligible() (ledger.Account, bool, error) {
	if q.nextErr != nil {
		return ledger.Account{}, false, q.nextErr
	}
	for _, a := range q.accounts {
		if !a.Done() {
			return a, true, nil
		}
	}
	return ledger.Account{}, false, nil
}

func (q *fakeQueue) MarkDone(id, marker string) error {
	if q.markErr != nil {
		return q.markErr
	}
	for i := range q.accounts {
		if q.accounts[i].ID == id {
			q.accounts[i].State = marker
			q.marks = append(q.marks, id)
			return nil
		}
	}
	return ledger.ErrAccountNotFound
}

// sleeper records pauses without waiting. cancelAt cancels the run on the
// nth pause when set.
type sleeper struct {
	slept    []time.Duration
	cancel   context.CancelFunc
	cancelAt int
}

func (s *sleeper) sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	if s.cancel != nil && len(s.slept) == s.cancelAt {
		s.cancel()
	}
	return ctx.Err()
}

func (s *sleeper) count(d time.Duration) int {
	n := 0
	for _, v := range s.slept {
		if v == d {
			n++
		}
	}
	return n
}

func sequence(n int) []steps.Step {
	seq := make([]steps.Step, 0, n)
	for i := 1; i <= n; i++ {
		seq = append(seq, steps.Step{Ordinal: i, Image: fmt.Sprintf("step%d.png", i)})
	}
	return seq
}

func testConfig() Config {
	return Config{
		Window:      "Game",
		Process:     "wwm.exe",
		Retry:       RetryPolicy{MaxRetries: 3, Delay: 2 * time.Second},
		MaxRestarts: 3,
		Iterations:  1,
		DoneMarker:  "done",
		Timing: Timing{
			PreClick:      500 * time.Millisecond,
			BetweenSteps:  501 * time.Millisecond,
			AfterSkip:     502 * time.Millisecond,
			RestartWait:   3 * time.Second,
			KillWait:      1500 * time.Millisecond,
			BetweenRuns:   time.Second,
			CredentialGap: 300 * time.Millisecond,
		},
	}
}

type harness struct {
	det    *fakeDetector
	inj    *fakeInjector
	procs  *fakeProcesses
	queue  *fakeQueue
	sleep  *sleeper
	events []Event
}

func newHarness(ids ...string) *harness {
	return &harness{
		det:   newFakeDetector(),
		inj:   &fakeInjector{},
		procs: &fakeProcesses{},
		queue: newFakeQueue(ids...),
		sleep: &sleeper{},
	}
}

func (h *harness) orchestrator(cfg Config, seq []steps.Step, table steps.Table) *Orchestrator {
	return New(cfg, seq, table,
		Deps{Detector: h.det, Injector: h.inj, Processes: h.procs, Queue: h.queue},
		WithSleeper(h.sleep.sleep),
		WithObserver(func(ev Event) { h.events = append(h.events, ev) }),
		WithRunID("test-run"),
	)
}

func (h *harness) states() []State {
	out := make([]State, 0, len(h.events))
	for _, ev := range h.events {
		out = append(out, ev.State)
	}
	return out
}
