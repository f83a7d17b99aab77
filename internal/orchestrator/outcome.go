package orchestrator

// Outcome is the result of executing one step.
type Outcome int

const (
	Success Outcome = iota
	Retry
	Skip
	Restart
	EndSequence
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retry:
		return "retry"
	case Skip:
		return "skip"
	case Restart:
		return "restart"
	case EndSequence:
		return "end_sequence"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// State is the position of the engine in its per-account state machine.
type State int

const (
	Idle State = iota
	RunningStep
	Retrying
	Skipping
	RestartingSequence
	EndingSequence
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RunningStep:
		return "running_step"
	case Retrying:
		return "retrying"
	case Skipping:
		return "skipping"
	case RestartingSequence:
		return "restarting_sequence"
	case EndingSequence:
		return "ending_sequence"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event reports a state transition to an Observer.
type Event struct {
	Account  string
	State    State
	Step     int // 0 when the state is not tied to a step
	Attempt  int
	Restarts int
}

// Observer receives every state transition. It runs on the engine's
// goroutine and must not block.
type Observer func(Event)
