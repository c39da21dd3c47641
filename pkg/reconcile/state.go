package reconcile

type State int32

const (
	StateIdle State = iota
	StateAwaitingRowDecision
	StatePerFieldLoop
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingRowDecision:
		return "awaitingRowDecision"
	case StatePerFieldLoop:
		return "perFieldLoop"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// transitions enumerates every legal move of a session.
var transitions = map[State][]State{
	StateIdle:                {StateAwaitingRowDecision, StateDone},
	StateAwaitingRowDecision: {StatePerFieldLoop, StateDone},
	StatePerFieldLoop:        {StatePerFieldLoop, StateDone},
	StateDone:                {},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RowDecision is the operator's choice for a whole entity.
type RowDecision int

const (
	ReviewRow RowDecision = iota
	SkipRow
)

func (d RowDecision) String() string {
	switch d {
	case ReviewRow:
		return "review"
	case SkipRow:
		return "skip"
	}
	return "unknown"
}

// Decision is the operator's choice for one change candidate.
type Decision int

const (
	Apply Decision = iota
	Skip
	AbandonRow
)

func (d Decision) String() string {
	switch d {
	case Apply:
		return "apply"
	case Skip:
		return "skip"
	case AbandonRow:
		return "abandonRow"
	}
	return "unknown"
}
