package mutation

import (
	"github.com/trezcool/masomo-console/core/record"
)

// State of a single mutation: Idle -> Confirming -> (Cancelled | Requesting) -> (Succeeded | PartiallySucceeded | Failed) -> Idle.
// Nothing is persisted between steps.
type State int

const (
	Idle State = iota
	Confirming
	Cancelled
	Requesting
	Succeeded
	PartiallySucceeded
	Failed
)

var stateNames = [...]string{
	Idle:               "idle",
	Confirming:         "confirming",
	Cancelled:          "cancelled",
	Requesting:         "requesting",
	Succeeded:          "succeeded",
	PartiallySucceeded: "partially_succeeded",
	Failed:             "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends a mutation.
func (s State) Terminal() bool {
	switch s {
	case Cancelled, Succeeded, PartiallySucceeded, Failed:
		return true
	}
	return false
}

var transitions = map[State][]State{
	Idle:       {Confirming, Requesting, Failed},
	Confirming: {Cancelled, Requesting, Failed},
	Requesting: {Succeeded, PartiallySucceeded, Failed},
}

// CanMove reports whether the state machine allows from -> to. Terminal states only return to Idle.
func CanMove(from, to State) bool {
	if from.Terminal() {
		return to == Idle
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Outcome is what the caller shows once a mutation ends: a success message, an error message
// or nothing at all for a declined confirmation.
type Outcome struct {
	ID      string // ULID correlating the log lines of the mutation
	Kind    record.Kind
	Target  string // identifier the mutation was about
	NewID   string // set by renames
	State   State
	Tag     record.Tag
	Message string
	Err     error
	Trail   []State
}

// Warning reports whether the outcome needs the user to reconcile something by hand.
func (o Outcome) Warning() bool { return o.State == PartiallySucceeded }

func (o Outcome) OK() bool { return o.State == Succeeded }
