package isolation

// State is the progress of one isolation cycle.
type State int

const (
	StateNotStarted State = iota
	StateSpawned
	StateCollecting
	StateMerged
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateSpawned:
		return "spawned"
	case StateCollecting:
		return "collecting"
	case StateMerged:
		return "merged"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
