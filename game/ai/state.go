package ai

// State enumerates the behavioral states of a hostile agent.
// Death is not a state: it is a kill-switch checked before any evaluation.
type State int

const (
	StatePatrol State = iota
	StateSearch
	StateAttack
)

func (s State) String() string {
	switch s {
	case StatePatrol:
		return "patrol"
	case StateSearch:
		return "search"
	case StateAttack:
		return "attack"
	default:
		return "unknown"
	}
}
