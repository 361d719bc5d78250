package world

import (
	"github.com/kasuganosora/sentrysim/game/ai"
	"github.com/kasuganosora/sentrysim/model"
)

// Scorekeeper tallies one match: which agents remain and how it ended.
// The match is won when the last agent falls and lost when the player does;
// the first of the two decides.
type Scorekeeper struct {
	remaining map[ai.AgentID]struct{}
	kills     int
	outcome   string
}

// NewScorekeeper starts a running match over the given agents.
func NewScorekeeper(ids []ai.AgentID) *Scorekeeper {
	s := &Scorekeeper{
		remaining: make(map[ai.AgentID]struct{}, len(ids)),
		outcome:   model.OutcomeRunning,
	}
	for _, id := range ids {
		s.remaining[id] = struct{}{}
	}
	return s
}

// Eliminated records the death of id. counted is false for unknown or
// already-dead agents; won reports that this death ended the match.
func (s *Scorekeeper) Eliminated(id ai.AgentID) (counted, won bool) {
	if _, ok := s.remaining[id]; !ok {
		return false, false
	}
	delete(s.remaining, id)
	s.kills++
	if len(s.remaining) == 0 && s.outcome == model.OutcomeRunning {
		s.outcome = model.OutcomeWon
		return true, true
	}
	return true, false
}

// PlayerDown ends a running match as lost. It reports whether it did.
func (s *Scorekeeper) PlayerDown() bool {
	if s.outcome != model.OutcomeRunning {
		return false
	}
	s.outcome = model.OutcomeLost
	return true
}

// Abort ends a running match without a winner.
func (s *Scorekeeper) Abort() bool {
	if s.outcome != model.OutcomeRunning {
		return false
	}
	s.outcome = model.OutcomeAborted
	return true
}

func (s *Scorekeeper) Outcome() string { return s.outcome }
func (s *Scorekeeper) Over() bool      { return s.outcome != model.OutcomeRunning }
func (s *Scorekeeper) Kills() int      { return s.kills }
func (s *Scorekeeper) Remaining() int  { return len(s.remaining) }
