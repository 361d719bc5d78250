package world

import (
	"testing"

	"github.com/kasuganosora/sentrysim/game/ai"
	"github.com/kasuganosora/sentrysim/model"
	"github.com/stretchr/testify/assert"
)

func TestScorekeeper_WinOnLastElimination(t *testing.T) {
	s := NewScorekeeper([]ai.AgentID{"b", "a"})
	assert.Equal(t, model.OutcomeRunning, s.Outcome())
	assert.Equal(t, 2, s.Remaining())

	counted, won := s.Eliminated("a")
	assert.True(t, counted)
	assert.False(t, won)

	counted, _ = s.Eliminated("a")
	assert.False(t, counted, "already dead")
	counted, _ = s.Eliminated("ghost")
	assert.False(t, counted, "unknown")

	counted, won = s.Eliminated("b")
	assert.True(t, counted)
	assert.True(t, won)
	assert.True(t, s.Over())
	assert.Equal(t, model.OutcomeWon, s.Outcome())
	assert.Equal(t, 2, s.Kills())
	assert.Zero(t, s.Remaining())

	assert.False(t, s.PlayerDown(), "outcome is final")
	assert.False(t, s.Abort())
	assert.Equal(t, model.OutcomeWon, s.Outcome())
}

func TestScorekeeper_PlayerDownFirstDecides(t *testing.T) {
	s := NewScorekeeper([]ai.AgentID{"a"})
	assert.True(t, s.PlayerDown())
	assert.Equal(t, model.OutcomeLost, s.Outcome())

	counted, won := s.Eliminated("a")
	assert.True(t, counted, "kills still tally")
	assert.False(t, won)
	assert.Equal(t, model.OutcomeLost, s.Outcome())
	assert.Equal(t, 1, s.Kills())
}

func TestScorekeeper_Abort(t *testing.T) {
	s := NewScorekeeper([]ai.AgentID{"a"})
	assert.True(t, s.Abort())
	assert.False(t, s.Abort())
	assert.Equal(t, model.OutcomeAborted, s.Outcome())
	assert.Equal(t, 1, s.Remaining())
}
