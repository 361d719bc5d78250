package model_test

import (
	"testing"
	"time"

	"github.com/kasuganosora/sentrysim/model"
	"github.com/kasuganosora/sentrysim/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	m := &model.Match{ArenaID: "arena-1", Definition: "warehouse", PlayerName: "ghost", Agents: 3}
	require.NoError(t, db.Create(m).Error)
	assert.Greater(t, m.ID, int64(0))

	var found model.Match
	require.NoError(t, db.First(&found, m.ID).Error)
	assert.Equal(t, model.OutcomeRunning, found.Outcome)
	assert.Nil(t, found.EndedAt)

	now := time.Now()
	require.NoError(t, db.Model(&found).Updates(map[string]interface{}{
		"outcome": model.OutcomeWon, "kills": 3, "ended_at": &now,
	}).Error)

	e := &model.Elimination{MatchID: m.ID, ArenaID: "arena-1", AgentID: "guard-1", Killer: "ghost"}
	require.NoError(t, db.Create(e).Error)

	cl := &model.CombatLog{
		ArenaID: "arena-1", Kind: model.KindShot, Actor: "guard-1",
		Payload: datatypes.JSON(`{"hit":true}`),
	}
	require.NoError(t, db.Create(cl).Error)

	var logs []model.CombatLog
	require.NoError(t, db.Where("arena_id = ?", "arena-1").Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.JSONEq(t, `{"hit":true}`, string(logs[0].Payload))
}
