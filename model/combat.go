package model

import (
	"time"

	"gorm.io/datatypes"
)

// Match outcomes.
const (
	OutcomeRunning = "running"
	OutcomeWon     = "won"
	OutcomeLost    = "lost"
	OutcomeAborted = "aborted"
)

// Match is one arena run, from open to won, lost or aborted.
type Match struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ArenaID    string     `gorm:"uniqueIndex;size:36;not null" json:"arena_id"`
	Definition string     `gorm:"size:64;not null" json:"definition"`
	PlayerName string     `gorm:"index:idx_match_player;size:32" json:"player_name"`
	Outcome    string     `gorm:"size:16;not null;default:running" json:"outcome"`
	Agents     int        `json:"agents"`
	Kills      int        `json:"kills"`
	StartedAt  time.Time  `gorm:"autoCreateTime:milli" json:"started_at"`
	EndedAt    *time.Time `json:"ended_at"`
}

// Elimination records one agent's death.
type Elimination struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MatchID    int64     `gorm:"index:idx_elim_match;not null" json:"match_id"`
	ArenaID    string    `gorm:"size:36;not null" json:"arena_id"`
	AgentID    string    `gorm:"size:64;not null" json:"agent_id"`
	Killer     string    `gorm:"index:idx_elim_killer;size:32" json:"killer"`
	AgentState string    `gorm:"size:16" json:"agent_state"`
	SimTimeMs  int64     `json:"sim_time_ms"`
	CreatedAt  time.Time `gorm:"index:idx_elim_created;autoCreateTime:milli" json:"created_at"`
}

// Combat log kinds.
const (
	KindShot        = "shot"
	KindPlayerShot  = "player_shot"
	KindAlert       = "alert"
	KindState       = "state"
	KindElimination = "elimination"
	KindMatchOver   = "match_over"
)

// CombatLog is the append-only event trail of an arena.
type CombatLog struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID   string         `gorm:"index:idx_combat_trace;size:36" json:"trace_id"`
	ArenaID   string         `gorm:"index:idx_combat_arena;size:36;not null" json:"arena_id"`
	Kind      string         `gorm:"size:32;not null" json:"kind"`
	Actor     string         `gorm:"size:64" json:"actor"`
	Payload   datatypes.JSON `json:"payload"`
	SimTimeMs int64          `json:"sim_time_ms"`
	CreatedAt time.Time      `gorm:"index:idx_combat_created;autoCreateTime:milli" json:"created_at"`
}
