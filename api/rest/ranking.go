package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/sentrysim/cache"
	"github.com/kasuganosora/sentrysim/game/world"
	"github.com/kasuganosora/sentrysim/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RankingHandler handles leaderboard REST endpoints.
type RankingHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(db *gorm.DB, c cache.Cache, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{db: db, cache: c, logger: logger}
}

const rankingTop = 100

// RankEntry is one row in the leaderboard.
type RankEntry struct {
	Rank   int    `json:"rank"`
	Player string `json:"player"`
	Kills  int64  `json:"kills"`
}

type killCount struct {
	Killer string
	Kills  int64
}

// TopKills returns the players with the most eliminations.
// GET /api/ranking/kills?limit=20
func (h *RankingHandler) TopKills(c *gin.Context) {
	limit := queryLimit(c, 20, rankingTop)

	ctx := c.Request.Context()
	members, err := h.cache.ZRevRange(ctx, world.RankingKillsKey, 0, int64(limit-1))
	if err == nil && len(members) > 0 {
		entries := make([]RankEntry, 0, len(members))
		for i, m := range members {
			score, _ := h.cache.ZScore(ctx, world.RankingKillsKey, m)
			entries = append(entries, RankEntry{Rank: i + 1, Player: m, Kills: int64(score)})
		}
		c.JSON(http.StatusOK, gin.H{"ranking": entries, "source": "cache"})
		return
	}

	counts, err := h.countKills(ctx, limit)
	if err != nil {
		h.logger.Error("ranking query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	entries := make([]RankEntry, len(counts))
	for i, k := range counts {
		entries[i] = RankEntry{Rank: i + 1, Player: k.Killer, Kills: k.Kills}
		_ = h.cache.ZAdd(ctx, world.RankingKillsKey, float64(k.Kills), k.Killer)
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries, "source": "db"})
}

// RefreshRanking rebuilds the kill leaderboard from the database.
// POST /api/admin/ranking/refresh
func (h *RankingHandler) RefreshRanking(c *gin.Context) {
	n, err := h.Rebuild(c.Request.Context())
	if err != nil {
		h.logger.Error("ranking rebuild failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": n})
}

// Rebuild replaces the cached leaderboard with the database tally.
// Also run periodically by the scheduler.
func (h *RankingHandler) Rebuild(ctx context.Context) (int, error) {
	counts, err := h.countKills(ctx, rankingTop)
	if err != nil {
		return 0, err
	}
	_ = h.cache.Del(ctx, world.RankingKillsKey)
	for _, k := range counts {
		_ = h.cache.ZAdd(ctx, world.RankingKillsKey, float64(k.Kills), k.Killer)
	}
	return len(counts), nil
}

func (h *RankingHandler) countKills(ctx context.Context, limit int) ([]killCount, error) {
	var counts []killCount
	err := h.db.WithContext(ctx).Model(&model.Elimination{}).
		Select("killer, COUNT(*) AS kills").
		Where("killer <> ''").
		Group("killer").
		Order("kills DESC, killer ASC").
		Limit(limit).
		Scan(&counts).Error
	return counts, err
}
