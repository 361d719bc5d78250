package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/sentrysim/audit"
	"github.com/kasuganosora/sentrysim/cache"
	"github.com/kasuganosora/sentrysim/game/world"
	"github.com/kasuganosora/sentrysim/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HistoryHandler serves finished and in-flight match records.
type HistoryHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	audit  *audit.Service
	logger *zap.Logger
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(db *gorm.DB, c cache.Cache, svc *audit.Service, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{db: db, cache: c, audit: svc, logger: logger}
}

func queryLimit(c *gin.Context, def, upper int) int {
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= upper {
		return l
	}
	return def
}

// Eliminations lists recent eliminations, newest first.
// GET /api/eliminations?arena_id=&limit=20
// Without arena_id the cached feed answers; the database is the fallback.
func (h *HistoryHandler) Eliminations(c *gin.Context) {
	limit := queryLimit(c, 20, 100)
	arenaID := c.Query("arena_id")
	ctx := c.Request.Context()

	if arenaID == "" {
		raw, err := h.cache.LRange(ctx, world.RecentEliminationsKey, 0, int64(limit-1))
		if err == nil && len(raw) > 0 {
			feed := make([]world.MatchEvent, 0, len(raw))
			for _, r := range raw {
				var ev world.MatchEvent
				if json.Unmarshal([]byte(r), &ev) == nil {
					feed = append(feed, ev)
				}
			}
			c.JSON(http.StatusOK, gin.H{"eliminations": feed, "source": "cache"})
			return
		}
	}

	q := h.db.WithContext(ctx).Order("id DESC").Limit(limit)
	if arenaID != "" {
		q = q.Where("arena_id = ?", arenaID)
	}
	var rows []model.Elimination
	if err := q.Find(&rows).Error; err != nil {
		h.logger.Error("list eliminations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"eliminations": rows, "source": "db"})
}

// Matches lists recorded matches, newest first.
// GET /api/matches?player=&outcome=&limit=20
func (h *HistoryHandler) Matches(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Order("id DESC").Limit(queryLimit(c, 20, 100))
	if p := c.Query("player"); p != "" {
		q = q.Where("player_name = ?", p)
	}
	if o := c.Query("outcome"); o != "" {
		q = q.Where("outcome = ?", o)
	}
	var rows []model.Match
	if err := q.Find(&rows).Error; err != nil {
		h.logger.Error("list matches failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": rows})
}

// CombatLog returns an arena's recent combat log.
// GET /api/arenas/:id/log?limit=50
func (h *HistoryHandler) CombatLog(c *gin.Context) {
	logs, err := h.audit.Recent(c.Request.Context(), c.Param("id"), queryLimit(c, 50, 500))
	if err != nil {
		h.logger.Error("combat log query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"log": logs})
}
