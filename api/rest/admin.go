package rest

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/sentrysim/audit"
	"github.com/kasuganosora/sentrysim/game/world"
	"github.com/kasuganosora/sentrysim/model"
	"github.com/kasuganosora/sentrysim/scheduler"
	"go.uber.org/zap"
)

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by the IP whitelist and the operator role.
type AdminHandler struct {
	wm     *world.Manager
	sched  *scheduler.Scheduler
	audit  *audit.Service
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(wm *world.Manager, sched *scheduler.Scheduler, svc *audit.Service, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{wm: wm, sched: sched, audit: svc, logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	running := 0
	for _, s := range h.wm.List() {
		if s.Outcome == model.OutcomeRunning {
			running++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"arenas":          h.wm.Count(),
		"running_matches": running,
		"scheduler_tasks": h.sched.Names(),
		"audit_dropped":   h.audit.Dropped(),
		"goroutines":      runtime.NumGoroutine(),
	})
}

// StopAll stops every arena.
// POST /api/admin/arenas/stop
func (h *AdminHandler) StopAll(c *gin.Context) {
	n := h.wm.Count()
	h.wm.StopAll()
	h.logger.Info("admin stopped all arenas", zap.Int("count", n))
	c.JSON(http.StatusOK, gin.H{"stopped": n})
}
