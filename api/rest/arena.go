package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/kasuganosora/sentrysim/game/world"
	mw "github.com/kasuganosora/sentrysim/middleware"
	"github.com/kasuganosora/sentrysim/resource"
	"go.uber.org/zap"
)

const commandTimeout = 2 * time.Second

// ArenaHandler drives running arenas.
type ArenaHandler struct {
	wm     *world.Manager
	res    *resource.Loader
	logger *zap.Logger
}

// NewArenaHandler creates an ArenaHandler.
func NewArenaHandler(wm *world.Manager, res *resource.Loader, logger *zap.Logger) *ArenaHandler {
	return &ArenaHandler{wm: wm, res: res, logger: logger}
}

// Definitions lists the loaded arena definitions.
// GET /api/definitions
func (h *ArenaHandler) Definitions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"definitions": h.res.Names()})
}

// ReloadDefinitions re-reads the definitions directory.
// POST /api/admin/definitions/reload
func (h *ArenaHandler) ReloadDefinitions(c *gin.Context) {
	if err := h.res.Load(); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"definitions": h.res.Names()})
}

// List returns the snapshot of every arena.
// GET /api/arenas
func (h *ArenaHandler) List(c *gin.Context) {
	list := h.wm.List()
	c.JSON(http.StatusOK, gin.H{"arenas": list, "count": len(list)})
}

// Get returns one arena's snapshot.
// GET /api/arenas/:id
func (h *ArenaHandler) Get(c *gin.Context) {
	a, ok := h.arena(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a.Snapshot())
}

type createArenaRequest struct {
	Definition string `json:"definition" binding:"required"`
	Player     string `json:"player" binding:"omitempty,max=32"`
}

// Create opens an arena from a definition.
// POST /api/arenas
func (h *ArenaHandler) Create(c *gin.Context) {
	var req createArenaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	player := req.Player
	if player == "" {
		player = mw.GetOperator(c)
	}
	a, err := h.wm.Create(req.Definition, player)
	switch {
	case errors.Is(err, world.ErrUnknownDefinition):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.Is(err, world.ErrTooManyArenas):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.logger.Error("create arena failed", zap.String("definition", req.Definition), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create arena failed"})
		return
	}
	c.JSON(http.StatusCreated, a.Snapshot())
}

// Delete stops an arena.
// DELETE /api/arenas/:id
func (h *ArenaHandler) Delete(c *gin.Context) {
	if !h.wm.Destroy(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "arena not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type vecRequest struct {
	Position  *geom.Vec3 `json:"position"`
	Direction *geom.Vec3 `json:"direction"`
}

// Move walks the player.
// POST /api/arenas/:id/player/move {"position": [x, y, z]}
func (h *ArenaHandler) Move(c *gin.Context) {
	a, ok := h.arena(c)
	if !ok {
		return
	}
	var req vecRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Position == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "position required"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()
	if err := a.MovePlayer(ctx, *req.Position); err != nil {
		h.commandError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

// Shoot fires the player's weapon.
// POST /api/arenas/:id/player/shoot {"direction": [x, y, z]}
func (h *ArenaHandler) Shoot(c *gin.Context) {
	a, ok := h.arena(c)
	if !ok {
		return
	}
	var req vecRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Direction == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "direction required"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()
	res, err := a.Shoot(ctx, mw.GetTraceID(c), *req.Direction)
	if err != nil {
		h.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Alert raises the arena's Alert Signal.
// POST /api/arenas/:id/alert
func (h *ArenaHandler) Alert(c *gin.Context) {
	a, ok := h.arena(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()
	if err := a.RaiseAlert(ctx, mw.GetOperator(c)); err != nil {
		h.commandError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *ArenaHandler) arena(c *gin.Context) (*world.Arena, bool) {
	a := h.wm.Get(c.Param("id"))
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "arena not found"})
		return nil, false
	}
	return a, true
}

func (h *ArenaHandler) commandError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, world.ErrBadDirection):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, world.ErrMatchOver), errors.Is(err, world.ErrPlayerDown):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, world.ErrArenaStopped):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "arena busy"})
	default:
		h.logger.Error("arena command failed", zap.String("trace_id", mw.GetTraceID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
