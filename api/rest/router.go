package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/sentrysim/cache"
	"github.com/kasuganosora/sentrysim/config"
	mw "github.com/kasuganosora/sentrysim/middleware"
)

// Handlers groups every REST handler the server mounts.
type Handlers struct {
	Auth    *AuthHandler
	Arena   *ArenaHandler
	History *HistoryHandler
	Ranking *RankingHandler
	Admin   *AdminHandler
}

// Register mounts the /api routes on r.
func (h Handlers) Register(r gin.IRouter, sec config.SecurityConfig, c cache.Cache) {
	auth := mw.Auth(sec, c)
	operator := mw.RequireRole(mw.RoleOperator)

	api := r.Group("/api")

	authG := api.Group("/auth")
	authG.POST("/token", h.Auth.Token)
	authG.POST("/logout", auth, h.Auth.Logout)
	authG.POST("/refresh", auth, h.Auth.Refresh)

	// Reads are open; every mutation needs an operator session.
	api.GET("/definitions", h.Arena.Definitions)
	api.GET("/arenas", h.Arena.List)
	api.GET("/arenas/:id", h.Arena.Get)
	api.GET("/arenas/:id/log", h.History.CombatLog)
	api.GET("/eliminations", h.History.Eliminations)
	api.GET("/matches", h.History.Matches)
	api.GET("/ranking/kills", h.Ranking.TopKills)

	ops := api.Group("", auth, operator)
	ops.POST("/arenas", h.Arena.Create)
	ops.DELETE("/arenas/:id", h.Arena.Delete)
	ops.POST("/arenas/:id/player/move", h.Arena.Move)
	ops.POST("/arenas/:id/player/shoot", h.Arena.Shoot)
	ops.POST("/arenas/:id/alert", h.Arena.Alert)

	adminG := api.Group("/admin", mw.IPWhitelist(sec.AdminIPs), auth, operator)
	adminG.GET("/metrics", h.Admin.Metrics)
	adminG.POST("/arenas/stop", h.Admin.StopAll)
	adminG.POST("/definitions/reload", h.Arena.ReloadDefinitions)
	adminG.POST("/ranking/refresh", h.Ranking.RefreshRanking)

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
