package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/sentrysim/cache"
	"github.com/kasuganosora/sentrysim/config"
	"github.com/kasuganosora/sentrysim/game/world"
	mw "github.com/kasuganosora/sentrysim/middleware"
	"go.uber.org/zap"
)

// Handler streams match events to dashboards.
type Handler struct {
	pubsub    cache.PubSub
	sec       config.SecurityConfig
	c         cache.Cache
	logger    *zap.Logger
	keepalive time.Duration
}

// NewHandler creates a new SSE Handler.
func NewHandler(pubsub cache.PubSub, c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	return &Handler{pubsub: pubsub, c: c, sec: sec, logger: logger, keepalive: 30 * time.Second}
}

// SetKeepalive changes the keepalive comment interval.
func (h *Handler) SetKeepalive(d time.Duration) { h.keepalive = d }

// ServeSSE handles GET /sse?token=<jwt>&arena_id=<id>.
// Every match event published on the matches channel is forwarded as an
// "match" event; arena_id narrows the stream to one arena.
func (h *Handler) ServeSSE(c *gin.Context) {
	if !h.originAllowed(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "origin not allowed"})
		return
	}

	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr, _ = mw.BearerToken(c)
	}
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	exists, err := h.c.Exists(ctx, mw.SessionKey(tokenStr))
	if err != nil || !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
		return
	}

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, world.MatchChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	arenaID := c.Query("arena_id")
	h.logger.Debug("sse client connected",
		zap.String("operator", claims.Operator), zap.String("arena_id", arenaID))

	fmt.Fprintf(c.Writer, "event: connected\ndata: {}\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			if arenaID != "" && !forArena(msg.Payload, arenaID) {
				continue
			}
			fmt.Fprintf(c.Writer, "event: match\ndata: %s\n\n", msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Handler) originAllowed(c *gin.Context) bool {
	origin := c.GetHeader("Origin")
	if origin == "" || len(h.sec.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range h.sec.AllowedOrigins {
		if o == origin {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			return true
		}
	}
	return false
}

func forArena(payload, arenaID string) bool {
	var ev struct {
		ArenaID string `json:"arena_id"`
	}
	return json.Unmarshal([]byte(payload), &ev) == nil && ev.ArenaID == arenaID
}
