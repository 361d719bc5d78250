package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/sentrysim/cache"
	"github.com/kasuganosora/sentrysim/config"
	mw "github.com/kasuganosora/sentrysim/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler exchanges the operator key for bearer tokens.
type AuthHandler struct {
	cache  cache.Cache
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{cache: c, sec: sec, logger: logger}
}

type tokenRequest struct {
	Operator string `json:"operator" binding:"required,min=2,max=32"`
	Key      string `json:"key" binding:"required,min=4,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=operator observer"`
}

// Token handles POST /api/auth/token.
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.sec.AdminKeyHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "operator key not configured"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(h.sec.AdminKeyHash), []byte(req.Key)); err != nil {
		h.logger.Warn("operator key rejected",
			zap.String("operator", req.Operator),
			zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	role := req.Role
	if role == "" {
		role = mw.RoleOperator
	}
	h.issue(c, req.Operator, role)
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenStr, ok := mw.BearerToken(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(tokenStr))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	operator := mw.GetOperator(c)
	if operator == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	oldToken, _ := mw.BearerToken(c)
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(oldToken))
	h.issue(c, operator, c.GetString(mw.RoleKey))
}

func (h *AuthHandler) issue(c *gin.Context, operator, role string) {
	token, err := mw.GenerateToken(operator, role, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Set(ctx, mw.SessionKey(token), operator, h.sec.JWTTTLH); err != nil {
		h.logger.Error("session store failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"operator": operator,
		"role":     role,
		"expires":  time.Now().Add(h.sec.JWTTTLH).Unix(),
	})
}
