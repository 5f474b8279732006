package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/cielo/internal/actorctx"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	email := strings.TrimSpace(req.Email)
	result, err := s.authSvc.Login(c.Request.Context(), email, req.Password)
	if err != nil {
		targetEmail := email
		_ = s.auditSvc.AuditLog(c.Request.Context(), "", "user", nil, "user.login_failed", "user", &targetEmail, map[string]any{
			"email": email,
		})
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.Session.ID, result.Session.ExpiresAt)

	userID := result.User.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), result.User.CountryID, "user", &userID, "user.login", "user", &userID, map[string]any{
		"email": email,
	})

	c.JSON(http.StatusOK, gin.H{
		"user":       result.User,
		"expires_at": result.Session.ExpiresAt,
	})
}

func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		if err := s.authSvc.Logout(c.Request.Context(), token); err != nil {
			s.log.Warn("logout failed")
		}
	}
	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Me(c *gin.Context) {
	actor, ok := actorctx.FromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	user, err := s.userSvc.GetByID(c.Request.Context(), actor.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
