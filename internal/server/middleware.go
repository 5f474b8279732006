package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/cielo/internal/actorctx"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// RequestID tags every request with a ULID for log correlation, honoring an
// inbound header from upstream proxies.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = ulid.Make().String()
		}
		c.Header(HeaderRequestID, id)
		c.Set("request_id", id)
		c.Next()
	}
}

// AuthRequired resolves the session cookie to a user and injects the actor
// into the request context for downstream services.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.authSvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := actorctx.WithActor(c.Request.Context(), actorctx.Actor{
			UserID:    user.ID,
			Role:      string(user.Role),
			CountryID: user.CountryID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Credential endpoints get a small per-address burst to slow down guessing.
const (
	authRatePerSecond = 1.0
	authBurst         = 5
)

// rateLimit throttles by client address. Without redis the bucket is nil and
// everything passes; a redis error fails open with a warning.
func (s *Server) rateLimit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "cielo:ratelimit:" + scope + ":" + c.ClientIP()
		allowed, err := s.limiter.Allow(c.Request.Context(), key, authRatePerSecond, authBurst)
		if err != nil {
			s.log.Warn("rate limit check failed", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many requests, slow down",
			}})
			return
		}
		c.Next()
	}
}

// authorize enforces one object/action pair for the route. Must run after
// AuthRequired.
func (s *Server) authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authzSvc.Authorize(c.Request.Context(), object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
