package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/service"
)

const (
	requestIDHeader = "X-Request-ID"
	ctxRequestID    = "request_id"
	ctxUser         = "user"
	ctxToken        = "token"
)

// RequestID tags every request with an id, reusing the caller's X-Request-ID if present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if u := currentUser(c); u != nil {
			fields = append(fields, zap.Int64("user_id", u.ID))
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// RequireAuth resolves the bearer token to a user or aborts with 401.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		user, err := h.Accounts.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.abort(c, err)
			return
		}
		c.Set(ctxUser, user)
		c.Set(ctxToken, token)
		c.Next()
	}
}

// OptionalAuth resolves the bearer token if one is sent. Invalid tokens are ignored.
func (h *Handler) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if user, err := h.Accounts.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(ctxUser, user)
				c.Set(ctxToken, token)
			}
		}
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the authenticated user is an admin.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.RequireAdmin(currentUser(c)); err != nil {
			h.abort(c, err)
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func currentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(ctxUser); ok {
		if u, ok := v.(*model.User); ok {
			return u
		}
	}
	return nil
}
