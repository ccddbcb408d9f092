package api

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klipach/dietapp/log"
)

const traceHeader = "X-Cloud-Trace-Context"

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (slices.Contains(s.Config.AllowedOrigins, origin) || slices.Contains(s.Config.AllowedOrigins, "*")) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Access-Control-Max-Age", "3600")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// requestLogger puts a request scoped logger carrying the trace id into the request context.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := log.WithTrace(c.Request.Context(), s.Config.ProjectID, c.GetHeader(traceHeader))
		l := log.LoggerFromContext(ctx).With(
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
		)
		c.Request = c.Request.WithContext(log.WithLogger(ctx, l))

		c.Next()

		logger(c).Info("request handled",
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := s.Auth.Authenticate(c.Request)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Set(identityKey, id)
		ctx := c.Request.Context()
		l := log.LoggerFromContext(ctx).With(slog.String(log.UserIDLogField, id.UserID))
		c.Request = c.Request.WithContext(log.WithLogger(ctx, l))
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identity(c).IsAdmin() {
			s.fail(c, errForbidden)
			return
		}
		c.Next()
	}
}
