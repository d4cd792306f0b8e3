package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Warn("request", fields...)
		default:
			logger.Debug("request", fields...)
		}
	}
}

// recovery turns a panic into a 500 envelope.
func recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
				)
				fail(c, http.StatusInternalServerError, "Internal server error", nil)
			}
		}()
		c.Next()
	}
}

// withSession attaches the caller's session, creating one and setting the
// cookie when the request carries none or an expired one.
func (s *Server) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			e  *entry
			ok bool
		)
		if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
			e, ok = s.store.Get(id)
		}
		if !ok {
			e = s.store.Create()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, e.session.ID(), 0, "/", "", false, true)
		}
		c.Set(sessionKey, e)
		c.Next()
	}
}

func currentEntry(c *gin.Context) *entry {
	return c.MustGet(sessionKey).(*entry)
}
