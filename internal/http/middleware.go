package http

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"postboard/internal/domain"
)

const principalKey = "principal"

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		if h.metrics != nil {
			h.metrics.ObserveRequest(c.Request.Method, c.FullPath(), status, latency)
		}

		entry := h.logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": latency.String(),
			"ip":      c.ClientIP(),
		})
		if p, ok := principalFrom(c); ok {
			entry = entry.WithField("user_id", p.UserID)
		}

		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request completed")
		case status >= http.StatusBadRequest:
			entry.Warn("request completed")
		default:
			entry.Info("request completed")
		}
	}
}

// recovery turns a panic into the internal error envelope. The stack is
// only echoed to the client outside production.
func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		stack := string(debug.Stack())
		h.logger.WithField("path", c.Request.URL.Path).Errorf("panic recovered: %v\n%s", recovered, stack)

		body := envelope{Success: false, Message: "Internal server error"}
		if !h.production {
			body.Stack = fmt.Sprintf("%v\n%s", recovered, stack)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, body)
	})
}

func (h *Handler) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondFailure(c, http.StatusUnauthorized, "Authorization token required")
			return
		}

		principal, err := h.tokens.Verify(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func principalFrom(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

func mustPrincipal(c *gin.Context) domain.Principal {
	p, _ := principalFrom(c)
	return p
}

func (h *Handler) notFound(c *gin.Context) {
	respondFailure(c, http.StatusNotFound, "Route "+c.Request.URL.RequestURI()+" not found")
}
