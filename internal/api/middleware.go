package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/imparable/imparable/internal/errors"
	"github.com/imparable/imparable/internal/logging"
	"github.com/imparable/imparable/internal/model"
)

// Header names read or written by the API.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderUserID    = "X-User-ID"
)

const (
	ctxKeyRequestID = "request_id"
	ctxKeyUser      = "user"
)

// RequestIDMiddleware ensures every request has a correlation/request ID and
// carries it in the request context for logging.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = logging.GenerateRequestID()
		}
		c.Set(ctxKeyRequestID, reqID)
		c.Writer.Header().Set(HeaderRequestID, reqID)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), reqID))
		c.Next()
	}
}

// AccessLogMiddleware logs one line per request.
func AccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			logging.KeyPath, c.FullPath(),
			logging.KeyStatus, c.Writer.Status(),
			logging.KeyDuration, time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logging.WarnContext(c.Request.Context(), "request", args...)
			return
		}
		logging.DebugContext(c.Request.Context(), "request", args...)
	}
}

// ActorMiddleware resolves the calling user from the X-User-ID header.
// Authentication happens upstream; unknown or missing ids are rejected.
func ActorMiddleware(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if id == "" {
			abort(c, http.StatusUnauthorized, "missing "+HeaderUserID+" header", "")
			return
		}
		user, err := app.Store().GetUser(c.Request.Context(), id)
		if err != nil {
			if errors.IsNotFound(err) {
				abort(c, http.StatusUnauthorized, "unknown user", "")
				return
			}
			HandleError(c, err, "resolve caller")
			return
		}
		c.Set(ctxKeyUser, user)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. It must run after ActorMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actor(c).IsAdmin() {
			HandleError(c, errors.ErrForbidden, "admin only")
			c.Abort()
			return
		}
		c.Next()
	}
}

func actor(c *gin.Context) *model.User {
	u, _ := c.Get(ctxKeyUser)
	user, _ := u.(*model.User)
	return user
}
