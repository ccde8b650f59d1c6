package middleware

import (
	"net/http"
	"strings"
	"time"

	"spay-platform/internal/core/ports"
	"spay-platform/pkg/apperror"
	"spay-platform/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Context keys
	CtxUserID  = "user_id"
	CtxUserKey = "user"

	// HeaderDeviceID carries an optional client-chosen device signature.
	// Without it the User-Agent string identifies the device.
	HeaderDeviceID = "X-Device-Id"
)

// BearerAuth validates the Authorization bearer token as an access token.
// Validation is full: signature, expiry, active user, token epoch. The
// resolved user is placed in the request context.
func BearerAuth(authSvc ports.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			response.Error(c, apperror.ErrUnauthorized())
			c.Abort()
			return
		}

		user, err := authSvc.ValidateAccessToken(c.Request.Context(), authHeader[7:])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxUserID, user.ID)
		c.Set(CtxUserKey, user)
		c.Next()
	}
}

// DeviceSignature extracts the device signature used for session binding.
func DeviceSignature(c *gin.Context) string {
	if sig := c.GetHeader(HeaderDeviceID); sig != "" {
		return sig
	}
	return c.Request.UserAgent()
}

// RequestID assigns each request a UUID, echoed in the X-Request-Id
// response header and stamped into every response envelope.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString("request_id")).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": "SYS_001",
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize returns middleware that limits the request body size.
// Once the limit is exceeded the reader returns an error and the
// request is rejected with 413 Payload Too Large.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
