package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"redditanalyzer/pkg/logger"
	"redditanalyzer/pkg/ratelimit"
)

// requestLogger logs every request after the handler chain finishes
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		logger.LogRequest(log, c.Request.Method, path, c.Writer.Status(), time.Since(start), Principal(c))
	}
}

// recoverPanics turns a handler panic into a 500 without killing the server
func recoverPanics(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.WithFields(map[string]interface{}{
			"path":  c.Request.URL.Path,
			"panic": recovered,
		}).Error("handler panicked")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// limitSubmissions rejects requests once limiter has no capacity left
func limitSubmissions(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many submissions"})
			return
		}
		c.Next()
	}
}
