package server

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Gin context keys set by the middleware and the scan handlers.
const (
	ContextKeyRequestID  = "request_id"
	ContextKeyPages      = "omr_pages"      // Pages read by the request
	ContextKeyConfidence = "omr_confidence" // Mean confidence of those pages
)

// setReading records what a scan request read, for the request log line.
func setReading(c *gin.Context, pages int, confidence float64) {
	c.Set(ContextKeyPages, pages)
	c.Set(ContextKeyConfidence, confidence)
}

// RequestID injects an X-Request-ID header into the request and response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Logger logs each HTTP request with method, path, status, and latency.
// Scan requests also log the page count and mean confidence.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		var reading string
		if pages, ok := c.Get(ContextKeyPages); ok {
			reading = fmt.Sprintf(" pages=%d confidence=%.2f", pages, c.GetFloat64(ContextKeyConfidence))
		}

		requestID, _ := c.Get(ContextKeyRequestID)
		log.Printf("[%s] %s %s %d %s%s",
			requestID,
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			latency,
			reading,
		)
	}
}

// Recovery recovers from panics and returns a 500 error.
func Recovery() gin.HandlerFunc {
	return gin.Recovery()
}
