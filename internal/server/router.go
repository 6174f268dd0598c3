package server

import (
	"github.com/gin-gonic/gin"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(h *Handler) *gin.Engine {
	r := gin.New()
	if h.maxUpload > 0 {
		r.MaxMultipartMemory = h.maxUpload
	}

	// Global middleware
	r.Use(Recovery())
	r.Use(RequestID())
	r.Use(Logger())

	r.GET("/healthz", h.Health)

	omrGroup := r.Group("/api/v1/omr")
	omrGroup.POST("/scan", h.Scan)
	omrGroup.POST("/scan-batch", h.ScanBatch)
	omrGroup.GET("/latest", h.Latest)
	omrGroup.POST("/submit", h.Submit)

	return r
}
