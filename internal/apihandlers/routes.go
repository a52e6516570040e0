package apihandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes attaches the producer API to the router.
func (h *APIHandler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1")
	{
		jobGroup := v1.Group("/jobs")
		{
			jobGroup.POST("", h.EnqueueJobHandler)
			jobGroup.GET("/:id", h.GetJobHandler)
			jobGroup.POST("/active/kill", h.KillActiveHandler)
		}
		v1.GET("/queue", h.QueueStatusHandler)
		v1.POST("/hooks/:source", h.WebhookHandler)
		v1.POST("/messages", h.RecordMessageHandler)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
