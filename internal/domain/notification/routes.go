package notification

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the notification endpoints under the protected group.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	n := r.Group("/notifications")
	{
		n.GET("", h.List)
		n.POST("/:id/read", h.MarkRead)
	}
}
