package like

import "github.com/gin-gonic/gin"

func RegisterProtectedRoutes(rg *gin.RouterGroup, h *Handler) {
	posts := rg.Group("/posts")
	{
		posts.POST("/:id/like", h.Like)
		posts.GET("/:id/liked", h.Liked)
	}
}
