package post

import "github.com/gin-gonic/gin"

func RegisterProtectedRoutes(rg *gin.RouterGroup, h *Handler) {
	posts := rg.Group("/posts")
	{
		posts.GET("", h.List)
		posts.GET("/:id", h.Get)
		posts.POST("", h.Create)
	}
}
