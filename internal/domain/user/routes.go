package user

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the public auth endpoints.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}
}

// RegisterProtectedRoutes mounts endpoints requiring authentication.
func RegisterProtectedRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/auth/me", h.Me)
}
