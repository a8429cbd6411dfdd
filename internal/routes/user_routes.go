package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/phone_pool/internal/auth"
	"github.com/phone_pool/internal/handlers"
)

// SetupUserRoutes 设置普通用户路由（账户概要与号码生成）
func SetupUserRoutes(router *gin.RouterGroup, h *handlers.UserHandler) {
	apiV1 := router.Group("/v1")
	{
		userGroup := apiV1.Group("/user")
		userGroup.Use(auth.JWTMiddleware())
		{
			userGroup.GET("/profile", h.GetProfile)
			userGroup.POST("/generate-numbers", h.GenerateNumbers)
		}
	}
}
