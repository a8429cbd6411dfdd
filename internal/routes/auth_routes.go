package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/phone_pool/internal/auth"
	"github.com/phone_pool/internal/handlers"
)

// SetupAuthRoutes 设置认证相关路由
func SetupAuthRoutes(router *gin.RouterGroup, h *handlers.AuthHandler) {
	apiV1 := router.Group("/v1") // 创建 /api/v1 路由组
	{
		// 公共认证路由组 (例如登录)
		publicAuthGroup := apiV1.Group("/auth")
		{
			// POST /api/v1/auth/login
			publicAuthGroup.POST("/login", h.Login)
			// POST /api/v1/auth/check-role
			publicAuthGroup.POST("/check-role", h.CheckRole)
		}

		// 受保护的认证路由组 (例如登出)
		protectedAuthGroup := apiV1.Group("/auth")
		protectedAuthGroup.Use(auth.JWTMiddleware()) // 应用JWT中间件到这个组
		{
			// POST /api/v1/auth/logout
			protectedAuthGroup.POST("/logout", h.Logout)
		}
	}
}
