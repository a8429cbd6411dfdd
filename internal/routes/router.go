package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/phone_pool/configs"
	"github.com/phone_pool/internal/handlers"
)

// Handlers 聚合所有需要注册路由的处理器
type Handlers struct {
	Auth        *handlers.AuthHandler
	PhoneNumber *handlers.PhoneNumberHandler
	Reset       *handlers.ResetHandler
	User        *handlers.UserHandler
}

// storeTimeout 给请求上下文加上存储调用的超时上限，
// 批量重建等长操作超过上限后会被底层存储调用中断
func storeTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SetupRoutes 初始化所有路由
func SetupRoutes(router *gin.Engine, h *Handlers) {
	api := router.Group("/api")
	api.Use(storeTimeout(configs.AppConfig.StoreTimeout))

	SetupAuthRoutes(api, h.Auth) // 注册认证路由
	SetupAdminRoutes(api, h)     // 注册管理端路由
	SetupUserRoutes(api, h.User) // 注册普通用户路由

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
