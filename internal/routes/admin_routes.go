package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/phone_pool/internal/auth"
)

// SetupAdminRoutes 设置管理端路由（号码池维护、分配、重置与用户管理）
func SetupAdminRoutes(router *gin.RouterGroup, h *Handlers) {
	apiV1 := router.Group("/v1")
	{
		// 初始化管理员账号不需要认证，只在系统中还没有管理员时可用
		apiV1.POST("/admin/setup", h.User.SetupAdmin)

		adminGroup := apiV1.Group("/admin")
		adminGroup.Use(auth.JWTMiddleware(), auth.AdminRequired())
		{
			// 号码池维护
			adminGroup.POST("/upload-numbers", h.PhoneNumber.UploadNumbers)
			adminGroup.GET("/phone-numbers", h.PhoneNumber.GetNumbers)
			adminGroup.GET("/phone-numbers/count", h.PhoneNumber.GetPoolStats)
			adminGroup.GET("/export-unused-numbers", h.PhoneNumber.ExportUnusedNumbers)

			// 号码分配
			adminGroup.POST("/assign-numbers", h.PhoneNumber.AssignNumbers)
			adminGroup.POST("/bulk-assign-numbers", h.PhoneNumber.BulkAssignNumbers)

			// 批量重置；/clear-numbers 是 /clear-total-numbers 的历史别名
			adminGroup.DELETE("/clear-numbers", h.Reset.ClearTotalNumbers)
			adminGroup.DELETE("/clear-total-numbers", h.Reset.ClearTotalNumbers)
			adminGroup.DELETE("/clear-assigned-numbers", h.Reset.ClearAssignedNumbers)
			adminGroup.DELETE("/clear-used-numbers", h.Reset.ClearUsedNumbers)
			adminGroup.DELETE("/clear-assignments", h.Reset.ClearAssignments)

			// 台账对账
			adminGroup.POST("/reconcile-assignments", h.Reset.ReconcileAssignments)

			// 用户管理
			adminGroup.POST("/users", h.User.CreateUser)
			adminGroup.GET("/users", h.User.GetUsers)
			adminGroup.DELETE("/users", h.User.DeleteUsers)
			adminGroup.DELETE("/users/:userId", h.User.DeleteUser)
			adminGroup.POST("/users/bulk-import", h.User.BulkImportUsers)
		}
	}
}
