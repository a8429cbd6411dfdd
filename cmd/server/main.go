package main

// @title 号码池管理系统 API
// @version 1.0
// @description 号码入库、配额分配、号码生成与批量重置的管理接口
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/phone_pool/configs"
	"github.com/phone_pool/internal/handlers"
	"github.com/phone_pool/internal/repositories"
	"github.com/phone_pool/internal/routes"
	"github.com/phone_pool/internal/services"
	"github.com/phone_pool/pkg/db"
)

func main() {
	configs.LoadConfig()

	// 初始化数据库连接
	gormDB, err := db.InitDB()
	if err != nil {
		log.Fatalf("数据库初始化失败: %v", err)
	}
	defer db.CloseDB(gormDB) // 确保在 main 函数退出时关闭数据库连接

	// 组装各层依赖
	numberRepo := repositories.NewGormPhoneNumberRepository(gormDB)
	userRepo := repositories.NewGormUserRepository(gormDB)

	poolService := services.NewPoolService(numberRepo, userRepo)
	assignmentService := services.NewAssignmentService(numberRepo, userRepo)
	resetService := services.NewResetService(numberRepo, userRepo)
	userService := services.NewUserService(userRepo, numberRepo)

	router := gin.Default()

	// 设置API路由
	routes.SetupRoutes(router, &routes.Handlers{
		Auth:        handlers.NewAuthHandler(userRepo),
		PhoneNumber: handlers.NewPhoneNumberHandler(poolService, assignmentService),
		Reset:       handlers.NewResetHandler(resetService, assignmentService),
		User:        handlers.NewUserHandler(userService, assignmentService),
	})

	port := configs.AppConfig.ServerPort
	log.Printf("Server starting on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
