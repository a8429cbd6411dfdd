package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phone_pool/internal/models"
	"github.com/phone_pool/internal/repositories"
)

// newTestDB 为单个测试创建独立的内存数据库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&models.User{}, &models.PhoneNumber{}))
	return gormDB
}

// newTestRepos 基于测试数据库构建两个仓储
func newTestRepos(t *testing.T) (repositories.PhoneNumberRepository, repositories.UserRepository, *gorm.DB) {
	t.Helper()
	gormDB := newTestDB(t)
	return repositories.NewGormPhoneNumberRepository(gormDB), repositories.NewGormUserRepository(gormDB), gormDB
}

// seedUser 插入一个用户并返回
func seedUser(t *testing.T, gormDB *gorm.DB, userID, name string, isAdmin bool, assigned, used int64) *models.User {
	t.Helper()
	user := &models.User{
		UserID:        userID,
		Name:          name,
		IsAdmin:       isAdmin,
		AssignedCount: assigned,
		UsedCount:     used,
	}
	require.NoError(t, gormDB.Create(user).Error)
	return user
}

// seedNumbers 批量插入号码；assignedTo 非空时直接建为已分配状态
func seedNumbers(t *testing.T, gormDB *gorm.DB, numbers []string, assignedTo string) {
	t.Helper()
	records := make([]models.PhoneNumber, 0, len(numbers))
	for _, number := range numbers {
		record := models.PhoneNumber{Number: number}
		if assignedTo != "" {
			owner := assignedTo
			record.IsAssigned = true
			record.AssignedUser = &owner
		}
		records = append(records, record)
	}
	require.NoError(t, gormDB.Create(&records).Error)
}

// countNumbers 统计满足条件的号码条数
func countNumbers(t *testing.T, gormDB *gorm.DB, query string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	tx := gormDB.Model(&models.PhoneNumber{})
	if query != "" {
		tx = tx.Where(query, args...)
	}
	require.NoError(t, tx.Count(&count).Error)
	return count
}

// fetchUser 按业务ID读取用户当前状态
func fetchUser(t *testing.T, gormDB *gorm.DB, userID string) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, gormDB.Where("user_id = ?", userID).First(&user).Error)
	return &user
}

// testCtx 是测试用的顶层上下文
func testCtx() context.Context {
	return context.Background()
}
