package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phone_pool/internal/repositories"
	"github.com/phone_pool/pkg/utils"
)

func TestCreateUserValidation(t *testing.T) {
	numberRepo, userRepo, _ := newTestRepos(t)
	service := NewUserService(userRepo, numberRepo)

	user, err := service.CreateUser(testCtx(), "123456", "张三", false)
	require.NoError(t, err)
	assert.Equal(t, "123456", user.UserID)
	assert.False(t, user.IsAdmin)

	// 业务ID必须是6位数字
	_, err = service.CreateUser(testCtx(), "12345", "张三", false)
	assert.ErrorIs(t, err, utils.ErrInvalidUserIDFormat)
	_, err = service.CreateUser(testCtx(), "12345a", "张三", false)
	assert.ErrorIs(t, err, utils.ErrInvalidUserIDFormat)

	// 已占用的ID拒绝
	_, err = service.CreateUser(testCtx(), "123456", "李四", false)
	assert.ErrorIs(t, err, repositories.ErrUserIDExists)
}

func TestCreateUserRejectsPaddedUserID(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewUserService(userRepo, numberRepo)

	_, err := service.CreateUser(testCtx(), "123456", "张三", false)
	require.NoError(t, err)

	// 带空白的ID不允许绕过唯一性：" 123456" 与 "123456" 是同一个逻辑ID，
	// 不做规整直接拒绝，台账里不可能出现7字符的影子记录
	_, err = service.CreateUser(testCtx(), " 123456", "李四", false)
	assert.ErrorIs(t, err, utils.ErrInvalidUserIDFormat)

	var count int64
	require.NoError(t, gormDB.Table("users").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, "123456", fetchUser(t, gormDB, "123456").UserID)
}

func TestBulkImportUsers(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewUserService(userRepo, numberRepo)

	seedUser(t, gormDB, "100001", "存量用户", false, 0, 0)

	rows := []UserImportRow{
		{UserID: "100001", Name: "存量用户"}, // 台账中已存在
		{UserID: "100002", Name: "甲"},
		{UserID: "100002", Name: "甲重复"}, // 文件内重复
		{UserID: "abc123", Name: "乙"},  // 格式不合法
		{UserID: "100003", Name: ""},   // 缺姓名
		{UserID: "100004", Name: "丙"},
	}

	result, err := service.BulkImportUsers(testCtx(), rows)
	require.NoError(t, err)
	assert.Equal(t, int64(6), result.TotalInFile)
	assert.Equal(t, int64(2), result.UsersAdded)
	assert.Equal(t, int64(1), result.SkippedExisting)
	assert.Equal(t, int64(3), result.SkippedInvalid)

	users, err := service.GetUsers(testCtx())
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestBulkImportUsersNoValidRows(t *testing.T) {
	numberRepo, userRepo, _ := newTestRepos(t)
	service := NewUserService(userRepo, numberRepo)

	rows := []UserImportRow{
		{UserID: "bad", Name: "甲"},
		{UserID: "100001", Name: ""},
	}
	_, err := service.BulkImportUsers(testCtx(), rows)
	assert.ErrorIs(t, err, ErrNoValidUserRows)
}

func TestEnsureAdminUser(t *testing.T) {
	numberRepo, userRepo, _ := newTestRepos(t)
	service := NewUserService(userRepo, numberRepo)

	admin, err := service.EnsureAdminUser(testCtx())
	require.NoError(t, err)
	assert.Equal(t, AdminUserID, admin.UserID)
	assert.True(t, admin.IsAdmin)

	// 已有管理员后不允许重复初始化
	_, err = service.EnsureAdminUser(testCtx())
	assert.ErrorIs(t, err, ErrAdminUserExists)
}

func TestGetProfile(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewUserService(userRepo, numberRepo)

	seedUser(t, gormDB, "100001", "甲", false, 5, 2)

	profile, err := service.GetProfile(testCtx(), "100001")
	require.NoError(t, err)
	assert.Equal(t, int64(5), profile.PhoneNumbersAssigned)
	assert.Equal(t, int64(2), profile.PhoneNumbersUsed)
	assert.Equal(t, int64(3), profile.PhoneNumbersRemaining)

	_, err = service.GetProfile(testCtx(), "999999")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUserReleasesNumbers(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewUserService(userRepo, numberRepo)

	seedUser(t, gormDB, "100001", "甲", false, 2, 0)
	seedNumbers(t, gormDB, []string{"101", "102"}, "100001")

	require.NoError(t, service.DeleteUser(testCtx(), "100001"))

	// 名下号码释放回未分配池，不删除
	assert.Equal(t, int64(2), countNumbers(t, gormDB, "is_assigned = ?", false))
	assert.Equal(t, int64(0), countNumbers(t, gormDB, "is_assigned = ?", true))

	err := service.DeleteUser(testCtx(), "100001")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUserProtectsAdmin(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewUserService(userRepo, numberRepo)

	seedUser(t, gormDB, "000000", "Admin", true, 0, 0)

	err := service.DeleteUser(testCtx(), "000000")
	assert.ErrorIs(t, err, ErrAdminUserNotDeletable)
}

func TestDeleteUsers(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewUserService(userRepo, numberRepo)

	seedUser(t, gormDB, "100001", "甲", false, 1, 0)
	seedUser(t, gormDB, "100002", "乙", false, 1, 0)
	seedNumbers(t, gormDB, []string{"101"}, "100001")
	seedNumbers(t, gormDB, []string{"102"}, "100002")

	// 不存在的ID静默忽略，存在的照常删除
	result, err := service.DeleteUsers(testCtx(), []string{"100001", "100002", "999999"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.DeletedCount)
	assert.ElementsMatch(t, []string{"100001", "100002"}, result.DeletedUserIDs)
	assert.Equal(t, int64(2), countNumbers(t, gormDB, "is_assigned = ?", false))

	_, err = service.DeleteUsers(testCtx(), []string{"999999"})
	assert.ErrorIs(t, err, ErrNoUsersFound)
}

func TestDeleteUsersRejectsAdminInSet(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewUserService(userRepo, numberRepo)

	seedUser(t, gormDB, "000000", "Admin", true, 0, 0)
	seedUser(t, gormDB, "100001", "甲", false, 0, 0)

	// 集合中含管理员时整体拒绝，普通用户也不删除
	_, err := service.DeleteUsers(testCtx(), []string{"000000", "100001"})
	var adminErr *AdminNotDeletableError
	require.ErrorAs(t, err, &adminErr)
	assert.Equal(t, []string{"000000"}, adminErr.AdminUserIDs)

	users, err := service.GetUsers(testCtx())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
