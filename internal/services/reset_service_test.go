package services

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClearTotalInventory(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewResetService(numberRepo, userRepo)

	seedUser(t, gormDB, "100001", "甲", false, 2, 1)
	seedUser(t, gormDB, "100002", "乙", false, 0, 0)
	seedNumbers(t, gormDB, []string{"101", "102"}, "100001")
	seedNumbers(t, gormDB, []string{"103"}, "")

	result, err := service.ClearTotalInventory(testCtx())
	require.NoError(t, err)
	assert.False(t, result.NoOp)
	assert.Equal(t, int64(3), result.NumbersAffected)
	assert.Equal(t, int64(1), result.UsersReset)

	assert.Equal(t, int64(0), countNumbers(t, gormDB, ""))
	user := fetchUser(t, gormDB, "100001")
	assert.Equal(t, int64(0), user.AssignedCount)
	assert.Equal(t, int64(0), user.UsedCount)

	// 重建后的表可以继续正常插入（唯一索引仍在）
	seedNumbers(t, gormDB, []string{"101"}, "")
	assert.Equal(t, int64(1), countNumbers(t, gormDB, ""))
}

func TestClearAssignedLinks(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewResetService(numberRepo, userRepo)

	seedUser(t, gormDB, "100001", "甲", false, 100, 30)
	assigned := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		assigned = append(assigned, "assigned-"+strconv.Itoa(i))
	}
	seedNumbers(t, gormDB, assigned, "100001")
	unassigned := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		unassigned = append(unassigned, "free-"+strconv.Itoa(i))
	}
	seedNumbers(t, gormDB, unassigned, "")

	result, err := service.ClearAssignedLinks(testCtx())
	require.NoError(t, err)
	assert.False(t, result.NoOp)
	// 100 条已分配翻回未分配，号码本身不删除
	assert.Equal(t, int64(100), result.NumbersAffected)
	assert.Equal(t, int64(1), result.UsersReset)
	assert.Equal(t, int64(150), countNumbers(t, gormDB, ""))
	assert.Equal(t, int64(0), countNumbers(t, gormDB, "is_assigned = ?", true))

	user := fetchUser(t, gormDB, "100001")
	assert.Equal(t, int64(0), user.AssignedCount)
	assert.Equal(t, int64(0), user.UsedCount)
}

func TestClearUsedCounters(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewResetService(numberRepo, userRepo)

	seedUser(t, gormDB, "100001", "甲", false, 5, 3)
	seedNumbers(t, gormDB, []string{"101", "102"}, "100001")

	result, err := service.ClearUsedCounters(testCtx())
	require.NoError(t, err)
	assert.False(t, result.NoOp)
	assert.Equal(t, int64(1), result.UsersReset)

	// 只清已用计数：号码池与已分配计数不动
	user := fetchUser(t, gormDB, "100001")
	assert.Equal(t, int64(5), user.AssignedCount)
	assert.Equal(t, int64(0), user.UsedCount)
	assert.Equal(t, int64(2), countNumbers(t, gormDB, "is_assigned = ?", true))
}

func TestClearAllAssignmentsMessages(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewResetService(numberRepo, userRepo)

	seedUser(t, gormDB, "100001", "甲", false, 2, 0)
	seedNumbers(t, gormDB, []string{"101", "102"}, "100001")

	result, err := service.ClearAllAssignments(testCtx())
	require.NoError(t, err)
	assert.False(t, result.NoOp)
	assert.Equal(t, int64(2), result.NumbersAffected)
	assert.Equal(t, int64(1), result.UsersReset)

	// 只剩计数需要清零时给出区分化的消息
	require.NoError(t, gormDB.Exec("UPDATE users SET assigned_count = 3").Error)
	result, err = service.ClearAllAssignments(testCtx())
	require.NoError(t, err)
	assert.False(t, result.NoOp)
	assert.Equal(t, int64(0), result.NumbersAffected)
	assert.Equal(t, int64(1), result.UsersReset)
	assert.Contains(t, result.Message, "没有已分配的号码需要释放")
}

func TestResetsAreIdempotent(t *testing.T) {
	numberRepo, userRepo, gormDB := newTestRepos(t)
	service := NewResetService(numberRepo, userRepo)

	seedUser(t, gormDB, "100001", "甲", false, 2, 1)
	seedNumbers(t, gormDB, []string{"101", "102"}, "100001")

	// 第一次调用产生修改，紧接着的第二次必须是零修改的空操作
	first, err := service.ClearTotalInventory(testCtx())
	require.NoError(t, err)
	assert.False(t, first.NoOp)

	second, err := service.ClearTotalInventory(testCtx())
	require.NoError(t, err)
	assert.True(t, second.NoOp)
	assert.Equal(t, int64(0), second.NumbersAffected)
	assert.Equal(t, int64(0), second.UsersReset)

	again, err := service.ClearAssignedLinks(testCtx())
	require.NoError(t, err)
	assert.True(t, again.NoOp)

	used, err := service.ClearUsedCounters(testCtx())
	require.NoError(t, err)
	assert.True(t, used.NoOp)

	all, err := service.ClearAllAssignments(testCtx())
	require.NoError(t, err)
	assert.True(t, all.NoOp)
}
