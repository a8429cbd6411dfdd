package repositories

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phone_pool/internal/models"
)

// newTestDB 为单个测试创建独立的内存数据库。
// 连接池收紧到单连接，竞争调用方的语句逐条串行执行，
// 但一个调用方的查询和更新之间仍然可以插入其他调用方的语句。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gormDB.AutoMigrate(&models.PhoneNumber{}))
	return gormDB
}

func seedUnassigned(t *testing.T, gormDB *gorm.DB, n int) {
	t.Helper()
	records := make([]models.PhoneNumber, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, models.PhoneNumber{Number: "num-" + strconv.Itoa(i)})
	}
	require.NoError(t, gormDB.Create(&records).Error)
}

func TestClaimAvailableNeverStealsAssigned(t *testing.T) {
	gormDB := newTestDB(t)
	repo := NewGormPhoneNumberRepository(gormDB)
	ctx := context.Background()

	seedUnassigned(t, gormDB, 3)

	claimed, err := repo.ClaimAvailable(ctx, "100001", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), claimed)

	// 后来的认领方只能拿到剩下的 1 条，已归属的记录不会被改派
	claimed, err = repo.ClaimAvailable(ctx, "100002", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claimed)

	var firstOwner int64
	require.NoError(t, gormDB.Model(&models.PhoneNumber{}).
		Where("assigned_user = ?", "100001").Count(&firstOwner).Error)
	assert.Equal(t, int64(2), firstOwner)

	// 池已耗尽，再认领是零结果而不是错误
	claimed, err = repo.ClaimAvailable(ctx, "100003", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), claimed)
}

func TestClaimAvailableCompetingClaimants(t *testing.T) {
	gormDB := newTestDB(t)
	repo := NewGormPhoneNumberRepository(gormDB)
	ctx := context.Background()

	const poolSize = 10
	seedUnassigned(t, gormDB, poolSize)

	// 4 个调用方各要 5 条，总需求 20 超过池量 10。
	// 候选查询和条件更新之间被别人抢走的记录，更新守卫会让其落空，
	// 所以总认领数不能超过池量，且每条记录只归属一个调用方。
	var totalClaimed int64
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		userID := "10000" + strconv.Itoa(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := repo.ClaimAvailable(ctx, userID, 5)
			if err != nil {
				errs <- err
				return
			}
			atomic.AddInt64(&totalClaimed, claimed)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var assigned int64
	require.NoError(t, gormDB.Model(&models.PhoneNumber{}).
		Where("is_assigned = ?", true).Count(&assigned).Error)

	// 报告的认领数与实际翻转的记录数一致，没有记录被重复计入
	assert.Equal(t, assigned, atomic.LoadInt64(&totalClaimed))
	assert.LessOrEqual(t, totalClaimed, int64(poolSize))

	// 每个已分配记录恰好有一个归属用户
	var orphaned int64
	require.NoError(t, gormDB.Model(&models.PhoneNumber{}).
		Where("is_assigned = ? AND assigned_user IS NULL", true).Count(&orphaned).Error)
	assert.Equal(t, int64(0), orphaned)
	var leaked int64
	require.NoError(t, gormDB.Model(&models.PhoneNumber{}).
		Where("is_assigned = ? AND assigned_user IS NOT NULL", false).Count(&leaked).Error)
	assert.Equal(t, int64(0), leaked)
}
