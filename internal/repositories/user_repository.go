package repositories

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phone_pool/internal/models"
)

// ErrUserIDExists 表示用户业务ID已存在
var ErrUserIDExists = errors.New("用户ID已存在")

// ErrQuotaGuardFailed 表示带守卫的用量递增未命中任何记录，
// 通常意味着并发修改导致 used_count + n 超过了 assigned_count
var ErrQuotaGuardFailed = errors.New("用量递增被配额守卫拒绝")

// UserRepository 定义了用户台账数据仓库的接口
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	// BulkInsertUsers 批量插入用户，冲突记录跳过，返回实际插入条数
	BulkInsertUsers(ctx context.Context, users []models.User) (int64, error)
	GetByUserID(ctx context.Context, userID string) (*models.User, error)
	// FindByUserIDs 按业务ID集合查询用户
	FindByUserIDs(ctx context.Context, userIDs []string) ([]models.User, error)
	// FindExistingUserIDs 返回集合中已存在的业务ID
	FindExistingUserIDs(ctx context.Context, userIDs []string) ([]string, error)
	ListNonAdminUsers(ctx context.Context) ([]models.User, error)
	HasAdminUser(ctx context.Context) (bool, error)
	CountNonAdminUsers(ctx context.Context) (int64, error)
	// SumUsedCount 汇总所有用户的已用计数
	SumUsedCount(ctx context.Context) (int64, error)
	// IncrementAssignedCount 给用户的已分配计数加 n
	IncrementAssignedCount(ctx context.Context, userID string, n int64) error
	// IncrementUsedCount 给用户的已用计数加 n，带 used_count + n <= assigned_count 守卫，
	// 守卫不满足时返回 ErrQuotaGuardFailed 且不产生任何修改
	IncrementUsedCount(ctx context.Context, userID string, n int64) error
	// ResetCounters 按两个轴位重置计数：resetAssigned 清零已分配计数，resetUsed 清零已用计数。
	// 只更新实际会发生变化的记录，返回受影响的用户数。
	ResetCounters(ctx context.Context, resetAssigned, resetUsed bool) (int64, error)
	// ListUsersWithAssigned 返回已分配计数大于零的用户
	ListUsersWithAssigned(ctx context.Context) ([]models.User, error)
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteByUserIDs 批量删除用户，返回实际删除条数
	DeleteByUserIDs(ctx context.Context, userIDs []string) (int64, error)
}

// gormUserRepository 是 UserRepository 的 GORM 实现
type gormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository 创建一个新的 gormUserRepository 实例
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &gormUserRepository{db: db}
}

// CreateUser 在数据库中创建一个新的用户记录
func (r *gormUserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	// 预先检查 user_id 是否已存在
	var existing models.User
	if err := r.db.WithContext(ctx).Where("user_id = ?", user.UserID).First(&existing).Error; err == nil {
		return nil, ErrUserIDExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		// GORM 通常会将数据库的唯一约束违例错误包装起来
		// 对于 SQLite，错误信息可能包含 "UNIQUE constraint failed"
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint") || strings.Contains(strings.ToLower(err.Error()), "duplicate key") {
			return nil, ErrUserIDExists
		}
		return nil, err
	}
	return user, nil
}

// BulkInsertUsers 批量插入用户，唯一约束冲突的记录跳过
func (r *gormUserRepository) BulkInsertUsers(ctx context.Context, users []models.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&users)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// GetByUserID 根据业务ID获取用户
func (r *gormUserRepository) GetByUserID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByUserIDs 按业务ID集合查询用户
func (r *gormUserRepository) FindByUserIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// FindExistingUserIDs 返回集合中已存在的业务ID
func (r *gormUserRepository) FindExistingUserIDs(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var existing []string
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id IN ?", userIDs).
		Pluck("user_id", &existing).Error
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// ListNonAdminUsers 列出所有非管理员用户
func (r *gormUserRepository) ListNonAdminUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("is_admin = ?", false).
		Order("user_id asc").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// HasAdminUser 检查是否已存在管理员用户
func (r *gormUserRepository) HasAdminUser(ctx context.Context) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_admin = ?", true).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountNonAdminUsers 统计非管理员用户数
func (r *gormUserRepository) CountNonAdminUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_admin = ?", false).Count(&count).Error
	return count, err
}

// SumUsedCount 汇总所有用户的已用计数
func (r *gormUserRepository) SumUsedCount(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Select("COALESCE(SUM(used_count), 0)").
		Scan(&total).Error
	return total, err
}

// IncrementAssignedCount 给用户的已分配计数加 n
func (r *gormUserRepository) IncrementAssignedCount(ctx context.Context, userID string, n int64) error {
	if n <= 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ?", userID).
		Update("assigned_count", gorm.Expr("assigned_count + ?", n))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// IncrementUsedCount 给用户的已用计数加 n，守卫保证 used_count 不会越过 assigned_count
func (r *gormUserRepository) IncrementUsedCount(ctx context.Context, userID string, n int64) error {
	if n <= 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("user_id = ? AND used_count + ? <= assigned_count", userID, n).
		Update("used_count", gorm.Expr("used_count + ?", n))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrQuotaGuardFailed
	}
	return nil
}

// ResetCounters 按两个轴位重置计数，只更新会发生变化的记录
func (r *gormUserRepository) ResetCounters(ctx context.Context, resetAssigned, resetUsed bool) (int64, error) {
	if !resetAssigned && !resetUsed {
		return 0, nil
	}

	updates := make(map[string]interface{})
	tx := r.db.WithContext(ctx).Model(&models.User{})
	switch {
	case resetAssigned && resetUsed:
		updates["assigned_count"] = 0
		updates["used_count"] = 0
		tx = tx.Where("assigned_count > 0 OR used_count > 0")
	case resetAssigned:
		updates["assigned_count"] = 0
		tx = tx.Where("assigned_count > 0")
	default:
		updates["used_count"] = 0
		tx = tx.Where("used_count > 0")
	}

	result := tx.Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListUsersWithAssigned 返回已分配计数大于零的用户
func (r *gormUserRepository) ListUsersWithAssigned(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("assigned_count > 0").
		Order("user_id asc").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// DeleteByUserID 删除指定业务ID的用户
func (r *gormUserRepository) DeleteByUserID(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteByUserIDs 批量删除用户
func (r *gormUserRepository) DeleteByUserIDs(ctx context.Context, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Delete(&models.User{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
