package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phone_pool/internal/models"
)

// ErrRecordNotFound 表示记录未找到，可以重用 gorm 的错误或自定义
var ErrRecordNotFound = gorm.ErrRecordNotFound

// PhoneNumberRepository 定义了号码池数据仓库的接口。
// 所有修改操作都以单条记录的条件更新为原子边界，不依赖跨表事务。
type PhoneNumberRepository interface {
	// FindExistingNumbers 返回 batch 中已经存在于号码池的号码字符串
	FindExistingNumbers(ctx context.Context, batch []string) ([]string, error)
	// InsertNumbers 批量插入号码，遇到唯一约束冲突跳过冲突记录而不是整批失败，
	// 返回实际插入的条数
	InsertNumbers(ctx context.Context, numbers []string) (int64, error)
	// GetNumbers 分页获取号码列表
	GetNumbers(ctx context.Context, page, limit int) ([]models.PhoneNumber, int64, error)
	CountTotal(ctx context.Context) (int64, error)
	CountAssigned(ctx context.Context) (int64, error)
	CountAvailable(ctx context.Context) (int64, error)
	CountAssignedToUser(ctx context.Context, userID string) (int64, error)
	// ClaimAvailable 认领至多 limit 条未分配号码并标记为分配给 userID。
	// 更新语句带有 is_assigned = false 守卫，并发竞争下同一条记录至多被一个调用方认领，
	// 返回值是实际认领到的条数（可能小于 limit）。
	ClaimAvailable(ctx context.Context, userID string, limit int) (int64, error)
	// FindAssignedToUser 查询分配给指定用户的号码，最多返回 limit 条
	FindAssignedToUser(ctx context.Context, userID string, limit int) ([]models.PhoneNumber, error)
	// DeleteOwnedByIDs 删除指定ID集合中仍然分配给 userID 的记录（消耗号码时使用），
	// 守卫条件保证不会误删已被重置或改派的记录，返回实际删除条数
	DeleteOwnedByIDs(ctx context.Context, ids []int64, userID string) (int64, error)
	// ReleaseAssigned 将所有已分配号码翻转为未分配状态，返回受影响条数
	ReleaseAssigned(ctx context.Context) (int64, error)
	// ReleaseAssignedToUsers 释放分配给指定用户集合的号码，返回受影响条数
	ReleaseAssignedToUsers(ctx context.Context, userIDs []string) (int64, error)
	// DropAndRecreate 删表重建（含唯一索引），用于整池清空，比逐行删除快得多
	DropAndRecreate(ctx context.Context) error
	// ListUnassignedNumbers 返回所有未分配号码的字符串
	ListUnassignedNumbers(ctx context.Context) ([]string, error)
}

// gormPhoneNumberRepository 是 PhoneNumberRepository 的 GORM 实现
type gormPhoneNumberRepository struct {
	db *gorm.DB
}

// NewGormPhoneNumberRepository 创建一个新的 gormPhoneNumberRepository 实例
func NewGormPhoneNumberRepository(db *gorm.DB) PhoneNumberRepository {
	return &gormPhoneNumberRepository{db: db}
}

// FindExistingNumbers 查询 batch 中已存在的号码
func (r *gormPhoneNumberRepository) FindExistingNumbers(ctx context.Context, batch []string) ([]string, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	var existing []string
	err := r.db.WithContext(ctx).Model(&models.PhoneNumber{}).
		Where("number IN ?", batch).
		Pluck("number", &existing).Error
	if err != nil {
		return nil, err
	}
	return existing, nil
}

// InsertNumbers 批量插入号码。ON CONFLICT DO NOTHING 保证与并发写入方
// 撞上唯一约束时，未冲突的记录仍然全部提交。
func (r *gormPhoneNumberRepository) InsertNumbers(ctx context.Context, numbers []string) (int64, error) {
	if len(numbers) == 0 {
		return 0, nil
	}
	records := make([]models.PhoneNumber, 0, len(numbers))
	for _, number := range numbers {
		records = append(records, models.PhoneNumber{Number: number, IsAssigned: false})
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// GetNumbers 分页获取号码列表
func (r *gormPhoneNumberRepository) GetNumbers(ctx context.Context, page, limit int) ([]models.PhoneNumber, int64, error) {
	var numbers []models.PhoneNumber
	var totalItems int64

	if err := r.db.WithContext(ctx).Model(&models.PhoneNumber{}).Count(&totalItems).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("id asc").
		Offset(offset).Limit(limit).
		Find(&numbers).Error; err != nil {
		return nil, 0, err
	}
	return numbers, totalItems, nil
}

func (r *gormPhoneNumberRepository) CountTotal(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PhoneNumber{}).Count(&count).Error
	return count, err
}

func (r *gormPhoneNumberRepository) CountAssigned(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PhoneNumber{}).
		Where("is_assigned = ?", true).Count(&count).Error
	return count, err
}

func (r *gormPhoneNumberRepository) CountAvailable(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PhoneNumber{}).
		Where("is_assigned = ?", false).Count(&count).Error
	return count, err
}

func (r *gormPhoneNumberRepository) CountAssignedToUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.PhoneNumber{}).
		Where("is_assigned = ? AND assigned_user = ?", true, userID).
		Count(&count).Error
	return count, err
}

// ClaimAvailable 先选取候选ID，再带守卫条件批量更新。
// 选取和更新之间若有并发认领，守卫条件会让竞争失败的记录落空，RowsAffected 即实际认领数。
func (r *gormPhoneNumberRepository) ClaimAvailable(ctx context.Context, userID string, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.PhoneNumber{}).
		Where("is_assigned = ?", false).
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Model(&models.PhoneNumber{}).
		Where("id IN ? AND is_assigned = ?", ids, false).
		Updates(map[string]interface{}{
			"is_assigned":   true,
			"assigned_user": userID,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// FindAssignedToUser 查询分配给指定用户的号码
func (r *gormPhoneNumberRepository) FindAssignedToUser(ctx context.Context, userID string, limit int) ([]models.PhoneNumber, error) {
	var numbers []models.PhoneNumber
	tx := r.db.WithContext(ctx).
		Where("is_assigned = ? AND assigned_user = ?", true, userID)
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}

// DeleteOwnedByIDs 删除集合中仍归属 userID 的记录
func (r *gormPhoneNumberRepository) DeleteOwnedByIDs(ctx context.Context, ids []int64, userID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("id IN ? AND is_assigned = ? AND assigned_user = ?", ids, true, userID).
		Delete(&models.PhoneNumber{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseAssigned 将所有已分配号码翻转为未分配
func (r *gormPhoneNumberRepository) ReleaseAssigned(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PhoneNumber{}).
		Where("is_assigned = ?", true).
		Updates(map[string]interface{}{
			"is_assigned":   false,
			"assigned_user": nil,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ReleaseAssignedToUsers 释放分配给指定用户集合的号码
func (r *gormPhoneNumberRepository) ReleaseAssignedToUsers(ctx context.Context, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.PhoneNumber{}).
		Where("assigned_user IN ?", userIDs).
		Updates(map[string]interface{}{
			"is_assigned":   false,
			"assigned_user": nil,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DropAndRecreate 删表重建。表不存在时忽略删除错误，随后的迁移会重建表和唯一索引。
func (r *gormPhoneNumberRepository) DropAndRecreate(ctx context.Context) error {
	migrator := r.db.WithContext(ctx).Migrator()
	if migrator.HasTable(&models.PhoneNumber{}) {
		if err := migrator.DropTable(&models.PhoneNumber{}); err != nil {
			return err
		}
	}
	return migrator.AutoMigrate(&models.PhoneNumber{})
}

// ListUnassignedNumbers 返回所有未分配号码的字符串
func (r *gormPhoneNumberRepository) ListUnassignedNumbers(ctx context.Context) ([]string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).Model(&models.PhoneNumber{}).
		Where("is_assigned = ?", false).
		Order("id asc").
		Pluck("number", &numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}
