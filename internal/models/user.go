package models

import (
	"time"
)

// User 对应于数据库中的 users 表。
// AssignedCount 是历史累计值：消耗号码只增加 UsedCount，不回退 AssignedCount，
// 剩余配额始终按 AssignedCount - UsedCount 计算。
type User struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID        string    `json:"userId" gorm:"column:user_id;unique;not null;size:6"` // 6位数字业务ID
	Name          string    `json:"name" gorm:"column:name;not null;size:255"`
	IsAdmin       bool      `json:"isAdmin" gorm:"column:is_admin;not null;default:false"`
	AssignedCount int64     `json:"phoneNumbersAssigned" gorm:"column:assigned_count;not null;default:0"`
	UsedCount     int64     `json:"phoneNumbersUsed" gorm:"column:used_count;not null;default:0"`
	CreatedAt     time.Time `json:"createdAt" gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt     time.Time `json:"updatedAt" gorm:"column:updated_at;not null;autoUpdateTime"`
}

// TableName 指定 User 结构体对应的数据库表名
func (User) TableName() string {
	return "users"
}

// RemainingQuota 返回该用户还可以生成的号码数量
func (u *User) RemainingQuota() int64 {
	return u.AssignedCount - u.UsedCount
}
