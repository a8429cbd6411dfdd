package models

import (
	"time"
)

// PhoneNumber 对应于数据库中的 phone_numbers 表。
// 号码一经创建不可修改，只会在 未分配 -> 已分配 -> 被消耗(删除) 之间流转。
// 不变式：IsAssigned 为 false 时 AssignedUser 必须为 NULL。
type PhoneNumber struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Number       string    `json:"number" gorm:"column:number;unique;not null;size:50"` // 号码字符串，业务主键
	IsAssigned   bool      `json:"isAssigned" gorm:"column:is_assigned;not null;default:false;index"`
	AssignedUser *string   `json:"assignedUser,omitempty" gorm:"column:assigned_user;size:6;index"` // 当前归属用户的业务ID
	CreatedAt    time.Time `json:"createdAt" gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"column:updated_at;not null;autoUpdateTime"`
}

// TableName 指定 PhoneNumber 结构体对应的数据库表名
func (PhoneNumber) TableName() string {
	return "phone_numbers"
}
