package services

import (
	"errors"
	"fmt"
)

// ErrUserNotFound 表示用户未找到（包括目标用户是管理员、不参与号码池操作的情况）
var ErrUserNotFound = errors.New("用户未找到")

// ErrInvalidCount 表示数量参数无效（必须为正整数）
var ErrInvalidCount = errors.New("数量必须为正整数")

// ErrNoUnusedNumbers 表示号码池中没有未分配的号码可以导出
var ErrNoUnusedNumbers = errors.New("没有可导出的未分配号码")

// ErrAdminUserExists 表示管理员用户已存在，无需重复初始化
var ErrAdminUserExists = errors.New("管理员用户已存在")

// ErrAdminUserNotDeletable 表示管理员用户不允许被删除
var ErrAdminUserNotDeletable = errors.New("管理员用户不允许删除")

// ErrNoValidUserRows 表示导入文件中没有任何有效的用户数据
var ErrNoValidUserRows = errors.New("文件中没有有效的用户数据")

// InsufficientInventoryError 表示号码池中未分配号码不足。
// Available 随错误一起返回，调用方可以据此修正请求数量后重试。
type InsufficientInventoryError struct {
	Requested int64
	Available int64
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("号码池中可用号码不足，仅剩 %d 个未分配号码", e.Available)
}

// QuotaExceededError 表示请求数量超过了用户的剩余配额（已分配 - 已用）
type QuotaExceededError struct {
	Requested int64
	Remaining int64
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("超出配额，该用户剩余可生成号码数为 %d", e.Remaining)
}

// InsufficientAllocationError 表示实际链接到用户的号码记录少于请求数量。
// 配额检查通过但记录不足时出现，通常是重置操作清除了链接而没有清除计数，
// 调用方需要与 QuotaExceededError 区分处理。
type InsufficientAllocationError struct {
	Requested int64
	Allocated int64
}

func (e *InsufficientAllocationError) Error() string {
	if e.Allocated == 0 {
		return "当前没有分配给该用户的号码，请联系管理员重新分配"
	}
	return fmt.Sprintf("仅有 %d 个号码分配给该用户，请联系管理员补充分配", e.Allocated)
}
