package services

import (
	"context"
	"fmt"

	"github.com/phone_pool/internal/repositories"
)

// ResetResult 汇总一次批量重置的结果。
// NumbersAffected 是被删除或翻转为未分配的号码条数，UsersReset 是计数被清零的用户数。
type ResetResult struct {
	NumbersAffected int64  `json:"numbersAffected"`
	UsersReset      int64  `json:"usersReset"`
	Message         string `json:"message"`
	NoOp            bool   `json:"noOp"`
}

// ResetService 定义了号码池批量重置的服务接口。
// 四个入口是同一个二轴操作（是否销毁号码 × 清哪些计数）的四个固定组合，
// 全部幂等：连续调用两次，第二次是零修改的空操作。
type ResetService interface {
	// ClearTotalInventory 删表重建清空整个号码池，并清零所有用户的两项计数
	ClearTotalInventory(ctx context.Context) (*ResetResult, error)
	// ClearAssignedLinks 把所有已分配号码翻回未分配（不删除号码），并清零所有用户的两项计数
	ClearAssignedLinks(ctx context.Context) (*ResetResult, error)
	// ClearUsedCounters 只清零所有用户的已用计数，不动号码池和已分配计数。
	// 注意这不会恢复已被消耗删除的号码，只是允许按既有配额重新生成。
	ClearUsedCounters(ctx context.Context) (*ResetResult, error)
	// ClearAllAssignments 与 ClearAssignedLinks 同效，但按两个独立的批量更新执行，
	// 并根据哪个子操作实际产生了修改返回区分化的消息
	ClearAllAssignments(ctx context.Context) (*ResetResult, error)
}

// resetService 是 ResetService 的实现
type resetService struct {
	numberRepo repositories.PhoneNumberRepository
	userRepo   repositories.UserRepository
}

// NewResetService 创建一个新的 resetService 实例
func NewResetService(numberRepo repositories.PhoneNumberRepository, userRepo repositories.UserRepository) ResetService {
	return &resetService{numberRepo: numberRepo, userRepo: userRepo}
}

// resetPool 是四个重置入口共用的二轴实现。
// destroyInventory 为 true 时删表重建整池，否则只把已分配号码翻回未分配；
// resetAssigned / resetUsed 控制清零哪些用户计数。
func (s *resetService) resetPool(ctx context.Context, destroyInventory, resetAssigned, resetUsed bool) (numbersAffected, usersReset int64, err error) {
	if destroyInventory {
		total, err := s.numberRepo.CountTotal(ctx)
		if err != nil {
			return 0, 0, err
		}
		if total > 0 {
			if err := s.numberRepo.DropAndRecreate(ctx); err != nil {
				return 0, 0, err
			}
		}
		numbersAffected = total
	} else if resetAssigned {
		released, err := s.numberRepo.ReleaseAssigned(ctx)
		if err != nil {
			return 0, 0, err
		}
		numbersAffected = released
	}

	usersReset, err = s.userRepo.ResetCounters(ctx, resetAssigned, resetUsed)
	if err != nil {
		return numbersAffected, 0, err
	}
	return numbersAffected, usersReset, nil
}

// ClearTotalInventory 清空整个号码池并清零所有用户计数
func (s *resetService) ClearTotalInventory(ctx context.Context) (*ResetResult, error) {
	numbers, users, err := s.resetPool(ctx, true, true, true)
	if err != nil {
		return nil, err
	}

	result := &ResetResult{NumbersAffected: numbers, UsersReset: users}
	if numbers == 0 && users == 0 {
		result.NoOp = true
		result.Message = "号码池已为空，用户计数也无需清零。"
	} else {
		result.Message = fmt.Sprintf("已清空号码池（删除 %d 个号码），并清零 %d 个用户的分配与使用计数。", numbers, users)
	}
	return result, nil
}

// ClearAssignedLinks 翻转所有已分配号码并清零所有用户计数
func (s *resetService) ClearAssignedLinks(ctx context.Context) (*ResetResult, error) {
	numbers, users, err := s.resetPool(ctx, false, true, true)
	if err != nil {
		return nil, err
	}

	result := &ResetResult{NumbersAffected: numbers, UsersReset: users}
	if numbers == 0 && users == 0 {
		result.NoOp = true
		result.Message = "没有已分配的号码，用户计数也无需清零。"
	} else {
		result.Message = fmt.Sprintf("已将 %d 个号码重置为未分配状态。", numbers)
	}
	return result, nil
}

// ClearUsedCounters 只清零已用计数
func (s *resetService) ClearUsedCounters(ctx context.Context) (*ResetResult, error) {
	users, err := s.userRepo.ResetCounters(ctx, false, true)
	if err != nil {
		return nil, err
	}

	result := &ResetResult{UsersReset: users}
	if users == 0 {
		result.NoOp = true
		result.Message = "没有已用计数大于零的用户。"
	} else {
		result.Message = fmt.Sprintf("已清零 %d 个用户的已用号码计数。", users)
	}
	return result, nil
}

// ClearAllAssignments 按两个独立子操作执行并返回区分化的消息
func (s *resetService) ClearAllAssignments(ctx context.Context) (*ResetResult, error) {
	numbers, users, err := s.resetPool(ctx, false, true, true)
	if err != nil {
		return nil, err
	}

	result := &ResetResult{NumbersAffected: numbers, UsersReset: users}
	switch {
	case numbers == 0 && users == 0:
		result.NoOp = true
		result.Message = "没有处于已分配状态的号码，也没有需要清零的用户计数。"
	case numbers == 0:
		result.Message = fmt.Sprintf("没有已分配的号码需要释放。已清零 %d 个用户的计数。", users)
	case users == 0:
		result.Message = fmt.Sprintf("已将 %d 个号码释放为可用状态。没有需要清零的用户计数。", numbers)
	default:
		result.Message = fmt.Sprintf("已将 %d 个号码释放为可用状态，并清零 %d 个用户的计数。", numbers, users)
	}
	return result, nil
}
