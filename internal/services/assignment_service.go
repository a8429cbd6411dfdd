package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/phone_pool/internal/models"
	"github.com/phone_pool/internal/repositories"
	"github.com/phone_pool/pkg/utils"
)

// assignUserBatchSize 是批量分配时单批处理的用户数量，仅用于约束资源占用，
// 不影响结果（逐个处理与分批处理结果一致）
const assignUserBatchSize = 50

// BulkAssignResult 汇总一次全员批量分配的结果
type BulkAssignResult struct {
	TotalUsersProcessed  int64 `json:"totalUsersProcessed"`
	TotalNumbersAssigned int64 `json:"totalNumbersAssigned"`
	UsersFailed          int64 `json:"usersFailed"`
}

// GenerateResult 是一次号码生成（消耗）的结果，Numbers 已去除 "+" 前缀
type GenerateResult struct {
	Count   int64    `json:"count"`
	Numbers []string `json:"phoneNumbers"`
}

// ReconcileResult 汇总一次对账修复的结果。
// Issues 记录因池内号码耗尽而未能补足的用户，属于部分成功而非失败。
type ReconcileResult struct {
	TotalReconciled int64    `json:"totalReconciled"`
	Issues          []string `json:"issues,omitempty"`
}

// AssignmentService 定义了号码分配、消耗与对账的服务接口
type AssignmentService interface {
	// AssignToUser 给指定的非管理员用户分配 count 个未分配号码，
	// 池内可用数不足时返回 InsufficientInventoryError 且不产生任何修改
	AssignToUser(ctx context.Context, userID string, count int64) (int64, *models.User, error)
	// AssignToAllUsers 给所有非管理员用户各分配至多 countPerUser 个号码。
	// 池内号码不足时按可用量分配，一个也分不到的用户计入 UsersFailed，
	// 个别用户分配失败不会让整个调用失败。
	AssignToAllUsers(ctx context.Context, countPerUser int64) (*BulkAssignResult, error)
	// Generate 为指定用户生成（消耗）count 个号码：校验剩余配额与实际链接记录数，
	// 通过后增加已用计数并从号码池中永久删除这些记录
	Generate(ctx context.Context, userID string, count int64) (*GenerateResult, error)
	// ReconcileAssignments 对账修复：为 assigned_count 大于实际链接记录数的用户
	// 从未分配池中补足链接，补不满的记入 Issues
	ReconcileAssignments(ctx context.Context) (*ReconcileResult, error)
}

// assignmentService 是 AssignmentService 的实现
type assignmentService struct {
	numberRepo repositories.PhoneNumberRepository
	userRepo   repositories.UserRepository
}

// NewAssignmentService 创建一个新的 assignmentService 实例
func NewAssignmentService(numberRepo repositories.PhoneNumberRepository, userRepo repositories.UserRepository) AssignmentService {
	return &assignmentService{numberRepo: numberRepo, userRepo: userRepo}
}

// AssignToUser 给指定用户分配号码
func (s *assignmentService) AssignToUser(ctx context.Context, userID string, count int64) (int64, *models.User, error) {
	if count <= 0 {
		return 0, nil, ErrInvalidCount
	}

	user, err := s.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return 0, nil, ErrUserNotFound
		}
		return 0, nil, err
	}
	// 管理员不参与号码池操作，对调用方表现为目标用户不存在
	if user.IsAdmin {
		return 0, nil, ErrUserNotFound
	}

	available, err := s.numberRepo.CountAvailable(ctx)
	if err != nil {
		return 0, nil, err
	}
	if available < count {
		return 0, nil, &InsufficientInventoryError{Requested: count, Available: available}
	}

	// 认领带 is_assigned = false 守卫，并发竞争下实际认领数可能少于请求数，
	// 已分配计数只按实际认领数递增
	claimed, err := s.numberRepo.ClaimAvailable(ctx, userID, int(count))
	if err != nil {
		return 0, nil, err
	}
	if claimed > 0 {
		if err := s.userRepo.IncrementAssignedCount(ctx, userID, claimed); err != nil {
			return claimed, nil, err
		}
	}

	updated, err := s.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		return claimed, nil, err
	}
	return claimed, updated, nil
}

// AssignToAllUsers 给所有非管理员用户批量分配号码
func (s *assignmentService) AssignToAllUsers(ctx context.Context, countPerUser int64) (*BulkAssignResult, error) {
	if countPerUser <= 0 {
		return nil, ErrInvalidCount
	}

	regularUsers, err := s.userRepo.ListNonAdminUsers(ctx)
	if err != nil {
		return nil, err
	}

	result := &BulkAssignResult{}
	if len(regularUsers) == 0 {
		return result, nil
	}

	for start := 0; start < len(regularUsers); start += assignUserBatchSize {
		end := start + assignUserBatchSize
		if end > len(regularUsers) {
			end = len(regularUsers)
		}

		for _, user := range regularUsers[start:end] {
			claimed, err := s.numberRepo.ClaimAvailable(ctx, user.UserID, int(countPerUser))
			if err != nil {
				result.UsersFailed++
				log.Printf("批量分配：用户 %s 分配失败: %v", user.UserID, err)
				continue
			}
			if claimed == 0 {
				// 池内已无可分配号码，该用户计入失败而不是中断整个批量操作
				result.UsersFailed++
				continue
			}
			if claimed < countPerUser {
				log.Printf("批量分配：用户 %s 仅分配到 %d/%d 个号码", user.UserID, claimed, countPerUser)
			}
			if err := s.userRepo.IncrementAssignedCount(ctx, user.UserID, claimed); err != nil {
				result.UsersFailed++
				log.Printf("批量分配：用户 %s 计数更新失败: %v", user.UserID, err)
				continue
			}
			result.TotalUsersProcessed++
			result.TotalNumbersAssigned += claimed
		}
	}

	return result, nil
}

// Generate 为指定用户生成（消耗）号码
func (s *assignmentService) Generate(ctx context.Context, userID string, count int64) (*GenerateResult, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}

	user, err := s.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// 配额检查：剩余配额 = 已分配 - 已用
	if remaining := user.RemainingQuota(); count > remaining {
		return nil, &QuotaExceededError{Requested: count, Remaining: remaining}
	}

	// 实际链接记录检查：重置操作可能清除了链接而没有清除计数，
	// 这种情况要给出与配额不足不同的失败信息
	assignedNumbers, err := s.numberRepo.FindAssignedToUser(ctx, userID, int(count))
	if err != nil {
		return nil, err
	}
	if int64(len(assignedNumbers)) < count {
		return nil, &InsufficientAllocationError{Requested: count, Allocated: int64(len(assignedNumbers))}
	}

	ids := make([]int64, 0, len(assignedNumbers))
	numbers := make([]string, 0, len(assignedNumbers))
	for _, record := range assignedNumbers {
		ids = append(ids, record.ID)
		numbers = append(numbers, record.Number)
	}

	// 先记账再删除：删除集合就是刚刚校验过归属的集合，
	// 删除语句带归属守卫，不会消耗已被重置回收的记录
	if err := s.userRepo.IncrementUsedCount(ctx, userID, count); err != nil {
		if errors.Is(err, repositories.ErrQuotaGuardFailed) {
			updated, getErr := s.userRepo.GetByUserID(ctx, userID)
			if getErr != nil {
				return nil, getErr
			}
			return nil, &QuotaExceededError{Requested: count, Remaining: updated.RemainingQuota()}
		}
		return nil, err
	}
	deleted, err := s.numberRepo.DeleteOwnedByIDs(ctx, ids, userID)
	if err != nil {
		return nil, err
	}
	if deleted < count {
		// 校验和删除之间链接被整池重置回收，属于可接受的部分状态，对账操作负责修复
		log.Printf("号码生成：用户 %s 预期删除 %d 条，实际删除 %d 条", userID, count, deleted)
	}

	formatted := make([]string, 0, len(numbers))
	for _, number := range numbers {
		formatted = append(formatted, utils.StripPlusPrefix(number))
	}

	return &GenerateResult{Count: int64(len(formatted)), Numbers: formatted}, nil
}

// ReconcileAssignments 对账修复计数与链接状态的漂移
func (s *assignmentService) ReconcileAssignments(ctx context.Context) (*ReconcileResult, error) {
	users, err := s.userRepo.ListUsersWithAssigned(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	for _, user := range users {
		linked, err := s.numberRepo.CountAssignedToUser(ctx, user.UserID)
		if err != nil {
			return nil, err
		}

		shortfall := user.AssignedCount - linked
		if shortfall <= 0 {
			continue
		}

		claimed, err := s.numberRepo.ClaimAvailable(ctx, user.UserID, int(shortfall))
		if err != nil {
			return nil, err
		}
		result.TotalReconciled += claimed
		if claimed < shortfall {
			// 池内未分配号码耗尽，记为问题但不让整个对账失败
			issue := fmt.Sprintf("用户 %s: 需要补足 %d 个号码，但池中仅有 %d 个可用", user.UserID, shortfall, claimed)
			result.Issues = append(result.Issues, issue)
			log.Printf("对账：%s", issue)
		}
	}

	return result, nil
}
