package services

import (
	"context"
	"log"

	"github.com/phone_pool/internal/models"
	"github.com/phone_pool/internal/repositories"
	"github.com/phone_pool/pkg/utils"
)

// uploadBatchSize 是入库时单批处理的号码数量上限，用于约束单次查询和插入的规模
const uploadBatchSize = 10000

// UploadResult 汇总一次号码入库的结果
type UploadResult struct {
	NumbersAdded      int64 `json:"numbersAdded"`
	DuplicatesSkipped int64 `json:"duplicatesSkipped"`
}

// PoolStats 是号码池的统计视图。
// Available 按 Total - Assigned 计算，Used 是所有用户已用计数之和。
type PoolStats struct {
	TotalPhoneNumbers     int64 `json:"totalPhoneNumbers"`
	AssignedPhoneNumbers  int64 `json:"assignedPhoneNumbers"`
	AvailablePhoneNumbers int64 `json:"availablePhoneNumbers"`
	UsedPhoneNumbers      int64 `json:"usedPhoneNumbers"`
	UserCount             int64 `json:"userCount"`
}

// PoolService 定义了号码池本身（入库、查询、统计、导出）的服务接口
type PoolService interface {
	// UploadNumbers 去重入库一批候选号码：调用内先做集合语义去重，
	// 再按固定批次与存量比对并插入，单条冲突不中断整批
	UploadNumbers(ctx context.Context, candidates []string) (*UploadResult, error)
	// GetNumbers 分页获取号码列表
	GetNumbers(ctx context.Context, page, limit int) ([]models.PhoneNumber, int64, error)
	// GetPoolStats 获取号码池统计
	GetPoolStats(ctx context.Context) (*PoolStats, error)
	// ExportUnusedNumbers 导出所有未分配的号码字符串，池空时返回 ErrNoUnusedNumbers
	ExportUnusedNumbers(ctx context.Context) ([]string, error)
}

// poolService 是 PoolService 的实现
type poolService struct {
	numberRepo repositories.PhoneNumberRepository
	userRepo   repositories.UserRepository
}

// NewPoolService 创建一个新的 poolService 实例
func NewPoolService(numberRepo repositories.PhoneNumberRepository, userRepo repositories.UserRepository) PoolService {
	return &poolService{numberRepo: numberRepo, userRepo: userRepo}
}

// UploadNumbers 去重入库一批候选号码
func (s *poolService) UploadNumbers(ctx context.Context, candidates []string) (*UploadResult, error) {
	// 1. 规整：去首尾空白、丢弃空条目，再做调用内去重（首次出现者保留）
	cleaned := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		normalized := utils.NormalizeNumber(candidate)
		if normalized == "" {
			continue
		}
		cleaned = append(cleaned, normalized)
	}
	unique := utils.DedupeStrings(cleaned)
	inCallDuplicates := int64(len(cleaned) - len(unique))

	result := &UploadResult{DuplicatesSkipped: inCallDuplicates}
	if len(unique) == 0 {
		// 没有有效候选不是错误，按零结果返回
		return result, nil
	}

	// 2. 按固定批次比对存量并插入
	for start := 0; start < len(unique); start += uploadBatchSize {
		end := start + uploadBatchSize
		if end > len(unique) {
			end = len(unique)
		}
		batch := unique[start:end]

		existing, err := s.numberRepo.FindExistingNumbers(ctx, batch)
		if err != nil {
			return nil, err
		}
		existingSet := make(map[string]struct{}, len(existing))
		for _, number := range existing {
			existingSet[number] = struct{}{}
		}

		toInsert := make([]string, 0, len(batch))
		for _, number := range batch {
			if _, ok := existingSet[number]; ok {
				result.DuplicatesSkipped++
				continue
			}
			toInsert = append(toInsert, number)
		}

		// 存量检查和插入之间的并发写入会撞唯一约束，
		// 插入按冲突跳过处理，未插入的条目计为重复而不是让整批失败
		inserted, err := s.numberRepo.InsertNumbers(ctx, toInsert)
		if err != nil {
			return nil, err
		}
		if raced := int64(len(toInsert)) - inserted; raced > 0 {
			log.Printf("号码入库批次存在并发冲突，%d 条按重复跳过", raced)
			result.DuplicatesSkipped += raced
		}
		result.NumbersAdded += inserted
	}

	return result, nil
}

// GetNumbers 分页获取号码列表
func (s *poolService) GetNumbers(ctx context.Context, page, limit int) ([]models.PhoneNumber, int64, error) {
	return s.numberRepo.GetNumbers(ctx, page, limit)
}

// GetPoolStats 获取号码池统计
func (s *poolService) GetPoolStats(ctx context.Context) (*PoolStats, error) {
	total, err := s.numberRepo.CountTotal(ctx)
	if err != nil {
		return nil, err
	}
	assigned, err := s.numberRepo.CountAssigned(ctx)
	if err != nil {
		return nil, err
	}
	used, err := s.userRepo.SumUsedCount(ctx)
	if err != nil {
		return nil, err
	}
	userCount, err := s.userRepo.CountNonAdminUsers(ctx)
	if err != nil {
		return nil, err
	}

	return &PoolStats{
		TotalPhoneNumbers:     total,
		AssignedPhoneNumbers:  assigned,
		AvailablePhoneNumbers: total - assigned,
		UsedPhoneNumbers:      used,
		UserCount:             userCount,
	}, nil
}

// ExportUnusedNumbers 导出所有未分配的号码字符串
func (s *poolService) ExportUnusedNumbers(ctx context.Context) ([]string, error) {
	numbers, err := s.numberRepo.ListUnassignedNumbers(ctx)
	if err != nil {
		return nil, err
	}
	if len(numbers) == 0 {
		return nil, ErrNoUnusedNumbers
	}
	return numbers, nil
}
