package services

import (
	"context"
	"errors"
	"log"

	"github.com/phone_pool/internal/models"
	"github.com/phone_pool/internal/repositories"
	"github.com/phone_pool/pkg/utils"
)

// AdminUserID 是初始化管理员账号使用的固定业务ID
const AdminUserID = "000000"

// UserImportRow 是批量导入的一行用户数据，由上游从文件解码得到
type UserImportRow struct {
	UserID string
	Name   string
}

// BulkImportResult 汇总一次批量导入的结果。
// SkippedInvalid 含格式不合法与文件内重复的行，SkippedExisting 是台账中已存在的行。
type BulkImportResult struct {
	UsersAdded      int64 `json:"usersAdded"`
	TotalInFile     int64 `json:"totalInFile"`
	SkippedExisting int64 `json:"skippedExisting"`
	SkippedInvalid  int64 `json:"skippedInvalid"`
}

// UserProfile 是用户视角的账户概要
type UserProfile struct {
	UserID                string `json:"userId"`
	Name                  string `json:"name"`
	PhoneNumbersAssigned  int64  `json:"phoneNumbersAssigned"`
	PhoneNumbersUsed      int64  `json:"phoneNumbersUsed"`
	PhoneNumbersRemaining int64  `json:"phoneNumbersRemaining"`
}

// DeleteUsersResult 汇总一次批量删除的结果
type DeleteUsersResult struct {
	DeletedCount   int64    `json:"deletedCount"`
	DeletedUserIDs []string `json:"deletedUserIds"`
}

// ErrNoUsersFound 表示按给定的ID集合没有找到任何用户
var ErrNoUsersFound = errors.New("没有找到任何指定的用户")

// AdminNotDeletableError 表示删除集合中包含管理员用户
type AdminNotDeletableError struct {
	AdminUserIDs []string
}

func (e *AdminNotDeletableError) Error() string {
	return "管理员用户不允许删除"
}

// UserService 定义了用户台账的服务接口
type UserService interface {
	// CreateUser 创建单个用户，业务ID必须是6位数字且未被占用
	CreateUser(ctx context.Context, userID, name string, isAdmin bool) (*models.User, error)
	// BulkImportUsers 批量导入用户：重新校验6位数字格式，静默跳过格式不合法、
	// 文件内重复以及台账中已存在的行，分别计数
	BulkImportUsers(ctx context.Context, rows []UserImportRow) (*BulkImportResult, error)
	// GetUsers 列出所有非管理员用户
	GetUsers(ctx context.Context) ([]models.User, error)
	// GetProfile 获取用户账户概要（含按计数推算的剩余配额）
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	// EnsureAdminUser 初始化管理员账号；已有管理员时返回 ErrAdminUserExists
	EnsureAdminUser(ctx context.Context) (*models.User, error)
	// DeleteUser 删除单个非管理员用户，并把其名下号码释放回池中
	DeleteUser(ctx context.Context, userID string) error
	// DeleteUsers 批量删除非管理员用户；集合中含管理员时整体拒绝
	DeleteUsers(ctx context.Context, userIDs []string) (*DeleteUsersResult, error)
}

// userService 是 UserService 的实现
type userService struct {
	userRepo   repositories.UserRepository
	numberRepo repositories.PhoneNumberRepository
}

// NewUserService 创建一个新的 userService 实例
func NewUserService(userRepo repositories.UserRepository, numberRepo repositories.PhoneNumberRepository) UserService {
	return &userService{userRepo: userRepo, numberRepo: numberRepo}
}

// CreateUser 创建单个用户
func (s *userService) CreateUser(ctx context.Context, userID, name string, isAdmin bool) (*models.User, error) {
	if err := utils.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, errors.New("用户姓名不能为空")
	}

	user := &models.User{
		UserID:  userID,
		Name:    name,
		IsAdmin: isAdmin,
	}
	return s.userRepo.CreateUser(ctx, user)
}

// BulkImportUsers 批量导入用户
func (s *userService) BulkImportUsers(ctx context.Context, rows []UserImportRow) (*BulkImportResult, error) {
	result := &BulkImportResult{TotalInFile: int64(len(rows))}

	// 1. 行内校验：格式不合法与文件内重复的行静默跳过
	seen := make(map[string]struct{}, len(rows))
	candidates := make([]models.User, 0, len(rows))
	for _, row := range rows {
		if row.Name == "" || utils.ValidateUserID(row.UserID) != nil {
			result.SkippedInvalid++
			continue
		}
		if _, dup := seen[row.UserID]; dup {
			result.SkippedInvalid++
			continue
		}
		seen[row.UserID] = struct{}{}
		candidates = append(candidates, models.User{
			UserID: row.UserID,
			Name:   row.Name,
		})
	}

	if len(candidates) == 0 {
		return nil, ErrNoValidUserRows
	}

	// 2. 比对台账存量
	candidateIDs := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		candidateIDs = append(candidateIDs, candidate.UserID)
	}
	existingIDs, err := s.userRepo.FindExistingUserIDs(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}
	existingSet := make(map[string]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		existingSet[id] = struct{}{}
	}

	toInsert := make([]models.User, 0, len(candidates))
	for _, candidate := range candidates {
		if _, ok := existingSet[candidate.UserID]; ok {
			result.SkippedExisting++
			continue
		}
		toInsert = append(toInsert, candidate)
	}

	// 3. 批量插入，与并发创建撞上唯一约束的行计为已存在
	inserted, err := s.userRepo.BulkInsertUsers(ctx, toInsert)
	if err != nil {
		return nil, err
	}
	if raced := int64(len(toInsert)) - inserted; raced > 0 {
		log.Printf("用户批量导入存在并发冲突，%d 条按已存在跳过", raced)
		result.SkippedExisting += raced
	}
	result.UsersAdded = inserted

	return result, nil
}

// GetUsers 列出所有非管理员用户
func (s *userService) GetUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.ListNonAdminUsers(ctx)
}

// GetProfile 获取用户账户概要
func (s *userService) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	user, err := s.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &UserProfile{
		UserID:                user.UserID,
		Name:                  user.Name,
		PhoneNumbersAssigned:  user.AssignedCount,
		PhoneNumbersUsed:      user.UsedCount,
		PhoneNumbersRemaining: user.RemainingQuota(),
	}, nil
}

// EnsureAdminUser 初始化管理员账号
func (s *userService) EnsureAdminUser(ctx context.Context) (*models.User, error) {
	hasAdmin, err := s.userRepo.HasAdminUser(ctx)
	if err != nil {
		return nil, err
	}
	if hasAdmin {
		return nil, ErrAdminUserExists
	}

	admin := &models.User{
		UserID:  AdminUserID,
		Name:    "Admin",
		IsAdmin: true,
	}
	return s.userRepo.CreateUser(ctx, admin)
}

// DeleteUser 删除单个用户并释放其名下号码
func (s *userService) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.IsAdmin {
		return ErrAdminUserNotDeletable
	}

	// 先释放名下号码再删除用户，部分完成状态可由对账操作修复
	if _, err := s.numberRepo.ReleaseAssignedToUsers(ctx, []string{userID}); err != nil {
		return err
	}
	return s.userRepo.DeleteByUserID(ctx, userID)
}

// DeleteUsers 批量删除用户
func (s *userService) DeleteUsers(ctx context.Context, userIDs []string) (*DeleteUsersResult, error) {
	users, err := s.userRepo.FindByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNoUsersFound
	}

	var adminIDs []string
	for _, user := range users {
		if user.IsAdmin {
			adminIDs = append(adminIDs, user.UserID)
		}
	}
	if len(adminIDs) > 0 {
		return nil, &AdminNotDeletableError{AdminUserIDs: adminIDs}
	}

	foundIDs := make([]string, 0, len(users))
	for _, user := range users {
		foundIDs = append(foundIDs, user.UserID)
	}

	if _, err := s.numberRepo.ReleaseAssignedToUsers(ctx, foundIDs); err != nil {
		return nil, err
	}
	deleted, err := s.userRepo.DeleteByUserIDs(ctx, foundIDs)
	if err != nil {
		return nil, err
	}

	return &DeleteUsersResult{DeletedCount: deleted, DeletedUserIDs: foundIDs}, nil
}
