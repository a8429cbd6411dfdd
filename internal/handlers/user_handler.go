package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/phone_pool/internal/repositories"
	"github.com/phone_pool/internal/services"
	"github.com/phone_pool/pkg/utils"
)

// maxImportFileSize 是批量导入文件的大小上限
const maxImportFileSize = 5 << 20 // 5MB

// UserHandler 封装了用户相关的 HTTP 处理逻辑
type UserHandler struct {
	userService       services.UserService
	assignmentService services.AssignmentService
}

// NewUserHandler 创建一个新的 UserHandler 实例
func NewUserHandler(userService services.UserService, assignmentService services.AssignmentService) *UserHandler {
	return &UserHandler{userService: userService, assignmentService: assignmentService}
}

// CreateUserPayload 是创建用户请求体
type CreateUserPayload struct {
	UserID string `json:"userId" binding:"required"`
	Name   string `json:"name" binding:"required"`
}

// CreateUser godoc
// @Summary 创建单个用户
// @Description 创建一个非管理员用户，用户ID必须是6位数字且未被占用
// @Tags Users
// @Accept json
// @Produce json
// @Param user body CreateUserPayload true "用户信息"
// @Success 201 {object} utils.SuccessResponse{data=models.User} "创建成功的用户"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误或ID格式不合法"
// @Failure 409 {object} utils.APIErrorResponse "用户ID已存在"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/users [post]
// @Security BearerAuth
func (h *UserHandler) CreateUser(c *gin.Context) {
	var payload CreateUserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), payload.UserID, payload.Name, false)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidUserIDFormat):
			utils.RespondAPIError(c, http.StatusBadRequest, err.Error(), nil)
		case errors.Is(err, repositories.ErrUserIDExists):
			utils.RespondConflictError(c, repositories.ErrUserIDExists.Error())
		default:
			utils.RespondInternalServerError(c, "创建用户失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusCreated, user, "用户创建成功")
}

// GetUsers godoc
// @Summary 获取用户列表
// @Description 列出所有非管理员用户及其计数
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse "用户列表"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/users [get]
// @Security BearerAuth
func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.userService.GetUsers(c.Request.Context())
	if err != nil {
		utils.RespondInternalServerError(c, "获取用户列表失败", err.Error())
		return
	}
	utils.RespondSuccess(c, http.StatusOK, users, "")
}

// BulkImportUsers godoc
// @Summary 批量导入用户
// @Description 上传 CSV 文件（每行: userId,name）批量创建用户。格式不合法与文件内重复的行静默跳过，台账中已存在的行单独计数。
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV 文件"
// @Success 201 {object} utils.SuccessResponse{data=services.BulkImportResult} "导入结果统计"
// @Failure 400 {object} utils.APIErrorResponse "文件缺失、格式不支持或没有有效数据"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/users/bulk-import [post]
// @Security BearerAuth
func (h *UserHandler) BulkImportUsers(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondAPIError(c, http.StatusBadRequest, "请上传文件", err.Error())
		return
	}
	if fileHeader.Size > maxImportFileSize {
		utils.RespondAPIError(c, http.StatusBadRequest, "文件大小超过限制", nil)
		return
	}
	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); ext != ".csv" {
		utils.RespondAPIError(c, http.StatusBadRequest, "不支持的文件格式，请上传 CSV 文件", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.RespondInternalServerError(c, "读取上传文件失败", err.Error())
		return
	}
	defer file.Close()

	rows, err := parseUserImportCSV(file)
	if err != nil {
		utils.RespondAPIError(c, http.StatusBadRequest, "解析 CSV 文件失败", err.Error())
		return
	}

	result, err := h.userService.BulkImportUsers(c.Request.Context(), rows)
	if err != nil {
		if errors.Is(err, services.ErrNoValidUserRows) {
			utils.RespondAPIError(c, http.StatusBadRequest, services.ErrNoValidUserRows.Error(), nil)
		} else {
			utils.RespondInternalServerError(c, "批量导入用户失败", err.Error())
		}
		return
	}

	message := fmt.Sprintf("成功添加 %d 个用户（文件共 %d 行，已存在 %d 行，无效 %d 行）。",
		result.UsersAdded, result.TotalInFile, result.SkippedExisting, result.SkippedInvalid)
	utils.RespondSuccess(c, http.StatusCreated, result, message)
}

// parseUserImportCSV 将 CSV 内容解码为导入行。首行若是表头（userId/ID 开头）则跳过。
func parseUserImportCSV(r io.Reader) ([]services.UserImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // 行内字段数不做强制，残缺行交给服务层按无效跳过

	var rows []services.UserImportRow
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		if first {
			first = false
			if len(record) > 0 {
				head := strings.TrimSpace(record[0])
				if head == "userId" || head == "ID" {
					continue
				}
			}
		}

		row := services.UserImportRow{}
		if len(record) > 0 {
			row.UserID = strings.TrimSpace(record[0])
		}
		if len(record) > 1 {
			row.Name = strings.TrimSpace(record[1])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SetupAdmin godoc
// @Summary 初始化管理员账号
// @Description 当系统中还没有管理员时，创建固定ID为 000000 的管理员账号
// @Tags Users
// @Accept json
// @Produce json
// @Success 201 {object} utils.SuccessResponse "管理员创建成功"
// @Failure 400 {object} utils.APIErrorResponse "管理员已存在"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/setup [post]
func (h *UserHandler) SetupAdmin(c *gin.Context) {
	admin, err := h.userService.EnsureAdminUser(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrAdminUserExists) {
			utils.RespondAPIError(c, http.StatusBadRequest, services.ErrAdminUserExists.Error(), nil)
		} else {
			utils.RespondInternalServerError(c, "初始化管理员失败", err.Error())
		}
		return
	}
	utils.RespondSuccess(c, http.StatusCreated, gin.H{"userId": admin.UserID}, "管理员账号创建成功")
}

// DeleteUser godoc
// @Summary 删除单个用户
// @Description 删除指定的非管理员用户，其名下号码会释放回未分配池
// @Tags Users
// @Accept json
// @Produce json
// @Param userId path string true "用户业务ID"
// @Success 200 {object} utils.SuccessResponse "删除成功"
// @Failure 400 {object} utils.APIErrorResponse "目标是管理员用户"
// @Failure 404 {object} utils.APIErrorResponse "用户不存在"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/users/{userId} [delete]
// @Security BearerAuth
func (h *UserHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("userId")

	if err := h.userService.DeleteUser(c.Request.Context(), userID); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			utils.RespondNotFoundError(c, "用户")
		case errors.Is(err, services.ErrAdminUserNotDeletable):
			utils.RespondAPIError(c, http.StatusBadRequest, services.ErrAdminUserNotDeletable.Error(), nil)
		default:
			utils.RespondInternalServerError(c, "删除用户失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{"deletedUserId": userID},
		fmt.Sprintf("用户 %s 已删除。", userID))
}

// DeleteUsersPayload 是批量删除用户请求体
type DeleteUsersPayload struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

// DeleteUsers godoc
// @Summary 批量删除用户
// @Description 批量删除非管理员用户；集合中包含管理员时整体拒绝。被删用户名下号码释放回未分配池。
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body DeleteUsersPayload true "用户ID数组"
// @Success 200 {object} utils.SuccessResponse{data=services.DeleteUsersResult} "删除结果"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误或包含管理员用户"
// @Failure 404 {object} utils.APIErrorResponse "没有找到任何指定的用户"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/users [delete]
// @Security BearerAuth
func (h *UserHandler) DeleteUsers(c *gin.Context) {
	var payload DeleteUsersPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	result, err := h.userService.DeleteUsers(c.Request.Context(), payload.UserIDs)
	if err != nil {
		var adminErr *services.AdminNotDeletableError
		switch {
		case errors.Is(err, services.ErrNoUsersFound):
			utils.RespondNotFoundError(c, "用户")
		case errors.As(err, &adminErr):
			utils.RespondAPIError(c, http.StatusBadRequest, adminErr.Error(), gin.H{
				"adminUserIds": adminErr.AdminUserIDs,
			})
		default:
			utils.RespondInternalServerError(c, "批量删除用户失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusOK, result,
		fmt.Sprintf("已删除 %d 个用户。", result.DeletedCount))
}

// GetProfile godoc
// @Summary 获取当前用户概要
// @Description 返回调用方自己的分配、已用与剩余配额
// @Tags Users
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=services.UserProfile} "账户概要"
// @Failure 404 {object} utils.APIErrorResponse "用户不存在"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /user/profile [get]
// @Security BearerAuth
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := c.GetString("userID")

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.RespondNotFoundError(c, "用户")
		} else {
			utils.RespondInternalServerError(c, "获取账户概要失败", err.Error())
		}
		return
	}
	utils.RespondSuccess(c, http.StatusOK, profile, "")
}

// GenerateNumbersPayload 是号码生成请求体
type GenerateNumbersPayload struct {
	Count int64 `json:"count" binding:"required"`
}

// GenerateNumbers godoc
// @Summary 生成（消耗）号码
// @Description 为调用方生成指定数量的号码：校验剩余配额与实际分配记录，成功后号码从池中永久删除且不可再次生成
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body GenerateNumbersPayload true "生成数量"
// @Success 200 {object} utils.SuccessResponse{data=services.GenerateResult} "生成的号码列表（已去除 + 前缀）"
// @Failure 400 {object} utils.APIErrorResponse "数量无效、超出配额或实际分配记录不足"
// @Failure 404 {object} utils.APIErrorResponse "用户不存在"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /user/generate-numbers [post]
// @Security BearerAuth
func (h *UserHandler) GenerateNumbers(c *gin.Context) {
	var payload GenerateNumbersPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	userID := c.GetString("userID")
	result, err := h.assignmentService.Generate(c.Request.Context(), userID, payload.Count)
	if err != nil {
		var quotaErr *services.QuotaExceededError
		var allocationErr *services.InsufficientAllocationError
		switch {
		case errors.Is(err, services.ErrInvalidCount):
			utils.RespondAPIError(c, http.StatusBadRequest, services.ErrInvalidCount.Error(), nil)
		case errors.Is(err, services.ErrUserNotFound):
			utils.RespondNotFoundError(c, "用户")
		case errors.As(err, &quotaErr):
			utils.RespondAPIError(c, http.StatusBadRequest, quotaErr.Error(), gin.H{
				"requested": quotaErr.Requested,
				"remaining": quotaErr.Remaining,
			})
		case errors.As(err, &allocationErr):
			utils.RespondAPIError(c, http.StatusBadRequest, allocationErr.Error(), gin.H{
				"requested": allocationErr.Requested,
				"allocated": allocationErr.Allocated,
			})
		default:
			utils.RespondInternalServerError(c, "生成号码失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusOK, result, "")
}
