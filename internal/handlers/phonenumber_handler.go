package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phone_pool/internal/models"
	"github.com/phone_pool/internal/services"
	"github.com/phone_pool/pkg/utils"
)

// PhoneNumberHandler 封装了号码池相关的 HTTP 处理逻辑
type PhoneNumberHandler struct {
	poolService       services.PoolService
	assignmentService services.AssignmentService
}

// NewPhoneNumberHandler 创建一个新的 PhoneNumberHandler 实例
func NewPhoneNumberHandler(poolService services.PoolService, assignmentService services.AssignmentService) *PhoneNumberHandler {
	return &PhoneNumberHandler{poolService: poolService, assignmentService: assignmentService}
}

// UploadNumbersPayload 是号码入库请求体
type UploadNumbersPayload struct {
	Numbers []string `json:"numbers" binding:"required"`
}

// UploadNumbers godoc
// @Summary 批量上传号码入库
// @Description 对提交的号码做规整与去重后批量入库，与存量重复的号码按跳过处理
// @Tags PhoneNumbers
// @Accept json
// @Produce json
// @Param payload body UploadNumbersPayload true "号码数组"
// @Success 201 {object} utils.SuccessResponse{data=services.UploadResult} "入库结果统计"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误"
// @Failure 401 {object} utils.APIErrorResponse "未认证或 Token 无效/过期"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/upload-numbers [post]
// @Security BearerAuth
func (h *PhoneNumberHandler) UploadNumbers(c *gin.Context) {
	var payload UploadNumbersPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	result, err := h.poolService.UploadNumbers(c.Request.Context(), payload.Numbers)
	if err != nil {
		utils.RespondInternalServerError(c, "号码入库失败", err.Error())
		return
	}

	if result.NumbersAdded == 0 && result.DuplicatesSkipped == 0 {
		utils.RespondSuccess(c, http.StatusOK, result, "没有可入库的有效号码。")
		return
	}

	message := fmt.Sprintf("成功入库 %d 个号码，跳过 %d 个重复号码。", result.NumbersAdded, result.DuplicatesSkipped)
	utils.RespondSuccess(c, http.StatusCreated, result, message)
}

// PagedPhoneNumbersData 定义了号码列表的分页响应结构
type PagedPhoneNumbersData struct {
	Items      []models.PhoneNumber `json:"items"`
	Pagination PaginationInfo       `json:"pagination"`
}

// GetNumbers godoc
// @Summary 获取号码列表
// @Description 分页获取号码池中的号码
// @Tags PhoneNumbers
// @Accept json
// @Produce json
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(100)
// @Success 200 {object} utils.SuccessResponse{data=PagedPhoneNumbersData} "成功响应，包含号码列表和分页信息"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/phone-numbers [get]
// @Security BearerAuth
func (h *PhoneNumberHandler) GetNumbers(c *gin.Context) {
	type GetNumbersQuery struct {
		Page  int `form:"page,default=1"`
		Limit int `form:"limit,default=100"`
	}

	var queryParams GetNumbersQuery
	if err := c.ShouldBindQuery(&queryParams); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}
	if queryParams.Page <= 0 {
		queryParams.Page = 1
	}
	if queryParams.Limit <= 0 {
		queryParams.Limit = 100
	}

	numbers, totalItems, err := h.poolService.GetNumbers(c.Request.Context(), queryParams.Page, queryParams.Limit)
	if err != nil {
		utils.RespondInternalServerError(c, "获取号码列表失败", err.Error())
		return
	}

	totalPages := (totalItems + int64(queryParams.Limit) - 1) / int64(queryParams.Limit)
	if totalPages == 0 && totalItems > 0 {
		totalPages = 1
	}

	pagedData := PagedPhoneNumbersData{
		Items: numbers,
		Pagination: PaginationInfo{
			TotalItems:  totalItems,
			TotalPages:  totalPages,
			CurrentPage: queryParams.Page,
			PageSize:    queryParams.Limit,
		},
	}
	utils.RespondSuccess(c, http.StatusOK, pagedData, "号码列表获取成功")
}

// GetPoolStats godoc
// @Summary 获取号码池统计
// @Description 返回号码池总量、已分配量、可用量（总量-已分配量）、用户已用总量与非管理员用户数
// @Tags PhoneNumbers
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=services.PoolStats} "号码池统计"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/phone-numbers/count [get]
// @Security BearerAuth
func (h *PhoneNumberHandler) GetPoolStats(c *gin.Context) {
	stats, err := h.poolService.GetPoolStats(c.Request.Context())
	if err != nil {
		utils.RespondInternalServerError(c, "获取号码池统计失败", err.Error())
		return
	}
	utils.RespondSuccess(c, http.StatusOK, stats, "号码池统计获取成功")
}

// ExportUnusedNumbers godoc
// @Summary 导出未分配号码
// @Description 导出号码池中所有未分配的号码字符串
// @Tags PhoneNumbers
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse "未分配号码列表及数量"
// @Failure 404 {object} utils.APIErrorResponse "没有可导出的号码"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/export-unused-numbers [get]
// @Security BearerAuth
func (h *PhoneNumberHandler) ExportUnusedNumbers(c *gin.Context) {
	numbers, err := h.poolService.ExportUnusedNumbers(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoUnusedNumbers) {
			utils.RespondAPIError(c, http.StatusNotFound, services.ErrNoUnusedNumbers.Error(), nil)
		} else {
			utils.RespondInternalServerError(c, "导出未分配号码失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"count":        len(numbers),
		"phoneNumbers": numbers,
	}, "")
}

// AssignNumbersPayload 是单用户分配请求体
type AssignNumbersPayload struct {
	UserID string `json:"userId" binding:"required"`
	Count  int64  `json:"count" binding:"required"`
}

// AssignNumbers godoc
// @Summary 给指定用户分配号码
// @Description 从未分配池中认领指定数量的号码分配给目标用户，可用量不足时整体失败并返回剩余可用量
// @Tags PhoneNumbers
// @Accept json
// @Produce json
// @Param payload body AssignNumbersPayload true "目标用户与数量"
// @Success 200 {object} utils.SuccessResponse "分配结果及用户最新计数"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误或可用号码不足"
// @Failure 404 {object} utils.APIErrorResponse "用户不存在"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/assign-numbers [post]
// @Security BearerAuth
func (h *PhoneNumberHandler) AssignNumbers(c *gin.Context) {
	var payload AssignNumbersPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	assigned, user, err := h.assignmentService.AssignToUser(c.Request.Context(), payload.UserID, payload.Count)
	if err != nil {
		var insufficient *services.InsufficientInventoryError
		switch {
		case errors.Is(err, services.ErrInvalidCount):
			utils.RespondAPIError(c, http.StatusBadRequest, services.ErrInvalidCount.Error(), nil)
		case errors.Is(err, services.ErrUserNotFound):
			utils.RespondNotFoundError(c, "用户")
		case errors.As(err, &insufficient):
			utils.RespondAPIError(c, http.StatusBadRequest, insufficient.Error(), gin.H{
				"requested": insufficient.Requested,
				"available": insufficient.Available,
			})
		default:
			utils.RespondInternalServerError(c, "分配号码失败", err.Error())
		}
		return
	}

	message := fmt.Sprintf("已给用户 %s 分配 %d 个号码。", payload.UserID, assigned)
	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"assignedCount": assigned,
		"user": gin.H{
			"userId":               user.UserID,
			"name":                 user.Name,
			"phoneNumbersAssigned": user.AssignedCount,
			"phoneNumbersUsed":     user.UsedCount,
		},
	}, message)
}

// BulkAssignPayload 是全员批量分配请求体
type BulkAssignPayload struct {
	CountPerUser int64 `json:"countPerUser" binding:"required"`
}

// BulkAssignNumbers godoc
// @Summary 给所有非管理员用户批量分配号码
// @Description 按每人数量给所有非管理员用户分配号码，池内不足时按可用量分配，个别用户失败不影响整体
// @Tags PhoneNumbers
// @Accept json
// @Produce json
// @Param payload body BulkAssignPayload true "每人分配数量"
// @Success 200 {object} utils.SuccessResponse{data=services.BulkAssignResult} "批量分配结果统计"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/bulk-assign-numbers [post]
// @Security BearerAuth
func (h *PhoneNumberHandler) BulkAssignNumbers(c *gin.Context) {
	var payload BulkAssignPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	result, err := h.assignmentService.AssignToAllUsers(c.Request.Context(), payload.CountPerUser)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCount) {
			utils.RespondAPIError(c, http.StatusBadRequest, services.ErrInvalidCount.Error(), nil)
		} else {
			utils.RespondInternalServerError(c, "批量分配失败", err.Error())
		}
		return
	}

	if result.TotalUsersProcessed == 0 && result.UsersFailed == 0 {
		utils.RespondSuccess(c, http.StatusOK, result, "没有可分配的非管理员用户。")
		return
	}

	message := fmt.Sprintf("批量分配完成：%d 个用户共获得 %d 个号码，%d 个用户失败或无号码可分。",
		result.TotalUsersProcessed, result.TotalNumbersAssigned, result.UsersFailed)
	utils.RespondSuccess(c, http.StatusOK, result, message)
}
