package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phone_pool/internal/services"
	"github.com/phone_pool/pkg/utils"
)

// ResetHandler 封装了号码池批量重置与对账的 HTTP 处理逻辑
type ResetHandler struct {
	resetService      services.ResetService
	assignmentService services.AssignmentService
}

// NewResetHandler 创建一个新的 ResetHandler 实例
func NewResetHandler(resetService services.ResetService, assignmentService services.AssignmentService) *ResetHandler {
	return &ResetHandler{resetService: resetService, assignmentService: assignmentService}
}

// ClearTotalNumbers godoc
// @Summary 清空整个号码池
// @Description 删除所有号码记录（删表重建唯一索引），并清零所有用户的分配与使用计数
// @Tags Reset
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=services.ResetResult} "重置结果"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/clear-total-numbers [delete]
// @Security BearerAuth
func (h *ResetHandler) ClearTotalNumbers(c *gin.Context) {
	result, err := h.resetService.ClearTotalInventory(c.Request.Context())
	if err != nil {
		utils.RespondInternalServerError(c, "清空号码池失败", err.Error())
		return
	}
	utils.RespondSuccess(c, http.StatusOK, result, result.Message)
}

// ClearAssignedNumbers godoc
// @Summary 释放所有已分配号码
// @Description 将所有已分配号码翻回未分配状态（不删除号码），并清零所有用户的分配与使用计数
// @Tags Reset
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=services.ResetResult} "重置结果"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/clear-assigned-numbers [delete]
// @Security BearerAuth
func (h *ResetHandler) ClearAssignedNumbers(c *gin.Context) {
	result, err := h.resetService.ClearAssignedLinks(c.Request.Context())
	if err != nil {
		utils.RespondInternalServerError(c, "释放已分配号码失败", err.Error())
		return
	}
	utils.RespondSuccess(c, http.StatusOK, result, result.Message)
}

// ClearUsedNumbers godoc
// @Summary 清零已用计数
// @Description 只清零所有用户的已用号码计数，不恢复已消耗删除的号码，也不改变分配计数
// @Tags Reset
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=services.ResetResult} "重置结果"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/clear-used-numbers [delete]
// @Security BearerAuth
func (h *ResetHandler) ClearUsedNumbers(c *gin.Context) {
	result, err := h.resetService.ClearUsedCounters(c.Request.Context())
	if err != nil {
		utils.RespondInternalServerError(c, "清零已用计数失败", err.Error())
		return
	}
	utils.RespondSuccess(c, http.StatusOK, result, result.Message)
}

// ClearAssignments godoc
// @Summary 释放所有分配并重置计数
// @Description 与释放已分配号码同效，但按号码翻转和计数清零两个独立子操作执行并返回区分化的结果消息
// @Tags Reset
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=services.ResetResult} "重置结果"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/clear-assignments [delete]
// @Security BearerAuth
func (h *ResetHandler) ClearAssignments(c *gin.Context) {
	result, err := h.resetService.ClearAllAssignments(c.Request.Context())
	if err != nil {
		utils.RespondInternalServerError(c, "释放分配失败", err.Error())
		return
	}
	utils.RespondSuccess(c, http.StatusOK, result, result.Message)
}

// ReconcileAssignments godoc
// @Summary 对账修复分配状态
// @Description 为分配计数大于实际链接记录数的用户从未分配池补足链接；补不满的用户记入 issues，整体按部分成功返回
// @Tags Reset
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=services.ReconcileResult} "对账完成"
// @Success 207 {object} utils.SuccessResponse{data=services.ReconcileResult} "对账部分完成，存在未补足的用户"
// @Failure 500 {object} utils.APIErrorResponse "服务器内部错误"
// @Router /admin/reconcile-assignments [post]
// @Security BearerAuth
func (h *ResetHandler) ReconcileAssignments(c *gin.Context) {
	result, err := h.assignmentService.ReconcileAssignments(c.Request.Context())
	if err != nil {
		utils.RespondInternalServerError(c, "对账修复失败", err.Error())
		return
	}

	if len(result.Issues) > 0 {
		message := fmt.Sprintf("对账部分完成，共修复 %d 条分配链接，存在 %d 个未能补足的用户。", result.TotalReconciled, len(result.Issues))
		utils.RespondSuccess(c, http.StatusMultiStatus, result, message)
		return
	}
	message := fmt.Sprintf("对账完成，共修复 %d 条分配链接。", result.TotalReconciled)
	utils.RespondSuccess(c, http.StatusOK, result, message)
}
