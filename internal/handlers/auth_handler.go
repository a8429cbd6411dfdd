package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/phone_pool/configs"
	"github.com/phone_pool/internal/auth"
	"github.com/phone_pool/internal/repositories"
	"github.com/phone_pool/pkg/utils"
)

// tokenLifetime 是签发Token的有效期
const tokenLifetime = 8 * time.Hour

// AuthHandler 封装了认证相关的 HTTP 处理逻辑
type AuthHandler struct {
	userRepo repositories.UserRepository
}

// NewAuthHandler 创建一个新的 AuthHandler 实例
func NewAuthHandler(userRepo repositories.UserRepository) *AuthHandler {
	return &AuthHandler{userRepo: userRepo}
}

// LoginRequest 是登录请求体：凭6位数字用户ID登录
type LoginRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// LoginResponse 是登录成功后的响应体
type LoginResponse struct {
	UserID               string `json:"userId"`
	Name                 string `json:"name"`
	IsAdmin              bool   `json:"isAdmin"`
	PhoneNumbersAssigned int64  `json:"phoneNumbersAssigned"`
	PhoneNumbersUsed     int64  `json:"phoneNumbersUsed"`
	Token                string `json:"token"`
}

// Login godoc
// @Summary 用户登录
// @Description 凭6位数字用户ID登录，返回带 {userId, isAdmin} 声明的 JWT
// @Tags auth
// @Accept  json
// @Produce  json
// @Param credentials body LoginRequest true "登录信息"
// @Success 200 {object} utils.SuccessResponse{data=LoginResponse} "登录成功，返回 Token 和用户信息"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误"
// @Failure 404 {object} utils.APIErrorResponse "用户不存在"
// @Failure 500 {object} utils.APIErrorResponse "无法生成Token"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	user, err := h.userRepo.GetByUserID(c.Request.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			utils.RespondNotFoundError(c, "用户")
		} else {
			utils.RespondInternalServerError(c, "登录失败", err.Error())
		}
		return
	}

	expirationTime := time.Now().Add(tokenLifetime)
	claims := &auth.Claims{
		UserID:  user.UserID,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.UserID,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			Issuer:    "phone_pool",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(configs.AppConfig.JWTSecret))
	if err != nil {
		utils.RespondInternalServerError(c, "无法生成Token", err.Error())
		return
	}

	loginResp := LoginResponse{
		UserID:               user.UserID,
		Name:                 user.Name,
		IsAdmin:              user.IsAdmin,
		PhoneNumbersAssigned: user.AssignedCount,
		PhoneNumbersUsed:     user.UsedCount,
		Token:                tokenString,
	}
	utils.RespondSuccess(c, http.StatusOK, loginResp, "登录成功")
}

// CheckRoleRequest 是角色查询请求体
type CheckRoleRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// CheckRole godoc
// @Summary 查询用户角色
// @Description 查询指定用户是否为管理员
// @Tags auth
// @Accept  json
// @Produce  json
// @Param payload body CheckRoleRequest true "用户ID"
// @Success 200 {object} utils.SuccessResponse "返回 isAdmin 标志"
// @Failure 400 {object} utils.APIErrorResponse "请求参数错误"
// @Failure 404 {object} utils.APIErrorResponse "用户不存在"
// @Router /auth/check-role [post]
func (h *AuthHandler) CheckRole(c *gin.Context) {
	var req CheckRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidationError(c, err.Error())
		return
	}

	user, err := h.userRepo.GetByUserID(c.Request.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			utils.RespondNotFoundError(c, "用户")
		} else {
			utils.RespondInternalServerError(c, "查询用户角色失败", err.Error())
		}
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{"isAdmin": user.IsAdmin}, "")
}

// Logout godoc
// @Summary 用户登出
// @Description 将当前Token的JTI加入拒绝列表使其失效
// @Tags auth
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Success 200 {object} utils.SuccessResponse "成功登出"
// @Failure 400 {object} utils.APIErrorResponse "错误的请求 (例如，上下文中缺少JTI或EXP)"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	jtiVal, jtiExists := c.Get("jti")
	expVal, expExists := c.Get("exp")

	if !jtiExists || !expExists {
		utils.RespondAPIError(c, http.StatusBadRequest, "Logout context error: JTI or EXP not found in context", nil)
		return
	}

	jti, okJTI := jtiVal.(string)
	exp, okEXP := expVal.(time.Time)

	if !okJTI || jti == "" {
		utils.RespondAPIError(c, http.StatusBadRequest, "Logout context error: Invalid JTI", nil)
		return
	}
	if !okEXP {
		utils.RespondAPIError(c, http.StatusBadRequest, "Logout context error: Invalid EXP", nil)
		return
	}

	auth.AddToDenylist(jti, exp)
	utils.RespondSuccess(c, http.StatusOK, nil, "成功登出")
}
