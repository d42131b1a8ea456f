package controller

import (
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
	IsRelease   bool // 生产环境下 cookie 加 Secure
}

func NewAuthController(authService *service.AuthService, isRelease bool) *AuthController {
	return &AuthController{
		AuthService: authService,
		IsRelease:   isRelease,
	}
}

// swagger:model RegisterRequest
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required,alphanum,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register godoc
// @Summary 学员注册
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body RegisterRequest true "注册信息"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱或用户名已被注册"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user := &model.User{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}

	if err := c.AuthService.Register(user); err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{"id": user.ID, "username": user.Username})
}

// swagger:model LoginRequest
type LoginRequest struct {
	Login    string `json:"login" binding:"required"` // 邮箱或用户名
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary 用户登录
// @Description 验证用户身份，返回 JWT 并写入 HttpOnly cookie
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "登录凭据"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 401 {object} util.Response "用户名或密码错误"
// @Failure 403 {object} util.Response "账号已禁用"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, user, err := c.AuthService.Login(req.Login, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}

	maxAge := int(c.AuthService.Cfg.JWT.ExpireTime.Seconds())
	ctx.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", c.IsRelease, true)

	util.Success(ctx, gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout godoc
// @Summary 退出登录
// @Tags 认证
// @Router /api/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	ctx.SetCookie(middleware.TokenCookie, "", -1, "/", "", c.IsRelease, true)
	util.Success(ctx, nil)
}

// GetProfile godoc
// @Summary 获取当前用户资料
// @Tags 认证
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User} "Success"
// @Failure 401 {object} util.Response "Unauthorized"
// @Router /api/profile [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, user)
}
