package controller

import (
	"strconv"

	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// UserController 管理端用户查询
type UserController struct {
	UserService     *service.UserService
	LearningService *service.LearningService
}

func NewUserController(userService *service.UserService, learningService *service.LearningService) *UserController {
	return &UserController{
		UserService:     userService,
		LearningService: learningService,
	}
}

func userIDParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		util.BadRequest(ctx, "invalid user id")
		return 0, false
	}
	return uint(id), true
}

// GetUsers godoc
// @Summary 获取用户列表
// @Description 获取用户列表，支持分页和筛选
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   pageSize query int false "每页条数" default(20)
// @Param   role query string false "角色筛选"
// @Param   search query string false "搜索关键词"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/admin/users [get]
func (c *UserController) GetUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("pageSize", "20"))

	users, total, err := c.UserService.GetUsers(page, pageSize, repository.UserFilter{
		Role:   ctx.Query("role"),
		Search: ctx.Query("search"),
	})
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Page(ctx, users, total, page, pageSize)
}

// GetUserOverview godoc
// @Summary 查看学员的学习总览
// @Tags 用户管理
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response{data=service.LearningOverview}
// @Router /api/admin/users/{id}/overview [get]
func (c *UserController) GetUserOverview(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}
	user, err := c.UserService.GetUserByID(id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	overview, err := c.LearningService.Overview(ctx.Request.Context(), user.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	progress, err := c.LearningService.Progress(ctx.Request.Context(), user.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"user":     user,
		"overview": overview,
		"progress": progress,
	})
}

type DisableUserRequest struct {
	Disabled bool `json:"disabled"`
}

// DisableUser godoc
// @Summary 禁用/启用用户
// @Tags 用户管理
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Router /api/admin/users/{id}/disable [put]
func (c *UserController) DisableUser(ctx *gin.Context) {
	id, ok := userIDParam(ctx)
	if !ok {
		return
	}
	var req DisableUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if claims := util.GetUserFromContext(ctx); claims != nil && claims.UserID == id {
		util.BadRequest(ctx, "cannot disable yourself")
		return
	}
	if err := c.UserService.DisableUser(id, req.Disabled); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": id, "disabled": req.Disabled})
}
