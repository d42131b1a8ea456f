package controller

import (
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const maxContentSize = 512 << 20

// CatalogController 管理端：模块与检查点测验维护
type CatalogController struct {
	CatalogService *service.CatalogService
}

func NewCatalogController(catalogService *service.CatalogService) *CatalogController {
	return &CatalogController{CatalogService: catalogService}
}

// ListModules godoc
// @Summary 模块列表
// @Tags 管理-课程目录
// @Security ApiKeyAuth
// @Router /api/admin/modules [get]
func (c *CatalogController) ListModules(ctx *gin.Context) {
	modules, err := c.CatalogService.ListModules()
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, modules)
}

// CreateModule godoc
// @Summary 创建模块
// @Tags 管理-课程目录
// @Security ApiKeyAuth
// @Param body body service.ModuleRequest true "模块"
// @Failure 409 {object} util.Response "moduleId 已存在"
// @Router /api/admin/modules [post]
func (c *CatalogController) CreateModule(ctx *gin.Context) {
	var req service.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	module, err := c.CatalogService.CreateModule(req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, module)
}

// UpdateModule godoc
// @Summary 更新模块
// @Tags 管理-课程目录
// @Security ApiKeyAuth
// @Param moduleId path string true "模块ID"
// @Router /api/admin/modules/{moduleId} [put]
func (c *CatalogController) UpdateModule(ctx *gin.Context) {
	var req service.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	module, err := c.CatalogService.UpdateModule(ctx.Param("moduleId"), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, module)
}

// DeleteModule godoc
// @Summary 删除模块
// @Tags 管理-课程目录
// @Security ApiKeyAuth
// @Param moduleId path string true "模块ID"
// @Failure 409 {object} util.Response "仍被检查点测验引用"
// @Router /api/admin/modules/{moduleId} [delete]
func (c *CatalogController) DeleteModule(ctx *gin.Context) {
	if err := c.CatalogService.DeleteModule(ctx.Request.Context(), ctx.Param("moduleId")); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// UploadModuleContent godoc
// @Summary 上传模块内容
// @Tags 管理-课程目录
// @Accept multipart/form-data
// @Security ApiKeyAuth
// @Param moduleId path string true "模块ID"
// @Param file formData file true "内容文件"
// @Router /api/admin/modules/{moduleId}/content [post]
func (c *CatalogController) UploadModuleContent(ctx *gin.Context) {
	header, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if header.Size > maxContentSize {
		util.BadRequest(ctx, "file too large")
		return
	}

	file, err := header.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	module, err := c.CatalogService.UploadContent(ctx.Request.Context(), ctx.Param("moduleId"), header.Filename, file, header.Size)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, module)
}

// ListCheckpoints godoc
// @Summary 检查点测验列表（含答案）
// @Tags 管理-课程目录
// @Security ApiKeyAuth
// @Router /api/admin/checkpoints [get]
func (c *CatalogController) ListCheckpoints(ctx *gin.Context) {
	quizzes, err := c.CatalogService.ListCheckpoints()
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// GetCheckpoint godoc
// @Summary 检查点测验详情
// @Tags 管理-课程目录
// @Security ApiKeyAuth
// @Param number path int true "检查点编号"
// @Router /api/admin/checkpoints/{number} [get]
func (c *CatalogController) GetCheckpoint(ctx *gin.Context) {
	number, ok := checkpointParam(ctx)
	if !ok {
		return
	}
	quiz, err := c.CatalogService.GetCheckpoint(number)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// CreateCheckpoint godoc
// @Summary 创建检查点测验
// @Tags 管理-课程目录
// @Security ApiKeyAuth
// @Param body body service.CheckpointRequest true "测验"
// @Failure 400 {object} util.Response "校验失败或引用了不存在的模块"
// @Router /api/admin/checkpoints [post]
func (c *CatalogController) CreateCheckpoint(ctx *gin.Context) {
	var req service.CheckpointRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.CatalogService.CreateCheckpoint(req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// UpdateCheckpoint godoc
// @Summary 更新检查点测验
// @Tags 管理-课程目录
// @Security ApiKeyAuth
// @Param number path int true "检查点编号"
// @Router /api/admin/checkpoints/{number} [put]
func (c *CatalogController) UpdateCheckpoint(ctx *gin.Context) {
	number, ok := checkpointParam(ctx)
	if !ok {
		return
	}
	var req service.CheckpointRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	quiz, err := c.CatalogService.UpdateCheckpoint(number, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// DeleteCheckpoint godoc
// @Summary 删除检查点测验
// @Tags 管理-课程目录
// @Security ApiKeyAuth
// @Param number path int true "检查点编号"
// @Router /api/admin/checkpoints/{number} [delete]
func (c *CatalogController) DeleteCheckpoint(ctx *gin.Context) {
	number, ok := checkpointParam(ctx)
	if !ok {
		return
	}
	if err := c.CatalogService.DeleteCheckpoint(number); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
