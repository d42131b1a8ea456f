package controller

import (
	"io"
	"strconv"

	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LearningController struct {
	LearningService *service.LearningService
}

func NewLearningController(learningService *service.LearningService) *LearningController {
	return &LearningController{LearningService: learningService}
}

func checkpointParam(ctx *gin.Context) (int, bool) {
	number, err := strconv.Atoi(ctx.Param("number"))
	if err != nil || number < 1 {
		util.BadRequest(ctx, "invalid checkpoint number")
		return 0, false
	}
	return number, true
}

// GetOverview godoc
// @Summary 学习总览
// @Description 返回课程目录、模块锁定状态、测验状态以及推荐学习顺序
// @Tags 学习
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.LearningOverview}
// @Router /api/learning/overview [get]
func (c *LearningController) GetOverview(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	overview, err := c.LearningService.Overview(ctx.Request.Context(), claims.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, overview)
}

// GetProgress godoc
// @Summary 学习进度
// @Tags 学习
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.LearningProgress}
// @Router /api/learning/progress [get]
func (c *LearningController) GetProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	progress, err := c.LearningService.Progress(ctx.Request.Context(), claims.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// CompleteModule godoc
// @Summary 标记模块完成
// @Tags 学习
// @Security ApiKeyAuth
// @Param moduleId path string true "模块ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response "模块未解锁"
// @Failure 404 {object} util.Response "模块不存在"
// @Router /api/learning/modules/{moduleId}/complete [post]
func (c *LearningController) CompleteModule(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	moduleID := ctx.Param("moduleId")

	created, err := c.LearningService.CompleteModule(ctx.Request.Context(), claims.UserID, moduleID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"moduleId":         moduleID,
		"alreadyCompleted": !created,
	})
}

// GetModuleContent godoc
// @Summary 获取模块内容地址
// @Tags 学习
// @Security ApiKeyAuth
// @Param moduleId path string true "模块ID"
// @Success 200 {object} util.Response{data=service.ModuleContent}
// @Failure 403 {object} util.Response "模块未解锁"
// @Failure 404 {object} util.Response "模块不存在或没有内容"
// @Router /api/learning/modules/{moduleId}/content [get]
func (c *LearningController) GetModuleContent(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	content, err := c.LearningService.ModuleContent(ctx.Request.Context(), claims.UserID, ctx.Param("moduleId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, content)
}

// GetCheckpoint godoc
// @Summary 获取检查点测验题目
// @Tags 学习
// @Security ApiKeyAuth
// @Param number path int true "检查点编号"
// @Success 200 {object} util.Response{data=service.CheckpointQuizView}
// @Failure 403 {object} util.Response "前置模块未完成"
// @Failure 409 {object} util.Response "已通过"
// @Router /api/learning/checkpoints/{number} [get]
func (c *LearningController) GetCheckpoint(ctx *gin.Context) {
	number, ok := checkpointParam(ctx)
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	view, err := c.LearningService.GetCheckpoint(ctx.Request.Context(), claims.UserID, claims.Username, number)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

type SubmitCheckpointRequest struct {
	Answers map[string]int `json:"answers" binding:"required"` // questionId -> 选项下标
}

// SubmitCheckpoint godoc
// @Summary 提交检查点测验
// @Tags 学习
// @Accept json
// @Security ApiKeyAuth
// @Param number path int true "检查点编号"
// @Param body body SubmitCheckpointRequest true "作答"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Failure 403 {object} util.Response "前置模块未完成"
// @Failure 409 {object} util.Response "已通过"
// @Router /api/learning/checkpoints/{number}/submit [post]
func (c *LearningController) SubmitCheckpoint(ctx *gin.Context) {
	number, ok := checkpointParam(ctx)
	if !ok {
		return
	}
	var req SubmitCheckpointRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	result, err := c.LearningService.SubmitCheckpoint(ctx.Request.Context(), claims.UserID, claims.Username, number, req.Answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

type SaveSessionRequest struct {
	Answers      map[string]int `json:"answers"`
	CurrentIndex int            `json:"currentIndex" binding:"min=0"`
}

// SaveSession godoc
// @Summary 保存测验作答进度
// @Tags 学习
// @Accept json
// @Security ApiKeyAuth
// @Param number path int true "检查点编号"
// @Param body body SaveSessionRequest true "作答进度"
// @Success 200 {object} util.Response{data=service.QuizSession}
// @Router /api/learning/checkpoints/{number}/session [put]
func (c *LearningController) SaveSession(ctx *gin.Context) {
	number, ok := checkpointParam(ctx)
	if !ok {
		return
	}
	var req SaveSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	session, err := c.LearningService.SaveSession(ctx.Request.Context(), claims.UserID, claims.Username, number, req.Answers, req.CurrentIndex)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// ResumeSession godoc
// @Summary 恢复测验作答进度
// @Tags 学习
// @Security ApiKeyAuth
// @Param number path int true "检查点编号"
// @Success 200 {object} util.Response{data=service.QuizSession}
// @Failure 404 {object} util.Response "没有保存的进度"
// @Failure 410 {object} util.Response "进度已过期"
// @Router /api/learning/checkpoints/{number}/session [get]
func (c *LearningController) ResumeSession(ctx *gin.Context) {
	number, ok := checkpointParam(ctx)
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	session, err := c.LearningService.ResumeSession(ctx.Request.Context(), claims.Username, number)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// DiscardSession godoc
// @Summary 丢弃测验作答进度
// @Tags 学习
// @Security ApiKeyAuth
// @Param number path int true "检查点编号"
// @Router /api/learning/checkpoints/{number}/session [delete]
func (c *LearningController) DiscardSession(ctx *gin.Context) {
	number, ok := checkpointParam(ctx)
	if !ok {
		return
	}
	claims := util.GetUserFromContext(ctx)
	if err := c.LearningService.DiscardSession(ctx.Request.Context(), claims.Username, number); err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// SaveScores godoc
// @Summary 上报模块得分
// @Description 接受 moduleScores 或旧版 moduleTypeScores 两种结构
// @Tags 学习
// @Accept json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "格式错误"
// @Router /api/learning/scores [post]
func (c *LearningController) SaveScores(ctx *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, 1<<20))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetUserFromContext(ctx)
	shape, err := c.LearningService.SaveScores(claims.UserID, body)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"shape": shape})
}
