package controller

import (
	"errors"
	"net/http"

	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 将业务错误映射为 HTTP 状态码，未知错误记录日志后返回 500
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrModuleNotFound),
		errors.Is(err, util.ErrCheckpointNotFound),
		errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrNoContent),
		errors.Is(err, util.ErrSessionNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrModuleLocked),
		errors.Is(err, util.ErrCheckpointLocked),
		errors.Is(err, util.ErrAccountDisabled),
		errors.Is(err, util.ErrPermissionDenied):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrCheckpointPassed),
		errors.Is(err, util.ErrModuleExists),
		errors.Is(err, util.ErrCheckpointExists),
		errors.Is(err, util.ErrModuleReferenced),
		errors.Is(err, util.ErrEmailRegistered):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrSessionExpired):
		util.Gone(ctx, err.Error())
	case errors.Is(err, util.ErrUnknownModule),
		errors.Is(err, util.ErrInvalidModule),
		errors.Is(err, util.ErrInvalidCheckpoint),
		errors.Is(err, util.ErrInvalidScoreRecord):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidCredentials):
		util.Error(ctx, http.StatusUnauthorized, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
