package util

import (
	"net/http"

	"learnhub_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 所有接口的响应信封
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type PageResponse struct {
	List     interface{} `json:"list"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

func reply(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{Code: code, Message: message, Data: data})
}

func Success(c *gin.Context, data interface{}) {
	reply(c, http.StatusOK, "success", data)
}

func Created(c *gin.Context, data interface{}) {
	reply(c, http.StatusCreated, "created", data)
}

// Page 分页列表，page/pageSize 原样回显
func Page(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	Success(c, PageResponse{List: list, Total: total, Page: page, PageSize: pageSize})
}

func Error(c *gin.Context, code int, message string) {
	reply(c, code, message, nil)
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

// Gone 资源曾经存在但已失效，例如过期的测验会话
func Gone(c *gin.Context, message string) {
	Error(c, http.StatusGone, message)
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	Error(c, http.StatusInternalServerError, "Internal server error")
}
