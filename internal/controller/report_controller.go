package controller

import (
	"fmt"
	"net/http"
	"time"

	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportController struct {
	ReportService *service.ReportService
}

func NewReportController(reportService *service.ReportService) *ReportController {
	return &ReportController{ReportService: reportService}
}

// ExportProgress godoc
// @Summary 导出学员进度报表
// @Tags 报表
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security ApiKeyAuth
// @Router /api/admin/reports/progress.xlsx [get]
func (c *ReportController) ExportProgress(ctx *gin.Context) {
	buf, err := c.ReportService.ProgressWorkbook()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	filename := fmt.Sprintf("progress-%s.xlsx", time.Now().Format("20060102"))
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	ctx.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
