package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/O-B-I-s/TimeTracker/internal/dto"
	"github.com/O-B-I-s/TimeTracker/internal/model"
	"github.com/O-B-I-s/TimeTracker/internal/service"
	"github.com/O-B-I-s/TimeTracker/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportCurrentWeek 导出当前周工时表
// GET /api/v1/entries/export/current-week?name=&employeeId=&location=&department=
func (h *ExportHandler) ExportCurrentWeek(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 18002, "导出参数 name、employeeId、location、department 均为必填")
		return
	}

	buf, filename, err := h.exportSvc.ExportCurrentWeek(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	response.File(c, filename, response.XLSXContentType, buf.Bytes())
}

// ExportWeek 导出指定周工时表
// GET /api/v1/entries/export/week/:weekStart?name=&employeeId=&location=&department=
func (h *ExportHandler) ExportWeek(c *gin.Context) {
	weekStart, err := model.ParseDate(c.Param("weekStart"))
	if err != nil {
		response.BadRequest(c, 10001, "weekStart 格式应为 yyyy-MM-dd")
		return
	}

	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 18002, "导出参数 name、employeeId、location、department 均为必填")
		return
	}

	buf, filename, err := h.exportSvc.ExportWeek(c.Request.Context(), weekStart, &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	response.File(c, filename, response.XLSXContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoEntries):
		response.ErrorWithDetails(c, http.StatusBadRequest, 18001, "该周暂无工时记录", err.Error())
	case errors.Is(err, service.ErrExportMissingParams):
		response.BadRequest(c, 18002, "导出参数 name、employeeId、location、department 均为必填")
	case errors.Is(err, service.ErrTemplateNotFound):
		response.Error(c, http.StatusInternalServerError, 18003, "Excel 模板文件不存在")
	default:
		response.InternalError(c)
	}
}
