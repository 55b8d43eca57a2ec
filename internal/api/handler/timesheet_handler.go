package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/O-B-I-s/TimeTracker/internal/dto"
	"github.com/O-B-I-s/TimeTracker/internal/service"
	pkgerrors "github.com/O-B-I-s/TimeTracker/pkg/errors"
	"github.com/O-B-I-s/TimeTracker/pkg/response"
)

// TimesheetHandler 工时记录模块 HTTP 处理器
type TimesheetHandler struct {
	timesheetSvc service.TimesheetService
}

// NewTimesheetHandler 创建 TimesheetHandler
func NewTimesheetHandler(timesheetSvc service.TimesheetService) *TimesheetHandler {
	return &TimesheetHandler{timesheetSvc: timesheetSvc}
}

// ListEntries 获取全部工时记录
// GET /api/v1/entries
func (h *TimesheetHandler) ListEntries(c *gin.Context) {
	entries, err := h.timesheetSvc.List(c.Request.Context())
	if err != nil {
		h.handleTimesheetError(c, err)
		return
	}
	response.OK(c, entries)
}

// GetEntry 获取单条工时记录
// GET /api/v1/entries/:id
func (h *TimesheetHandler) GetEntry(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.timesheetSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleTimesheetError(c, err)
		return
	}
	response.OK(c, entry)
}

// ListWeek 获取某一周的工时记录
// GET /api/v1/entries/week/:weekStart
func (h *TimesheetHandler) ListWeek(c *gin.Context) {
	entries, err := h.timesheetSvc.ListByWeek(c.Request.Context(), c.Param("weekStart"))
	if err != nil {
		h.handleTimesheetError(c, err)
		return
	}
	response.OK(c, entries)
}

// CreateEntry 按日期保存工时记录（同日期已存在则覆盖）
// POST /api/v1/entries
func (h *TimesheetHandler) CreateEntry(c *gin.Context) {
	var req dto.TimesheetEntry
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	entry, created, err := h.timesheetSvc.Save(c.Request.Context(), &req)
	if err != nil {
		h.handleTimesheetError(c, err)
		return
	}

	if created {
		response.Created(c, fmt.Sprintf("/api/v1/entries/%d", entry.ID), entry)
		return
	}
	response.OK(c, entry)
}

// UpdateEntry 更新工时记录
// PUT /api/v1/entries/:id
func (h *TimesheetHandler) UpdateEntry(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.TimesheetEntry
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	if err := h.timesheetSvc.Update(c.Request.Context(), id, &req); err != nil {
		h.handleTimesheetError(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteEntry 删除工时记录
// DELETE /api/v1/entries/:id
func (h *TimesheetHandler) DeleteEntry(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.timesheetSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleTimesheetError(c, err)
		return
	}
	response.NoContent(c)
}

// ListEmployeeEntries 获取某员工的全部工时记录
// GET /api/v1/employees/:id/entries
func (h *TimesheetHandler) ListEmployeeEntries(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.timesheetSvc.ListByEmployee(c.Request.Context(), id)
	if err != nil {
		h.handleTimesheetError(c, err)
		return
	}
	response.OK(c, entries)
}

func (h *TimesheetHandler) handleTimesheetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEntryNotFound):
		response.NotFound(c, 16001, "工时记录不存在")
	case errors.Is(err, service.ErrEntryIDMismatch):
		response.BadRequest(c, 16002, "路径 ID 与请求体 ID 不一致")
	case errors.Is(err, service.ErrEntryInvalid):
		response.ErrorWithDetails(c, http.StatusBadRequest, 16003, "工时记录字段无效", err.Error())
	case errors.Is(err, service.ErrEmployeeNotFound):
		response.NotFound(c, 17001, "员工不存在")
	case pkgerrors.IsNotFound(err):
		response.NotFound(c, 10004, "资源不存在")
	case pkgerrors.IsBadRequest(err):
		response.BadRequest(c, 10001, "参数校验失败")
	default:
		response.InternalError(c)
	}
}
