package handler

import "github.com/O-B-I-s/TimeTracker/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Timesheet *TimesheetHandler
	Employee  *EmployeeHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Timesheet: NewTimesheetHandler(svc.Timesheet),
		Employee:  NewEmployeeHandler(svc.Employee),
		Export:    NewExportHandler(svc.Export),
	}
}
