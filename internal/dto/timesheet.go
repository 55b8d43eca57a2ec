package dto

// ── 工时记录模块 DTO ──

// TimesheetEntry 工时记录（请求与响应共用，字段与 Web 前端约定一致）
// HoursWorked / Kilometres 为派生字段，仅在响应中填充，请求中忽略
type TimesheetEntry struct {
	ID            uint    `json:"id,omitempty"`
	Date          string  `json:"date"                    binding:"required"`
	StartTime     string  `json:"startTime"               binding:"required"`
	EndTime       string  `json:"endTime"                 binding:"required"`
	OdometerStart *int    `json:"odometerStart,omitempty"`
	OdometerEnd   *int    `json:"odometerEnd,omitempty"`
	EmployeeID    *uint   `json:"employeeId,omitempty"`
	HoursWorked   float64 `json:"hoursWorked"`
	Kilometres    *int    `json:"kilometres,omitempty"`
}

// ExportRequest 导出当前周参数（query string）
type ExportRequest struct {
	Name       string `form:"name"       binding:"required"`
	EmployeeID string `form:"employeeId" binding:"required"`
	Location   string `form:"location"   binding:"required"`
	Department string `form:"department" binding:"required"`
}
