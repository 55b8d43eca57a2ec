package model

import "github.com/O-B-I-s/TimeTracker/internal/worktime"

// TimesheetEntry 单日工时记录表，对应 timesheet_entries
// date 上只有普通索引，不做唯一约束；"一天一条"由 UpsertByDate 保证
type TimesheetEntry struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Date          Date      `gorm:"type:date;not null;index"  json:"date"`
	StartTime     TimeOfDay `gorm:"type:time;not null"        json:"startTime"`
	EndTime       TimeOfDay `gorm:"type:time;not null"        json:"endTime"`
	OdometerStart *int      `gorm:""                          json:"odometerStart,omitempty"`
	OdometerEnd   *int      `gorm:""                          json:"odometerEnd,omitempty"`
	EmployeeID    *uint     `gorm:"index"                     json:"employeeId,omitempty"`
	BaseModel
}

// TableName 指定表名
func (TimesheetEntry) TableName() string { return "timesheet_entries" }

// HoursWorked 派生字段：工作小时数（不落库）
func (e *TimesheetEntry) HoursWorked() float64 {
	return worktime.HoursWorked(e.StartTime.String(), e.EndTime.String())
}

// Kilometres 派生字段：里程（不落库），任一读数缺失时为 nil
func (e *TimesheetEntry) Kilometres() *int {
	return worktime.Distance(e.OdometerStart, e.OdometerEnd)
}
