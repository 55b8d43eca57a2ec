package service

import (
	"go.uber.org/zap"

	"github.com/O-B-I-s/TimeTracker/config"
	"github.com/O-B-I-s/TimeTracker/internal/repository"
	"github.com/O-B-I-s/TimeTracker/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Timesheet TimesheetService
	Employee  EmployeeService
	Export    ExportService
}

// NewService 创建 Service 聚合
// rdb 为 nil 时周视图不走缓存
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	var cache WeekCache
	if rdb != nil {
		cache = rdb
	}

	return &Service{
		Timesheet: NewTimesheetService(repo, cache, logger),
		Employee:  NewEmployeeService(repo, logger),
		Export: NewExportService(repo, ExportOptions{
			TemplatePath: cfg.Export.TemplatePath,
			WeekStart:    cfg.Timesheet.WeekStartDay(),
			Location:     cfg.Timesheet.Location(),
		}, logger),
	}
}
