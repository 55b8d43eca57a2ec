package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/O-B-I-s/TimeTracker/internal/dto"
	"github.com/O-B-I-s/TimeTracker/internal/model"
	"github.com/O-B-I-s/TimeTracker/internal/repository"
	pkgerrors "github.com/O-B-I-s/TimeTracker/pkg/errors"
	"github.com/O-B-I-s/TimeTracker/pkg/redis"
)

// ── 工时记录模块业务错误 ──

var (
	ErrEntryNotFound   = fmt.Errorf("%w: 工时记录不存在", pkgerrors.ErrNotFound)
	ErrEntryIDMismatch = fmt.Errorf("%w: 路径 ID 与请求体 ID 不一致", pkgerrors.ErrBadRequest)
	ErrEntryInvalid    = fmt.Errorf("%w: 工时记录字段无效", pkgerrors.ErrBadRequest)
)

// WeekCache 周视图缓存，由 pkg/redis.Client 实现
type WeekCache interface {
	GetWeek(ctx context.Context, weekStart string) ([]byte, error)
	SetWeek(ctx context.Context, weekStart string, payload []byte) error
	InvalidateWeeks(ctx context.Context, weekStarts ...string) error
}

// TimesheetService 工时记录业务接口
type TimesheetService interface {
	List(ctx context.Context) ([]dto.TimesheetEntry, error)
	GetByID(ctx context.Context, id uint) (*dto.TimesheetEntry, error)
	// ListByWeek 返回 [weekStart, weekStart+7) 内的记录
	ListByWeek(ctx context.Context, weekStart string) ([]dto.TimesheetEntry, error)
	// Save 按日期 upsert；created 表示是否新建
	Save(ctx context.Context, req *dto.TimesheetEntry) (result *dto.TimesheetEntry, created bool, err error)
	Update(ctx context.Context, id uint, req *dto.TimesheetEntry) error
	Delete(ctx context.Context, id uint) error
	ListByEmployee(ctx context.Context, employeeID uint) ([]dto.TimesheetEntry, error)
}

type timesheetService struct {
	repo   *repository.Repository
	cache  WeekCache
	logger *zap.Logger
}

// NewTimesheetService 创建 TimesheetService 实例
// cache 可为 nil，此时不使用缓存
func NewTimesheetService(repo *repository.Repository, cache WeekCache, logger *zap.Logger) TimesheetService {
	return &timesheetService{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *timesheetService) List(ctx context.Context) ([]dto.TimesheetEntry, error) {
	entries, err := s.repo.Entry.List(ctx)
	if err != nil {
		s.logger.Error("列出工时记录失败", zap.Error(err))
		return nil, err
	}
	return toEntryResponses(entries), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *timesheetService) GetByID(ctx context.Context, id uint) (*dto.TimesheetEntry, error) {
	entry, err := s.getEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	return toEntryResponse(entry), nil
}

// ────────────────────── ListByWeek ──────────────────────

func (s *timesheetService) ListByWeek(ctx context.Context, weekStart string) ([]dto.TimesheetEntry, error) {
	start, err := model.ParseDate(weekStart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntryInvalid, err)
	}
	key := start.String()

	if cached, ok := s.readWeekCache(ctx, key); ok {
		return cached, nil
	}

	entries, err := s.repo.Entry.ListByRange(ctx, start, start.AddDays(7))
	if err != nil {
		s.logger.Error("按周查询工时记录失败", zap.String("week_start", key), zap.Error(err))
		return nil, err
	}

	result := toEntryResponses(entries)
	s.writeWeekCache(ctx, key, result)
	return result, nil
}

// ────────────────────── Save ──────────────────────

func (s *timesheetService) Save(ctx context.Context, req *dto.TimesheetEntry) (*dto.TimesheetEntry, bool, error) {
	entry, err := fromEntryRequest(req)
	if err != nil {
		return nil, false, err
	}
	if err := s.checkEmployee(ctx, entry.EmployeeID); err != nil {
		return nil, false, err
	}

	saved, created, err := s.repo.Entry.UpsertByDate(ctx, entry)
	if err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, false, fmt.Errorf("%w: 关联的员工不存在", ErrEntryInvalid)
		}
		s.logger.Error("保存工时记录失败", zap.String("date", entry.Date.String()), zap.Error(err))
		return nil, false, err
	}

	s.invalidateWeeks(ctx, saved.Date)
	return toEntryResponse(saved), created, nil
}

// ────────────────────── Update ──────────────────────

func (s *timesheetService) Update(ctx context.Context, id uint, req *dto.TimesheetEntry) error {
	if req.ID != id {
		return ErrEntryIDMismatch
	}
	entry, err := fromEntryRequest(req)
	if err != nil {
		return err
	}
	entry.ID = id

	existing, err := s.getEntry(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkEmployee(ctx, entry.EmployeeID); err != nil {
		return err
	}

	if err := s.repo.Entry.Update(ctx, entry); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return fmt.Errorf("%w: 关联的员工不存在", ErrEntryInvalid)
		}
		s.logger.Error("更新工时记录失败", zap.Uint("id", id), zap.Error(err))
		return err
	}

	s.invalidateWeeks(ctx, existing.Date, entry.Date)
	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *timesheetService) Delete(ctx context.Context, id uint) error {
	existing, err := s.getEntry(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Entry.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryNotFound
		}
		s.logger.Error("删除工时记录失败", zap.Uint("id", id), zap.Error(err))
		return err
	}

	s.invalidateWeeks(ctx, existing.Date)
	return nil
}

// ────────────────────── ListByEmployee ──────────────────────

func (s *timesheetService) ListByEmployee(ctx context.Context, employeeID uint) ([]dto.TimesheetEntry, error) {
	if _, err := s.repo.Employee.GetByID(ctx, employeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		s.logger.Error("查询员工失败", zap.Uint("employee_id", employeeID), zap.Error(err))
		return nil, err
	}

	entries, err := s.repo.Entry.ListByEmployee(ctx, employeeID)
	if err != nil {
		s.logger.Error("按员工查询工时记录失败", zap.Uint("employee_id", employeeID), zap.Error(err))
		return nil, err
	}
	return toEntryResponses(entries), nil
}

// ── 内部辅助方法 ──

func (s *timesheetService) getEntry(ctx context.Context, id uint) (*model.TimesheetEntry, error) {
	entry, err := s.repo.Entry.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		s.logger.Error("查询工时记录失败", zap.Uint("id", id), zap.Error(err))
		return nil, err
	}
	return entry, nil
}

// checkEmployee 关联的员工必须存在；未关联时跳过
func (s *timesheetService) checkEmployee(ctx context.Context, employeeID *uint) error {
	if employeeID == nil {
		return nil
	}
	if _, err := s.repo.Employee.GetByID(ctx, *employeeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: employeeId %d 不存在", ErrEntryInvalid, *employeeID)
		}
		s.logger.Error("查询员工失败", zap.Uint("employee_id", *employeeID), zap.Error(err))
		return err
	}
	return nil
}

func (s *timesheetService) readWeekCache(ctx context.Context, key string) ([]dto.TimesheetEntry, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, err := s.cache.GetWeek(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.logger.Warn("读取周缓存失败", zap.String("week_start", key), zap.Error(err))
		}
		return nil, false
	}
	var entries []dto.TimesheetEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		s.logger.Warn("周缓存内容损坏", zap.String("week_start", key), zap.Error(err))
		return nil, false
	}
	return entries, true
}

func (s *timesheetService) writeWeekCache(ctx context.Context, key string, entries []dto.TimesheetEntry) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.cache.SetWeek(ctx, key, payload); err != nil {
		s.logger.Warn("写入周缓存失败", zap.String("week_start", key), zap.Error(err))
	}
}

// invalidateWeeks 清除包含给定日期的所有周缓存：任何周起始日都可能被客户端使用，
// 因此每个日期对应 date-6 .. date 共 7 个键
func (s *timesheetService) invalidateWeeks(ctx context.Context, dates ...model.Date) {
	if s.cache == nil {
		return
	}
	seen := make(map[string]bool)
	var keys []string
	for _, d := range dates {
		for i := 0; i < 7; i++ {
			k := d.AddDays(-i).String()
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	if err := s.cache.InvalidateWeeks(ctx, keys...); err != nil {
		s.logger.Warn("清除周缓存失败", zap.Strings("week_starts", keys), zap.Error(err))
	}
}

// fromEntryRequest 校验必填字段并转换为模型
func fromEntryRequest(req *dto.TimesheetEntry) (*model.TimesheetEntry, error) {
	if req.Date == "" || req.StartTime == "" || req.EndTime == "" {
		return nil, fmt.Errorf("%w: date、startTime、endTime 为必填项", ErrEntryInvalid)
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntryInvalid, err)
	}
	start, err := model.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntryInvalid, err)
	}
	end, err := model.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntryInvalid, err)
	}

	return &model.TimesheetEntry{
		ID:            req.ID,
		Date:          date,
		StartTime:     start,
		EndTime:       end,
		OdometerStart: req.OdometerStart,
		OdometerEnd:   req.OdometerEnd,
		EmployeeID:    req.EmployeeID,
	}, nil
}

func toEntryResponse(e *model.TimesheetEntry) *dto.TimesheetEntry {
	return &dto.TimesheetEntry{
		ID:            e.ID,
		Date:          e.Date.String(),
		StartTime:     e.StartTime.String(),
		EndTime:       e.EndTime.String(),
		OdometerStart: e.OdometerStart,
		OdometerEnd:   e.OdometerEnd,
		EmployeeID:    e.EmployeeID,
		HoursWorked:   e.HoursWorked(),
		Kilometres:    e.Kilometres(),
	}
}

func toEntryResponses(entries []model.TimesheetEntry) []dto.TimesheetEntry {
	result := make([]dto.TimesheetEntry, 0, len(entries))
	for i := range entries {
		result = append(result, *toEntryResponse(&entries[i]))
	}
	return result
}
