package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/O-B-I-s/TimeTracker/internal/model"
)

// TimesheetEntryRepository 工时记录数据访问接口
type TimesheetEntryRepository interface {
	List(ctx context.Context) ([]model.TimesheetEntry, error)
	GetByID(ctx context.Context, id uint) (*model.TimesheetEntry, error)
	// ListByRange 查询 [from, to) 区间内的记录，按日期升序
	ListByRange(ctx context.Context, from, to model.Date) ([]model.TimesheetEntry, error)
	ListByEmployee(ctx context.Context, employeeID uint) ([]model.TimesheetEntry, error)
	// UpsertByDate 同日期已有记录则覆盖时间与里程，否则新建；created 表示是否新建
	UpsertByDate(ctx context.Context, entry *model.TimesheetEntry) (result *model.TimesheetEntry, created bool, err error)
	Update(ctx context.Context, entry *model.TimesheetEntry) error
	Delete(ctx context.Context, id uint) error
}

type timesheetEntryRepo struct {
	db *gorm.DB
}

// NewTimesheetEntryRepo 创建 TimesheetEntryRepository 实例
func NewTimesheetEntryRepo(db *gorm.DB) TimesheetEntryRepository {
	return &timesheetEntryRepo{db: db}
}

func (r *timesheetEntryRepo) List(ctx context.Context) ([]model.TimesheetEntry, error) {
	var entries []model.TimesheetEntry
	err := r.db.WithContext(ctx).
		Order("date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *timesheetEntryRepo) GetByID(ctx context.Context, id uint) (*model.TimesheetEntry, error) {
	var entry model.TimesheetEntry
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *timesheetEntryRepo) ListByRange(ctx context.Context, from, to model.Date) ([]model.TimesheetEntry, error) {
	var entries []model.TimesheetEntry
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Order("date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *timesheetEntryRepo) ListByEmployee(ctx context.Context, employeeID uint) ([]model.TimesheetEntry, error) {
	var entries []model.TimesheetEntry
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *timesheetEntryRepo) UpsertByDate(ctx context.Context, entry *model.TimesheetEntry) (*model.TimesheetEntry, bool, error) {
	var (
		result  *model.TimesheetEntry
		created bool
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Find 而非 First：日期尚无记录属正常路径，不应产生 record not found 日志
		var existing model.TimesheetEntry
		found := tx.Where("date = ?", entry.Date).
			Order("id ASC").
			Limit(1).
			Find(&existing)
		if found.Error != nil {
			return found.Error
		}

		if found.RowsAffected == 0 {
			entry.ID = 0
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
			result, created = entry, true
			return nil
		}

		existing.StartTime = entry.StartTime
		existing.EndTime = entry.EndTime
		existing.OdometerStart = entry.OdometerStart
		existing.OdometerEnd = entry.OdometerEnd
		if entry.EmployeeID != nil {
			existing.EmployeeID = entry.EmployeeID
		}
		// Save 写回全部字段，nil 里程会覆盖旧值
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		result = &existing
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

func (r *timesheetEntryRepo) Update(ctx context.Context, entry *model.TimesheetEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.TimesheetEntry{}).
			Where("id = ?", entry.ID).
			Select("date", "start_time", "end_time", "odometer_start", "odometer_end", "employee_id", "updated_at").
			Updates(entry)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *timesheetEntryRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.TimesheetEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
