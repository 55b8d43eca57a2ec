package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/O-B-I-s/TimeTracker/internal/dto"
	pkgerrors "github.com/O-B-I-s/TimeTracker/pkg/errors"
)

// ── 测试辅助 ──

func setupTestTimesheetService() (TimesheetService, *mockEntryRepo, *mockEmployeeRepo, *mockWeekCache) {
	repo, entryRepo, empRepo := newMockRepository()
	cache := newMockWeekCache()
	svc := NewTimesheetService(repo, cache, zap.NewNop())
	return svc, entryRepo, empRepo, cache
}

func intPtr(v int) *int { return &v }

func entryReq(date, start, end string) *dto.TimesheetEntry {
	return &dto.TimesheetEntry{Date: date, StartTime: start, EndTime: end}
}

// ── Save ──

func TestTimesheetService_Save_DerivedFields(t *testing.T) {
	svc, _, _, _ := setupTestTimesheetService()
	ctx := context.Background()

	tests := []struct {
		name      string
		req       dto.TimesheetEntry
		wantHours float64
		wantKm    *int
	}{
		{
			name:      "八个半小时",
			req:       dto.TimesheetEntry{Date: "2025-01-05", StartTime: "09:00", EndTime: "17:30"},
			wantHours: 8.5,
		},
		{
			name:      "结束早于开始截断为 0",
			req:       dto.TimesheetEntry{Date: "2025-01-06", StartTime: "17:00", EndTime: "09:00"},
			wantHours: 0,
		},
		{
			name:      "里程",
			req:       dto.TimesheetEntry{Date: "2025-01-07", StartTime: "09:00", EndTime: "17:00", OdometerStart: intPtr(1000), OdometerEnd: intPtr(1120)},
			wantHours: 8,
			wantKm:    intPtr(120),
		},
		{
			name:      "只有起始里程",
			req:       dto.TimesheetEntry{Date: "2025-01-08", StartTime: "09:00", EndTime: "17:00", OdometerStart: intPtr(1000)},
			wantHours: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, created, err := svc.Save(ctx, &tt.req)
			require.NoError(t, err)
			assert.True(t, created, "新日期应新建记录")
			assert.InDelta(t, tt.wantHours, got.HoursWorked, 1e-9)
			assert.Equal(t, tt.wantKm, got.Kilometres)
		})
	}
}

func TestTimesheetService_Save_UpsertIsIdempotentPerDate(t *testing.T) {
	svc, entryRepo, _, _ := setupTestTimesheetService()
	ctx := context.Background()

	first, created, err := svc.Save(ctx, entryReq("2025-01-05", "09:00", "17:00"))
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.Save(ctx, entryReq("2025-01-05", "10:00", "12:00"))
	require.NoError(t, err)
	assert.False(t, created, "同日期第二次保存不应新建")
	assert.Equal(t, first.ID, second.ID, "应返回原记录 ID")
	require.Len(t, entryRepo.entries, 1)
	assert.Equal(t, "10:00", second.StartTime)
	assert.Equal(t, "12:00", second.EndTime)
	assert.Equal(t, 2.0, second.HoursWorked)
}

func TestTimesheetService_Save_MissingRequired(t *testing.T) {
	svc, entryRepo, _, _ := setupTestTimesheetService()

	tests := []dto.TimesheetEntry{
		{StartTime: "09:00", EndTime: "17:00"},
		{Date: "2025-01-05", EndTime: "17:00"},
		{Date: "2025-01-05", StartTime: "09:00"},
		{Date: "not-a-date", StartTime: "09:00", EndTime: "17:00"},
		{Date: "2025-01-05", StartTime: "9am", EndTime: "17:00"},
	}
	for _, req := range tests {
		req := req
		_, _, err := svc.Save(context.Background(), &req)
		assert.ErrorIs(t, err, ErrEntryInvalid, "%+v", req)
		assert.True(t, pkgerrors.IsBadRequest(err), "%+v", req)
	}
	assert.Zero(t, entryRepo.writes, "校验失败不应写库")
}

// ── ListByWeek ──

func TestTimesheetService_ListByWeek_HalfOpenAndSorted(t *testing.T) {
	svc, _, _, _ := setupTestTimesheetService()
	ctx := context.Background()

	for _, d := range []string{"2025-01-12", "2025-01-07", "2025-01-04", "2025-01-05", "2025-01-11"} {
		_, _, err := svc.Save(ctx, entryReq(d, "09:00", "17:00"))
		require.NoError(t, err, d)
	}

	got, err := svc.ListByWeek(ctx, "2025-01-05")
	require.NoError(t, err)
	var dates []string
	for _, e := range got {
		dates = append(dates, e.Date)
	}
	assert.Equal(t, []string{"2025-01-05", "2025-01-07", "2025-01-11"}, dates)
}

func TestTimesheetService_ListByWeek_InvalidDate(t *testing.T) {
	svc, _, _, _ := setupTestTimesheetService()

	_, err := svc.ListByWeek(context.Background(), "2025-13-45")
	assert.ErrorIs(t, err, ErrEntryInvalid)
}

func TestTimesheetService_ListByWeek_CacheInvalidatedOnWrite(t *testing.T) {
	svc, _, _, cache := setupTestTimesheetService()
	ctx := context.Background()

	_, _, err := svc.Save(ctx, entryReq("2025-01-06", "09:00", "17:00"))
	require.NoError(t, err)
	first, err := svc.ListByWeek(ctx, "2025-01-05")
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Contains(t, cache.data, "2025-01-05", "首次查询后应写入缓存")

	// 写入同周另一天，缓存必须失效
	_, _, err = svc.Save(ctx, entryReq("2025-01-08", "09:00", "17:00"))
	require.NoError(t, err)
	assert.NotContains(t, cache.data, "2025-01-05", "写入后包含该日期的周缓存应被清除")

	second, err := svc.ListByWeek(ctx, "2025-01-05")
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestTimesheetService_NilCache(t *testing.T) {
	repo, _, _ := newMockRepository()
	svc := NewTimesheetService(repo, nil, zap.NewNop())
	ctx := context.Background()

	_, _, err := svc.Save(ctx, entryReq("2025-01-06", "09:00", "17:00"))
	require.NoError(t, err)
	got, err := svc.ListByWeek(ctx, "2025-01-05")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// ── GetByID / Update / Delete ──

func TestTimesheetService_GetByID_NotFound(t *testing.T) {
	svc, _, _, _ := setupTestTimesheetService()

	_, err := svc.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestTimesheetService_Update_IDMismatchDoesNotMutate(t *testing.T) {
	svc, entryRepo, _, _ := setupTestTimesheetService()
	ctx := context.Background()

	saved, _, err := svc.Save(ctx, entryReq("2025-01-05", "09:00", "17:00"))
	require.NoError(t, err)
	writes := entryRepo.writes

	err = svc.Update(ctx, saved.ID, &dto.TimesheetEntry{ID: saved.ID + 1, Date: "2025-01-05", StartTime: "01:00", EndTime: "02:00"})
	require.ErrorIs(t, err, ErrEntryIDMismatch)
	assert.True(t, pkgerrors.IsBadRequest(err))
	assert.Equal(t, writes, entryRepo.writes, "ID 不一致时不应写库")

	got, err := svc.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "09:00", got.StartTime, "记录不应被修改")
}

func TestTimesheetService_Update(t *testing.T) {
	svc, _, _, cache := setupTestTimesheetService()
	ctx := context.Background()

	saved, _, err := svc.Save(ctx, entryReq("2025-01-05", "09:00", "17:00"))
	require.NoError(t, err)

	req := &dto.TimesheetEntry{ID: saved.ID, Date: "2025-01-05", StartTime: "08:00", EndTime: "18:00", OdometerStart: intPtr(5), OdometerEnd: intPtr(50)}
	require.NoError(t, svc.Update(ctx, saved.ID, req))

	got, err := svc.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.HoursWorked)
	assert.Equal(t, intPtr(45), got.Kilometres)
	assert.NotEmpty(t, cache.invalidated, "更新后应清除周缓存")

	err = svc.Update(ctx, 999, &dto.TimesheetEntry{ID: 999, Date: "2025-01-05", StartTime: "08:00", EndTime: "18:00"})
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestTimesheetService_Delete(t *testing.T) {
	svc, entryRepo, _, _ := setupTestTimesheetService()
	ctx := context.Background()

	saved, _, err := svc.Save(ctx, entryReq("2025-01-05", "09:00", "17:00"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, saved.ID))
	assert.Empty(t, entryRepo.entries, "删除后不应存在记录")
	assert.ErrorIs(t, svc.Delete(ctx, saved.ID), ErrEntryNotFound, "重复删除")
}

func TestTimesheetService_Save_RepoFailureLeavesStateUntouched(t *testing.T) {
	svc, entryRepo, _, _ := setupTestTimesheetService()
	ctx := context.Background()

	_, _, err := svc.Save(ctx, entryReq("2025-01-05", "09:00", "17:00"))
	require.NoError(t, err)

	entryRepo.writeErr = errors.New("db down")
	_, _, err = svc.Save(ctx, entryReq("2025-01-05", "01:00", "02:00"))
	require.Error(t, err, "仓储失败时应返回错误")
	assert.False(t, pkgerrors.IsBadRequest(err))

	entryRepo.writeErr = nil
	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "09:00", all[0].StartTime, "失败的保存不应改变已持久化数据")
}

// ── ListByEmployee ──

func TestTimesheetService_ListByEmployee(t *testing.T) {
	svc, _, empRepo, _ := setupTestTimesheetService()
	ctx := context.Background()

	_, err := svc.ListByEmployee(ctx, 1)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	require.NoError(t, empRepo.Create(ctx, newTestEmployee()))
	id := uint(1)
	_, _, err = svc.Save(ctx, &dto.TimesheetEntry{Date: "2025-01-05", StartTime: "09:00", EndTime: "17:00", EmployeeID: &id})
	require.NoError(t, err)
	_, _, err = svc.Save(ctx, entryReq("2025-01-06", "09:00", "17:00"))
	require.NoError(t, err)

	got, err := svc.ListByEmployee(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-01-05", got[0].Date)
}

// ── 员工关联 ──

func TestTimesheetService_UnknownEmployeeRejected(t *testing.T) {
	svc, entryRepo, _, _ := setupTestTimesheetService()
	ctx := context.Background()

	missing := uint(42)
	_, _, err := svc.Save(ctx, &dto.TimesheetEntry{Date: "2025-01-05", StartTime: "09:00", EndTime: "17:00", EmployeeID: &missing})
	require.ErrorIs(t, err, ErrEntryInvalid)
	assert.True(t, pkgerrors.IsBadRequest(err))
	assert.Zero(t, entryRepo.writes, "拒绝的请求不应写库")

	saved, _, err := svc.Save(ctx, entryReq("2025-01-05", "09:00", "17:00"))
	require.NoError(t, err)
	req := *saved
	req.EmployeeID = &missing
	assert.ErrorIs(t, svc.Update(ctx, saved.ID, &req), ErrEntryInvalid)
}

// 预检通过后员工被并发删除，由数据库外键兜底
func TestTimesheetService_ForeignKeyViolationIsBadRequest(t *testing.T) {
	svc, entryRepo, empRepo, _ := setupTestTimesheetService()
	ctx := context.Background()

	require.NoError(t, empRepo.Create(ctx, newTestEmployee()))
	id := uint(1)
	saved, _, err := svc.Save(ctx, entryReq("2025-01-05", "09:00", "17:00"))
	require.NoError(t, err)

	entryRepo.writeErr = gorm.ErrForeignKeyViolated
	_, _, err = svc.Save(ctx, &dto.TimesheetEntry{Date: "2025-01-06", StartTime: "09:00", EndTime: "17:00", EmployeeID: &id})
	assert.ErrorIs(t, err, ErrEntryInvalid)

	req := *saved
	req.EmployeeID = &id
	assert.ErrorIs(t, svc.Update(ctx, saved.ID, &req), ErrEntryInvalid)
}
