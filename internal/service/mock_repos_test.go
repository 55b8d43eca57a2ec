package service

import (
	"context"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/O-B-I-s/TimeTracker/internal/model"
	"github.com/O-B-I-s/TimeTracker/internal/repository"
	"github.com/O-B-I-s/TimeTracker/pkg/redis"
)

// ── Mock TimesheetEntryRepository ──

type mockEntryRepo struct {
	entries map[uint]*model.TimesheetEntry
	nextID  uint
	// writeErr 非空时所有写操作返回该错误
	writeErr error
	writes   int
}

func newMockEntryRepo() *mockEntryRepo {
	return &mockEntryRepo{entries: make(map[uint]*model.TimesheetEntry), nextID: 1}
}

func (m *mockEntryRepo) sorted(filter func(*model.TimesheetEntry) bool) []model.TimesheetEntry {
	var result []model.TimesheetEntry
	for _, e := range m.entries {
		if filter == nil || filter(e) {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date.Time) {
			return result[i].Date.Before(result[j].Date.Time)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *mockEntryRepo) List(_ context.Context) ([]model.TimesheetEntry, error) {
	return m.sorted(nil), nil
}

func (m *mockEntryRepo) GetByID(_ context.Context, id uint) (*model.TimesheetEntry, error) {
	if e, ok := m.entries[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEntryRepo) ListByRange(_ context.Context, from, to model.Date) ([]model.TimesheetEntry, error) {
	return m.sorted(func(e *model.TimesheetEntry) bool {
		return !e.Date.Before(from.Time) && e.Date.Before(to.Time)
	}), nil
}

func (m *mockEntryRepo) ListByEmployee(_ context.Context, employeeID uint) ([]model.TimesheetEntry, error) {
	return m.sorted(func(e *model.TimesheetEntry) bool {
		return e.EmployeeID != nil && *e.EmployeeID == employeeID
	}), nil
}

func (m *mockEntryRepo) UpsertByDate(_ context.Context, entry *model.TimesheetEntry) (*model.TimesheetEntry, bool, error) {
	if m.writeErr != nil {
		return nil, false, m.writeErr
	}
	m.writes++
	for _, e := range m.sorted(nil) {
		if e.Date.Equal(entry.Date.Time) {
			existing := m.entries[e.ID]
			existing.StartTime = entry.StartTime
			existing.EndTime = entry.EndTime
			existing.OdometerStart = entry.OdometerStart
			existing.OdometerEnd = entry.OdometerEnd
			if entry.EmployeeID != nil {
				existing.EmployeeID = entry.EmployeeID
			}
			cp := *existing
			return &cp, false, nil
		}
	}
	entry.ID = m.nextID
	m.nextID++
	cp := *entry
	m.entries[entry.ID] = &cp
	return entry, true, nil
}

func (m *mockEntryRepo) Update(_ context.Context, entry *model.TimesheetEntry) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.entries[entry.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.writes++
	cp := *entry
	m.entries[entry.ID] = &cp
	return nil
}

func (m *mockEntryRepo) Delete(_ context.Context, id uint) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	if _, ok := m.entries[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.writes++
	delete(m.entries, id)
	return nil
}

// ── Mock EmployeeRepository ──

type mockEmployeeRepo struct {
	employees map[uint]*model.Employee
	nextID    uint
}

func newMockEmployeeRepo() *mockEmployeeRepo {
	return &mockEmployeeRepo{employees: make(map[uint]*model.Employee), nextID: 1}
}

func (m *mockEmployeeRepo) Create(_ context.Context, emp *model.Employee) error {
	emp.ID = m.nextID
	m.nextID++
	cp := *emp
	m.employees[emp.ID] = &cp
	return nil
}

func (m *mockEmployeeRepo) GetByID(_ context.Context, id uint) (*model.Employee, error) {
	if e, ok := m.employees[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEmployeeRepo) List(_ context.Context) ([]model.Employee, error) {
	var result []model.Employee
	for _, e := range m.employees {
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ── Mock WeekCache ──

type mockWeekCache struct {
	mu          sync.Mutex
	data        map[string][]byte
	gets        int
	invalidated []string
}

func newMockWeekCache() *mockWeekCache {
	return &mockWeekCache{data: make(map[string][]byte)}
}

func (m *mockWeekCache) GetWeek(_ context.Context, weekStart string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	b, ok := m.data[weekStart]
	if !ok {
		return nil, redis.ErrCacheMiss
	}
	return b, nil
}

func (m *mockWeekCache) SetWeek(_ context.Context, weekStart string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[weekStart] = payload
	return nil
}

func (m *mockWeekCache) InvalidateWeeks(_ context.Context, weekStarts ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ws := range weekStarts {
		delete(m.data, ws)
		m.invalidated = append(m.invalidated, ws)
	}
	return nil
}

// ── 测试辅助 ──

func newMockRepository() (*repository.Repository, *mockEntryRepo, *mockEmployeeRepo) {
	entryRepo := newMockEntryRepo()
	empRepo := newMockEmployeeRepo()
	return &repository.Repository{
		Entry:    entryRepo,
		Employee: empRepo,
	}, entryRepo, empRepo
}
