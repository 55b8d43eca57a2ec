package viewmodel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/O-B-I-s/TimeTracker/internal/client"
	"github.com/O-B-I-s/TimeTracker/internal/dto"
)

// fakeAPI 内存实现，记录调用
type fakeAPI struct {
	mu      sync.Mutex
	entries map[string]dto.TimesheetEntry
	nextID  uint
	err     error
	calls   []string

	exportName string

	// hold 命中的调用在 entered 上通知后阻塞，直到 release 关闭
	hold    string
	entered chan struct{}
	release chan struct{}
}

// holdCall 让标签为 label 的下一次调用停在请求中途
func (f *fakeAPI) holdCall(label string) {
	f.hold = label
	f.entered = make(chan struct{})
	f.release = make(chan struct{})
}

func (f *fakeAPI) wait(label string) {
	f.mu.Lock()
	held := f.hold != "" && f.hold == label
	if held {
		f.hold = ""
	}
	f.mu.Unlock()
	if held {
		close(f.entered)
		<-f.release
	}
}

func newFakeAPI(entries ...dto.TimesheetEntry) *fakeAPI {
	f := &fakeAPI{entries: make(map[string]dto.TimesheetEntry), nextID: 100}
	for _, e := range entries {
		f.entries[e.Date] = e
	}
	return f
}

func (f *fakeAPI) ListWeek(_ context.Context, weekStart time.Time) ([]dto.TimesheetEntry, error) {
	f.wait("list " + weekStart.Format("2006-01-02"))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list "+weekStart.Format("2006-01-02"))
	if f.err != nil {
		return nil, f.err
	}
	var out []dto.TimesheetEntry
	for i := 0; i < 7; i++ {
		if e, ok := f.entries[weekStart.AddDate(0, 0, i).Format("2006-01-02")]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAPI) Create(_ context.Context, entry *dto.TimesheetEntry) (*dto.TimesheetEntry, error) {
	f.wait("create " + entry.Date)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create "+entry.Date)
	if f.err != nil {
		return nil, f.err
	}
	saved := *entry
	saved.ID = f.nextID
	f.nextID++
	f.entries[saved.Date] = saved
	return &saved, nil
}

func (f *fakeAPI) Update(_ context.Context, id uint, entry *dto.TimesheetEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update "+entry.Date)
	if f.err != nil {
		return f.err
	}
	f.entries[entry.Date] = *entry
	return nil
}

func (f *fakeAPI) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete")
	if f.err != nil {
		return f.err
	}
	for k, e := range f.entries {
		if e.ID == id {
			delete(f.entries, k)
		}
	}
	return nil
}

func (f *fakeAPI) ExportCurrentWeek(_ context.Context, _ client.ExportParams) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "export")
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("PK"), f.exportName, nil
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// 2025-01-08 周三，所在周（周日起）为 2025-01-05 .. 2025-01-11
func fixedNow() time.Time { return time.Date(2025, 1, 8, 10, 0, 0, 0, time.UTC) }

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func newView(api API) *WeekView {
	return NewWeekView(api, WithNow(fixedNow), WithWeekStart(time.Sunday))
}

func TestWeekView_InitialWeek(t *testing.T) {
	v := newView(newFakeAPI())
	assert.Equal(t, "2025-01-05", v.WeekStart().Format("2006-01-02"))

	days := v.Days()
	assert.Equal(t, "2025-01-05", days[0].Format("2006-01-02"))
	assert.Equal(t, "2025-01-11", days[6].Format("2006-01-02"))

	monday := NewWeekView(newFakeAPI(), WithNow(fixedNow), WithWeekStart(time.Monday))
	assert.Equal(t, "2025-01-06", monday.WeekStart().Format("2006-01-02"))
}

func TestWeekView_Load(t *testing.T) {
	api := newFakeAPI(dto.TimesheetEntry{ID: 1, Date: "2025-01-06", StartTime: "09:00", EndTime: "17:30"})
	v := newView(api)

	require.NoError(t, v.Load(context.Background()))
	s := v.Slot(day("2025-01-06"))
	assert.Equal(t, Viewing, s.State)
	assert.Equal(t, uint(1), s.Entry.ID)
	assert.InDelta(t, 8.5, v.Hours(day("2025-01-06")), 1e-9)
	assert.Equal(t, Absent, v.Slot(day("2025-01-07")).State)
	assert.False(t, v.Loading())
}

func TestWeekView_LoadFailure(t *testing.T) {
	api := newFakeAPI()
	api.err = errors.New("connection refused")
	v := newView(api)

	err := v.Load(context.Background())
	assert.ErrorIs(t, err, ErrActionFailure)
	assert.Equal(t, Message{Kind: MessageError, Text: MsgLoadFailed}, v.Message())
	assert.False(t, v.Loading())
}

func TestWeekView_StartEditAndCancel(t *testing.T) {
	api := newFakeAPI(dto.TimesheetEntry{ID: 1, Date: "2025-01-06", StartTime: "08:00", EndTime: "16:00"})
	v := newView(api)
	require.NoError(t, v.Load(context.Background()))

	// absent → editing，默认草稿
	require.NoError(t, v.StartEdit(day("2025-01-07")))
	s := v.Slot(day("2025-01-07"))
	assert.Equal(t, Editing, s.State)
	assert.Equal(t, DraftStart, s.Entry.StartTime)
	assert.Equal(t, DraftEnd, s.Entry.EndTime)
	assert.Zero(t, s.Entry.ID)

	// 未保存草稿取消 → absent
	v.CancelEdit(day("2025-01-07"))
	assert.Equal(t, Absent, v.Slot(day("2025-01-07")).State)

	// viewing → editing → 取消 → viewing
	require.NoError(t, v.StartEdit(day("2025-01-06")))
	assert.Equal(t, Editing, v.Slot(day("2025-01-06")).State)
	v.CancelEdit(day("2025-01-06"))
	assert.Equal(t, Viewing, v.Slot(day("2025-01-06")).State)

	assert.ErrorIs(t, v.StartEdit(day("2025-01-20")), ErrOutsideWeek)
	assert.Equal(t, 1, api.callCount(), "编辑状态切换不应发请求")
}

func TestWeekView_UpdateDraft(t *testing.T) {
	v := newView(newFakeAPI())
	require.NoError(t, v.Load(context.Background()))

	assert.ErrorIs(t, v.UpdateDraft(day("2025-01-07"), func(*dto.TimesheetEntry) {}), ErrNotEditing)

	require.NoError(t, v.StartEdit(day("2025-01-07")))
	odoStart, odoEnd := 1000, 1120
	require.NoError(t, v.UpdateDraft(day("2025-01-07"), func(e *dto.TimesheetEntry) {
		e.StartTime = "07:45"
		e.EndTime = "16:15"
		e.OdometerStart = &odoStart
		e.OdometerEnd = &odoEnd
		e.Date = "1999-01-01"
	}))

	s := v.Slot(day("2025-01-07"))
	assert.Equal(t, "2025-01-07", s.Entry.Date, "日期不可通过草稿修改")
	assert.InDelta(t, 8.5, v.Hours(day("2025-01-07")), 1e-9)
	require.NotNil(t, v.Kilometres(day("2025-01-07")))
	assert.Equal(t, 120, *v.Kilometres(day("2025-01-07")))
}

func TestWeekView_SaveCreatesThenUpdates(t *testing.T) {
	api := newFakeAPI()
	v := newView(api)
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))

	require.NoError(t, v.StartEdit(day("2025-01-07")))
	require.NoError(t, v.Save(ctx, day("2025-01-07")))

	s := v.Slot(day("2025-01-07"))
	assert.Equal(t, Viewing, s.State)
	assert.Equal(t, uint(100), s.Entry.ID, "应以服务端返回的记录替换草稿")
	assert.Equal(t, Message{Kind: MessageSuccess, Text: MsgSaved}, v.Message())

	require.NoError(t, v.StartEdit(day("2025-01-07")))
	require.NoError(t, v.UpdateDraft(day("2025-01-07"), func(e *dto.TimesheetEntry) { e.EndTime = "18:00" }))
	require.NoError(t, v.Save(ctx, day("2025-01-07")))

	assert.Equal(t, []string{"list 2025-01-05", "create 2025-01-07", "update 2025-01-07"}, api.calls)
	assert.Equal(t, "18:00", api.entries["2025-01-07"].EndTime)
}

func TestWeekView_SaveFailureKeepsState(t *testing.T) {
	api := newFakeAPI()
	v := newView(api)
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))
	require.NoError(t, v.StartEdit(day("2025-01-07")))

	api.err = errors.New("500")
	err := v.Save(ctx, day("2025-01-07"))
	assert.ErrorIs(t, err, ErrActionFailure)

	s := v.Slot(day("2025-01-07"))
	assert.Equal(t, Editing, s.State)
	assert.Zero(t, s.Entry.ID)
	assert.Equal(t, Message{Kind: MessageError, Text: MsgSaveFailed}, v.Message())

	assert.ErrorIs(t, v.Save(ctx, day("2025-01-09")), ErrNoEntry)
}

func TestWeekView_Delete(t *testing.T) {
	api := newFakeAPI(dto.TimesheetEntry{ID: 1, Date: "2025-01-06", StartTime: "09:00", EndTime: "17:00"})
	v := newView(api)
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))

	// 未保存草稿不发请求
	require.NoError(t, v.StartEdit(day("2025-01-07")))
	assert.ErrorIs(t, v.Delete(ctx, day("2025-01-07")), ErrUnsaved)

	require.NoError(t, v.Delete(ctx, day("2025-01-06")))
	assert.Equal(t, Absent, v.Slot(day("2025-01-06")).State)
	assert.Equal(t, Message{Kind: MessageSuccess, Text: MsgDeleted}, v.Message())
	assert.Equal(t, []string{"list 2025-01-05", "delete"}, api.calls)
}

func TestWeekView_DeleteFailure(t *testing.T) {
	api := newFakeAPI(dto.TimesheetEntry{ID: 1, Date: "2025-01-06", StartTime: "09:00", EndTime: "17:00"})
	v := newView(api)
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))

	api.err = errors.New("boom")
	assert.ErrorIs(t, v.Delete(ctx, day("2025-01-06")), ErrActionFailure)
	assert.Equal(t, Viewing, v.Slot(day("2025-01-06")).State)
	assert.Equal(t, MsgDeleteFailed, v.Message().Text)
}

func TestWeekView_NavigationDiscardsState(t *testing.T) {
	api := newFakeAPI(
		dto.TimesheetEntry{ID: 1, Date: "2025-01-06", StartTime: "09:00", EndTime: "17:00"},
		dto.TimesheetEntry{ID: 2, Date: "2025-01-13", StartTime: "09:00", EndTime: "17:00"},
	)
	v := newView(api)
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))
	require.NoError(t, v.StartEdit(day("2025-01-07")))

	require.NoError(t, v.NextWeek(ctx))
	assert.Equal(t, "2025-01-12", v.WeekStart().Format("2006-01-02"))
	assert.Equal(t, Viewing, v.Slot(day("2025-01-13")).State)
	assert.Equal(t, Absent, v.Slot(day("2025-01-07")).State)

	require.NoError(t, v.PreviousWeek(ctx))
	assert.Equal(t, "2025-01-05", v.WeekStart().Format("2006-01-02"))
	assert.Equal(t, Absent, v.Slot(day("2025-01-07")).State, "翻周后草稿应丢弃")
	assert.Equal(t, Viewing, v.Slot(day("2025-01-06")).State)

	require.NoError(t, v.GoTo(ctx, day("2025-02-19")))
	assert.Equal(t, "2025-02-16", v.WeekStart().Format("2006-01-02"))
}

func TestWeekView_SaveAfterNavigationLeavesNewWeekAlone(t *testing.T) {
	api := newFakeAPI(dto.TimesheetEntry{ID: 2, Date: "2025-01-13", StartTime: "09:00", EndTime: "17:00"})
	v := newView(api)
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))
	require.NoError(t, v.StartEdit(day("2025-01-07")))

	api.holdCall("create 2025-01-07")
	done := make(chan error, 1)
	go func() { done <- v.Save(ctx, day("2025-01-07")) }()
	<-api.entered

	require.NoError(t, v.NextWeek(ctx))
	close(api.release)
	require.NoError(t, <-done)

	assert.Equal(t, "2025-01-12", v.WeekStart().Format("2006-01-02"))
	v.mu.Lock()
	_, leaked := v.slots["2025-01-07"]
	slotCount := len(v.slots)
	v.mu.Unlock()
	assert.False(t, leaked, "旧周的保存结果不应写入新周")
	assert.Equal(t, 1, slotCount)
	assert.Equal(t, Viewing, v.Slot(day("2025-01-13")).State)
	assert.Equal(t, MsgSaved, v.Message().Text)

	// 服务端已保存，翻回原周后可见
	require.NoError(t, v.PreviousWeek(ctx))
	s := v.Slot(day("2025-01-07"))
	assert.Equal(t, Viewing, s.State)
	assert.Equal(t, uint(100), s.Entry.ID)
}

func TestWeekView_StaleLoadIgnored(t *testing.T) {
	api := newFakeAPI(
		dto.TimesheetEntry{ID: 1, Date: "2025-01-06", StartTime: "09:00", EndTime: "17:00"},
		dto.TimesheetEntry{ID: 2, Date: "2025-01-13", StartTime: "09:00", EndTime: "17:00"},
	)
	v := newView(api)
	ctx := context.Background()

	api.holdCall("list 2025-01-05")
	done := make(chan error, 1)
	go func() { done <- v.Load(ctx) }()
	<-api.entered

	require.NoError(t, v.NextWeek(ctx))
	close(api.release)
	require.NoError(t, <-done)

	assert.Equal(t, "2025-01-12", v.WeekStart().Format("2006-01-02"))
	assert.Equal(t, Absent, v.Slot(day("2025-01-06")).State, "过期的加载结果应丢弃")
	assert.Equal(t, Viewing, v.Slot(day("2025-01-13")).State)
}

func TestWeekView_Export(t *testing.T) {
	api := newFakeAPI()
	v := newView(api)
	ctx := context.Background()

	_, _, err := v.Export(ctx, client.ExportParams{Name: "A", EmployeeID: "1", Location: "X"})
	assert.ErrorIs(t, err, ErrExportFields)
	assert.Equal(t, MsgExportFields, v.Message().Text)
	assert.Zero(t, api.callCount(), "参数不全时不应发请求")

	params := client.ExportParams{Name: "A", EmployeeID: "1", Location: "X", Department: "Y"}

	api.exportName = "TimeEntries_Week_20250105.xlsx"
	data, name, err := v.Export(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, []byte("PK"), data)
	assert.Equal(t, "TimeEntries_Week_20250105.xlsx", name)
	assert.Equal(t, MsgExported, v.Message().Text)

	// 服务端未给出文件名时按显示周命名
	api.exportName = ""
	_, name, err = v.Export(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, "TimeEntries_Week_20250105.xlsx", name)

	api.err = errors.New("400")
	_, _, err = v.Export(ctx, params)
	assert.ErrorIs(t, err, ErrActionFailure)
	assert.Equal(t, MsgExportFailed, v.Message().Text)
}

func TestWeekView_MessageAutoClears(t *testing.T) {
	api := newFakeAPI()
	v := NewWeekView(api, WithNow(fixedNow), WithMessageTTL(20*time.Millisecond))
	ctx := context.Background()
	require.NoError(t, v.Load(ctx))
	require.NoError(t, v.StartEdit(day("2025-01-07")))
	require.NoError(t, v.Save(ctx, day("2025-01-07")))

	assert.Equal(t, MsgSaved, v.Message().Text)
	assert.Eventually(t, func() bool {
		return v.Message().Kind == MessageNone
	}, time.Second, 5*time.Millisecond)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "absent", Absent.String())
	assert.Equal(t, "viewing", Viewing.String())
	assert.Equal(t, "editing", Editing.String())
}
