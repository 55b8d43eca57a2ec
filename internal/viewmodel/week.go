// Package viewmodel 周视图状态机：一周七天，每天处于 Absent / Viewing / Editing 之一，
// 通过 API 完成加载、保存、删除、翻周与导出
package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/O-B-I-s/TimeTracker/internal/client"
	"github.com/O-B-I-s/TimeTracker/internal/dto"
	"github.com/O-B-I-s/TimeTracker/internal/worktime"
)

// 用户可见消息
const (
	MsgLoadFailed     = "Failed to load entries"
	MsgSaveFailed     = "Failed to save entry"
	MsgDeleteFailed   = "Failed to delete entry"
	MsgExportFailed   = "Failed to export timesheet"
	MsgExportFields   = "Please fill all export fields"
	MsgSaved          = "Entry saved successfully"
	MsgDeleted        = "Entry deleted successfully"
	MsgExported       = "Timesheet exported successfully"
	DefaultMessageTTL = 3 * time.Second
)

// 默认草稿时间
const (
	DraftStart = "09:00"
	DraftEnd   = "17:00"
)

var (
	ErrNoEntry       = errors.New("该日期没有记录")
	ErrNotEditing    = errors.New("该日期不在编辑状态")
	ErrOutsideWeek   = errors.New("日期不在当前周内")
	ErrUnsaved       = errors.New("记录尚未保存")
	ErrExportFields  = errors.New(MsgExportFields)
	ErrActionFailure = errors.New("请求失败")
)

// API 视图模型依赖的服务端接口，由 client.Client 实现
type API interface {
	ListWeek(ctx context.Context, weekStart time.Time) ([]dto.TimesheetEntry, error)
	Create(ctx context.Context, entry *dto.TimesheetEntry) (*dto.TimesheetEntry, error)
	Update(ctx context.Context, id uint, entry *dto.TimesheetEntry) error
	Delete(ctx context.Context, id uint) error
	ExportCurrentWeek(ctx context.Context, p client.ExportParams) ([]byte, string, error)
}

// State 单日状态
type State int

const (
	Absent State = iota
	Viewing
	Editing
)

func (s State) String() string {
	switch s {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	default:
		return "absent"
	}
}

// DaySlot 单日状态与记录；Absent 时 Entry 为 nil
type DaySlot struct {
	State State
	Entry *dto.TimesheetEntry
}

// MessageKind 消息类型
type MessageKind int

const (
	MessageNone MessageKind = iota
	MessageSuccess
	MessageError
)

// Message 最近一次操作的结果提示
type Message struct {
	Kind MessageKind
	Text string
}

// WeekView 周视图模型，方法可并发调用；请求之间不排队也不取消
type WeekView struct {
	api    API
	logger *zap.Logger

	weekStart  time.Weekday
	messageTTL time.Duration
	now        func() time.Time

	mu       sync.Mutex
	anchor   time.Time
	slots    map[string]*DaySlot
	inflight int
	message  Message
	msgSeq   uint64
	msgTimer *time.Timer
}

// Option WeekView 可选配置
type Option func(*WeekView)

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option { return func(v *WeekView) { v.logger = l } }

// WithWeekStart 设置每周起始日，默认周日
func WithWeekStart(d time.Weekday) Option { return func(v *WeekView) { v.weekStart = d } }

// WithMessageTTL 设置提示消息自动清除间隔
func WithMessageTTL(d time.Duration) Option { return func(v *WeekView) { v.messageTTL = d } }

// WithNow 注入当前时间
func WithNow(now func() time.Time) Option { return func(v *WeekView) { v.now = now } }

// NewWeekView 创建视图模型，初始周为今天所在周
func NewWeekView(api API, opts ...Option) *WeekView {
	v := &WeekView{
		api:        api,
		logger:     zap.NewNop(),
		weekStart:  time.Sunday,
		messageTTL: DefaultMessageTTL,
		now:        time.Now,
		slots:      make(map[string]*DaySlot),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.anchor = worktime.WeekStart(v.now(), v.weekStart)
	return v
}

// ════════════════════════════════════════════════════════════
// 只读访问
// ════════════════════════════════════════════════════════════

// WeekStart 当前周起始日期
func (v *WeekView) WeekStart() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.anchor
}

// Days 当前周七天
func (v *WeekView) Days() [7]time.Time {
	return worktime.WeekDays(v.WeekStart())
}

// Slot 返回某天的状态副本
func (v *WeekView) Slot(date time.Time) DaySlot {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.slots[dateKey(date)]
	if !ok {
		return DaySlot{State: Absent}
	}
	cp := *s.Entry
	return DaySlot{State: s.State, Entry: &cp}
}

// Loading 是否有请求在途
func (v *WeekView) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inflight > 0
}

// Message 当前提示消息
func (v *WeekView) Message() Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.message
}

// Hours 某天的工时（含未保存草稿）
func (v *WeekView) Hours(date time.Time) float64 {
	s := v.Slot(date)
	if s.Entry == nil {
		return 0
	}
	return worktime.HoursWorked(s.Entry.StartTime, s.Entry.EndTime)
}

// Kilometres 某天的里程，缺少任一读数时为 nil
func (v *WeekView) Kilometres(date time.Time) *int {
	s := v.Slot(date)
	if s.Entry == nil {
		return nil
	}
	return worktime.Distance(s.Entry.OdometerStart, s.Entry.OdometerEnd)
}

// ════════════════════════════════════════════════════════════
// 加载与翻周
// ════════════════════════════════════════════════════════════

// Load 清空所有单日状态后重新拉取当前周
func (v *WeekView) Load(ctx context.Context) error {
	v.mu.Lock()
	weekStart := v.anchor
	v.slots = make(map[string]*DaySlot)
	v.inflight++
	v.mu.Unlock()

	entries, err := v.api.ListWeek(ctx, weekStart)

	v.mu.Lock()
	v.inflight--
	if err != nil {
		v.mu.Unlock()
		v.logger.Error("加载周记录失败", zap.Time("week_start", weekStart), zap.Error(err))
		v.setMessage(MessageError, MsgLoadFailed)
		return fmt.Errorf("%w: %v", ErrActionFailure, err)
	}
	// 过期的响应，更新的一次加载已接管
	if !v.anchor.Equal(weekStart) {
		v.mu.Unlock()
		return nil
	}
	for i := range entries {
		e := entries[i]
		key := e.Date
		if _, exists := v.slots[key]; exists {
			continue
		}
		v.slots[key] = &DaySlot{State: Viewing, Entry: &e}
	}
	v.mu.Unlock()
	return nil
}

// PreviousWeek 前移 7 天并重新加载
func (v *WeekView) PreviousWeek(ctx context.Context) error {
	v.shift(-7)
	return v.Load(ctx)
}

// NextWeek 后移 7 天并重新加载
func (v *WeekView) NextWeek(ctx context.Context) error {
	v.shift(7)
	return v.Load(ctx)
}

// GoTo 跳转到包含 date 的那一周并加载
func (v *WeekView) GoTo(ctx context.Context, date time.Time) error {
	v.mu.Lock()
	v.anchor = worktime.WeekStart(date, v.weekStart)
	v.mu.Unlock()
	return v.Load(ctx)
}

func (v *WeekView) shift(days int) {
	v.mu.Lock()
	v.anchor = v.anchor.AddDate(0, 0, days)
	v.mu.Unlock()
}

// ════════════════════════════════════════════════════════════
// 编辑
// ════════════════════════════════════════════════════════════

// StartEdit absent → editing（生成 09:00-17:00 草稿）；viewing → editing
func (v *WeekView) StartEdit(date time.Time) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.inWeek(date) {
		return ErrOutsideWeek
	}
	key := dateKey(date)
	s, ok := v.slots[key]
	if !ok {
		v.slots[key] = &DaySlot{
			State: Editing,
			Entry: &dto.TimesheetEntry{Date: key, StartTime: DraftStart, EndTime: DraftEnd},
		}
		return nil
	}
	s.State = Editing
	return nil
}

// UpdateDraft 修改编辑中的记录，仅 Editing 状态可用
func (v *WeekView) UpdateDraft(date time.Time, fn func(e *dto.TimesheetEntry)) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.slots[dateKey(date)]
	if !ok || s.State != Editing {
		return ErrNotEditing
	}
	id, day := s.Entry.ID, s.Entry.Date
	fn(s.Entry)
	// ID 与日期不可通过草稿修改
	s.Entry.ID, s.Entry.Date = id, day
	return nil
}

// CancelEdit 未保存草稿 → absent；已保存记录 → viewing（已做的修改不回滚，也不持久化）
func (v *WeekView) CancelEdit(date time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()
	key := dateKey(date)
	s, ok := v.slots[key]
	if !ok || s.State != Editing {
		return
	}
	if s.Entry.ID == 0 {
		delete(v.slots, key)
		return
	}
	s.State = Viewing
}

// Save 有 ID 时 PUT，否则 POST 并以返回记录替换；成功后进入 viewing，失败时状态不变
func (v *WeekView) Save(ctx context.Context, date time.Time) error {
	key := dateKey(date)

	v.mu.Lock()
	s, ok := v.slots[key]
	if !ok {
		v.mu.Unlock()
		return ErrNoEntry
	}
	entry := *s.Entry
	v.inflight++
	v.mu.Unlock()

	var saved *dto.TimesheetEntry
	var err error
	if entry.ID != 0 {
		err = v.api.Update(ctx, entry.ID, &entry)
		saved = &entry
	} else {
		saved, err = v.api.Create(ctx, &entry)
	}

	v.mu.Lock()
	v.inflight--
	if err != nil {
		v.mu.Unlock()
		v.logger.Error("保存记录失败", zap.String("date", key), zap.Error(err))
		v.setMessage(MessageError, MsgSaveFailed)
		return fmt.Errorf("%w: %v", ErrActionFailure, err)
	}
	// 请求期间已翻到别的周：新周的状态由其自身加载决定
	if v.inWeek(date) {
		v.slots[saved.Date] = &DaySlot{State: Viewing, Entry: saved}
		if saved.Date != key {
			delete(v.slots, key)
		}
	}
	v.mu.Unlock()

	v.setMessage(MessageSuccess, MsgSaved)
	return nil
}

// Delete 仅对已保存记录发起删除，成功后该日回到 absent
func (v *WeekView) Delete(ctx context.Context, date time.Time) error {
	key := dateKey(date)

	v.mu.Lock()
	s, ok := v.slots[key]
	if !ok {
		v.mu.Unlock()
		return ErrNoEntry
	}
	id := s.Entry.ID
	if id == 0 {
		v.mu.Unlock()
		return ErrUnsaved
	}
	v.inflight++
	v.mu.Unlock()

	err := v.api.Delete(ctx, id)

	v.mu.Lock()
	v.inflight--
	if err != nil {
		v.mu.Unlock()
		v.logger.Error("删除记录失败", zap.String("date", key), zap.Uint("id", id), zap.Error(err))
		v.setMessage(MessageError, MsgDeleteFailed)
		return fmt.Errorf("%w: %v", ErrActionFailure, err)
	}
	if v.inWeek(date) {
		delete(v.slots, key)
	}
	v.mu.Unlock()

	v.setMessage(MessageSuccess, MsgDeleted)
	return nil
}

// ════════════════════════════════════════════════════════════
// 导出
// ════════════════════════════════════════════════════════════

// Export 导出服务端当前周；四个字段均必填，缺失时不发请求
// 服务端未返回文件名时按当前显示周命名
func (v *WeekView) Export(ctx context.Context, p client.ExportParams) ([]byte, string, error) {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.EmployeeID) == "" ||
		strings.TrimSpace(p.Location) == "" || strings.TrimSpace(p.Department) == "" {
		v.setMessage(MessageError, MsgExportFields)
		return nil, "", ErrExportFields
	}

	v.mu.Lock()
	weekStart := v.anchor
	v.inflight++
	v.mu.Unlock()

	data, filename, err := v.api.ExportCurrentWeek(ctx, p)

	v.mu.Lock()
	v.inflight--
	v.mu.Unlock()

	if err != nil {
		v.logger.Error("导出失败", zap.Error(err))
		v.setMessage(MessageError, MsgExportFailed)
		return nil, "", fmt.Errorf("%w: %v", ErrActionFailure, err)
	}
	if filename == "" {
		filename = fmt.Sprintf("TimeEntries_Week_%s.xlsx", weekStart.Format("20060102"))
	}

	v.setMessage(MessageSuccess, MsgExported)
	return data, filename, nil
}

// ── 内部辅助 ──

// setMessage 设置提示并在 messageTTL 后清除；较新的消息不会被旧定时器清除
func (v *WeekView) setMessage(kind MessageKind, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.msgSeq++
	seq := v.msgSeq
	v.message = Message{Kind: kind, Text: text}

	if v.msgTimer != nil {
		v.msgTimer.Stop()
	}
	v.msgTimer = time.AfterFunc(v.messageTTL, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.msgSeq == seq {
			v.message = Message{}
		}
	})
}

// inWeek 调用方需持有锁
func (v *WeekView) inWeek(date time.Time) bool {
	y, m, day := date.Date()
	d := time.Date(y, m, day, 0, 0, 0, 0, v.anchor.Location())
	return !d.Before(v.anchor) && d.Before(v.anchor.AddDate(0, 0, 7))
}

func dateKey(t time.Time) string {
	return t.Format(worktime.DateLayout)
}
