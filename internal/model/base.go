package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/O-B-I-s/TimeTracker/internal/worktime"
)

// ── 日期类型（无时间部分） ──

// Date 对应数据库 DATE 列，实现 GORM Scanner/Valuer 与 JSON 编解码。
// 以 yyyy-MM-dd 文本写入，PostgreSQL 与 SQLite 的比较语义一致。
type Date struct {
	time.Time
}

// NewDate 截断为 UTC 零点
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate 解析 yyyy-MM-dd
func ParseDate(s string) (Date, error) {
	t, err := worktime.ParseDate(s)
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

// String 返回 yyyy-MM-dd
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(worktime.DateLayout)
}

// AddDays 日期偏移
func (d Date) AddDays(n int) Date {
	return NewDate(d.AddDate(0, 0, n))
}

// Scan 兼容驱动返回的 time.Time / 文本
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = NewDate(v)
		return nil
	case []byte:
		return d.scanText(string(v))
	case string:
		return d.scanText(v)
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
}

func (d *Date) scanText(s string) error {
	// SQLite 可能返回 "2025-01-05 00:00:00+00:00"
	if len(s) >= len(worktime.DateLayout) {
		s = s[:len(worktime.DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("Date.Scan: %w", err)
	}
	*d = parsed
	return nil
}

// Value 序列化为 yyyy-MM-dd 文本
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// MarshalJSON 输出 "yyyy-MM-dd"
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON 解析 "yyyy-MM-dd"，空串视为零值
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("Date: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ── 时刻类型（无日期部分） ──

// TimeOfDay 对应数据库 TIME 列，以距零点的秒数保存。
type TimeOfDay struct {
	seconds int
	valid   bool
}

// NewTimeOfDay 构造时刻
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{seconds: hour*3600 + minute*60, valid: true}
}

// ParseTimeOfDay 解析 HH:mm 或 HH:mm:ss
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	dur, err := worktime.ParseClock(s)
	if err != nil {
		return TimeOfDay{}, err
	}
	return TimeOfDay{seconds: int(dur / time.Second), valid: true}, nil
}

// IsZero 未设置时为 true
func (t TimeOfDay) IsZero() bool { return !t.valid }

// Duration 距零点的时长
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t.seconds) * time.Second
}

// DayFraction 以"天"为单位的小数，供 Excel 时间单元格使用
func (t TimeOfDay) DayFraction() float64 {
	return float64(t.seconds) / 86400
}

// String 返回 HH:mm（秒数非零时返回 HH:mm:ss）
func (t TimeOfDay) String() string {
	if !t.valid {
		return ""
	}
	h, m, s := t.seconds/3600, t.seconds%3600/60, t.seconds%60
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Scan 兼容文本 "09:00:00"、time.Time 以及微秒整数
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = TimeOfDay{}
		return nil
	case time.Time:
		*t = TimeOfDay{seconds: v.Hour()*3600 + v.Minute()*60 + v.Second(), valid: true}
		return nil
	case int64:
		*t = TimeOfDay{seconds: int(v / 1_000_000), valid: true}
		return nil
	case []byte:
		return t.scanText(string(v))
	case string:
		return t.scanText(v)
	default:
		return fmt.Errorf("TimeOfDay.Scan: unsupported type %T", src)
	}
}

func (t *TimeOfDay) scanText(s string) error {
	// PostgreSQL 可能带小数秒 "09:00:00.000000"
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return fmt.Errorf("TimeOfDay.Scan: %w", err)
	}
	*t = parsed
	return nil
}

// Value 序列化为 HH:mm:ss 文本
func (t TimeOfDay) Value() (driver.Value, error) {
	if !t.valid {
		return nil, nil
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.seconds/3600, t.seconds%3600/60, t.seconds%60), nil
}

// MarshalJSON 输出 "HH:mm"
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON 解析 "HH:mm" / "HH:mm:ss"，空串视为未设置
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("TimeOfDay: %w", err)
	}
	if s == "" {
		*t = TimeOfDay{}
		return nil
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// BaseModel 通用审计字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"-"`
}
