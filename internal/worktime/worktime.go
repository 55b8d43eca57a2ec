// Package worktime 工时派生字段的纯函数计算：工时、里程、周起始日。
// 服务端 DTO、Excel 导出与客户端视图模型共用同一套实现。
package worktime

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout 日期格式 (yyyy-MM-dd)
const DateLayout = "2006-01-02"

// 时间格式：优先 HH:mm，兼容 HH:mm:ss
var clockLayouts = []string{"15:04", "15:04:05"}

// ParseClock 将 "09:00" / "09:00:30" 解析为距零点的时长
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("无效的时间格式 %q", s)
}

// HoursWorked 计算同一天内的工作小时数
// 任一时间缺失或无法解析时返回 0；结束早于开始时截断为 0（不处理跨夜）
func HoursWorked(start, end string) float64 {
	if start == "" || end == "" {
		return 0
	}
	s, err := ParseClock(start)
	if err != nil {
		return 0
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0
	}
	hours := (e - s).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// Distance 计算里程；仅当起止读数都存在时返回差值，否则返回 nil
func Distance(start, end *int) *int {
	if start == nil || end == nil {
		return nil
	}
	d := *end - *start
	return &d
}

// WeekStart 返回 day 当天或之前最近的 weekday，时间部分清零
func WeekStart(day time.Time, weekday time.Weekday) time.Time {
	d := DateOf(day)
	offset := (int(d.Weekday()) - int(weekday) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekDays 返回从 start 开始的连续 7 天
func WeekDays(start time.Time) [7]time.Time {
	var days [7]time.Time
	start = DateOf(start)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// DateOf 截断到当天零点，保留原时区
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate 解析 yyyy-MM-dd，兼容 RFC3339
func ParseDate(value string) (time.Time, error) {
	if parsed, err := time.Parse(DateLayout, value); err == nil {
		return parsed, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的日期格式 %q: %w", value, err)
	}
	return DateOf(parsed), nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday 解析英文星期名（大小写不敏感）
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return time.Sunday, fmt.Errorf("无效的星期: %q", s)
	}
	return d, nil
}
