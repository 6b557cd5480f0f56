package rotation

import "time"

// MondayIndex 周一为 0、周日为 6 的星期下标
func MondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Month 目标月份
type Month struct {
	Year  int
	Month time.Month
}

// First 当月 1 日（UTC 零点）
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Offset 当月 1 日的星期下标
func (m Month) Offset() int {
	return MondayIndex(m.First())
}

// DaysIn 当月天数
func (m Month) DaysIn() int {
	return m.First().AddDate(0, 1, -1).Day()
}

// Day 当月第 day 天（从 1 开始）
func (m Month) Day(day int) time.Time {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC)
}

// Days 当月全部日期
func (m Month) Days() []time.Time {
	n := m.DaysIn()
	days := make([]time.Time, n)
	for i := 0; i < n; i++ {
		days[i] = m.Day(i + 1)
	}
	return days
}

// Contains 日期是否落在当月
func (m Month) Contains(t time.Time) bool {
	return t.Year() == m.Year && t.Month() == m.Month
}

// String 形如 2026-03
func (m Month) String() string {
	return m.First().Format("2006-01")
}

// WeekIndex 日期在当月的周序号（从 0 开始，按周一分周）
func WeekIndex(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return (t.Day() - 1 + MondayIndex(first)) / 7
}
