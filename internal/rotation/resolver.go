package rotation

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidStartGroup 起始班组必须从 1 开始
var ErrInvalidStartGroup = errors.New("起始班组必须大于等于 1")

// Member 参与解析的人员
type Member struct {
	StaffID  string
	AreaCode string // 默认工作区域
	Rule     Rule
}

// Entry 某人某天的排班结果
type Entry struct {
	StaffID     string
	Date        time.Time
	Code        string
	AreaCode    string
	WorkTime    string
	SpecialType string
}

// IsOff 是否为休息
func (e Entry) IsOff() bool { return e.Code == OffCode }

// Resolver 按日解析排班。workTimes 为 班次代码 → 工作时间。
type Resolver struct {
	workTimes map[string]string
}

// NewResolver 创建解析器；班次代码统一转为大写
func NewResolver(workTimes map[string]string) *Resolver {
	wt := make(map[string]string, len(workTimes))
	for code, t := range workTimes {
		wt[strings.ToUpper(code)] = t
	}
	return &Resolver{workTimes: wt}
}

// Resolve 计算 member 在 date 当天的班次。
// existing 为当前版本中该人当天已有的排班，仅固定夜班人员使用。
func (r *Resolver) Resolve(m Member, date time.Time, existing *Entry) (Entry, error) {
	switch rule := m.Rule.(type) {
	case Managerial:
		return r.managerial(m, date), nil
	case ProtectedNight:
		if existing != nil {
			carried := *existing
			carried.StaffID = m.StaffID
			carried.Date = date
			return carried, nil
		}
		return off(m, date), nil
	case FormulaBound:
		return r.formula(m, rule, date)
	default:
		return off(m, date), nil
	}
}

// ResolveMonth 解析整月，existing 按日（从 1 开始）索引
func (r *Resolver) ResolveMonth(m Member, month Month, existing map[int]Entry) ([]Entry, error) {
	days := month.Days()
	out := make([]Entry, 0, len(days))
	for i, d := range days {
		var prev *Entry
		if e, ok := existing[i+1]; ok {
			prev = &e
		}
		entry, err := r.Resolve(m, d, prev)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Format("2006-01-02"), err)
		}
		out = append(out, entry)
	}
	return out, nil
}

// OffMonth 整月休息，解析失败时的兜底结果
func OffMonth(staffID string, month Month) []Entry {
	days := month.Days()
	out := make([]Entry, len(days))
	for i, d := range days {
		out[i] = Entry{StaffID: staffID, Date: d, Code: OffCode}
	}
	return out
}

// DutyString 把整月结果拼成每天一个字符的字符串
func DutyString(entries []Entry) string {
	var b strings.Builder
	b.Grow(len(entries))
	for _, e := range entries {
		b.WriteString(e.Code)
	}
	return b.String()
}

func (r *Resolver) managerial(m Member, date time.Time) Entry {
	if MondayIndex(date) >= 5 {
		return off(m, date)
	}
	return r.duty(m, date, ManagerialCode)
}

func (r *Resolver) formula(m Member, rule FormulaBound, date time.Time) (Entry, error) {
	if rule.StartGroup < 1 {
		return Entry{}, fmt.Errorf("%w: staff=%s start_group=%d", ErrInvalidStartGroup, m.StaffID, rule.StartGroup)
	}
	if rule.Rotation.Empty() {
		return off(m, date), nil
	}

	phase := rule.Rotation.Phase(rule.StartGroup, WeekIndex(date))
	pattern, ok := rule.Rotation.Pattern(phase)
	if !ok {
		return off(m, date), nil
	}

	dow := MondayIndex(date)
	if dow >= len(pattern) {
		return off(m, date), nil
	}
	code := strings.ToUpper(pattern[dow : dow+1])
	if code == OffCode {
		return off(m, date), nil
	}
	return r.duty(m, date, code), nil
}

func (r *Resolver) duty(m Member, date time.Time, code string) Entry {
	return Entry{
		StaffID:  m.StaffID,
		Date:     date,
		Code:     code,
		AreaCode: m.AreaCode,
		WorkTime: r.workTimes[code],
	}
}

func off(m Member, date time.Time) Entry {
	return Entry{StaffID: m.StaffID, Date: date, Code: OffCode}
}
