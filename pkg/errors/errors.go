package errors

import (
	"errors"
	"fmt"
)

// Kind 机器可读的错误类别，随 HTTP 响应一并返回
type Kind string

const (
	KindNoPatterns             Kind = "no_patterns"
	KindEmptyRoster            Kind = "empty_roster"
	KindMonthMismatch          Kind = "month_mismatch"
	KindNotFound               Kind = "not_found"
	KindConcurrentRegeneration Kind = "concurrent_regeneration"
	KindInvalidMonth           Kind = "invalid_month"
	KindInvalidPattern         Kind = "invalid_pattern"
	KindFormulaInUse           Kind = "formula_in_use"
	KindFormulaNameTaken       Kind = "formula_name_taken"
	KindOptimisticLock         Kind = "optimistic_lock"
)

// AppError 带类别与原因说明的业务错误
type AppError struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *AppError) Unwrap() error { return e.Err }

// Is 同类别即视为相等，便于 errors.Is(err, ErrNotFound) 判断
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New 创建业务错误
func New(kind Kind, reason string) *AppError {
	return &AppError{Kind: kind, Reason: reason}
}

// Newf 创建带格式化原因的业务错误
func Newf(kind Kind, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap 以指定类别包装底层错误
func Wrap(kind Kind, reason string, err error) *AppError {
	return &AppError{Kind: kind, Reason: reason, Err: err}
}

// KindOf 提取错误链中的业务类别；非业务错误返回空串
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// ReasonOf 提取面向用户的原因说明
func ReasonOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Reason
	}
	return ""
}

// ── 预定义错误（按类别比较） ──

var (
	ErrNoPatterns             = New(KindNoPatterns, "倒班公式没有可用的班组")
	ErrEmptyRoster            = New(KindEmptyRoster, "当前没有在岗人员，无法生成排班")
	ErrMonthMismatch          = New(KindMonthMismatch, "两个版本不属于同一月份，无法比较")
	ErrNotFound               = New(KindNotFound, "记录不存在")
	ErrConcurrentRegeneration = New(KindConcurrentRegeneration, "该月份排班正在生成中，请稍后重试")
	ErrInvalidMonth           = New(KindInvalidMonth, "无效的年份或月份")
	ErrInvalidPattern         = New(KindInvalidPattern, "班组模式无效")
	ErrFormulaInUse           = New(KindFormulaInUse, "倒班公式仍被人员引用，不可删除")
	ErrFormulaNameTaken       = New(KindFormulaNameTaken, "公式名称已存在")
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = New(KindOptimisticLock, "数据已被其他操作修改，请刷新后重试")
)
