// Package rotation 倒班公式的纯计算部分：班组轮转、规则与按日解析。
// 本包不访问数据库，所有输入由调用方准备。
package rotation

import "sort"

const (
	// OffCode 休息
	OffCode = "O"
	// ManagerialCode 管理岗工作日班次
	ManagerialCode = "A"
	// PatternLength 每个班组一周七天，下标 0 为周一
	PatternLength = 7
)

// Rotation 一个公式去重后的班组轮转表
type Rotation struct {
	groups map[int]string
	max    int
}

// NewRotation 根据 班组号 → 模式 构建轮转表；非正班组号被忽略
func NewRotation(groups map[int]string) Rotation {
	r := Rotation{groups: make(map[int]string, len(groups))}
	for n, p := range groups {
		if n <= 0 {
			continue
		}
		r.groups[n] = p
		if n > r.max {
			r.max = n
		}
	}
	return r
}

// Max 最大班组号，空轮转返回 0
func (r Rotation) Max() int { return r.max }

// Empty 是否没有任何班组
func (r Rotation) Empty() bool { return r.max == 0 }

// Pattern 返回指定班组的模式
func (r Rotation) Pattern(group int) (string, bool) {
	p, ok := r.groups[group]
	return p, ok
}

// GroupNumbers 升序返回全部班组号
func (r Rotation) GroupNumbers() []int {
	nums := make([]int, 0, len(r.groups))
	for n := range r.groups {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Phase 计算第 weekIndex 周（从 0 开始）所处的班组号。
// 取模结果为 0 时回绕到最大班组号，不存在第 0 组。
func (r Rotation) Phase(startGroup, weekIndex int) int {
	if r.max == 0 {
		return 0
	}
	phase := (startGroup + weekIndex - 1) % r.max
	if phase == 0 {
		phase = r.max
	}
	return phase
}

// ValidPattern 模式必须恰好 7 个 ASCII 字母
func ValidPattern(p string) bool {
	if len(p) != PatternLength {
		return false
	}
	for i := 0; i < len(p); i++ {
		c := p[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}
