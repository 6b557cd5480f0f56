package rotation

// Rule 人员的排班规则，仅以下四种取值
type Rule interface {
	isRule()
}

// Unassigned 未配置规则，整月休息
type Unassigned struct{}

// FormulaBound 按倒班公式轮转
type FormulaBound struct {
	FormulaID  string
	StartGroup int
	// Rotation 为空表示公式缺失或没有班组，按未分配处理
	Rotation Rotation
}

// ProtectedNight 固定夜班人员：保留当前版本中已存在的排班
type ProtectedNight struct{}

// Managerial 管理岗：工作日 A，周末休息
type Managerial struct{}

func (Unassigned) isRule()     {}
func (FormulaBound) isRule()   {}
func (ProtectedNight) isRule() {}
func (Managerial) isRule()     {}

// RuleName 规则名称，用于日志与预览展示
func RuleName(r Rule) string {
	switch r.(type) {
	case Managerial:
		return "managerial"
	case ProtectedNight:
		return "protected_night"
	case FormulaBound:
		return "formula"
	default:
		return "unassigned"
	}
}
