package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"duty-roster/internal/model"
	"duty-roster/internal/repository"
	"duty-roster/internal/rotation"
)

// RosterMember 在岗人员及其已校验的排班规则。
// Err 非空表示档案数据不合法，生成时按整月休息处理。
type RosterMember struct {
	Staff  model.Staff
	Member rotation.Member
	Err    error
}

// RosterProvider 提供在岗人员与排班规则
type RosterProvider interface {
	ActiveRoster(ctx context.Context) ([]RosterMember, error)
}

type rosterProvider struct {
	repo     *repository.Repository
	patterns PatternService
	logger   *zap.Logger
}

// NewRosterProvider 创建 RosterProvider 实例
func NewRosterProvider(repo *repository.Repository, patterns PatternService, logger *zap.Logger) RosterProvider {
	return &rosterProvider{repo: repo, patterns: patterns, logger: logger}
}

func (p *rosterProvider) ActiveRoster(ctx context.Context) ([]RosterMember, error) {
	staff, err := p.repo.Staff.ListActive(ctx)
	if err != nil {
		p.logger.Error("查询在岗人员失败", zap.Error(err))
		return nil, err
	}
	SortRoster(staff)

	formulaIDs := make([]string, 0)
	seen := make(map[string]bool)
	for _, s := range staff {
		if s.FormulaID != nil && *s.FormulaID != "" && !seen[*s.FormulaID] {
			seen[*s.FormulaID] = true
			formulaIDs = append(formulaIDs, *s.FormulaID)
		}
	}
	rotations, err := p.patterns.Rotations(ctx, formulaIDs)
	if err != nil {
		return nil, err
	}

	roster := make([]RosterMember, 0, len(staff))
	for _, s := range staff {
		rule, ruleErr := RuleFor(s, rotations)
		if ruleErr != nil {
			p.logger.Warn("人员排班规则无效", zap.String("staff_id", s.StaffID), zap.Error(ruleErr))
		}
		roster = append(roster, RosterMember{
			Staff: s,
			Member: rotation.Member{
				StaffID:  s.StaffID,
				AreaCode: s.DefaultAreaCode,
				Rule:     rule,
			},
			Err: ruleErr,
		})
	}
	return roster, nil
}

// RuleFor 由人员档案推导排班规则。
// 优先级：管理岗 > 固定夜班 > 倒班公式 > 未分配。
func RuleFor(s model.Staff, rotations map[string]rotation.Rotation) (rotation.Rule, error) {
	switch {
	case s.Role == model.StaffRoleHead:
		return rotation.Managerial{}, nil
	case s.ProtectedNight:
		return rotation.ProtectedNight{}, nil
	case s.FormulaID != nil && *s.FormulaID != "":
		if s.StartGroup < 1 {
			return rotation.Unassigned{}, fmt.Errorf("%w: start_group=%d", rotation.ErrInvalidStartGroup, s.StartGroup)
		}
		// 公式缺失时 Rotation 为空，解析结果为休息
		return rotation.FormulaBound{
			FormulaID:  *s.FormulaID,
			StartGroup: s.StartGroup,
			Rotation:   rotations[*s.FormulaID],
		}, nil
	default:
		return rotation.Unassigned{}, nil
	}
}

// SortRoster 排班表行顺序：sort_order、employee_no、staff_id
func SortRoster(staff []model.Staff) {
	sort.SliceStable(staff, func(i, j int) bool {
		a, b := staff[i], staff[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if a.EmployeeNo != b.EmployeeNo {
			return a.EmployeeNo < b.EmployeeNo
		}
		return a.StaffID < b.StaffID
	})
}
