package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"duty-roster/internal/dto"
	"duty-roster/internal/model"
	pkgerrors "duty-roster/pkg/errors"
)

// ── 测试辅助 ──

func setupTestPatternService() (PatternService, *mockStore, func(name string, patterns map[int]string) string) {
	repo, store := newMockRepository()
	svc := NewPatternService(repo, zap.NewNop())
	seed := func(name string, patterns map[int]string) string {
		return seedFormula(repo, name, patterns)
	}
	return svc, store, seed
}

// ── DedupGroups 测试 ──

func TestDedupGroups_KeepsLowestGroupID(t *testing.T) {
	raw := []model.FormulaGroup{
		{GroupID: 5, GroupNumber: 2, Pattern: "NNNOOOO"},
		{GroupID: 1, GroupNumber: 1, Pattern: "DDDDOOO"},
		{GroupID: 3, GroupNumber: 2, Pattern: "EEEEOOO"},
		{GroupID: 9, GroupNumber: 1, Pattern: "AAAAAAA"},
	}

	kept, dups := DedupGroups(raw)
	if len(kept) != 2 {
		t.Fatalf("期望保留 2 个班组，实际=%d", len(kept))
	}
	if kept[0].GroupNumber != 1 || kept[0].GroupID != 1 {
		t.Errorf("班组 1 应保留 group_id=1，实际=%+v", kept[0])
	}
	if kept[1].GroupNumber != 2 || kept[1].GroupID != 3 || kept[1].Pattern != "EEEEOOO" {
		t.Errorf("班组 2 应保留 group_id=3，实际=%+v", kept[1])
	}
	if len(dups) != 2 || dups[0] != 5 || dups[1] != 9 {
		t.Errorf("期望重复行 [5 9]，实际=%v", dups)
	}
}

func TestDedupGroups_Empty(t *testing.T) {
	kept, dups := DedupGroups(nil)
	if len(kept) != 0 || len(dups) != 0 {
		t.Errorf("空输入应返回空结果，实际 kept=%v dups=%v", kept, dups)
	}
}

// ── GetGroups / MaxGroup 测试 ──

func TestPatternService_GetGroups_Sorted(t *testing.T) {
	svc, _, seed := setupTestPatternService()
	id := seed("四班三倒", map[int]string{3: "NNOOEEO", 1: "DDEENNO", 2: "EENNOOD"})

	groups, err := svc.GetGroups(context.Background(), id)
	if err != nil {
		t.Fatalf("GetGroups 应成功: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("期望 3 个班组，实际=%d", len(groups))
	}
	for i, g := range groups {
		if g.GroupNumber != i+1 {
			t.Errorf("第 %d 个班组号应为 %d，实际=%d", i, i+1, g.GroupNumber)
		}
	}
}

func TestPatternService_MaxGroup(t *testing.T) {
	svc, _, seed := setupTestPatternService()
	id := seed("间隔班组", map[int]string{1: "DDDDDOO", 4: "NNNNNOO"})

	maxGroup, err := svc.MaxGroup(context.Background(), id)
	if err != nil {
		t.Fatalf("MaxGroup 应成功: %v", err)
	}
	if maxGroup != 4 {
		t.Errorf("期望最大班组号=4，实际=%d", maxGroup)
	}
}

func TestPatternService_MaxGroup_NoPatterns(t *testing.T) {
	svc, _, seed := setupTestPatternService()
	id := seed("空公式", map[int]string{})

	_, err := svc.MaxGroup(context.Background(), id)
	if !errors.Is(err, pkgerrors.ErrNoPatterns) {
		t.Errorf("期望 ErrNoPatterns，实际: %v", err)
	}
}

// ── CleanDuplicates 测试 ──

func TestPatternService_CleanDuplicates_Idempotent(t *testing.T) {
	svc, store, seed := setupTestPatternService()
	id := seed("重复公式", map[int]string{1: "DDDDOOO", 2: "NNNNOOO"})
	// 追加与已有班组号重复的行
	store.nextGroupID++
	store.groups = append(store.groups, model.FormulaGroup{GroupID: store.nextGroupID, FormulaID: id, GroupNumber: 1, Pattern: "EEEEOOO"})
	store.nextGroupID++
	store.groups = append(store.groups, model.FormulaGroup{GroupID: store.nextGroupID, FormulaID: id, GroupNumber: 2, Pattern: "EEEEOOO"})

	removed, err := svc.CleanDuplicates(context.Background(), id)
	if err != nil {
		t.Fatalf("CleanDuplicates 应成功: %v", err)
	}
	if removed != 2 {
		t.Errorf("期望删除 2 行，实际=%d", removed)
	}

	removed, err = svc.CleanDuplicates(context.Background(), id)
	if err != nil {
		t.Fatalf("第二次 CleanDuplicates 应成功: %v", err)
	}
	if removed != 0 {
		t.Errorf("第二次应删除 0 行，实际=%d", removed)
	}

	groups, _ := svc.GetGroups(context.Background(), id)
	if len(groups) != 2 || groups[0].Pattern != "DDDDOOO" || groups[1].Pattern != "NNNNOOO" {
		t.Errorf("应保留最早写入的班组，实际=%+v", groups)
	}
}

func TestPatternService_CleanDuplicates_NotFound(t *testing.T) {
	svc, _, _ := setupTestPatternService()

	_, err := svc.CleanDuplicates(context.Background(), "missing")
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("期望 ErrNotFound，实际: %v", err)
	}
}

// ── Rotations 测试 ──

func TestPatternService_Rotations_SkipsMissing(t *testing.T) {
	svc, _, seed := setupTestPatternService()
	id := seed("两班", map[int]string{1: "DDDDDDD", 2: "OOOOOOO"})

	rots, err := svc.Rotations(context.Background(), []string{id, "missing"})
	if err != nil {
		t.Fatalf("Rotations 应成功: %v", err)
	}
	if len(rots) != 1 {
		t.Fatalf("期望 1 个轮转表，实际=%d", len(rots))
	}
	if rots[id].Max() != 2 {
		t.Errorf("期望 max=2，实际=%d", rots[id].Max())
	}
	if _, ok := rots["missing"]; ok {
		t.Error("不存在的公式不应出现在结果中")
	}
}

// ── CreateFormula 测试 ──

func TestPatternService_CreateFormula_Success(t *testing.T) {
	svc, _, _ := setupTestPatternService()

	resp, err := svc.CreateFormula(context.Background(), &dto.CreateFormulaRequest{
		Name: " 三班倒 ",
		Groups: []dto.FormulaGroupRequest{
			{GroupNumber: 2, Pattern: "eennood"},
			{GroupNumber: 1, Pattern: "DDEENNO"},
		},
	}, "admin-001")
	if err != nil {
		t.Fatalf("CreateFormula 应成功: %v", err)
	}
	if resp.Name != "三班倒" {
		t.Errorf("名称应去除首尾空格，实际=%q", resp.Name)
	}
	if resp.MaxGroup != 2 || len(resp.Groups) != 2 {
		t.Fatalf("期望 2 个班组，实际=%+v", resp.Groups)
	}
	if resp.Groups[1].Pattern != "EENNOOD" {
		t.Errorf("模式应统一为大写，实际=%s", resp.Groups[1].Pattern)
	}
}

func TestPatternService_CreateFormula_Invalid(t *testing.T) {
	svc, _, _ := setupTestPatternService()

	cases := map[string][]dto.FormulaGroupRequest{
		"无班组":   nil,
		"模式过短":  {{GroupNumber: 1, Pattern: "DDD"}},
		"非字母":   {{GroupNumber: 1, Pattern: "DD1DOOO"}},
		"班组号重复": {{GroupNumber: 1, Pattern: "DDDDOOO"}, {GroupNumber: 1, Pattern: "NNNNOOO"}},
		"班组号为零": {{GroupNumber: 0, Pattern: "DDDDOOO"}},
	}
	for name, groups := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateFormula(context.Background(), &dto.CreateFormulaRequest{Name: name, Groups: groups}, "")
			if !errors.Is(err, pkgerrors.ErrInvalidPattern) {
				t.Errorf("期望 ErrInvalidPattern，实际: %v", err)
			}
		})
	}
}

func TestPatternService_CreateFormula_DuplicateName(t *testing.T) {
	svc, _, seed := setupTestPatternService()
	seed("常白班", map[int]string{1: "DDDDDOO"})

	_, err := svc.CreateFormula(context.Background(), &dto.CreateFormulaRequest{
		Name:   "常白班",
		Groups: []dto.FormulaGroupRequest{{GroupNumber: 1, Pattern: "DDDDDOO"}},
	}, "")
	if !errors.Is(err, pkgerrors.ErrFormulaNameTaken) {
		t.Errorf("重名应返回 ErrFormulaNameTaken，实际: %v", err)
	}
	if errors.Is(err, pkgerrors.ErrInvalidPattern) {
		t.Error("重名不属于班组模式错误")
	}
}

// ── UpdateFormula 测试 ──

func TestPatternService_UpdateFormula_ReplacesGroups(t *testing.T) {
	svc, _, seed := setupTestPatternService()
	id := seed("旧公式", map[int]string{1: "DDDDOOO", 2: "NNNNOOO", 3: "EEEEOOO"})

	resp, err := svc.UpdateFormula(context.Background(), id, &dto.UpdateFormulaRequest{
		Name:     "新公式",
		Groups:   []dto.FormulaGroupRequest{{GroupNumber: 1, Pattern: "OOOOOOO"}},
		Revision: 1,
	}, "admin-001")
	if err != nil {
		t.Fatalf("UpdateFormula 应成功: %v", err)
	}
	if resp.Name != "新公式" || resp.MaxGroup != 1 || resp.Revision != 2 {
		t.Errorf("更新结果不符合预期: %+v", resp)
	}
}

func TestPatternService_UpdateFormula_NameTaken(t *testing.T) {
	svc, _, seed := setupTestPatternService()
	seed("常白班", map[int]string{1: "DDDDDOO"})
	id := seed("夜班", map[int]string{1: "NNNNNOO"})

	_, err := svc.UpdateFormula(context.Background(), id, &dto.UpdateFormulaRequest{
		Name:     "常白班",
		Groups:   []dto.FormulaGroupRequest{{GroupNumber: 1, Pattern: "NNNNNOO"}},
		Revision: 1,
	}, "")
	if !errors.Is(err, pkgerrors.ErrFormulaNameTaken) {
		t.Fatalf("改名为已有名称应返回 ErrFormulaNameTaken，实际: %v", err)
	}

	groups, _ := svc.GetGroups(context.Background(), id)
	if len(groups) != 1 || groups[0].Pattern != "NNNNNOO" {
		t.Errorf("冲突时班组不应被修改，实际=%+v", groups)
	}
}

func TestPatternService_UpdateFormula_StaleRevision(t *testing.T) {
	svc, _, seed := setupTestPatternService()
	id := seed("公式", map[int]string{1: "DDDDOOO"})

	_, err := svc.UpdateFormula(context.Background(), id, &dto.UpdateFormulaRequest{
		Name:     "公式",
		Groups:   []dto.FormulaGroupRequest{{GroupNumber: 1, Pattern: "NNNNOOO"}},
		Revision: 7,
	}, "")
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Fatalf("期望 ErrOptimisticLock，实际: %v", err)
	}

	groups, _ := svc.GetGroups(context.Background(), id)
	if len(groups) != 1 || groups[0].Pattern != "DDDDOOO" {
		t.Errorf("冲突时班组不应被修改，实际=%+v", groups)
	}
}

func TestPatternService_UpdateFormula_NotFound(t *testing.T) {
	svc, _, _ := setupTestPatternService()

	_, err := svc.UpdateFormula(context.Background(), "missing", &dto.UpdateFormulaRequest{
		Name:   "x",
		Groups: []dto.FormulaGroupRequest{{GroupNumber: 1, Pattern: "DDDDOOO"}},
	}, "")
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("期望 ErrNotFound，实际: %v", err)
	}
}

// ── DeleteFormula 测试 ──

func TestPatternService_DeleteFormula_InUse(t *testing.T) {
	svc, store, seed := setupTestPatternService()
	id := seed("在用公式", map[int]string{1: "DDDDOOO"})
	store.staff["s1"] = &model.Staff{StaffID: "s1", IsActive: true, FormulaID: strPtr(id), StartGroup: 1}

	err := svc.DeleteFormula(context.Background(), id, "admin-001")
	if !errors.Is(err, pkgerrors.ErrFormulaInUse) {
		t.Errorf("期望 ErrFormulaInUse，实际: %v", err)
	}
	if _, ok := store.formulas[id]; !ok {
		t.Error("被引用的公式不应被删除")
	}
}

func TestPatternService_DeleteFormula_Success(t *testing.T) {
	svc, store, seed := setupTestPatternService()
	id := seed("闲置公式", map[int]string{1: "DDDDOOO"})

	if err := svc.DeleteFormula(context.Background(), id, "admin-001"); err != nil {
		t.Fatalf("DeleteFormula 应成功: %v", err)
	}
	if _, ok := store.formulas[id]; ok {
		t.Error("公式应已删除")
	}
}

func TestPatternService_ListFormulas(t *testing.T) {
	svc, _, seed := setupTestPatternService()
	seed("B 公式", map[int]string{1: "DDDDOOO", 2: "NNNNOOO"})
	seed("A 公式", map[int]string{1: "EEEEOOO"})

	list, err := svc.ListFormulas(context.Background())
	if err != nil {
		t.Fatalf("ListFormulas 应成功: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 个公式，实际=%d", len(list))
	}
	if list[0].Name != "A 公式" || list[0].MaxGroup != 1 || list[1].MaxGroup != 2 {
		t.Errorf("列表内容不符合预期: %+v", list)
	}
}
