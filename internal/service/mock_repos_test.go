package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"duty-roster/internal/model"
	"duty-roster/internal/repository"
	pkgerrors "duty-roster/pkg/errors"
)

// mockStore 所有 mock repository 共享的内存数据
type mockStore struct {
	mu sync.Mutex

	formulas    map[string]*model.Formula
	groups      []model.FormulaGroup
	nextGroupID int64
	staff       map[string]*model.Staff
	versions    map[string]*model.RosterVersion
	versionSeq  int
	assignments map[string][]model.DayAssignment
	diffs       map[string]*model.VersionDiff

	// 故障注入
	replaceErr    error
	diffUpsertErr error

	listAssignmentCalls int
	monthLockCalls      int
}

func newMockStore() *mockStore {
	return &mockStore{
		formulas:    make(map[string]*model.Formula),
		staff:       make(map[string]*model.Staff),
		versions:    make(map[string]*model.RosterVersion),
		assignments: make(map[string][]model.DayAssignment),
		diffs:       make(map[string]*model.VersionDiff),
	}
}

// clone 用于模拟事务回滚
func (s *mockStore) clone() *mockStore {
	c := newMockStore()
	for k, v := range s.formulas {
		cp := *v
		c.formulas[k] = &cp
	}
	c.groups = append([]model.FormulaGroup(nil), s.groups...)
	c.nextGroupID = s.nextGroupID
	for k, v := range s.staff {
		cp := *v
		c.staff[k] = &cp
	}
	for k, v := range s.versions {
		cp := *v
		c.versions[k] = &cp
	}
	c.versionSeq = s.versionSeq
	for k, v := range s.assignments {
		c.assignments[k] = append([]model.DayAssignment(nil), v...)
	}
	for k, v := range s.diffs {
		cp := *v
		c.diffs[k] = &cp
	}
	return c
}

func (s *mockStore) restore(from *mockStore) {
	s.formulas = from.formulas
	s.groups = from.groups
	s.nextGroupID = from.nextGroupID
	s.staff = from.staff
	s.versions = from.versions
	s.versionSeq = from.versionSeq
	s.assignments = from.assignments
	s.diffs = from.diffs
}

// newMockRepository 返回绑定到同一 mockStore 的 Repository 聚合
func newMockRepository() (*repository.Repository, *mockStore) {
	store := newMockStore()
	repo := &repository.Repository{
		Formula:      &mockFormulaRepo{s: store},
		FormulaGroup: &mockFormulaGroupRepo{s: store},
		Staff:        &mockStaffRepo{s: store},
		Version:      &mockVersionRepo{s: store},
		Assignment:   &mockAssignmentRepo{s: store},
		Diff:         &mockDiffRepo{s: store},
		MonthLock:    &mockMonthLockRepo{s: store},
	}
	repo.Tx = &mockTxRunner{repo: repo, s: store}
	return repo, store
}

// ── Mock TxRunner ──

type mockTxRunner struct {
	repo *repository.Repository
	s    *mockStore
	txMu sync.Mutex
}

// Transaction 串行执行，fn 返回错误时恢复到事务开始前
func (m *mockTxRunner) Transaction(_ context.Context, fn func(repo *repository.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.s.mu.Lock()
	before := m.s.clone()
	m.s.mu.Unlock()

	if err := fn(m.repo); err != nil {
		m.s.mu.Lock()
		m.s.restore(before)
		m.s.mu.Unlock()
		return err
	}
	return nil
}

// ── Mock FormulaRepository ──

type mockFormulaRepo struct{ s *mockStore }

func (m *mockFormulaRepo) Create(_ context.Context, f *model.Formula) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.formulas {
		if existing.Name == f.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	if f.FormulaID == "" {
		f.FormulaID = fmt.Sprintf("formula-%d", len(m.s.formulas)+1)
	}
	if f.Revision == 0 {
		f.Revision = 1
	}
	cp := *f
	m.s.formulas[f.FormulaID] = &cp
	return nil
}

func (m *mockFormulaRepo) GetByID(_ context.Context, id string) (*model.Formula, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if f, ok := m.s.formulas[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFormulaRepo) GetByName(_ context.Context, name string) (*model.Formula, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, f := range m.s.formulas {
		if f.Name == name {
			cp := *f
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFormulaRepo) List(_ context.Context) ([]model.Formula, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Formula
	for _, f := range m.s.formulas {
		result = append(result, *f)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockFormulaRepo) ListByIDs(_ context.Context, ids []string) ([]model.Formula, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Formula
	for _, id := range ids {
		if f, ok := m.s.formulas[id]; ok {
			result = append(result, *f)
		}
	}
	return result, nil
}

func (m *mockFormulaRepo) Update(_ context.Context, f *model.Formula) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.formulas[f.FormulaID]
	if !ok || existing.Revision != f.Revision {
		return pkgerrors.ErrOptimisticLock
	}
	for id, other := range m.s.formulas {
		if id != f.FormulaID && other.Name == f.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	f.Revision++
	cp := *f
	m.s.formulas[f.FormulaID] = &cp
	return nil
}

func (m *mockFormulaRepo) Delete(_ context.Context, id, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	delete(m.s.formulas, id)
	return nil
}

// ── Mock FormulaGroupRepository ──

type mockFormulaGroupRepo struct{ s *mockStore }

func (m *mockFormulaGroupRepo) ListRawByFormula(_ context.Context, formulaID string) ([]model.FormulaGroup, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.FormulaGroup
	for _, g := range m.s.groups {
		if g.FormulaID == formulaID {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *mockFormulaGroupRepo) ListRawByFormulas(_ context.Context, ids []string) ([]model.FormulaGroup, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var result []model.FormulaGroup
	for _, g := range m.s.groups {
		if want[g.FormulaID] {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *mockFormulaGroupRepo) BatchCreate(_ context.Context, groups []model.FormulaGroup) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range groups {
		m.s.nextGroupID++
		groups[i].GroupID = m.s.nextGroupID
		m.s.groups = append(m.s.groups, groups[i])
	}
	return nil
}

func (m *mockFormulaGroupRepo) DeleteByFormula(_ context.Context, formulaID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	kept := m.s.groups[:0:0]
	for _, g := range m.s.groups {
		if g.FormulaID != formulaID {
			kept = append(kept, g)
		}
	}
	m.s.groups = kept
	return nil
}

func (m *mockFormulaGroupRepo) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var removed int64
	kept := m.s.groups[:0:0]
	for _, g := range m.s.groups {
		if drop[g.GroupID] {
			removed++
			continue
		}
		kept = append(kept, g)
	}
	m.s.groups = kept
	return removed, nil
}

// ── Mock StaffRepository ──

type mockStaffRepo struct{ s *mockStore }

func (m *mockStaffRepo) Create(_ context.Context, st *model.Staff) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if st.StaffID == "" {
		st.StaffID = "staff-" + st.EmployeeNo
	}
	cp := *st
	m.s.staff[st.StaffID] = &cp
	return nil
}

func (m *mockStaffRepo) GetByID(_ context.Context, id string) (*model.Staff, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if st, ok := m.s.staff[id]; ok {
		cp := *st
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStaffRepo) ListActive(_ context.Context) ([]model.Staff, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Staff
	for _, st := range m.s.staff {
		if st.IsActive {
			result = append(result, *st)
		}
	}
	SortRoster(result)
	return result, nil
}

func (m *mockStaffRepo) ListByIDs(_ context.Context, ids []string) ([]model.Staff, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Staff
	for _, id := range ids {
		if st, ok := m.s.staff[id]; ok {
			result = append(result, *st)
		}
	}
	return result, nil
}

func (m *mockStaffRepo) CountByFormula(_ context.Context, formulaID string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for _, st := range m.s.staff {
		if st.FormulaID != nil && *st.FormulaID == formulaID {
			n++
		}
	}
	return n, nil
}

// ── Mock RosterVersionRepository ──

type mockVersionRepo struct{ s *mockStore }

var mockEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func (m *mockVersionRepo) Create(_ context.Context, v *model.RosterVersion) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.versions {
		if existing.TargetYear == v.TargetYear && existing.TargetMonth == v.TargetMonth && existing.VersionNo == v.VersionNo {
			return gorm.ErrDuplicatedKey
		}
	}
	m.s.versionSeq++
	if v.VersionID == "" {
		v.VersionID = fmt.Sprintf("ver-%d", m.s.versionSeq)
	}
	if v.Revision == 0 {
		v.Revision = 1
	}
	// 保证创建时间严格递增
	v.CreatedAt = mockEpoch.Add(time.Duration(m.s.versionSeq) * time.Second)
	cp := *v
	m.s.versions[v.VersionID] = &cp
	return nil
}

func (m *mockVersionRepo) GetByID(_ context.Context, id string) (*model.RosterVersion, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if v, ok := m.s.versions[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockVersionRepo) GetCurrent(_ context.Context, year, month int) (*model.RosterVersion, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var cur *model.RosterVersion
	for _, v := range m.s.versions {
		if v.TargetYear != year || v.TargetMonth != month {
			continue
		}
		if cur == nil || v.CreatedAt.After(cur.CreatedAt) {
			cur = v
		}
	}
	if cur == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *cur
	return &cp, nil
}

func (m *mockVersionRepo) ListByMonth(_ context.Context, year, month int) ([]model.RosterVersion, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.RosterVersion
	for _, v := range m.s.versions {
		if v.TargetYear == year && v.TargetMonth == month {
			result = append(result, *v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].VersionNo > result[j].VersionNo })
	return result, nil
}

func (m *mockVersionRepo) MaxVersionNo(_ context.Context, year, month int) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	maxNo := 0
	for _, v := range m.s.versions {
		if v.TargetYear == year && v.TargetMonth == month && v.VersionNo > maxNo {
			maxNo = v.VersionNo
		}
	}
	return maxNo, nil
}

func (m *mockVersionRepo) Update(_ context.Context, v *model.RosterVersion) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.versions[v.VersionID]
	if !ok || existing.Revision != v.Revision {
		return pkgerrors.ErrOptimisticLock
	}
	v.Revision++
	cp := *v
	m.s.versions[v.VersionID] = &cp
	return nil
}

func (m *mockVersionRepo) ClearBase(_ context.Context, year, month int, exceptID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for id, v := range m.s.versions {
		if id != exceptID && v.TargetYear == year && v.TargetMonth == month && v.IsBaseVersion {
			v.IsBaseVersion = false
			v.Revision++
		}
	}
	return nil
}

// ── Mock DayAssignmentRepository ──

type mockAssignmentRepo struct{ s *mockStore }

func (m *mockAssignmentRepo) ListByVersion(_ context.Context, versionID string) ([]model.DayAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.listAssignmentCalls++
	rows := append([]model.DayAssignment(nil), m.s.assignments[versionID]...)
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].DutyDate.Equal(rows[j].DutyDate) {
			return rows[i].DutyDate.Before(rows[j].DutyDate)
		}
		return rows[i].StaffID < rows[j].StaffID
	})
	return rows, nil
}

func (m *mockAssignmentRepo) CountByVersions(_ context.Context, ids []string) (map[string]int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	counts := make(map[string]int64, len(ids))
	for _, id := range ids {
		counts[id] = int64(len(m.s.assignments[id]))
	}
	return counts, nil
}

// ReplaceByVersion 校验 (staff, date) 唯一后整体替换
func (m *mockAssignmentRepo) ReplaceByVersion(_ context.Context, versionID string, rows []model.DayAssignment) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.replaceErr != nil {
		return m.s.replaceErr
	}
	seen := make(map[string]bool, len(rows))
	next := make([]model.DayAssignment, 0, len(rows))
	for i, r := range rows {
		key := r.StaffID + "|" + r.DutyDate.Format("2006-01-02")
		if seen[key] {
			return gorm.ErrDuplicatedKey
		}
		seen[key] = true
		r.VersionID = versionID
		if r.AssignmentID == "" {
			r.AssignmentID = fmt.Sprintf("%s-%d", versionID, i)
		}
		next = append(next, r)
	}
	m.s.assignments[versionID] = next
	return nil
}

// ── Mock VersionDiffRepository ──

type mockDiffRepo struct{ s *mockStore }

func diffKey(versionID, baseID string) string { return versionID + "|" + baseID }

func (m *mockDiffRepo) Get(_ context.Context, versionID, baseID string) (*model.VersionDiff, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if d, ok := m.s.diffs[diffKey(versionID, baseID)]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDiffRepo) Upsert(_ context.Context, d *model.VersionDiff) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.diffUpsertErr != nil {
		return m.s.diffUpsertErr
	}
	if d.DiffID == "" {
		d.DiffID = "diff-" + diffKey(d.VersionID, d.BaseVersionID)
	}
	cp := *d
	m.s.diffs[diffKey(d.VersionID, d.BaseVersionID)] = &cp
	return nil
}

func (m *mockDiffRepo) DeleteByVersion(_ context.Context, versionID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for k, d := range m.s.diffs {
		if d.VersionID == versionID || d.BaseVersionID == versionID {
			delete(m.s.diffs, k)
		}
	}
	return nil
}

// ── Mock MonthLockRepository ──

type mockMonthLockRepo struct{ s *mockStore }

func (m *mockMonthLockRepo) Lock(_ context.Context, _, _ int) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.monthLockCalls++
	return nil
}

// ── 测试数据辅助 ──

func seedFormula(repo *repository.Repository, name string, patterns map[int]string) string {
	ctx := context.Background()
	f := &model.Formula{Name: name}
	_ = repo.Formula.Create(ctx, f)
	nums := make([]int, 0, len(patterns))
	for n := range patterns {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	groups := make([]model.FormulaGroup, 0, len(nums))
	for _, n := range nums {
		groups = append(groups, model.FormulaGroup{FormulaID: f.FormulaID, GroupNumber: n, Pattern: patterns[n]})
	}
	_ = repo.FormulaGroup.BatchCreate(ctx, groups)
	return f.FormulaID
}

func seedStaff(repo *repository.Repository, st model.Staff) model.Staff {
	if st.Role == "" {
		st.Role = model.StaffRoleMember
	}
	st.IsActive = true
	_ = repo.Staff.Create(context.Background(), &st)
	return st
}

func strPtr(s string) *string { return &s }

// ── 时序钩子 ──

// hookVersionRepo GetCurrent 首次返回后执行 afterGetCurrent
type hookVersionRepo struct {
	repository.RosterVersionRepository
	afterGetCurrent func(v *model.RosterVersion)
}

func (h *hookVersionRepo) GetCurrent(ctx context.Context, year, month int) (*model.RosterVersion, error) {
	v, err := h.RosterVersionRepository.GetCurrent(ctx, year, month)
	if err == nil && h.afterGetCurrent != nil {
		hook := h.afterGetCurrent
		h.afterGetCurrent = nil
		hook(v)
	}
	return v, err
}

// hookAssignmentRepo 读取指定版本的排班后执行一次 afterList
type hookAssignmentRepo struct {
	repository.DayAssignmentRepository
	versionID string
	afterList func()
}

func (h *hookAssignmentRepo) ListByVersion(ctx context.Context, versionID string) ([]model.DayAssignment, error) {
	rows, err := h.DayAssignmentRepository.ListByVersion(ctx, versionID)
	if err == nil && versionID == h.versionID && h.afterList != nil {
		hook := h.afterList
		h.afterList = nil
		hook()
	}
	return rows, err
}
