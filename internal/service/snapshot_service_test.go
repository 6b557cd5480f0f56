package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"duty-roster/internal/model"
	"duty-roster/internal/repository"
	pkgerrors "duty-roster/pkg/errors"
)

func setupTestSnapshotService() (SnapshotService, *repository.Repository, *mockStore) {
	repo, store := newMockRepository()
	return NewSnapshotService(repo, zap.NewNop()), repo, store
}

func marchDay(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

func TestSnapshotService_Create_NumbersIncrease(t *testing.T) {
	svc, _, _ := setupTestSnapshotService()
	ctx := context.Background()

	v1, err := svc.Create(ctx, 2026, 3, "初稿", false, "u1")
	require.NoError(t, err)
	v2, err := svc.Create(ctx, 2026, 3, "", false, "u1")
	require.NoError(t, err)
	other, err := svc.Create(ctx, 2026, 4, "", false, "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, v1.VersionNo)
	assert.Equal(t, 2, v2.VersionNo)
	assert.Equal(t, 1, other.VersionNo, "版本号按月份独立编号")
	assert.Equal(t, "draft", v1.Status)

	cur, err := svc.GetCurrent(ctx, 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, cur.ID, "当前版本为最近创建者")

	list, err := svc.ListByMonth(ctx, 2026, 3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].VersionNo)
}

func TestSnapshotService_GetCurrent_NotFound(t *testing.T) {
	svc, _, _ := setupTestSnapshotService()

	_, err := svc.GetCurrent(context.Background(), 2026, 3)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)

	_, err = svc.GetCurrent(context.Background(), 2026, 0)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidMonth)
}

func TestSnapshotService_Publish_NoopUnlessForced(t *testing.T) {
	svc, _, store := setupTestSnapshotService()
	ctx := context.Background()
	v, err := svc.Create(ctx, 2026, 3, "", false, "u1")
	require.NoError(t, err)

	first, err := svc.Publish(ctx, v.ID, "pub-1", false)
	require.NoError(t, err)
	assert.Equal(t, "published", first.Status)
	require.NotNil(t, first.PublishedAt)
	publishedAt := *store.versions[v.ID].PublishedAt

	again, err := svc.Publish(ctx, v.ID, "pub-2", false)
	require.NoError(t, err)
	assert.Equal(t, "pub-1", *again.PublishedBy, "重复发布不修改发布人")
	assert.Equal(t, publishedAt, *store.versions[v.ID].PublishedAt)
	assert.Equal(t, first.Revision, again.Revision)

	forced, err := svc.Publish(ctx, v.ID, "pub-2", true)
	require.NoError(t, err)
	assert.Equal(t, "pub-2", *forced.PublishedBy)
	assert.Greater(t, forced.Revision, first.Revision)
}

func TestSnapshotService_Publish_ConcurrentIsIdempotent(t *testing.T) {
	svc, _, store := setupTestSnapshotService()
	ctx := context.Background()
	v, err := svc.Create(ctx, 2026, 3, "", false, "u1")
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Publish(ctx, v.ID, fmt.Sprintf("pub-%d", i), false)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err, "并发发布的后到者应按已发布处理")
	}
	stored := store.versions[v.ID]
	assert.True(t, stored.IsPublished)
	assert.Equal(t, 2, stored.Revision, "只应发布一次")
}

func TestSnapshotService_Publish_NotFound(t *testing.T) {
	svc, _, _ := setupTestSnapshotService()

	_, err := svc.Publish(context.Background(), "missing", "u1", false)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestSnapshotService_SetBase_SingleBasePerMonth(t *testing.T) {
	svc, _, store := setupTestSnapshotService()
	ctx := context.Background()
	v1, _ := svc.Create(ctx, 2026, 3, "", true, "u1")
	v2, _ := svc.Create(ctx, 2026, 3, "", false, "u1")
	april, _ := svc.Create(ctx, 2026, 4, "", true, "u1")

	require.True(t, store.versions[v1.ID].IsBaseVersion)

	resp, err := svc.SetBase(ctx, v2.ID, true, "u1")
	require.NoError(t, err)
	assert.True(t, resp.IsBaseVersion)
	assert.False(t, store.versions[v1.ID].IsBaseVersion, "同月原基准应被清除")
	assert.True(t, store.versions[april.ID].IsBaseVersion, "其他月份不受影响")

	resp, err = svc.SetBase(ctx, v2.ID, false, "u1")
	require.NoError(t, err)
	assert.False(t, resp.IsBaseVersion)
}

func TestSnapshotService_CreateAsBase_ClearsPrevious(t *testing.T) {
	svc, _, store := setupTestSnapshotService()
	ctx := context.Background()
	v1, _ := svc.Create(ctx, 2026, 3, "", true, "u1")
	v2, _ := svc.Create(ctx, 2026, 3, "", true, "u1")

	assert.False(t, store.versions[v1.ID].IsBaseVersion)
	assert.True(t, store.versions[v2.ID].IsBaseVersion)
}

func TestSnapshotService_Replace_InvalidatesDiffCache(t *testing.T) {
	svc, repo, store := setupTestSnapshotService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, 2026, 3, "", false, "u1")
	b, _ := svc.Create(ctx, 2026, 3, "", false, "u1")
	_ = repo.Diff.Upsert(ctx, &model.VersionDiff{VersionID: b.ID, BaseVersionID: a.ID})
	_ = repo.Diff.Upsert(ctx, &model.VersionDiff{VersionID: a.ID, BaseVersionID: b.ID})
	require.Len(t, store.diffs, 2)

	err := svc.Replace(ctx, a.ID, []model.DayAssignment{
		{StaffID: "s1", DutyDate: marchDay(1), DutyCode: "D"},
	})
	require.NoError(t, err)
	assert.Empty(t, store.diffs, "任一侧版本内容变化都应清除缓存")
}

func TestSnapshotService_Replace_AtomicOnDuplicate(t *testing.T) {
	svc, _, store := setupTestSnapshotService()
	ctx := context.Background()
	v, _ := svc.Create(ctx, 2026, 3, "", false, "u1")
	require.NoError(t, svc.Replace(ctx, v.ID, []model.DayAssignment{
		{StaffID: "s1", DutyDate: marchDay(1), DutyCode: "D"},
		{StaffID: "s1", DutyDate: marchDay(2), DutyCode: "N"},
	}))

	err := svc.Replace(ctx, v.ID, []model.DayAssignment{
		{StaffID: "s1", DutyDate: marchDay(1), DutyCode: "O"},
		{StaffID: "s1", DutyDate: marchDay(1), DutyCode: "E"},
	})
	require.Error(t, err)
	rows := store.assignments[v.ID]
	require.Len(t, rows, 2, "失败的替换不应改变原有排班")
	assert.Equal(t, "D", rows[0].DutyCode)
}

func TestSnapshotService_Entries_Grid(t *testing.T) {
	svc, repo, _ := setupTestSnapshotService()
	ctx := context.Background()
	seedStaff(repo, model.Staff{StaffID: "s2", EmployeeNo: "002", Name: "乙", SortOrder: 2})
	seedStaff(repo, model.Staff{StaffID: "s1", EmployeeNo: "001", Name: "甲", SortOrder: 1})
	v, _ := svc.Create(ctx, 2026, 3, "", false, "u1")
	require.NoError(t, svc.Replace(ctx, v.ID, []model.DayAssignment{
		{StaffID: "s2", DutyDate: marchDay(1), DutyCode: "N"},
		{StaffID: "s1", DutyDate: marchDay(1), DutyCode: "D", AreaCode: "W1"},
		{StaffID: "s1", DutyDate: marchDay(31), DutyCode: "O"},
		{StaffID: "gone", DutyDate: marchDay(2), DutyCode: "E"},
	}))

	grid, err := svc.Entries(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 31, grid.Days)
	assert.EqualValues(t, 4, grid.Version.EntryCount)
	require.Len(t, grid.Rows, 3)

	assert.Equal(t, "s1", grid.Rows[0].StaffID)
	assert.Equal(t, "甲", grid.Rows[0].Name)
	assert.Len(t, grid.Rows[0].Duties, 31)
	assert.Equal(t, byte('D'), grid.Rows[0].Duties[0])
	assert.Equal(t, byte('-'), grid.Rows[0].Duties[1])
	assert.Equal(t, byte('O'), grid.Rows[0].Duties[30])
	assert.Equal(t, "s2", grid.Rows[1].StaffID)
	assert.Equal(t, "gone", grid.Rows[2].StaffID, "档案缺失的人员排在最后")
}

func TestSnapshotService_Entries_WideCodesKeepFullValue(t *testing.T) {
	svc, repo, _ := setupTestSnapshotService()
	ctx := context.Background()
	seedStaff(repo, model.Staff{StaffID: "s1", EmployeeNo: "001", Name: "甲", SortOrder: 1})
	v, _ := svc.Create(ctx, 2026, 3, "", false, "u1")
	require.NoError(t, svc.Replace(ctx, v.ID, []model.DayAssignment{
		{StaffID: "s1", DutyDate: marchDay(1), DutyCode: "DN"},
		{StaffID: "s1", DutyDate: marchDay(2), DutyCode: "夜"},
		{StaffID: "s1", DutyDate: marchDay(3), DutyCode: "D"},
	}))

	grid, err := svc.Entries(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, grid.Rows, 1)
	row := grid.Rows[0]
	assert.Len(t, row.Duties, 31, "Duties 每天固定一个字节")
	assert.Equal(t, "**D", row.Duties[:3])

	got := make(map[int]string)
	for _, c := range row.Cells {
		got[c.Day] = c.DutyCode
	}
	assert.Equal(t, map[int]string{1: "DN", 2: "夜", 3: "D"}, got)
}
