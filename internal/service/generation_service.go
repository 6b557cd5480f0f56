package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"duty-roster/internal/dto"
	"duty-roster/internal/model"
	"duty-roster/internal/repository"
	"duty-roster/internal/rotation"
	"duty-roster/pkg/database"
	pkgerrors "duty-roster/pkg/errors"
)

// GenerationService 月度排班生成
type GenerationService interface {
	// GenerateMonth preview 模式只计算不写库；persist 模式写入目标版本
	GenerateMonth(ctx context.Context, req *dto.GenerateMonthRequest, callerID string) (*dto.GenerationResult, error)
}

// GenerationOptions 生成参数
type GenerationOptions struct {
	Workers   int
	LockTTL   time.Duration
	WorkTimes map[string]string
}

type generationService struct {
	repo     *repository.Repository
	roster   RosterProvider
	locker   MonthLocker
	resolver *rotation.Resolver
	opts     GenerationOptions
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewGenerationService 创建 GenerationService 实例
func NewGenerationService(repo *repository.Repository, roster RosterProvider, locker MonthLocker, opts GenerationOptions, logger *zap.Logger) GenerationService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	if locker == nil {
		locker = NewLocalMonthLocker()
	}
	return &generationService{
		repo:     repo,
		roster:   roster,
		locker:   locker,
		resolver: rotation.NewResolver(opts.WorkTimes),
		opts:     opts,
		tracer:   otel.Tracer("duty-roster/generation"),
		logger:   logger,
	}
}

// staffResult 按花名册下标写入，保证输出顺序确定
type staffResult struct {
	entries []rotation.Entry
	warning *dto.GenerationWarning
}

// existingIndex staff_id → 日 → 已有排班
type existingIndex map[string]map[int]rotation.Entry

// ════════════════════════════════════════════════════════════
// GenerateMonth
// ════════════════════════════════════════════════════════════

func (s *generationService) GenerateMonth(ctx context.Context, req *dto.GenerateMonthRequest, callerID string) (result *dto.GenerationResult, err error) {
	mode := req.Mode
	if mode == "" {
		mode = dto.ModePreview
	}

	ctx, span := s.tracer.Start(ctx, "generation.GenerateMonth", trace.WithAttributes(
		attribute.Int("roster.year", req.Year),
		attribute.Int("roster.month", req.Month),
		attribute.String("roster.mode", mode),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := validateMonth(req.Year, req.Month); err != nil {
		return nil, err
	}
	if mode != dto.ModePreview && mode != dto.ModePersist {
		return nil, pkgerrors.Newf(pkgerrors.KindInvalidMonth, "未知的生成模式 %q", mode)
	}
	month := rotation.Month{Year: req.Year, Month: time.Month(req.Month)}

	// 1. 在岗人员；为空时直接失败，不产生任何写入
	roster, err := s.roster.ActiveRoster(ctx)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, pkgerrors.ErrEmptyRoster
	}

	if mode == dto.ModePreview {
		return s.preview(ctx, month, roster)
	}
	return s.persist(ctx, month, roster, req, callerID)
}

func (s *generationService) preview(ctx context.Context, month rotation.Month, roster []RosterMember) (*dto.GenerationResult, error) {
	existing := existingIndex{}
	current, err := s.repo.Version.GetCurrent(ctx, month.Year, int(month.Month))
	switch {
	case err == nil:
		rows, err := s.repo.Assignment.ListByVersion(ctx, current.VersionID)
		if err != nil {
			s.logger.Error("查询当前版本排班失败", zap.Error(err))
			return nil, err
		}
		existing = indexExisting(rows)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		s.logger.Error("查询当前版本失败", zap.Error(err))
		return nil, err
	}

	results, err := s.resolveRoster(ctx, month, roster, existing)
	if err != nil {
		return nil, err
	}
	return assembleResult(dto.ModePreview, month, roster, results), nil
}

func (s *generationService) persist(ctx context.Context, month rotation.Month, roster []RosterMember, req *dto.GenerateMonthRequest, callerID string) (*dto.GenerationResult, error) {
	key := repository.MonthKey(month.Year, int(month.Month))

	// 2. 月份锁：同一月份同一时刻只允许一次生成
	unlock, ok, err := s.locker.TryLock(ctx, key, s.opts.LockTTL)
	if err != nil {
		s.logger.Error("获取月份生成锁失败", zap.String("month", key), zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.ErrConcurrentRegeneration
	}
	defer unlock()

	var (
		result *dto.GenerationResult
		target *model.RosterVersion
	)
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		// 跨实例串行：事务级咨询锁
		if err := tx.MonthLock.Lock(ctx, month.Year, int(month.Month)); err != nil {
			return err
		}

		current, err := tx.Version.GetCurrent(ctx, month.Year, int(month.Month))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			current = nil
		}

		existing := existingIndex{}
		if current != nil {
			rows, err := tx.Assignment.ListByVersion(ctx, current.VersionID)
			if err != nil {
				return err
			}
			existing = indexExisting(rows)
		}

		results, err := s.resolveRoster(ctx, month, roster, existing)
		if err != nil {
			return err
		}

		target, err = s.targetVersion(ctx, tx, current, month, req, callerID)
		if err != nil {
			return err
		}
		if err := replaceRows(ctx, tx, target.VersionID, toAssignments(results)); err != nil {
			return err
		}

		result = assembleResult(dto.ModePersist, month, roster, results)
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) || errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Warn("并发生成冲突", zap.String("month", key), zap.Error(err))
			return nil, pkgerrors.Wrap(pkgerrors.KindConcurrentRegeneration, pkgerrors.ErrConcurrentRegeneration.Reason, err)
		}
		if pkgerrors.KindOf(err) != "" {
			return nil, err
		}
		s.logger.Error("保存月度排班失败", zap.String("month", key), zap.Error(err))
		return nil, fmt.Errorf("保存月度排班失败: %w", err)
	}

	result.VersionID = &target.VersionID
	result.VersionNo = &target.VersionNo

	s.logger.Info("月度排班已生成",
		zap.String("month", key),
		zap.String("version_id", target.VersionID),
		zap.Int("version_no", target.VersionNo),
		zap.Int("entries", result.EntryCount),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// targetVersion 当前版本为非基准草稿且本次不作为基准时复用，否则新建；
// 已发布或基准版本不会被覆盖。
// 复用时按读取到的 revision 更新版本行，版本在此期间被发布或改动则整个事务失败。
func (s *generationService) targetVersion(ctx context.Context, tx *repository.Repository, current *model.RosterVersion, month rotation.Month, req *dto.GenerateMonthRequest, callerID string) (*model.RosterVersion, error) {
	if current != nil && !current.IsPublished && !current.IsBaseVersion && !req.AsBaseVersion {
		if req.Note != "" {
			current.Note = req.Note
		}
		if callerID != "" {
			current.UpdatedBy = &callerID
		}
		if err := tx.Version.Update(ctx, current); err != nil {
			return nil, err
		}
		return current, nil
	}
	return createVersion(ctx, tx, month.Year, int(month.Month), req.Note, req.AsBaseVersion, callerID)
}

// resolveRoster 按人员并行解析；单人失败不影响其他人员
func (s *generationService) resolveRoster(ctx context.Context, month rotation.Month, roster []RosterMember, existing existingIndex) ([]staffResult, error) {
	ctx, span := s.tracer.Start(ctx, "generation.resolveRoster", trace.WithAttributes(
		attribute.Int("roster.staff", len(roster)),
		attribute.Int("roster.workers", s.opts.Workers),
	))
	defer span.End()

	results := make([]staffResult, len(roster))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i := range roster {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.resolveOne(month, roster[i], existing[roster[i].Member.StaffID])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return results, nil
}

func (s *generationService) resolveOne(month rotation.Month, rm RosterMember, existing map[int]rotation.Entry) staffResult {
	err := rm.Err
	var entries []rotation.Entry
	if err == nil {
		entries, err = s.resolver.ResolveMonth(rm.Member, month, existing)
	}
	if err != nil {
		s.logger.Warn("人员排班解析失败，按整月休息处理",
			zap.String("staff_id", rm.Member.StaffID),
			zap.String("month", month.String()),
			zap.Error(err),
		)
		return staffResult{
			entries: rotation.OffMonth(rm.Member.StaffID, month),
			warning: &dto.GenerationWarning{StaffID: rm.Member.StaffID, Message: err.Error()},
		}
	}
	return staffResult{entries: entries}
}

// ── 辅助函数 ──

func indexExisting(rows []model.DayAssignment) existingIndex {
	idx := make(existingIndex)
	for _, r := range rows {
		byDay, ok := idx[r.StaffID]
		if !ok {
			byDay = make(map[int]rotation.Entry)
			idx[r.StaffID] = byDay
		}
		byDay[r.DutyDate.Day()] = rotation.Entry{
			StaffID:     r.StaffID,
			Date:        r.DutyDate,
			Code:        r.DutyCode,
			AreaCode:    r.AreaCode,
			WorkTime:    r.WorkTime,
			SpecialType: r.SpecialType,
		}
	}
	return idx
}

func toAssignments(results []staffResult) []model.DayAssignment {
	total := 0
	for _, r := range results {
		total += len(r.entries)
	}
	rows := make([]model.DayAssignment, 0, total)
	for _, r := range results {
		for _, e := range r.entries {
			rows = append(rows, model.DayAssignment{
				StaffID:     e.StaffID,
				DutyDate:    e.Date,
				DutyCode:    e.Code,
				AreaCode:    e.AreaCode,
				WorkTime:    e.WorkTime,
				SpecialType: e.SpecialType,
			})
		}
	}
	return rows
}

func assembleResult(mode string, month rotation.Month, roster []RosterMember, results []staffResult) *dto.GenerationResult {
	res := &dto.GenerationResult{
		Mode:     mode,
		Year:     month.Year,
		Month:    int(month.Month),
		Days:     month.DaysIn(),
		Staff:    make([]dto.StaffDuty, 0, len(roster)),
		Warnings: make([]dto.GenerationWarning, 0),
	}
	for i, rm := range roster {
		r := results[i]
		res.EntryCount += len(r.entries)
		res.Staff = append(res.Staff, dto.StaffDuty{
			StaffID:    rm.Staff.StaffID,
			EmployeeNo: rm.Staff.EmployeeNo,
			Name:       rm.Staff.Name,
			Rule:       rotation.RuleName(rm.Member.Rule),
			Duties:     rotation.DutyString(r.entries),
		})
		if r.warning != nil {
			res.Warnings = append(res.Warnings, *r.warning)
		}
	}
	return res
}
