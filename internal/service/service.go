package service

import (
	"strings"

	"go.uber.org/zap"

	"duty-roster/config"
	"duty-roster/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Pattern    PatternService
	Roster     RosterProvider
	Snapshot   SnapshotService
	Generation GenerationService
	Diff       DiffService
	Export     ExportService
}

// NewService 创建 Service 聚合。locker 为 nil 时使用进程内月份锁。
func NewService(cfg *config.Config, repo *repository.Repository, locker MonthLocker, logger *zap.Logger) *Service {
	if locker == nil {
		logger.Warn("未启用 Redis，月份生成锁仅在本进程内生效")
		locker = NewLocalMonthLocker()
	}

	// viper 会把 map 键转成小写，班次代码在此统一为大写
	workTimes := make(map[string]string, len(cfg.Generation.WorkTimes))
	for code, t := range cfg.Generation.WorkTimes {
		workTimes[strings.ToUpper(code)] = t
	}

	pattern := NewPatternService(repo, logger.Named("pattern"))
	roster := NewRosterProvider(repo, pattern, logger.Named("roster"))
	snapshot := NewSnapshotService(repo, logger.Named("snapshot"))

	return &Service{
		Pattern:  pattern,
		Roster:   roster,
		Snapshot: snapshot,
		Generation: NewGenerationService(repo, roster, locker, GenerationOptions{
			Workers:   cfg.Generation.Workers,
			LockTTL:   cfg.Generation.LockTTL,
			WorkTimes: workTimes,
		}, logger.Named("generation")),
		Diff:   NewDiffService(repo, logger.Named("diff")),
		Export: NewExportService(snapshot, logger.Named("export")),
	}
}
