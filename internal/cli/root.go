package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"duty-roster/config"
	"duty-roster/internal/repository"
	"duty-roster/internal/service"
	"duty-roster/pkg/database"
	applogger "duty-roster/pkg/logger"
)

// callerID 命令行操作写入 created_by / updated_by 的标识
const callerID = "rosterctl"

// RootCmd 返回 rosterctl 根命令
func RootCmd(version string) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:     "rosterctl",
		Short:   "排班引擎运维工具",
		Version: version,
		Long: `rosterctl 直接连接排班数据库，提供迁移、排班预览、班组清理与版本比较。

与 HTTP 服务共用同一份配置文件及 ROSTER_* 环境变量。`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径")

	root.AddCommand(MigrateCmd(&configPath))
	root.AddCommand(PreviewCmd(&configPath))
	root.AddCommand(CleanGroupsCmd(&configPath))
	root.AddCommand(DiffCmd(&configPath))
	return root
}

// app 子命令共享的运行环境
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	sqlDB  *sql.DB
}

// bootstrap 加载配置、日志与数据库连接
func bootstrap(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, &cfg.Log, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return &app{cfg: cfg, logger: logger, db: db, sqlDB: sqlDB}, nil
}

// services 命令行进程独占运行，月份锁使用进程内实现
func (a *app) services() *service.Service {
	return service.NewService(a.cfg, repository.NewRepository(a.db), nil, a.logger)
}

func (a *app) close() {
	_ = a.sqlDB.Close()
	_ = a.logger.Sync()
}
