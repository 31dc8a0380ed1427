package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-erp/backend/config"
	"campus-erp/backend/internal/app"
	"campus-erp/backend/internal/model"
	"campus-erp/backend/internal/repository"
	"campus-erp/backend/internal/service"
	"campus-erp/backend/pkg/database"
	applogger "campus-erp/backend/pkg/logger"
	"campus-erp/backend/pkg/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// scopeFlags 作用域命令行参数
type scopeFlags struct {
	ay, degree                    string
	year, term                    int
	program, branch, cg, division string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.ay, "ay", "", "学年标签，如 2025-26（必填）")
	fs.StringVar(&f.degree, "degree", "", "学位代码（必填）")
	fs.IntVar(&f.year, "year", 0, "年级（必填）")
	fs.IntVar(&f.term, "term", 0, "学期（必填）")
	fs.StringVar(&f.program, "program", "", "专业代码，留空表示不限")
	fs.StringVar(&f.branch, "branch", "", "方向代码，留空表示不限")
	fs.StringVar(&f.cg, "cg", "", "课程组代码，留空表示不限")
	fs.StringVar(&f.division, "division", "", "班级代码，留空表示不限")
	_ = cmd.MarkFlagRequired("ay")
	_ = cmd.MarkFlagRequired("degree")
	_ = cmd.MarkFlagRequired("year")
	_ = cmd.MarkFlagRequired("term")
}

func (f *scopeFlags) scope() (model.Scope, error) {
	sc := model.Scope{
		AYLabel:             f.ay,
		DegreeCode:          f.degree,
		Year:                f.year,
		Term:                f.term,
		ProgramCode:         model.StrPtr(f.program),
		BranchCode:          model.StrPtr(f.branch),
		CurriculumGroupCode: model.StrPtr(f.cg),
		DivisionCode:        model.StrPtr(f.division),
	}
	if err := sc.Validate(); err != nil {
		return model.Scope{}, fmt.Errorf("%w: --ay --degree --year --term 必填且年级、学期须大于 0", err)
	}
	return sc, nil
}

// cliEnv 一次命令执行所需的依赖
type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
	svc    *service.Service
}

func newEnv(configPath string) (*cliEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}

	rt := &cliEnv{cfg: cfg, logger: logger, db: db}

	var locker service.ScopeLocker
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，作用域锁降级为进程内锁", zap.Error(err))
		} else {
			rt.rdb = rdb
			locker = rdb
		}
	}

	rt.svc = service.NewService(&cfg.Normalizer, repository.NewRepository(db), locker, logger)
	return rt, nil
}

func (rt *cliEnv) Close() {
	if sqlDB, err := rt.db.DB(); err == nil {
		sqlDB.Close()
	}
	if rt.rdb != nil {
		rt.rdb.Close()
	}
	_ = rt.logger.Sync()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "timetablectl",
		Short:         "周课表规范化与冲突检测命令行工具",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径（默认 ./config/config.yaml）")

	// scopedCmd 构造需要作用域并持有作用域锁的子命令
	scopedCmd := func(use, short string, fn func(ctx context.Context, svc *service.Service, scope model.Scope) (interface{}, error)) *cobra.Command {
		var flags scopeFlags
		cmd := &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				scope, err := flags.scope()
				if err != nil {
					return err
				}
				rt, err := newEnv(configPath)
				if err != nil {
					return err
				}
				defer rt.Close()

				var result interface{}
				err = rt.svc.Guard.Run(cmd.Context(), scope, func(ctx context.Context) error {
					var ferr error
					result, ferr = fn(ctx, rt.svc, scope)
					return ferr
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			},
		}
		flags.register(cmd)
		return cmd
	}

	root.AddCommand(
		scopedCmd("rebuild", "重建作用域内的规范化课时", func(ctx context.Context, svc *service.Service, scope model.Scope) (interface{}, error) {
			return svc.Normalizer.RebuildNormalized(ctx, scope)
		}),
		scopedCmd("detect", "基于已有规范化课时重新检测冲突", func(ctx context.Context, svc *service.Service, scope model.Scope) (interface{}, error) {
			return svc.Normalizer.DetectConflicts(ctx, scope)
		}),
		scopedCmd("check", "重建并检测冲突", func(ctx context.Context, svc *service.Service, scope model.Scope) (interface{}, error) {
			return svc.Normalizer.RebuildAndCheck(ctx, scope)
		}),
		newExportCmd(&configPath),
		newBatchCmd(&configPath),
		newMigrateCmd(&configPath),
	)
	return root
}

func newExportCmd(configPath *string) *cobra.Command {
	var flags scopeFlags
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出作用域周课表为 xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, err := flags.scope()
			if err != nil {
				return err
			}
			rt, err := newEnv(*configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			buf, filename, err := rt.svc.Export.ExportScope(cmd.Context(), scope)
			if err != nil {
				return err
			}
			if output == "" {
				output = filename
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("写入文件失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已导出到 %s\n", output)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "输出文件路径，默认按作用域命名")
	return cmd
}

func newBatchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "batch",
		Short: "按配置文件 normalizer.scopes 批量重建并检测",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newEnv(*configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			scopes, err := app.ScopesFromConfig(rt.cfg.Normalizer.Scopes)
			if err != nil {
				return err
			}
			if len(scopes) == 0 {
				return fmt.Errorf("配置中未定义 normalizer.scopes")
			}
			results, err := rt.svc.Batch.RebuildAll(cmd.Context(), scopes)
			if perr := printJSON(cmd, results); perr != nil {
				return perr
			}
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Error != "" {
					return fmt.Errorf("部分作用域重建失败")
				}
			}
			return nil
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newEnv(*configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			sqlDB, err := rt.db.DB()
			if err != nil {
				return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
			}
			return database.RunMigrations(sqlDB, rt.cfg.Database.Driver, rt.logger)
		},
	}
}
