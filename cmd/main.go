package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopsmart_v1_202610/internal/config"
	"shopsmart_v1_202610/internal/model"
	"shopsmart_v1_202610/pkg/database"
	"shopsmart_v1_202610/pkg/logger"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "shopsmart",
		Short:         "ShopSmart 店面与后台服务",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认 ./config.yaml）")

	root.AddCommand(serveCmd(), migrateCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap 读取配置并初始化日志
func bootstrap() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		Mode:       cfg.Server.Mode,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	return cfg, nil
}

// openDB 连接数据库并自动迁移
func openDB(cfg *config.Config) (*gorm.DB, error) {
	return database.InitDB(database.Options{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		LogLevel: cfg.Log.Level,
	}, model.AllModels()...)
}

// ==================== 子命令 ====================

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = zap.L().Sync() }()

			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			return app.run(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "自动建表/迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			if _, err := openDB(cfg); err != nil {
				return err
			}
			zap.L().Info("migration finished")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "写入内置角色与初始管理员",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			users := newUserService(db)
			ctx := context.Background()
			if err := users.EnsureBuiltinRoles(ctx); err != nil {
				return err
			}
			if err := users.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
				return err
			}
			zap.L().Info("seed finished", zap.String("admin", cfg.Admin.Username))
			return nil
		},
	}
}
