// Package app 负责组装 HTTP 服务与运维命令行共用的依赖
package app

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/longbo188/workshop-sub000/config"
	"github.com/longbo188/workshop-sub000/internal/repository"
	"github.com/longbo188/workshop-sub000/internal/service"
	"github.com/longbo188/workshop-sub000/pkg/database"
	"github.com/longbo188/workshop-sub000/pkg/jwt"
	"github.com/longbo188/workshop-sub000/pkg/redis"
)

// App 已初始化的基础设施与业务服务
type App struct {
	DB      *gorm.DB
	Redis   *redis.Client // Redis 不可用时为 nil
	JWT     *jwt.Manager
	Repo    *repository.Repository
	Service *service.Service

	logger *zap.Logger
}

// New 连接数据库、执行迁移、连接 Redis 并完成依赖注入
// Redis 连接失败时降级运行：无快照缓存、仅进程内互斥、无限流
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	logger.Info("数据库连接成功")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，快照缓存、分布式锁与限流将不可用", zap.Error(err))
		rdb = nil
	}

	repo := repository.NewRepository(db)
	return &App{
		DB:      db,
		Redis:   rdb,
		JWT:     jwt.NewManager(&cfg.Auth),
		Repo:    repo,
		Service: service.NewService(cfg, repo, rdb, logger),
		logger:  logger,
	}, nil
}

// Close 释放数据库与 Redis 连接
func (a *App) Close() {
	if sqlDB, err := a.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.logger.Warn("关闭数据库连接失败", zap.Error(err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.logger.Warn("关闭 Redis 连接失败", zap.Error(err))
		}
	}
}
