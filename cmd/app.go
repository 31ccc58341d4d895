package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nsxzhou1114/shock-api/internal/classifier"
	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/nsxzhou1114/shock-api/internal/controller"
	"github.com/nsxzhou1114/shock-api/internal/cron"
	"github.com/nsxzhou1114/shock-api/internal/database"
	"github.com/nsxzhou1114/shock-api/internal/geo"
	"github.com/nsxzhou1114/shock-api/internal/logger"
	"github.com/nsxzhou1114/shock-api/internal/middleware"
	"github.com/nsxzhou1114/shock-api/internal/model"
	"github.com/nsxzhou1114/shock-api/internal/router"
	"github.com/nsxzhou1114/shock-api/internal/search"
	"github.com/nsxzhou1114/shock-api/internal/service"
	"github.com/nsxzhou1114/shock-api/pkg/cache"
	"gorm.io/gorm"
)

// application 服务运行所需的全部组件
type application struct {
	db        *gorm.DB
	cacheMgr  *cache.Manager
	index     *search.VisitorIndex
	resolver  *geo.Resolver
	visitors  *service.VisitorService
	dashboard *service.DashboardService
	admin     *service.AdminService
	limiter   *middleware.IPRateLimiter
	scheduler *cron.Scheduler
}

// openStorage 连接数据库并初始化表结构，Redis与ES按配置可选
func openStorage(ctx context.Context) (*gorm.DB, *cache.Manager, *search.VisitorIndex, error) {
	cfg := config.GlobalConfig

	// 初始化MySQL数据库
	db := database.GetDB()
	if err := model.InitTables(db); err != nil {
		return nil, nil, nil, fmt.Errorf("初始化数据库表失败: %w", err)
	}

	// 初始化Elasticsearch索引
	index := search.NewVisitorIndex(database.GetES(), cfg.Elasticsearch.Index, logger.Named("search"))
	if err := index.EnsureIndex(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("初始化Elasticsearch索引失败: %w", err)
	}

	// 初始化缓存
	cacheMgr := cache.NewManager(database.GetRedis(), logger.Named("cache"))
	if err := cacheMgr.Initialize(ctx, db); err != nil {
		return nil, nil, nil, fmt.Errorf("缓存初始化失败: %w", err)
	}
	return db, cacheMgr, index, nil
}

// newApplication 按配置组装服务
func newApplication(ctx context.Context) (*application, error) {
	cfg := config.GlobalConfig

	db, cacheMgr, index, err := openStorage(ctx)
	if err != nil {
		return nil, err
	}

	// 地理位置解析，超时由每次尝试的 context 控制
	resolver, err := geo.NewFromConfig(cfg.Geo, &http.Client{}, logger.Named("geo"))
	if err != nil {
		return nil, fmt.Errorf("初始化地理位置服务商失败: %w", err)
	}

	// 启发式规则表随配置文件热更新
	cls := classifier.New(classifier.PolicyFromConfig(cfg.Classifier))
	cls.WatchConfig()

	app := &application{
		db:       db,
		cacheMgr: cacheMgr,
		index:    index,
		resolver: resolver,
		visitors: service.NewVisitorService(db, resolver, cls, logger.Named("visitor"),
			service.WithDeviceFilter(cacheMgr.GetDeviceFilter()),
			service.WithVisitorIndex(index),
		),
		dashboard: service.NewDashboardService(db, cacheMgr.GetCache(), logger.Named("dashboard")),
		admin:     service.NewAdminService(cfg.Admin, cfg.JWT, logger.Named("admin")),
		scheduler: cron.New(cfg.Cron, logger.Named("cron")),
	}
	if cfg.RateLimit.Enabled {
		app.limiter = middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	if cfg.Cron.Enabled {
		if err := app.scheduler.Add(cfg.Cron.BloomSnapshot, cron.NewBloomSnapshotJob(cacheMgr)); err != nil {
			return nil, err
		}
		summary := cron.NewVisitSummaryJob(app.dashboard, cacheMgr.GetCache(), logger.Named("cron"))
		if err := app.scheduler.Add(cfg.Cron.VisitSummary, summary); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// handlers 路由依赖
func (a *application) handlers() router.Handlers {
	log := logger.Named("http")
	return router.Handlers{
		Visitor:      controller.NewVisitorApi(a.visitors, log),
		Dashboard:    controller.NewDashboardApi(a.dashboard, log),
		Admin:        controller.NewAdminApi(a.admin, log),
		TrackLimiter: a.limiter,
		JWT: func() config.JWTConfig {
			return config.GetConfig().JWT
		},
	}
}

// close 释放资源
func (a *application) close() {
	if err := a.resolver.Close(); err != nil {
		logger.Warnf("关闭离线地址库失败: %v", err)
	}
	if err := a.cacheMgr.Close(); err != nil {
		logger.Warnf("关闭缓存失败: %v", err)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
