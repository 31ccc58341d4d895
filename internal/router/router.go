package router

import (
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/nsxzhou1114/shock-api/internal/controller"
	"github.com/nsxzhou1114/shock-api/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的控制器与中间件
type Handlers struct {
	Visitor   *controller.VisitorApi
	Dashboard *controller.DashboardApi
	Admin     *controller.AdminApi
	// TrackLimiter 为空时不限流
	TrackLimiter *middleware.IPRateLimiter
	// JWT 返回当前JWT配置
	JWT func() config.JWTConfig
}

// Setup 设置API路由
func Setup(r *gin.Engine, h Handlers) {
	r.GET("/healthz", controller.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由组
	api := r.Group("/api")

	// 访客相关路由
	setupVisitorRoutes(api, h)

	// 管理后台路由
	setupAdminRoutes(api, h)
}

// setupVisitorRoutes 设置访客相关路由
func setupVisitorRoutes(api *gin.RouterGroup, h Handlers) {
	track := []gin.HandlerFunc{}
	if h.TrackLimiter != nil {
		track = append(track, middleware.RateLimit(h.TrackLimiter))
	}
	track = append(track, h.Visitor.Track)

	// 记录访问
	api.POST("/track", track...)
	// 查询本机信息，不记录
	api.GET("/ip", h.Visitor.WhoAmI)
}

// setupAdminRoutes 设置管理后台路由
func setupAdminRoutes(api *gin.RouterGroup, h Handlers) {
	adminRoutes := api.Group("/admin")
	{
		// 登录
		adminRoutes.POST("/login", h.Admin.Login)
	}

	authed := adminRoutes.Group("")
	authed.Use(middleware.AdminAuth(h.JWT))
	{
		// 仪表盘统计
		authed.GET("/dashboard", h.Dashboard.Stats)
		// 访客列表
		authed.GET("/visitors", h.Dashboard.List)
	}
}
