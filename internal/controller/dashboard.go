package controller

import (
	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/shock-api/internal/dto"
	"github.com/nsxzhou1114/shock-api/internal/middleware"
	"github.com/nsxzhou1114/shock-api/internal/service"
	"github.com/nsxzhou1114/shock-api/pkg/response"
	"go.uber.org/zap"
)

// DashboardApi 管理后台仪表盘API控制器
type DashboardApi struct {
	logger           *zap.SugaredLogger
	dashboardService *service.DashboardService
}

// NewDashboardApi 创建仪表盘API控制器
func NewDashboardApi(s *service.DashboardService, logger *zap.SugaredLogger) *DashboardApi {
	return &DashboardApi{
		logger:           logger,
		dashboardService: s,
	}
}

// Stats 获取仪表盘统计
func (api *DashboardApi) Stats(c *gin.Context) {
	stats, err := api.dashboardService.Stats(c.Request.Context())
	if err != nil {
		api.logger.Errorf("获取仪表盘统计失败: %v", err)
		response.InternalServerError(c, "获取统计数据失败", err)
		return
	}

	response.Success(c, "获取成功", stats)
}

// List 分页获取访客列表
func (api *DashboardApi) List(c *gin.Context) {
	var req dto.VisitorListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.FormatValidationError(err), err)
		return
	}

	username, _ := middleware.GetUsername(c)
	api.logger.Infof("管理员 %s 查询访客列表: page=%d page_size=%d country=%q threat_level=%q",
		username, req.Page, req.PageSize, req.Country, req.ThreatLevel)

	result, err := api.dashboardService.List(c.Request.Context(), &req)
	if err != nil {
		api.logger.Errorf("获取访客列表失败: %v", err)
		response.InternalServerError(c, "获取访客列表失败", err)
		return
	}

	response.SuccessPage(c, "获取成功", result.List, req.Page, req.PageSize, result.Total)
}
