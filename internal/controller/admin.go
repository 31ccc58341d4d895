package controller

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/shock-api/internal/dto"
	"github.com/nsxzhou1114/shock-api/internal/service"
	"github.com/nsxzhou1114/shock-api/pkg/response"
	"go.uber.org/zap"
)

// AdminApi 管理员API控制器
type AdminApi struct {
	logger       *zap.SugaredLogger
	adminService *service.AdminService
}

// NewAdminApi 创建管理员API控制器
func NewAdminApi(s *service.AdminService, logger *zap.SugaredLogger) *AdminApi {
	return &AdminApi{
		logger:       logger,
		adminService: s,
	}
}

// Login 管理员登录
func (api *AdminApi) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.FormatValidationError(err), err)
		return
	}

	token, err := api.adminService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "用户名或密码错误", err)
			return
		}
		api.logger.Errorf("管理员登录失败: %v", err)
		response.InternalServerError(c, "登录失败", err)
		return
	}

	response.Success(c, "登录成功", token)
}
