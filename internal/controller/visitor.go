package controller

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/nsxzhou1114/shock-api/internal/dto"
	"github.com/nsxzhou1114/shock-api/internal/service"
	"github.com/nsxzhou1114/shock-api/pkg/response"
	"go.uber.org/zap"
)

// VisitorApi 访客API控制器
type VisitorApi struct {
	logger         *zap.SugaredLogger
	visitorService *service.VisitorService
}

// NewVisitorApi 创建访客API控制器
func NewVisitorApi(s *service.VisitorService, logger *zap.SugaredLogger) *VisitorApi {
	return &VisitorApi{
		logger:         logger,
		visitorService: s,
	}
}

// Track 记录一次访问并返回分析结果
func (api *VisitorApi) Track(c *gin.Context) {
	var req dto.ClientFingerprint
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.BadRequest(c, response.FormatValidationError(err), err)
			return
		}
		api.logger.Errorf("解析访问数据失败: %v", err)
		response.InternalServerError(c, "访问数据格式错误", err)
		return
	}

	resp, err := api.visitorService.Track(c.Request.Context(), service.TrackInput{
		Header:      c.Request.Header,
		Fingerprint: req,
	})
	if err != nil {
		api.logger.Errorf("记录访问失败: %v", err)
		response.InternalServerError(c, "记录访问失败", err)
		return
	}

	response.Success(c, "记录成功", resp)
}

// WhoAmI 返回当前请求的分析结果，不做记录
func (api *VisitorApi) WhoAmI(c *gin.Context) {
	resp, err := api.visitorService.Lookup(c.Request.Context(), c.Request.Header)
	if err != nil {
		api.logger.Errorf("分析访问失败: %v", err)
		response.InternalServerError(c, "分析访问失败", err)
		return
	}

	response.Success(c, "获取成功", resp)
}
