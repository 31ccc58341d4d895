package service

import (
	"crypto/subtle"
	"errors"

	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/nsxzhou1114/shock-api/pkg/auth"
	"go.uber.org/zap"
)

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = errors.New("用户名或密码错误")

// AdminService 管理员认证服务，账号来自配置文件
type AdminService struct {
	admin  config.AdminConfig
	jwt    config.JWTConfig
	logger *zap.SugaredLogger
}

// NewAdminService 创建管理员服务
func NewAdminService(admin config.AdminConfig, jwt config.JWTConfig, logger *zap.SugaredLogger) *AdminService {
	return &AdminService{admin: admin, jwt: jwt, logger: logger}
}

// Login 校验账号密码并签发令牌
func (s *AdminService) Login(username, password string) (*auth.Token, error) {
	if s.admin.Username == "" || s.admin.PasswordHash == "" {
		return nil, errors.New("未配置管理员账号")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) == 1
	passOK := auth.CheckPassword(s.admin.PasswordHash, password)
	if !userOK || !passOK {
		s.logger.Warnf("管理员登录失败: %s", username)
		return nil, ErrInvalidCredentials
	}
	return auth.GenerateToken(s.jwt, username)
}
