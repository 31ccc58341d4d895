package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/nsxzhou1114/shock-api/internal/config"
)

// RoleAdmin 管理员角色
const RoleAdmin = "admin"

// ErrInvalidToken 令牌无效
var ErrInvalidToken = errors.New("无效的令牌")

// ErrInsecureSecret JWT密钥为空或仍是示例配置中的值
var ErrInsecureSecret = errors.New("JWT密钥未配置或使用了示例值")

// ExampleSecretKey 示例配置文件中的占位密钥
const ExampleSecretKey = "change-me"

// ValidateConfig 校验JWT密钥可用于签发和校验令牌
func ValidateConfig(cfg config.JWTConfig) error {
	if cfg.SecretKey == "" || cfg.SecretKey == ExampleSecretKey {
		return ErrInsecureSecret
	}
	return nil
}

// Claims 自定义JWT声明结构体
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

// Token 登录返回的访问令牌
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // 过期时间（秒）
}

// GenerateToken 为管理员签发访问令牌
func GenerateToken(cfg config.JWTConfig, username string) (*Token, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("未配置JWT密钥")
	}
	expire := time.Duration(cfg.AccessExpireSeconds) * time.Second
	now := time.Now()

	claims := Claims{
		Username: username,
		Role:     RoleAdmin,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(expire).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    cfg.Issuer,
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.SecretKey))
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   int(expire.Seconds()),
	}, nil
}

// ParseToken 解析并校验JWT令牌
func ParseToken(cfg config.JWTConfig, tokenString string) (*Claims, error) {
	// 空密钥下任何人都能伪造签名
	if cfg.SecretKey == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(cfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
