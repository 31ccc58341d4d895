package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequestIDKey 请求ID在gin上下文中的键
const RequestIDKey = "requestID"

// Response 统一响应结构
type Response struct {
	Code      int    `json:"code"`                 // 状态码，成功为0
	Message   string `json:"message"`              // 响应消息
	Data      any    `json:"data"`                 // 响应数据
	Meta      any    `json:"meta,omitempty"`       // 元数据，如分页信息
	RequestID string `json:"request_id,omitempty"` // 请求ID，便于排查日志
}

// PageMeta 分页元数据
type PageMeta struct {
	Page  int   `json:"page"`  // 当前页码
	Size  int   `json:"size"`  // 每页大小
	Total int64 `json:"total"` // 总记录数
}

// Success 返回成功响应
func Success(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   message,
		Data:      data,
		RequestID: c.GetString(RequestIDKey),
	})
}

// SuccessPage 返回分页成功响应
func SuccessPage(c *gin.Context, message string, data any, page, size int, total int64) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: message,
		Data:    data,
		Meta: PageMeta{
			Page:  page,
			Size:  size,
			Total: total,
		},
		RequestID: c.GetString(RequestIDKey),
	})
}

// Error 错误响应，err 只记录到gin上下文供日志使用，不返回给客户端
func Error(c *gin.Context, code int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(code, Response{
		Code:      code,
		Message:   message,
		Data:      nil,
		RequestID: c.GetString(RequestIDKey),
	})
}

// BadRequest 400错误响应
func BadRequest(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized 401错误响应
func Unauthorized(c *gin.Context, message string, err error) {
	Error(c, http.StatusUnauthorized, message, err)
}

// Forbidden 403错误响应
func Forbidden(c *gin.Context, message string, err error) {
	Error(c, http.StatusForbidden, message, err)
}

// TooManyRequests 429错误响应
func TooManyRequests(c *gin.Context, message string) {
	Error(c, http.StatusTooManyRequests, message, nil)
}

// InternalServerError 500错误响应
func InternalServerError(c *gin.Context, message string, err error) {
	Error(c, http.StatusInternalServerError, message, err)
}
