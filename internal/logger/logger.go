package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/nsxzhou1114/shock-api/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger 全局日志实例，未初始化时为空实现
	Logger = zap.NewNop()
	// SugaredLogger 语法糖日志实例
	SugaredLogger = Logger.Sugar()
	loggerOnce    sync.Once
)

// 不记录访问日志的路径
var quietPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// Init 初始化日志
func Init() error {
	cfg := config.GlobalConfig
	loggerOnce.Do(func() {
		Logger = New(&cfg.Log, cfg.App.Mode)
		SugaredLogger = Logger.Sugar()
	})
	return nil
}

// Sync 同步日志
func Sync() error {
	return Logger.Sync()
}

// New 按配置创建日志实例，debug 模式输出便于阅读的控制台格式
func New(cfg *config.LogConfig, mode string) *zap.Logger {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder

	var encoder zapcore.Encoder
	if mode == gin.DebugMode {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	return zap.New(
		zapcore.NewCore(encoder, writeSyncer(cfg), level),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// writeSyncer 配置了文件名时使用lumberjack轮转，可同时输出到控制台
func writeSyncer(cfg *config.LogConfig) zapcore.WriteSyncer {
	if cfg.Filename == "" {
		return zapcore.AddSync(os.Stdout)
	}
	rotated := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	})
	if !cfg.Stdout {
		return rotated
	}
	return zapcore.NewMultiWriteSyncer(rotated, zapcore.AddSync(os.Stdout))
}

// GetSugaredLogger 获取供组件直接调用的语法糖日志实例
func GetSugaredLogger() *zap.SugaredLogger {
	return Logger.WithOptions(zap.AddCallerSkip(-1)).Sugar()
}

// Named 获取带组件名的日志实例
func Named(component string) *zap.SugaredLogger {
	return GetSugaredLogger().Named(component)
}

// GinLogger 访问日志中间件，按响应状态选择日志级别
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if _, ok := quietPaths[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", c.Request.URL.RawQuery),
			zap.String("ip", c.ClientIP()),
			zap.String("request_id", c.GetString("requestID")),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.Duration("cost", time.Since(start)),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("errors", errs))
		}

		switch {
		case status >= 500:
			Logger.Error("HTTP请求", fields...)
		case status >= 400:
			Logger.Warn("HTTP请求", fields...)
		default:
			Logger.Info("HTTP请求", fields...)
		}
	}
}

// Info 信息日志
func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

// Warn 警告日志
func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

// Error 错误日志
func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

// Fatal 致命错误日志
func Fatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, fields...)
}

// Infof 格式化信息日志
func Infof(format string, args ...interface{}) {
	SugaredLogger.Infof(format, args...)
}

// Warnf 格式化警告日志
func Warnf(format string, args ...interface{}) {
	SugaredLogger.Warnf(format, args...)
}

// Errorf 格式化错误日志
func Errorf(format string, args ...interface{}) {
	SugaredLogger.Errorf(format, args...)
}
