package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/nsxzhou1114/shock-api/internal/logger"
	"github.com/nsxzhou1114/shock-api/internal/middleware"
	"github.com/nsxzhou1114/shock-api/internal/router"
	"github.com/nsxzhou1114/shock-api/pkg/auth"
	"github.com/nsxzhou1114/shock-api/pkg/idgen"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "shock-api",
	Short: "访客追踪演示服务",
	Long:  `收集访客浏览器指纹与IP地理信息，提供访客分析接口与管理后台统计`,
}

// serveCmd 启动服务命令
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP服务",
	Long:  `启动访客追踪的HTTP服务器`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	// 添加全局标志
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config", "配置文件路径")

	// 添加子命令
	rootCmd.AddCommand(serveCmd)
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// initializeSystem 初始化配置、日志与ID生成器
func initializeSystem() error {
	// 初始化配置
	if err := config.Init(configPath); err != nil {
		return fmt.Errorf("配置初始化失败: %w", err)
	}

	// 初始化日志
	if err := logger.Init(); err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}

	// 初始化ID生成器
	app := config.GlobalConfig.App
	if err := idgen.Init(app.StartTime, app.MachineID); err != nil {
		return fmt.Errorf("ID生成器初始化失败: %w", err)
	}
	return nil
}

// startServer 启动HTTP服务
func startServer() {
	// 初始化系统
	if err := initializeSystem(); err != nil {
		fmt.Printf("系统初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 拒绝使用空密钥或示例密钥启动
	if err := auth.ValidateConfig(config.GlobalConfig.JWT); err != nil {
		logger.Fatal("JWT配置不安全", zap.Error(err))
	}

	app, err := newApplication(context.Background())
	if err != nil {
		logger.Fatal("组装服务失败", zap.Error(err))
	}
	defer app.close()

	// 设置Gin模式
	gin.SetMode(config.GlobalConfig.App.Mode)

	handler, err := initRouter(app)
	if err != nil {
		logger.Fatal("初始化路由失败", zap.Error(err))
	}

	// 启动HTTP服务
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.GlobalConfig.App.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 优雅关闭
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP服务启动失败", zap.Error(err))
		}
	}()

	app.scheduler.Start()
	logger.Info("服务已启动",
		zap.String("addr", srv.Addr),
		zap.Strings("geo_providers", app.resolver.Providers()),
	)
	printSystem(config.GlobalConfig.App.Port)

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("关闭服务...")

	// 设置关闭超时
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	app.scheduler.Stop(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务关闭异常", zap.Error(err))
	}

	logger.Info("服务已关闭")
}

// 初始化路由
func initRouter(app *application) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(config.GlobalConfig.App.TrustedProxies); err != nil {
		return nil, fmt.Errorf("可信代理配置错误: %w", err)
	}

	// 使用中间件
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Cors())
	r.Use(logger.GinLogger())

	// 初始化API路由
	router.Setup(r, app.handlers())

	return r, nil
}
