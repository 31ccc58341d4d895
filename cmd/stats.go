package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/nsxzhou1114/shock-api/internal/database"
	"github.com/nsxzhou1114/shock-api/internal/dto"
	"github.com/nsxzhou1114/shock-api/internal/logger"
	"github.com/nsxzhou1114/shock-api/internal/model"
	"github.com/nsxzhou1114/shock-api/internal/service"
	"github.com/spf13/cobra"
)

// statsCmd 统计命令
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "统计信息命令",
	Long:  `显示访客统计信息与存储状态`,
}

// visitorStatsCmd 访客统计命令
var visitorStatsCmd = &cobra.Command{
	Use:   "visitors",
	Short: "访客统计信息",
	Long:  `显示与管理后台仪表盘一致的访客汇总数据`,
	Run: func(cmd *cobra.Command, args []string) {
		showVisitorStats()
	},
}

// dbStatusCmd 数据库状态命令
var dbStatusCmd = &cobra.Command{
	Use:   "db-status",
	Short: "数据库状态",
	Long:  `显示MySQL、Redis、Elasticsearch连接状态`,
	Run: func(cmd *cobra.Command, args []string) {
		showDatabaseStatus()
	},
}

func init() {
	statsCmd.AddCommand(visitorStatsCmd)
	statsCmd.AddCommand(dbStatusCmd)
	rootCmd.AddCommand(statsCmd)
}

// showVisitorStats 显示访客统计信息
func showVisitorStats() {
	if err := initializeSystem(); err != nil {
		fmt.Printf("系统初始化失败: %v\n", err)
		os.Exit(1)
	}

	db := database.GetDB()
	if err := model.InitTables(db); err != nil {
		fmt.Printf("初始化数据库表失败: %v\n", err)
		os.Exit(1)
	}

	// 命令行直接查库，不走缓存
	stats, err := service.NewDashboardService(db, nil, logger.GetSugaredLogger()).Stats(context.Background())
	if err != nil {
		fmt.Printf("统计失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== 访客统计信息 ===")
	fmt.Printf("访客总数: %d (VPN/代理: %d)\n", stats.TotalVisitors, stats.VPNVisitors)
	fmt.Printf("今日: %d, 昨日: %d, 增长率: %.2f%%\n", stats.TodayVisitors, stats.YesterdayVisitors, stats.GrowthRate)
	printTop("国家", stats.Countries)
	printTop("设备", stats.Devices)
	printTop("浏览器", stats.Browsers)
	printTop("操作系统", stats.OperatingSystems)

	fmt.Println("\n=== 最近访客 ===")
	for _, v := range stats.Recent {
		fmt.Printf("%s  %-15s  %s/%s  %s  %s\n",
			v.CreatedAt.Format("2006-01-02 15:04:05"), v.IP, v.Country, v.City, v.Browser, v.Device)
	}
}

func printTop(title string, items []dto.NameCount) {
	fmt.Printf("\n--- %s TOP%d ---\n", title, len(items))
	for i, item := range items {
		fmt.Printf("%2d. %-20s %d\n", i+1, item.Name, item.Count)
	}
}

// showDatabaseStatus 显示数据库状态
func showDatabaseStatus() {
	if err := initializeSystem(); err != nil {
		fmt.Printf("系统初始化失败: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()

	fmt.Println("=== 数据库状态 ===")

	// MySQL状态
	sqlDB, err := database.GetDB().DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		fmt.Printf("MySQL: 连接失败 - %v\n", err)
	} else {
		stats := sqlDB.Stats()
		fmt.Printf("MySQL: 连接正常\n")
		fmt.Printf("  - 最大连接数: %d\n", stats.MaxOpenConnections)
		fmt.Printf("  - 当前连接数: %d\n", stats.OpenConnections)
		fmt.Printf("  - 空闲连接数: %d\n", stats.Idle)
		fmt.Printf("  - 使用中连接数: %d\n", stats.InUse)
	}

	// Redis状态
	if rdb := database.GetRedis(); rdb == nil {
		fmt.Println("Redis: 未启用或连接失败")
	} else if pong, err := rdb.Ping(ctx).Result(); err != nil {
		fmt.Printf("Redis: 连接失败 - %v\n", err)
	} else {
		fmt.Printf("Redis: 连接正常 - %s\n", pong)
	}

	// Elasticsearch状态
	if es := database.GetES(); es == nil {
		fmt.Println("Elasticsearch: 未启用或连接失败")
	} else if res, err := es.Info(es.Info.WithContext(ctx)); err != nil {
		fmt.Printf("Elasticsearch: 连接失败 - %v\n", err)
	} else {
		res.Body.Close()
		fmt.Printf("Elasticsearch: 连接正常 - %s\n", res.Status())
	}
}
