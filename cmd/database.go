package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/nsxzhou1114/shock-api/internal/database"
	"github.com/nsxzhou1114/shock-api/internal/logger"
	"github.com/nsxzhou1114/shock-api/internal/model"
	"github.com/nsxzhou1114/shock-api/internal/search"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// 同步ES时每批读取的行数
const syncBatchSize = 500

// databaseCmd 数据库管理命令
var databaseCmd = &cobra.Command{
	Use:   "db",
	Short: "数据库管理命令",
	Long:  `数据库管理相关的命令，包括建表与同步访客索引`,
}

// initDBCmd 初始化表结构与索引
var initDBCmd = &cobra.Command{
	Use:   "init",
	Short: "初始化数据库",
	Long:  `自动迁移MySQL表结构，启用ES时创建访客索引`,
	Run: func(cmd *cobra.Command, args []string) {
		initializeTables()
	},
}

// syncESCmd 全量同步访客到ES
// 示例：./shock-api db sync-es
var syncESCmd = &cobra.Command{
	Use:   "sync-es",
	Short: "同步访客到Elasticsearch",
	Long:  `将MySQL中的全部访客记录重新写入Elasticsearch`,
	Run: func(cmd *cobra.Command, args []string) {
		syncVisitorsToES()
	},
}

func init() {
	databaseCmd.AddCommand(initDBCmd)
	databaseCmd.AddCommand(syncESCmd)
	rootCmd.AddCommand(databaseCmd)
}

// initializeTables 初始化数据库表
func initializeTables() {
	if err := initializeSystem(); err != nil {
		fmt.Printf("系统初始化失败: %v\n", err)
		os.Exit(1)
	}

	if err := model.InitTables(database.GetDB()); err != nil {
		fmt.Printf("初始化MySQL表失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("MySQL表初始化成功")

	index := visitorIndex()
	if !index.Enabled() {
		fmt.Println("Elasticsearch未启用，跳过索引初始化")
		return
	}
	if err := index.EnsureIndex(context.Background()); err != nil {
		fmt.Printf("初始化Elasticsearch索引失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Elasticsearch索引初始化成功")
}

// syncVisitorsToES 分批同步访客到Elasticsearch
func syncVisitorsToES() {
	if err := initializeSystem(); err != nil {
		fmt.Printf("系统初始化失败: %v\n", err)
		os.Exit(1)
	}

	index := visitorIndex()
	if !index.Enabled() {
		fmt.Println("Elasticsearch未启用")
		os.Exit(1)
	}
	ctx := context.Background()
	if err := index.EnsureIndex(ctx); err != nil {
		fmt.Printf("初始化Elasticsearch索引失败: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("开始同步访客到Elasticsearch...")

	var synced, failed int
	var batch []model.Visitor
	result := database.GetDB().WithContext(ctx).Order("id").
		FindInBatches(&batch, syncBatchSize, func(tx *gorm.DB, n int) error {
			for i := range batch {
				if err := index.Index(ctx, &batch[i]); err != nil {
					failed++
					logger.Warnf("同步访客 %d 失败: %v", batch[i].ID, err)
					continue
				}
				synced++
			}
			return nil
		})
	if result.Error != nil {
		fmt.Printf("读取访客失败: %v\n", result.Error)
		os.Exit(1)
	}

	fmt.Printf("同步完成: 成功 %d, 失败 %d\n", synced, failed)
}

func visitorIndex() *search.VisitorIndex {
	return search.NewVisitorIndex(database.GetES(), config.GlobalConfig.Elasticsearch.Index, logger.GetSugaredLogger())
}
