package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/nsxzhou1114/shock-api/internal/logger"
	"go.uber.org/zap"
)

// ES 全局Elasticsearch客户端实例
var (
	ES    *elasticsearch.Client
	esOne sync.Once
)

// InitElasticsearch 初始化Elasticsearch连接
func InitElasticsearch() (*elasticsearch.Client, error) {
	cfg := config.GlobalConfig.Elasticsearch

	esConfig := elasticsearch.Config{
		Addresses: cfg.URLs,
	}
	if cfg.Username != "" && cfg.Password != "" {
		esConfig.Username = cfg.Username
		esConfig.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, fmt.Errorf("连接elasticsearch失败: %w", err)
	}

	info, err := client.Info(client.Info.WithContext(context.Background()))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch健康检查失败: %w", err)
	}
	defer info.Body.Close()

	logger.Info("elasticsearch连接成功",
		zap.String("status", info.Status()),
		zap.Strings("addresses", cfg.URLs),
	)
	return client, nil
}

// GetES 获取Elasticsearch客户端实例，未启用或连接失败时返回nil
func GetES() *elasticsearch.Client {
	esOne.Do(func() {
		if !config.GlobalConfig.Elasticsearch.Enabled {
			return
		}
		client, err := InitElasticsearch()
		if err != nil {
			logger.Warn("elasticsearch不可用，访客索引已禁用", zap.Error(err))
			return
		}
		ES = client
	})
	return ES
}
