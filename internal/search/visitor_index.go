// Package search 将访客记录同步到Elasticsearch，供外部检索和地图聚合
package search

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"
	"github.com/nsxzhou1114/shock-api/internal/model"
	"go.uber.org/zap"
)

// VisitorIndex 访客索引，client 为空时所有操作为空操作
type VisitorIndex struct {
	client *elasticsearch.Client
	index  string
	log    *zap.SugaredLogger
}

// NewVisitorIndex 创建访客索引
func NewVisitorIndex(client *elasticsearch.Client, index string, log *zap.SugaredLogger) *VisitorIndex {
	if index == "" {
		index = model.ESVisitor{}.ESIndexName()
	}
	return &VisitorIndex{client: client, index: index, log: log}
}

// Enabled 是否启用
func (i *VisitorIndex) Enabled() bool {
	return i != nil && i.client != nil
}

// EnsureIndex 索引不存在时按映射创建
func (i *VisitorIndex) EnsureIndex(ctx context.Context) error {
	if !i.Enabled() {
		return nil
	}
	return model.InitESIndex(ctx, i.client, i.index, model.ESVisitor{})
}

// Index 写入一条访客文档
func (i *VisitorIndex) Index(ctx context.Context, v *model.Visitor) error {
	if !i.Enabled() {
		return nil
	}

	doc := model.NewESVisitor(v)
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("序列化访客文档失败: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("写入访客索引失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("写入访客索引失败: %s", res.String())
	}
	return nil
}

// CountByDeviceHash 统计同一设备指纹的历史访问次数
func (i *VisitorIndex) CountByDeviceHash(ctx context.Context, hash string) (int64, error) {
	if !i.Enabled() {
		return 0, nil
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{
				"device_hash": hash,
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return 0, err
	}

	req := esapi.CountRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return 0, fmt.Errorf("统计设备访问次数失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("统计设备访问次数失败: %s", res.String())
	}

	var r struct {
		Count json.Number `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, fmt.Errorf("解析统计结果失败: %w", err)
	}
	return strconv.ParseInt(r.Count.String(), 10, 64)
}
