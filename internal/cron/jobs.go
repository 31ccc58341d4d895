package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/nsxzhou1114/shock-api/pkg/cache"
	"go.uber.org/zap"
)

// BloomSaver 可持久化布隆过滤器的组件
type BloomSaver interface {
	SaveBloomFilters(ctx context.Context) error
}

// BloomSnapshotJob 定期把设备布隆过滤器写入Redis
type BloomSnapshotJob struct {
	saver BloomSaver
}

// NewBloomSnapshotJob 创建快照任务
func NewBloomSnapshotJob(saver BloomSaver) *BloomSnapshotJob {
	return &BloomSnapshotJob{saver: saver}
}

// Name 任务名
func (j *BloomSnapshotJob) Name() string { return "bloom_snapshot" }

// Run 执行快照
func (j *BloomSnapshotJob) Run(ctx context.Context) error {
	if err := j.saver.SaveBloomFilters(ctx); err != nil {
		return fmt.Errorf("保存布隆过滤器快照失败: %w", err)
	}
	return nil
}

// VisitCounter 按时间统计访问量
type VisitCounter interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// VisitSummary 最近一小时访问摘要
type VisitSummary struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Visits int64     `json:"visits"`
}

// VisitSummaryJob 统计最近一小时访问量，写日志并缓存
type VisitSummaryJob struct {
	counter VisitCounter
	cache   cache.Cache
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewVisitSummaryJob 创建访问摘要任务，c 为空时只写日志
func NewVisitSummaryJob(counter VisitCounter, c cache.Cache, logger *zap.SugaredLogger) *VisitSummaryJob {
	return &VisitSummaryJob{counter: counter, cache: c, logger: logger, now: time.Now}
}

// Name 任务名
func (j *VisitSummaryJob) Name() string { return "visit_summary" }

// Run 执行统计
func (j *VisitSummaryJob) Run(ctx context.Context) error {
	summary, err := j.Summarize(ctx)
	if err != nil {
		return err
	}
	j.logger.Infof("最近一小时访问量: %d", summary.Visits)

	if j.cache == nil {
		return nil
	}
	if err := j.cache.SetJSON(ctx, cache.VisitSummaryKey, summary, cache.VisitSummaryExpiration); err != nil {
		return fmt.Errorf("缓存访问摘要失败: %w", err)
	}
	return nil
}

// Summarize 计算最近一小时的访问摘要
func (j *VisitSummaryJob) Summarize(ctx context.Context) (*VisitSummary, error) {
	to := j.now().UTC()
	from := to.Add(-time.Hour)
	visits, err := j.counter.CountSince(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("统计访问量失败: %w", err)
	}
	return &VisitSummary{From: from, To: to, Visits: visits}, nil
}
