// Package cron 后台定时任务
//
// 表达式带秒字段，例如:
//
//	"0 */1 * * * *"  每分钟
//	"0 0 * * * *"    每小时整点
//	"0 0 0 * * *"    每天凌晨
package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 单次任务的执行超时
const jobTimeout = 30 * time.Second

// Job 定时任务
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler 定时任务调度器
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.SugaredLogger
}

// New 创建调度器，时区无效时退回 UTC
func New(cfg config.CronConfig, logger *zap.SugaredLogger) *Scheduler {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil || cfg.Timezone == "" {
		location = time.UTC
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(location)),
		logger: logger,
	}
}

// Add 注册任务，表达式为空时跳过
func (s *Scheduler) Add(expr string, job Job) error {
	if expr == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(expr, func() { s.run(job) }); err != nil {
		return fmt.Errorf("注册定时任务 %s 失败: %w", job.Name(), err)
	}
	s.logger.Infof("注册定时任务: %s (%s)", job.Name(), expr)
	return nil
}

// Entries 已注册的任务数
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度并等待正在执行的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
}

func (s *Scheduler) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Errorf("定时任务 %s 执行失败: %v", job.Name(), err)
		return
	}
	s.logger.Debugf("定时任务 %s 完成，耗时 %s", job.Name(), time.Since(start))
}
