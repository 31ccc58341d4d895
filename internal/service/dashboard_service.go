package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nsxzhou1114/shock-api/internal/dto"
	"github.com/nsxzhou1114/shock-api/internal/model"
	"github.com/nsxzhou1114/shock-api/pkg/cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// 仪表盘查询规模
const (
	topN              = 10
	recentVisitors    = 10
	maxMapLocations   = 500
	hourlyBucketCount = 24
	defaultPageSize   = 20
)

// DashboardService 仪表盘统计服务
type DashboardService struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewDashboardService 创建仪表盘服务，c 为空时不缓存
func NewDashboardService(db *gorm.DB, c cache.Cache, logger *zap.SugaredLogger) *DashboardService {
	return &DashboardService{
		db:     db,
		cache:  c,
		logger: logger,
		now:    time.Now,
	}
}

// Stats 汇总仪表盘数据，各项查询并发执行
func (s *DashboardService) Stats(ctx context.Context) (*dto.DashboardStats, error) {
	if s.cache != nil {
		var cached dto.DashboardStats
		err := s.cache.GetJSON(ctx, cache.DashboardStatsKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, redis.Nil) {
			s.logger.Warnf("读取仪表盘缓存失败: %v", err)
		}
	}

	now := s.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	stats := &dto.DashboardStats{GeneratedAt: now}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.count(gctx, &stats.TotalVisitors, "")
	})
	g.Go(func() error {
		return s.count(gctx, &stats.TodayVisitors, "created_at >= ?", todayStart)
	})
	g.Go(func() error {
		return s.count(gctx, &stats.YesterdayVisitors, "created_at >= ? AND created_at < ?", yesterdayStart, todayStart)
	})
	g.Go(func() error {
		return s.count(gctx, &stats.VPNVisitors, "vpn = ?", true)
	})
	g.Go(func() error {
		return s.groupCount(gctx, "country", &stats.Countries)
	})
	g.Go(func() error {
		return s.groupCount(gctx, "device", &stats.Devices)
	})
	g.Go(func() error {
		return s.groupCount(gctx, "browser", &stats.Browsers)
	})
	g.Go(func() error {
		return s.groupCount(gctx, "os", &stats.OperatingSystems)
	})
	g.Go(func() error {
		buckets, err := s.hourly(gctx, now)
		stats.Hourly = buckets
		return err
	})
	g.Go(func() error {
		recent, err := s.recent(gctx, recentVisitors)
		stats.Recent = recent
		return err
	})
	g.Go(func() error {
		return s.locations(gctx, &stats.Locations)
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("统计仪表盘数据失败: %w", err)
	}
	stats.GrowthRate = GrowthRate(stats.TodayVisitors, stats.YesterdayVisitors)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.DashboardStatsKey, stats, cache.DashboardStatsExpiration); err != nil {
			s.logger.Warnf("写入仪表盘缓存失败: %v", err)
		}
	}
	return stats, nil
}

// GrowthRate 今日相对昨日的增长百分比，昨日为0时今日有访问记为100
func GrowthRate(today, yesterday int64) float64 {
	if yesterday == 0 {
		if today > 0 {
			return 100
		}
		return 0
	}
	return float64(today-yesterday) / float64(yesterday) * 100
}

// CountSince 统计某时间之后的访问量
func (s *DashboardService) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.count(ctx, &n, "created_at >= ?", since)
	return n, err
}

func (s *DashboardService) count(ctx context.Context, dest *int64, where string, args ...interface{}) error {
	q := s.db.WithContext(ctx).Model(&model.Visitor{})
	if where != "" {
		q = q.Where(where, args...)
	}
	return q.Count(dest).Error
}

// groupCount 按列分组计数，取前 topN
func (s *DashboardService) groupCount(ctx context.Context, column string, dest *[]dto.NameCount) error {
	out := make([]dto.NameCount, 0, topN)
	err := s.db.WithContext(ctx).Model(&model.Visitor{}).
		Select(column + " AS name, COUNT(*) AS count").
		Where(column + " <> ''").
		Group(column).
		Order("count DESC, name ASC").
		Limit(topN).
		Scan(&out).Error
	if err != nil {
		return fmt.Errorf("按 %s 分组统计失败: %w", column, err)
	}
	*dest = out
	return nil
}

// hourly 最近24小时按小时分桶，最早的桶在前，无访问的小时计0
func (s *DashboardService) hourly(ctx context.Context, now time.Time) ([]dto.HourlyBucket, error) {
	first := hourlyStart(now)

	var times []time.Time
	if err := s.db.WithContext(ctx).Model(&model.Visitor{}).
		Where("created_at >= ?", first).
		Pluck("created_at", &times).Error; err != nil {
		return nil, fmt.Errorf("查询最近24小时访问失败: %w", err)
	}
	return bucketByHour(first, times), nil
}

// hourlyStart 最早一个桶的起点，按 now 所在时区的整点对齐。
// Truncate 按绝对时间取整，在半小时偏移的时区会落在半点上。
func hourlyStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour()-(hourlyBucketCount-1), 0, 0, 0, now.Location())
}

func bucketByHour(first time.Time, times []time.Time) []dto.HourlyBucket {
	buckets := make([]dto.HourlyBucket, hourlyBucketCount)
	for i := range buckets {
		buckets[i].Hour = first.Add(time.Duration(i) * time.Hour)
	}
	for _, t := range times {
		d := t.Sub(first)
		if d < 0 {
			continue
		}
		if i := int(d / time.Hour); i < hourlyBucketCount {
			buckets[i].Count++
		}
	}
	return buckets
}

func (s *DashboardService) recent(ctx context.Context, limit int) ([]dto.VisitorItem, error) {
	var visitors []model.Visitor
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&visitors).Error; err != nil {
		return nil, fmt.Errorf("查询最近访客失败: %w", err)
	}
	return toVisitorItems(visitors), nil
}

// locations 经纬度非零的访客位置，按访问量倒序
func (s *DashboardService) locations(ctx context.Context, dest *[]dto.MapLocation) error {
	out := make([]dto.MapLocation, 0)
	err := s.db.WithContext(ctx).Model(&model.Visitor{}).
		Select("latitude, longitude, city, country, COUNT(*) AS count").
		Where("NOT (latitude = 0 AND longitude = 0)").
		Group("latitude, longitude, city, country").
		Order("count DESC").
		Limit(maxMapLocations).
		Scan(&out).Error
	if err != nil {
		return fmt.Errorf("查询访客位置失败: %w", err)
	}
	*dest = out
	return nil
}

// List 分页查询访客
func (s *DashboardService) List(ctx context.Context, req *dto.VisitorListRequest) (*dto.VisitorListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}

	filtered := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&model.Visitor{})
		if req.Country != "" {
			q = q.Where("country = ?", req.Country)
		}
		if req.ThreatLevel != "" {
			q = q.Where("threat_level = ?", req.ThreatLevel)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计访客数量失败: %w", err)
	}

	var visitors []model.Visitor
	if err := filtered().Order("created_at DESC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&visitors).Error; err != nil {
		return nil, fmt.Errorf("查询访客列表失败: %w", err)
	}

	return &dto.VisitorListResponse{
		Total: total,
		List:  toVisitorItems(visitors),
	}, nil
}

func toVisitorItems(visitors []model.Visitor) []dto.VisitorItem {
	items := make([]dto.VisitorItem, 0, len(visitors))
	for _, v := range visitors {
		items = append(items, dto.VisitorItem{
			ID:          v.ID,
			IP:          v.IP,
			Country:     v.Country,
			CountryCode: v.CountryCode,
			Region:      v.Region,
			City:        v.City,
			ISP:         v.ISP,
			Browser:     v.Browser,
			OS:          v.OS,
			Device:      v.Device,
			VPN:         v.VPN,
			ThreatLevel: v.ThreatLevel,
			CreatedAt:   v.CreatedAt,
		})
	}
	return items
}
