package service

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/nsxzhou1114/shock-api/internal/classifier"
	"github.com/nsxzhou1114/shock-api/internal/clientip"
	"github.com/nsxzhou1114/shock-api/internal/dto"
	"github.com/nsxzhou1114/shock-api/internal/geo"
	"github.com/nsxzhou1114/shock-api/internal/metrics"
	"github.com/nsxzhou1114/shock-api/internal/model"
	"github.com/nsxzhou1114/shock-api/internal/search"
	"github.com/nsxzhou1114/shock-api/pkg/cache"
	"github.com/nsxzhou1114/shock-api/pkg/idgen"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 参与设备指纹计算的请求头
var fingerprintHeaders = []string{"Accept-Language", "Accept-Encoding", "Sec-CH-UA-Platform"}

// indexTimeout 访客文档写入ES的超时
const indexTimeout = 5 * time.Second

// countTimeout 查询设备历史访问次数的超时，超时不影响响应
const countTimeout = time.Second

// GeoResolver 地理位置解析
type GeoResolver interface {
	Resolve(ctx context.Context, ip string) (*geo.Record, error)
}

// VisitorService 访客记录服务
type VisitorService struct {
	db         *gorm.DB
	geo        GeoResolver
	classifier *classifier.Classifier
	devices    cache.BloomFilter
	index      *search.VisitorIndex
	sanitizer  *bluemonday.Policy
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// VisitorServiceOption 访客服务选项
type VisitorServiceOption func(*VisitorService)

// WithDeviceFilter 使用布隆过滤器识别回访设备
func WithDeviceFilter(f cache.BloomFilter) VisitorServiceOption {
	return func(s *VisitorService) { s.devices = f }
}

// WithVisitorIndex 持久化成功后同步写入ES
func WithVisitorIndex(idx *search.VisitorIndex) VisitorServiceOption {
	return func(s *VisitorService) { s.index = idx }
}

// WithClock 替换时间源
func WithClock(now func() time.Time) VisitorServiceOption {
	return func(s *VisitorService) { s.now = now }
}

// NewVisitorService 创建访客服务，db 为空时只做分析不落库
func NewVisitorService(db *gorm.DB, resolver GeoResolver, c *classifier.Classifier, logger *zap.SugaredLogger, opts ...VisitorServiceOption) *VisitorService {
	s := &VisitorService{
		db:         db,
		geo:        resolver,
		classifier: c,
		sanitizer:  bluemonday.StrictPolicy(),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TrackInput 一次访问的原始输入
type TrackInput struct {
	Header      http.Header
	Fingerprint dto.ClientFingerprint
}

// visit 一次访问在持久化之前的全部分析结果
type visit struct {
	ip         string
	geo        *geo.Record
	ua         string
	uaInfo     classifier.UserAgentInfo
	signals    classifier.Signals
	deviceHash string
	returning  bool
}

// Track 解析、分析并记录一次访问。
// 持久化失败不影响响应，只将 persisted 置为 false。
func (s *VisitorService) Track(ctx context.Context, in TrackInput) (*dto.TrackResponse, error) {
	start := s.now()
	v := s.analyze(ctx, in, true)

	visitor := &model.Visitor{
		IP:          v.ip,
		Country:     v.geo.Country,
		CountryCode: v.geo.CountryCode,
		Region:      v.geo.Region,
		City:        v.geo.City,
		Latitude:    v.geo.Latitude,
		Longitude:   v.geo.Longitude,
		Timezone:    v.geo.Timezone,
		ISP:         v.geo.ISP,
		Browser:     v.uaInfo.Browser,
		OS:          v.uaInfo.OS,
		Device:      v.uaInfo.Device,
		UserAgent:   s.sanitize(v.ua),
		DeviceHash:  v.deviceHash,
		VPN:         v.signals.VPN,
		ThreatLevel: v.signals.ThreatLevel,
		CreatedAt:   start,
	}
	persisted := s.persist(ctx, visitor)

	metrics.VisitsTracked.WithLabelValues(strconv.FormatBool(persisted)).Inc()
	if v.returning {
		metrics.ReturningVisitors.Inc()
	}

	resp := s.buildResponse(v, in.Fingerprint, start)
	resp.Analysis.Fingerprinting.VisitCount = s.visitCount(ctx, v.deviceHash)
	resp.Persisted = persisted
	resp.Visitor.ID = visitor.ID
	return resp, nil
}

// Lookup 只分析不记录，设备指纹不会加入回访过滤器
func (s *VisitorService) Lookup(ctx context.Context, header http.Header) (*dto.TrackResponse, error) {
	start := s.now()
	in := TrackInput{Header: header}
	v := s.analyze(ctx, in, false)
	resp := s.buildResponse(v, in.Fingerprint, start)
	resp.Analysis.Fingerprinting.VisitCount = s.visitCount(ctx, v.deviceHash)
	return resp, nil
}

// visitCount 从ES统计设备的历史访问次数，本次访问异步写入，不计在内
func (s *VisitorService) visitCount(ctx context.Context, hash string) int64 {
	if !s.index.Enabled() {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, countTimeout)
	defer cancel()

	n, err := s.index.CountByDeviceHash(ctx, hash)
	if err != nil {
		s.logger.Warnf("统计设备 %s 访问次数失败: %v", hash, err)
		return 0
	}
	return n
}

func (s *VisitorService) analyze(ctx context.Context, in TrackInput, remember bool) *visit {
	header := in.Header
	if header == nil {
		header = http.Header{}
	}

	v := &visit{ip: clientip.Resolve(header)}
	v.geo = s.locate(ctx, v.ip)

	v.ua = in.Fingerprint.UserAgent
	if v.ua == "" {
		v.ua = header.Get("User-Agent")
	}
	v.uaInfo = classifier.ParseUserAgent(v.ua)
	v.signals = s.classifier.Analyze(v.geo, v.ua)

	parts := make([]string, 0, len(fingerprintHeaders))
	for _, h := range fingerprintHeaders {
		parts = append(parts, header.Get(h))
	}
	v.deviceHash = classifier.DeviceHash(v.ua, parts...)

	if s.devices != nil {
		if remember {
			v.returning = s.devices.TestAndAdd(ctx, v.deviceHash)
		} else {
			v.returning = s.devices.Test(ctx, v.deviceHash)
		}
	}
	return v
}

// locate 所有服务商失败时使用静态兜底记录
func (s *VisitorService) locate(ctx context.Context, ip string) *geo.Record {
	rec, err := s.geo.Resolve(ctx, ip)
	if err != nil {
		s.logger.Warnf("解析 %s 地理位置失败，使用兜底记录: %v", ip, err)
		metrics.GeoResolutions.WithLabelValues(geo.SourceFallback).Inc()
		return geo.Fallback(ip)
	}
	return rec
}

func (s *VisitorService) persist(ctx context.Context, visitor *model.Visitor) bool {
	if s.db == nil {
		return false
	}

	id, err := idgen.GenerateID()
	if err != nil {
		s.logger.Errorf("生成访客ID失败: %v", err)
		return false
	}
	visitor.ID = id

	if err := s.db.WithContext(ctx).Create(visitor).Error; err != nil {
		s.logger.Errorf("保存访客记录失败: %v", err)
		visitor.ID = 0
		return false
	}

	if s.index.Enabled() {
		doc := *visitor
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
			defer cancel()
			if err := s.index.Index(ctx, &doc); err != nil {
				s.logger.Warnf("同步访客 %d 到ES失败: %v", doc.ID, err)
			}
		}()
	}
	return true
}

func (s *VisitorService) buildResponse(v *visit, fp dto.ClientFingerprint, start time.Time) *dto.TrackResponse {
	rec := v.geo
	private := clientip.IsPrivate(v.ip)

	publicIP := v.ip
	if private && rec.Source != geo.SourcePlaceholder && rec.IP != "" {
		publicIP = rec.IP
	}

	clientTZ := s.sanitize(fp.Timezone)
	languages := make([]string, 0, len(fp.Languages))
	for _, l := range fp.Languages {
		languages = append(languages, s.sanitize(l))
	}

	resp := &dto.TrackResponse{
		Visitor: dto.VisitorSummary{
			IP:        v.ip,
			Country:   rec.Country,
			City:      rec.City,
			Browser:   v.uaInfo.Browser,
			OS:        v.uaInfo.OS,
			Device:    v.uaInfo.Device,
			CreatedAt: start,
		},
		Analysis: dto.Analysis{
			Security: dto.SecurityAnalysis{
				VPN:         v.signals.VPN,
				Proxy:       rec.Proxy,
				Hosting:     rec.Hosting,
				Bot:         v.signals.Bot,
				ThreatLevel: v.signals.ThreatLevel,
			},
			Network: dto.NetworkAnalysis{
				IP:             v.ip,
				PublicIP:       publicIP,
				Private:        private,
				ISP:            rec.ISP,
				Org:            rec.Org,
				AS:             rec.AS,
				ConnectionType: v.signals.ConnectionType,
				GeoSource:      rec.Source,
			},
			Location: dto.LocationAnalysis{
				Country:     rec.Country,
				CountryCode: rec.CountryCode,
				Region:      rec.Region,
				City:        rec.City,
				Latitude:    rec.Latitude,
				Longitude:   rec.Longitude,
				Timezone:    rec.Timezone,
			},
			Device: dto.DeviceAnalysis{
				Type:                v.uaInfo.Device,
				Browser:             v.uaInfo.Browser,
				BrowserVersion:      v.uaInfo.BrowserVersion,
				OS:                  v.uaInfo.OS,
				OSVersion:           v.uaInfo.OSVersion,
				Model:               v.uaInfo.DeviceModel,
				Platform:            s.sanitize(fp.Platform),
				Screen:              fp.Screen,
				Viewport:            fp.Viewport,
				HardwareConcurrency: fp.HardwareConcurrency,
				DeviceMemory:        fp.DeviceMemory,
				TouchPoints:         fp.TouchPoints,
			},
			Fingerprinting: dto.FingerprintAnalysis{
				DeviceHash:    v.deviceHash,
				Returning:     v.returning,
				CanvasPresent: fp.Canvas != "",
				FontCount:     len(fp.Fonts),
				PluginCount:   len(fp.Plugins),
			},
			Privacy: dto.PrivacyAnalysis{
				DoNotTrack:       doNotTrack(fp.DoNotTrack),
				CookiesEnabled:   fp.CookiesEnabled != nil && *fp.CookiesEnabled,
				Language:         s.sanitize(fp.Language),
				Languages:        languages,
				ClientTimezone:   clientTZ,
				TimezoneMismatch: timezoneMismatch(clientTZ, rec.Timezone),
			},
			Timing: dto.TimingAnalysis{
				ServerTime:     start,
				TimezoneOffset: fp.TimezoneOffset,
				ProcessingMs:   s.now().Sub(start).Milliseconds(),
			},
		},
	}
	if fp.WebGL != nil {
		resp.Analysis.Fingerprinting.WebGLVendor = s.sanitize(fp.WebGL.Vendor)
		resp.Analysis.Fingerprinting.WebGLRenderer = s.sanitize(fp.WebGL.Renderer)
	}
	return resp
}

// sanitize 去除客户端字符串中的HTML
func (s *VisitorService) sanitize(v string) string {
	if v == "" {
		return v
	}
	return strings.TrimSpace(s.sanitizer.Sanitize(v))
}

func doNotTrack(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "yes", "true":
		return true
	}
	return false
}

// timezoneMismatch 浏览器时区与IP所在时区不一致，任一方未知时不判定
func timezoneMismatch(client, located string) bool {
	if client == "" || located == "" || located == geo.Unknown {
		return false
	}
	return !strings.EqualFold(client, located)
}
