package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/nsxzhou1114/shock-api/internal/classifier"
	"github.com/nsxzhou1114/shock-api/internal/dto"
	"github.com/nsxzhou1114/shock-api/internal/geo"
	"github.com/nsxzhou1114/shock-api/internal/model"
	"github.com/nsxzhou1114/shock-api/internal/search"
	"github.com/nsxzhou1114/shock-api/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

func googleRecord() *geo.Record {
	return &geo.Record{
		IP:          "8.8.8.8",
		Country:     "United States",
		CountryCode: "US",
		Region:      "California",
		City:        "Mountain View",
		Latitude:    37.4056,
		Longitude:   -122.0775,
		Timezone:    "America/Los_Angeles",
		ISP:         "Google LLC",
		Org:         "Google Public DNS",
		AS:          "AS15169 Google LLC",
		Source:      geo.NameIPAPI,
	}
}

func newTrackHeader() http.Header {
	h := http.Header{}
	h.Set("X-Forwarded-For", "8.8.8.8, 10.0.0.1")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	return h
}

func TestVisitorService_Track(t *testing.T) {
	db := newTestDB(t)
	resolver := &fakeResolver{records: map[string]*geo.Record{"8.8.8.8": googleRecord()}}
	svc := NewVisitorService(db, resolver, classifier.New(classifier.DefaultPolicy()), nopLogger)

	cookies := true
	resp, err := svc.Track(context.Background(), TrackInput{
		Header: newTrackHeader(),
		Fingerprint: dto.ClientFingerprint{
			UserAgent:      iphoneUA,
			Timezone:       "Asia/Shanghai",
			CookiesEnabled: &cookies,
			DoNotTrack:     "1",
			Fonts:          []string{"Arial", "Helvetica"},
			WebGL:          &dto.WebGLInfo{Vendor: "Apple Inc.", Renderer: "Apple GPU"},
		},
	})
	require.NoError(t, err)

	assert.True(t, resp.Persisted)
	assert.NotZero(t, resp.Visitor.ID)
	assert.Equal(t, "8.8.8.8", resp.Visitor.IP)
	assert.Equal(t, classifier.DeviceMobile, resp.Visitor.Device)
	assert.Equal(t, classifier.DeviceMobile, resp.Analysis.Device.Type)
	assert.Equal(t, classifier.ConnectionMobile, resp.Analysis.Network.ConnectionType)
	assert.Equal(t, "Mountain View", resp.Analysis.Location.City)
	assert.Equal(t, classifier.ThreatLow, resp.Analysis.Security.ThreatLevel)
	assert.True(t, resp.Analysis.Privacy.TimezoneMismatch)
	assert.True(t, resp.Analysis.Privacy.DoNotTrack)
	assert.True(t, resp.Analysis.Privacy.CookiesEnabled)
	assert.Equal(t, 2, resp.Analysis.Fingerprinting.FontCount)
	assert.Equal(t, "Apple GPU", resp.Analysis.Fingerprinting.WebGLRenderer)
	assert.Equal(t, []string{"8.8.8.8"}, resolver.calls)

	var stored model.Visitor
	require.NoError(t, db.First(&stored, resp.Visitor.ID).Error)
	assert.Equal(t, "8.8.8.8", stored.IP)
	assert.Equal(t, "US", stored.CountryCode)
	assert.Equal(t, "Google LLC", stored.ISP)
	assert.Equal(t, classifier.DeviceMobile, stored.Device)
	assert.Equal(t, resp.Analysis.Fingerprinting.DeviceHash, stored.DeviceHash)
	assert.Equal(t, classifier.DeviceHash(iphoneUA, "en-US,en;q=0.9", "", ""), stored.DeviceHash)
}

func TestVisitorService_TrackFallsBackWhenGeoFails(t *testing.T) {
	db := newTestDB(t)
	svc := NewVisitorService(db, &fakeResolver{}, classifier.New(classifier.DefaultPolicy()), nopLogger)

	h := http.Header{}
	h.Set("CF-Connecting-IP", "203.0.113.9")
	resp, err := svc.Track(context.Background(), TrackInput{Header: h})
	require.NoError(t, err)

	assert.True(t, resp.Persisted)
	assert.Equal(t, "203.0.113.9", resp.Visitor.IP)
	assert.Equal(t, geo.Unknown, resp.Analysis.Location.Country)
	assert.Equal(t, geo.SourceFallback, resp.Analysis.Network.GeoSource)
	assert.Zero(t, resp.Analysis.Location.Latitude)
	assert.Equal(t, classifier.DeviceUnknown, resp.Analysis.Device.Type)
}

func TestVisitorService_TrackPersistenceFailure(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrator().DropTable(&model.Visitor{}))
	resolver := &fakeResolver{records: map[string]*geo.Record{"8.8.8.8": googleRecord()}}
	svc := NewVisitorService(db, resolver, classifier.New(classifier.DefaultPolicy()), nopLogger)

	resp, err := svc.Track(context.Background(), TrackInput{Header: newTrackHeader()})
	require.NoError(t, err)
	assert.False(t, resp.Persisted)
	assert.Zero(t, resp.Visitor.ID)
	assert.Equal(t, "Mountain View", resp.Visitor.City)
}

func TestVisitorService_TrackWithoutDatabase(t *testing.T) {
	resolver := &fakeResolver{records: map[string]*geo.Record{"8.8.8.8": googleRecord()}}
	svc := NewVisitorService(nil, resolver, classifier.New(classifier.DefaultPolicy()), nopLogger)

	resp, err := svc.Track(context.Background(), TrackInput{Header: newTrackHeader()})
	require.NoError(t, err)
	assert.False(t, resp.Persisted)
}

func TestVisitorService_ReturningVisitor(t *testing.T) {
	db := newTestDB(t)
	resolver := &fakeResolver{records: map[string]*geo.Record{"8.8.8.8": googleRecord()}}
	filter := cache.NewRedisBloomFilter(nil, cache.BloomFilterDeviceKey, 1000, 0.01)
	svc := NewVisitorService(db, resolver, classifier.New(classifier.DefaultPolicy()), nopLogger,
		WithDeviceFilter(filter))

	in := TrackInput{Header: newTrackHeader(), Fingerprint: dto.ClientFingerprint{UserAgent: iphoneUA}}

	// 只查询不会记住设备
	looked, err := svc.Lookup(context.Background(), newTrackHeader())
	require.NoError(t, err)
	assert.False(t, looked.Analysis.Fingerprinting.Returning)

	first, err := svc.Track(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, first.Analysis.Fingerprinting.Returning)

	second, err := svc.Track(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, second.Analysis.Fingerprinting.Returning)
	assert.NotEqual(t, first.Visitor.ID, second.Visitor.ID)
}

func TestVisitorService_LookupDoesNotPersist(t *testing.T) {
	db := newTestDB(t)
	resolver := &fakeResolver{records: map[string]*geo.Record{"8.8.8.8": googleRecord()}}
	svc := NewVisitorService(db, resolver, classifier.New(classifier.DefaultPolicy()), nopLogger)

	h := newTrackHeader()
	h.Set("User-Agent", iphoneUA)
	resp, err := svc.Lookup(context.Background(), h)
	require.NoError(t, err)
	assert.False(t, resp.Persisted)
	assert.Equal(t, classifier.DeviceMobile, resp.Analysis.Device.Type)

	var n int64
	require.NoError(t, db.Model(&model.Visitor{}).Count(&n).Error)
	assert.Zero(t, n)
}

// newCountingIndex 启动只响应 _count 请求的ES服务
func newCountingIndex(t *testing.T, status int, body string) *search.VisitorIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if !strings.HasSuffix(r.URL.Path, "/_count") {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return search.NewVisitorIndex(client, "visitors", nopLogger)
}

func TestVisitorService_VisitCountFromIndex(t *testing.T) {
	resolver := &fakeResolver{records: map[string]*geo.Record{"8.8.8.8": googleRecord()}}
	svc := NewVisitorService(nil, resolver, classifier.New(classifier.DefaultPolicy()), nopLogger,
		WithVisitorIndex(newCountingIndex(t, http.StatusOK, `{"count":3}`)),
	)

	resp, err := svc.Lookup(context.Background(), newTrackHeader())
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Analysis.Fingerprinting.VisitCount)

	resp, err = svc.Track(context.Background(), TrackInput{Header: newTrackHeader()})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Analysis.Fingerprinting.VisitCount)
}

func TestVisitorService_VisitCountIndexError(t *testing.T) {
	resolver := &fakeResolver{records: map[string]*geo.Record{"8.8.8.8": googleRecord()}}
	svc := NewVisitorService(nil, resolver, classifier.New(classifier.DefaultPolicy()), nopLogger,
		WithVisitorIndex(newCountingIndex(t, http.StatusInternalServerError, `{"error":"boom"}`)),
	)

	resp, err := svc.Lookup(context.Background(), newTrackHeader())
	require.NoError(t, err)
	assert.Zero(t, resp.Analysis.Fingerprinting.VisitCount)

	// 未启用ES时不查询
	plain := NewVisitorService(nil, resolver, classifier.New(classifier.DefaultPolicy()), nopLogger)
	resp, err = plain.Lookup(context.Background(), newTrackHeader())
	require.NoError(t, err)
	assert.Zero(t, resp.Analysis.Fingerprinting.VisitCount)
}

func TestVisitorService_SanitizesClientStrings(t *testing.T) {
	db := newTestDB(t)
	resolver := &fakeResolver{records: map[string]*geo.Record{"8.8.8.8": googleRecord()}}
	svc := NewVisitorService(db, resolver, classifier.New(classifier.DefaultPolicy()), nopLogger)

	resp, err := svc.Track(context.Background(), TrackInput{
		Header: newTrackHeader(),
		Fingerprint: dto.ClientFingerprint{
			UserAgent: `<script>alert(1)</script>Mozilla/5.0`,
			Platform:  `<b>MacIntel</b>`,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "MacIntel", resp.Analysis.Device.Platform)

	var stored model.Visitor
	require.NoError(t, db.First(&stored, resp.Visitor.ID).Error)
	assert.NotContains(t, stored.UserAgent, "<script>")
	assert.Contains(t, stored.UserAgent, "Mozilla/5.0")
}

func TestVisitorService_PrivateAddressNetworkView(t *testing.T) {
	placeholder := geo.Placeholder("127.0.0.1")
	resolver := &fakeResolver{records: map[string]*geo.Record{"127.0.0.1": placeholder}}
	svc := NewVisitorService(nil, resolver, classifier.New(classifier.DefaultPolicy()), nopLogger)

	resp, err := svc.Lookup(context.Background(), http.Header{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", resp.Analysis.Network.IP)
	assert.True(t, resp.Analysis.Network.Private)
	assert.Equal(t, "127.0.0.1", resp.Analysis.Network.PublicIP)
	assert.Equal(t, geo.SourcePlaceholder, resp.Analysis.Network.GeoSource)
	assert.Equal(t, "San Francisco", resp.Analysis.Location.City)
}
