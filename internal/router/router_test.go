package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/nsxzhou1114/shock-api/internal/classifier"
	"github.com/nsxzhou1114/shock-api/internal/config"
	"github.com/nsxzhou1114/shock-api/internal/controller"
	"github.com/nsxzhou1114/shock-api/internal/geo"
	"github.com/nsxzhou1114/shock-api/internal/middleware"
	"github.com/nsxzhou1114/shock-api/internal/model"
	"github.com/nsxzhou1114/shock-api/internal/service"
	"github.com/nsxzhou1114/shock-api/pkg/auth"
	"github.com/nsxzhou1114/shock-api/pkg/idgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const mobileUA = "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := idgen.Init("2024-01-01", 1); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

type testApp struct {
	engine   *gin.Engine
	db       *gorm.DB
	jwt      config.JWTConfig
	password string
	geoPaths []string
	logs     *observer.ObservedLogs
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core).Sugar()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "shock.db")), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, model.InitTables(db))

	app := &testApp{db: db, password: "hunter2", logs: logs}
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.geoPaths = append(app.geoPaths, r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"success","country":"United States","countryCode":"US","regionName":"California","city":"Mountain View","lat":37.4,"lon":-122.1,"timezone":"America/Los_Angeles","isp":"Google LLC","org":"Google Public DNS","as":"AS15169","mobile":false,"proxy":false,"hosting":false,"query":"8.8.8.8"}`))
	}))
	t.Cleanup(provider.Close)

	resolver := geo.NewResolver([]geo.Provider{geo.NewIPAPI(provider.Client(), provider.URL)}, geo.WithLogger(log))
	visitors := service.NewVisitorService(db, resolver, classifier.New(classifier.DefaultPolicy()), log)

	hash, err := auth.HashPassword(app.password)
	require.NoError(t, err)
	app.jwt = config.JWTConfig{SecretKey: "test-secret", AccessExpireSeconds: 300, Issuer: "shock-api"}
	admin := service.NewAdminService(config.AdminConfig{Username: "admin", PasswordHash: hash}, app.jwt, log)

	app.engine = gin.New()
	app.engine.Use(middleware.RequestID())
	Setup(app.engine, Handlers{
		Visitor:      controller.NewVisitorApi(visitors, log),
		Dashboard:    controller.NewDashboardApi(service.NewDashboardService(db, nil, log), log),
		Admin:        controller.NewAdminApi(admin, log),
		TrackLimiter: middleware.NewIPRateLimiter(100, 100),
		JWT:          func() config.JWTConfig { return app.jwt },
	})
	return app
}

func (a *testApp) do(t *testing.T, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestTrack_EndToEnd(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(t, http.MethodPost, "/api/track",
		`{"userAgent":"`+mobileUA+`","timezone":"America/Los_Angeles","screen":{"width":412,"height":915,"colorDepth":24,"pixelRatio":2.625}}`,
		map[string]string{"X-Forwarded-For": "8.8.8.8, 10.0.0.1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, env.Code)
	assert.NotEmpty(t, env.RequestID)

	var data struct {
		Visitor struct {
			ID string `json:"id"`
			IP string `json:"ip"`
		} `json:"visitor"`
		Analysis struct {
			Device struct {
				Type   string `json:"type"`
				Screen struct {
					Width int `json:"width"`
				} `json:"screen"`
			} `json:"device"`
			Network struct {
				ConnectionType string `json:"connection_type"`
				GeoSource      string `json:"geo_source"`
			} `json:"network"`
			Privacy struct {
				TimezoneMismatch bool `json:"timezone_mismatch"`
			} `json:"privacy"`
		} `json:"analysis"`
		Persisted bool `json:"persisted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	assert.Equal(t, "8.8.8.8", data.Visitor.IP)
	assert.NotEmpty(t, data.Visitor.ID)
	assert.Equal(t, "Mobile", data.Analysis.Device.Type)
	assert.Equal(t, 412, data.Analysis.Device.Screen.Width)
	assert.Equal(t, "Mobile", data.Analysis.Network.ConnectionType)
	assert.Equal(t, geo.NameIPAPI, data.Analysis.Network.GeoSource)
	assert.False(t, data.Analysis.Privacy.TimezoneMismatch)
	assert.True(t, data.Persisted)
	assert.Equal(t, []string{"/json/8.8.8.8"}, app.geoPaths)

	var stored model.Visitor
	require.NoError(t, app.db.First(&stored).Error)
	assert.Equal(t, "8.8.8.8", stored.IP)
	assert.Equal(t, "Mobile", stored.Device)
}

func TestTrack_EmptyBody(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(t, http.MethodPost, "/api/track", "", map[string]string{
		"X-Forwarded-For": "8.8.8.8",
		"User-Agent":      mobileUA,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, env.Code)
}

func TestTrack_MalformedBody(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(t, http.MethodPost, "/api/track", `{"userAgent": `, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, http.StatusInternalServerError, env.Code)
	assert.NotEmpty(t, env.Message)
	assert.Equal(t, "null", string(env.Data))

	var n int64
	require.NoError(t, app.db.Model(&model.Visitor{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestTrack_InvalidFingerprint(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(t, http.MethodPost, "/api/track", `{"screen":{"width":-1}}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, http.StatusBadRequest, env.Code)
}

func TestWhoAmI(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(t, http.MethodGet, "/api/ip", "", map[string]string{"X-Real-IP": "8.8.8.8"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"persisted":false`)

	var n int64
	require.NoError(t, app.db.Model(&model.Visitor{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAdminFlow(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.do(t, http.MethodGet, "/api/admin/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = app.do(t, http.MethodPost, "/api/admin/login", `{"username":"admin","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = app.do(t, http.MethodPost, "/api/admin/login", `{"username":"admin"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := app.do(t, http.MethodPost, "/api/admin/login", `{"username":"admin","password":"`+app.password+`"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var token auth.Token
	require.NoError(t, json.Unmarshal(env.Data, &token))
	bearer := map[string]string{"Authorization": "Bearer " + token.AccessToken}

	app.do(t, http.MethodPost, "/api/track", `{"userAgent":"`+mobileUA+`"}`, map[string]string{"X-Forwarded-For": "8.8.8.8"})

	w, env = app.do(t, http.MethodGet, "/api/admin/dashboard", "", bearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats struct {
		TotalVisitors int64 `json:"total_visitors"`
		Hourly        []struct {
			Count int64 `json:"count"`
		} `json:"hourly"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(1), stats.TotalVisitors)
	assert.Len(t, stats.Hourly, 24)

	w, _ = app.do(t, http.MethodGet, "/api/admin/visitors?page=1&page_size=10", "", bearer)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
	assert.Equal(t, 1, app.logs.FilterMessageSnippet("管理员 admin 查询访客列表").Len())

	w, _ = app.do(t, http.MethodGet, "/api/admin/visitors?page_size=1000", "", bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	app.do(t, http.MethodPost, "/api/track", "", map[string]string{"X-Forwarded-For": "8.8.8.8"})
	w, _ = app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shock_geo_provider_attempts_total")
	assert.Contains(t, w.Body.String(), "shock_visits_tracked_total")
}
