package config

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	MySQL         DatabaseConfig      `mapstructure:"mysql"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Log           LogConfig           `mapstructure:"log"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Geo           GeoConfig           `mapstructure:"geo"`
	Classifier    ClassifierConfig    `mapstructure:"classifier"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Cron          CronConfig          `mapstructure:"cron"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name      string `mapstructure:"name"`
	Mode      string `mapstructure:"mode"`
	Port      int    `mapstructure:"port"`
	MachineID int64  `mapstructure:"machine_id"`
	StartTime string `mapstructure:"start_time"`
	// TrustedProxies 可信反向代理地址或网段，为空时不采信任何转发头
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey           string `mapstructure:"secret_key"`
	AccessExpireSeconds int    `mapstructure:"access_expire_seconds"`
	Issuer              string `mapstructure:"issuer"`
}

// AdminConfig 管理员账号配置，密码保存为bcrypt哈希
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Charset      string `mapstructure:"charset"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	LogLevel     string `mapstructure:"log_level"`
	// ConnectAttempts 启动时连接数据库的最大尝试次数
	ConnectAttempts uint `mapstructure:"connect_attempts"`
}

// DSN 获取数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// Addr 获取Redis地址
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ElasticsearchConfig Elasticsearch配置
type ElasticsearchConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	URLs     []string `mapstructure:"urls"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	Index    string   `mapstructure:"index"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
	Stdout     bool   `mapstructure:"stdout"`
}

// GeoConfig 地理位置解析配置
type GeoConfig struct {
	// Providers 按顺序尝试的在线服务商，可选 ip-api / ipapi.co / ipwho.is
	Providers    []string      `mapstructure:"providers"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ProbeURL     string        `mapstructure:"probe_url"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	// MaxMindCityDB / MaxMindASNDB 非空时追加离线 GeoLite2 服务商
	MaxMindCityDB string `mapstructure:"maxmind_city_db"`
	MaxMindASNDB  string `mapstructure:"maxmind_asn_db"`
	// IP2RegionDB 非空时追加离线 ip2region 服务商
	IP2RegionDB string        `mapstructure:"ip2region_db"`
	Breaker     BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig 服务商熔断配置
type BreakerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
	OpenTimeout         time.Duration `mapstructure:"open_timeout"`
}

// ClassifierConfig 启发式识别规则表，留空的列表使用内置默认值
type ClassifierConfig struct {
	VPNKeywords []string `mapstructure:"vpn_keywords"`
	HostingOrgs []string `mapstructure:"hosting_orgs"`
	BotTokens   []string `mapstructure:"bot_tokens"`
}

// RateLimitConfig 访问记录接口限流配置
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// CronConfig 定时任务配置
type CronConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BloomSnapshot string `mapstructure:"bloom_snapshot"`
	VisitSummary  string `mapstructure:"visit_summary"`
	Timezone      string `mapstructure:"timezone"`
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig *Config
	// 配置Viper实例
	viperInstance *viper.Viper

	listenersMu sync.Mutex
	listeners   []func(*Config)
)

// Init 初始化配置，并监听配置文件变化
func Init(configPath string) error {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return fmt.Errorf("解析配置文件失败: %w", err)
	}

	GlobalConfig = &config
	viperInstance = v

	v.OnConfigChange(func(in fsnotify.Event) {
		var reloaded Config
		if err := v.Unmarshal(&reloaded); err != nil {
			log.Printf("重新加载配置失败: %v", err)
			return
		}
		GlobalConfig = &reloaded
		notify(&reloaded)
	})
	v.WatchConfig()
	return nil
}

// OnChange 注册配置变化回调
func OnChange(fn func(*Config)) {
	listenersMu.Lock()
	defer listenersMu.Unlock()
	listeners = append(listeners, fn)
}

func notify(cfg *Config) {
	listenersMu.Lock()
	fns := append([]func(*Config){}, listeners...)
	listenersMu.Unlock()
	for _, fn := range fns {
		fn(cfg)
	}
}

// setDefaults 设置默认配置
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.mode", d.App.Mode)
	v.SetDefault("app.port", d.App.Port)
	v.SetDefault("app.start_time", d.App.StartTime)
	v.SetDefault("mysql.charset", d.MySQL.Charset)
	v.SetDefault("mysql.connect_attempts", d.MySQL.ConnectAttempts)
	v.SetDefault("elasticsearch.index", d.Elasticsearch.Index)
	v.SetDefault("jwt.access_expire_seconds", d.JWT.AccessExpireSeconds)
	v.SetDefault("jwt.issuer", d.JWT.Issuer)
	v.SetDefault("geo.providers", d.Geo.Providers)
	v.SetDefault("geo.timeout", d.Geo.Timeout)
	v.SetDefault("geo.probe_url", d.Geo.ProbeURL)
	v.SetDefault("geo.probe_timeout", d.Geo.ProbeTimeout)
	v.SetDefault("geo.breaker.enabled", d.Geo.Breaker.Enabled)
	v.SetDefault("geo.breaker.consecutive_failures", d.Geo.Breaker.ConsecutiveFailures)
	v.SetDefault("geo.breaker.open_timeout", d.Geo.Breaker.OpenTimeout)
	v.SetDefault("rate_limit.rps", d.RateLimit.RPS)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)
	v.SetDefault("cron.bloom_snapshot", d.Cron.BloomSnapshot)
	v.SetDefault("cron.visit_summary", d.Cron.VisitSummary)
	v.SetDefault("cron.timezone", d.Cron.Timezone)
}

// Default 返回一份不依赖配置文件的默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "shock-api",
			Mode:      "release",
			Port:      8080,
			StartTime: "2024-01-01",
		},
		MySQL: DatabaseConfig{
			Charset:         "utf8mb4",
			ConnectAttempts: 5,
		},
		Elasticsearch: ElasticsearchConfig{
			Index: "visitor_index",
		},
		JWT: JWTConfig{
			AccessExpireSeconds: 3600,
			Issuer:              "shock-api",
		},
		Geo: GeoConfig{
			Providers:    []string{"ip-api", "ipapi.co", "ipwho.is"},
			Timeout:      5 * time.Second,
			ProbeURL:     "https://api.ipify.org?format=json",
			ProbeTimeout: 3 * time.Second,
			Breaker: BreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         time.Minute,
			},
		},
		RateLimit: RateLimitConfig{
			RPS:   2,
			Burst: 10,
		},
		Cron: CronConfig{
			BloomSnapshot: "0 */1 * * * *",
			VisitSummary:  "0 0 * * * *",
			Timezone:      "Asia/Shanghai",
		},
	}
}

// GetString 获取字符串配置
func GetString(key string) string {
	return viperInstance.GetString(key)
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return GlobalConfig
}
