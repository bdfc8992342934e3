package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig 应用基础信息
type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	// 非空时 /api 需要 X-API-Key
	APIKeys []string `mapstructure:"apiKeys"`
	// 允许跨域访问的来源，空表示 *
	AllowOrigins []string `mapstructure:"allowOrigins"`
}

// LumberjackConfig 日志滚动（lumberjack）配置
type LumberjackConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"maxSize"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAge"`
	Compress   bool   `mapstructure:"compress"`
}

// LoggingConfig 日志级别与输出配置
type LoggingConfig struct {
	Level  string           `mapstructure:"level"`
	Format string           `mapstructure:"format"`
	File   LumberjackConfig `mapstructure:"file"`
}

// MetricsConfig Prometheus 指标暴露配置
type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Path   string `mapstructure:"path"`
}

// DatabaseConfig PostgreSQL 帧日志配置，DSN 为空时不记录
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

// RedisConfig 设备在线状态缓存，Addr 为空时使用内存实现
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"poolSize"`
}

// SessionConfig 在线判定
type SessionConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// StaticDevice 配置文件中声明的设备
type StaticDevice struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Family  string `mapstructure:"family"`
	Variant string `mapstructure:"variant"`
}

// SerialConfig 串口
type SerialConfig struct {
	Enable    bool `mapstructure:"enable"`
	BaudRate  int  `mapstructure:"baudRate"`
	KnownOnly bool `mapstructure:"knownOnly"`
}

// BLEConfig 低功耗蓝牙
type BLEConfig struct {
	Enable       bool          `mapstructure:"enable"`
	ScanTimeout  time.Duration `mapstructure:"scanTimeout"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// NetConfig TCP/WebSocket 静态设备
type NetConfig struct {
	DialTimeout time.Duration  `mapstructure:"dialTimeout"`
	Devices     []StaticDevice `mapstructure:"devices"`
}

// MDNSConfig 局域网服务发现
type MDNSConfig struct {
	Enable   bool          `mapstructure:"enable"`
	Services []string      `mapstructure:"services"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
	AIYPort  int           `mapstructure:"aiyPort"`
}

// VirtualConfig 虚拟设备（演示与测试）
type VirtualConfig struct {
	Enable  bool           `mapstructure:"enable"`
	Devices []StaticDevice `mapstructure:"devices"`
}

// TransportsConfig 传输层
type TransportsConfig struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	BLE     BLEConfig     `mapstructure:"ble"`
	TCP     NetConfig     `mapstructure:"tcp"`
	WS      NetConfig     `mapstructure:"ws"`
	MDNS    MDNSConfig    `mapstructure:"mdns"`
	Virtual VirtualConfig `mapstructure:"virtual"`
}

// ReconnectConfig 自动重连
type ReconnectConfig struct {
	Enable   bool          `mapstructure:"enable"`
	Strategy string        `mapstructure:"strategy"` // fixed | exponential
	Interval time.Duration `mapstructure:"interval"`
	MaxDelay time.Duration `mapstructure:"maxDelay"`
}

// RunnerConfig 命令通道
type RunnerConfig struct {
	RatePerSec int `mapstructure:"ratePerSec"`
	Burst      int `mapstructure:"burst"`
	MaxClients int `mapstructure:"maxClients"`
}

// ModeConfig 设备模式
type ModeConfig struct {
	AutoMonitor bool          `mapstructure:"autoMonitor"`
	EV3ReplyTTL time.Duration `mapstructure:"ev3ReplyTTL"`
}

// Config 顶层配置结构
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Session    SessionConfig    `mapstructure:"session"`
	Transports TransportsConfig `mapstructure:"transports"`
	Reconnect  ReconnectConfig  `mapstructure:"reconnect"`
	Runner     RunnerConfig     `mapstructure:"runner"`
	Mode       ModeConfig       `mapstructure:"mode"`
}

// Load 从 YAML/TOML/JSON 文件与环境变量加载配置。
// 若 path 为空，则尝试从环境变量 CWC_CONFIG 读取；否则回退到 configs/example.yaml。
func Load(path string) (*Config, error) {
	v := viper.New()

	if path == "" {
		path = os.Getenv("CWC_CONFIG")
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.SetConfigName("example")
		v.SetConfigType("yaml")
	}

	// 默认值
	setDefaults(v)

	// 环境变量覆盖：前缀 CWC_，并将点号替换为下划线
	v.SetEnvPrefix("CWC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 首次运行允许缺少配置文件，依赖默认值与环境变量
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查取值范围
func (c *Config) Validate() error {
	switch c.Reconnect.Strategy {
	case "fixed", "exponential":
	default:
		return fmt.Errorf("config: reconnect.strategy must be fixed or exponential, got %q", c.Reconnect.Strategy)
	}
	if c.Runner.RatePerSec < 0 || c.Runner.Burst < 0 {
		return errors.New("config: runner rate must not be negative")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cwc-bridge")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8090")
	v.SetDefault("http.readTimeout", "5s")
	v.SetDefault("http.writeTimeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file.filename", "logs/cwc-bridge.log")
	v.SetDefault("logging.file.maxSize", 50)
	v.SetDefault("logging.file.maxBackups", 5)
	v.SetDefault("logging.file.maxAge", 14)
	v.SetDefault("logging.file.compress", true)

	v.SetDefault("metrics.enable", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxOpenConns", 4)
	v.SetDefault("database.connMaxLifetime", "1h")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolSize", 10)

	v.SetDefault("session.timeout", "30s")

	v.SetDefault("transports.serial.enable", true)
	v.SetDefault("transports.serial.baudRate", 115200)
	v.SetDefault("transports.serial.knownOnly", false)
	v.SetDefault("transports.ble.enable", false)
	v.SetDefault("transports.ble.scanTimeout", "5s")
	v.SetDefault("transports.ble.pollInterval", "10s")
	v.SetDefault("transports.tcp.dialTimeout", "5s")
	v.SetDefault("transports.ws.dialTimeout", "5s")
	v.SetDefault("transports.mdns.enable", false)
	v.SetDefault("transports.mdns.services", []string{"_cros_p2p._tcp.local", "_ssh._tcp.local"})
	v.SetDefault("transports.mdns.interval", "30s")
	v.SetDefault("transports.mdns.timeout", "2s")
	v.SetDefault("transports.mdns.aiyPort", 8765)
	v.SetDefault("transports.virtual.enable", false)

	v.SetDefault("reconnect.enable", true)
	v.SetDefault("reconnect.strategy", "fixed")
	v.SetDefault("reconnect.interval", "5s")
	v.SetDefault("reconnect.maxDelay", "1m")

	v.SetDefault("runner.ratePerSec", 20)
	v.SetDefault("runner.burst", 40)
	v.SetDefault("runner.maxClients", 16)

	v.SetDefault("mode.autoMonitor", true)
	v.SetDefault("mode.ev3ReplyTTL", "5s")
}
