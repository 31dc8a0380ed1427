package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Normalizer NormalizerConfig `mapstructure:"normalizer"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置（postgres | sqlite）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	Path            string `mapstructure:"path"` // sqlite 文件路径，":memory:" 为内存库
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置；Addr 为空时不启用（作用域锁降级为进程内锁）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled Redis 是否已配置
func (c *RedisConfig) Enabled() bool { return c.Addr != "" }

// AuthConfig JWT 校验配置（Token 由外部认证服务签发）
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// Validate 校验认证配置，仅 HTTP 服务需要
func (c *AuthConfig) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	return nil
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NormalizerConfig 课表规范化引擎配置
type NormalizerConfig struct {
	JobEnabled       bool          `mapstructure:"job_enabled"`
	JobInterval      time.Duration `mapstructure:"job_interval"`
	Concurrency      int           `mapstructure:"concurrency"`
	LockTTL          time.Duration `mapstructure:"lock_ttl"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	Scopes           []ScopeConfig `mapstructure:"scopes"`
}

// ScopeConfig 定时任务需要重建的作用域
type ScopeConfig struct {
	AYLabel         string `mapstructure:"ay"`
	DegreeCode      string `mapstructure:"degree"`
	Year            int    `mapstructure:"year"`
	Term            int    `mapstructure:"term"`
	ProgramCode     string `mapstructure:"program"`
	BranchCode      string `mapstructure:"branch"`
	CurriculumGroup string `mapstructure:"cg"`
	DivisionCode    string `mapstructure:"division"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值；.env 文件（若存在）先注入环境变量
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "campus_erp")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Kolkata")
	v.SetDefault("db.path", "campus_erp.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "campus-erp")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("normalizer.job_enabled", false)
	v.SetDefault("normalizer.job_interval", "6h")
	v.SetDefault("normalizer.concurrency", 4)
	v.SetDefault("normalizer.lock_ttl", "3m")
	v.SetDefault("normalizer.operation_timeout", "1m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("TT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("配置校验失败: db.driver 仅支持 postgres | sqlite，实际 %q", c.Database.Driver)
	}
	if c.Normalizer.Concurrency <= 0 {
		return fmt.Errorf("配置校验失败: normalizer.concurrency 必须大于 0")
	}
	if c.Normalizer.JobEnabled && c.Normalizer.JobInterval <= 0 {
		return fmt.Errorf("配置校验失败: normalizer.job_interval 必须大于 0")
	}
	// RebuildAndCheck 含重建与检测两次调用，各自受 operation_timeout 约束；
	// 锁在调用结束前过期会让相交作用域并发执行
	if c.Normalizer.OperationTimeout <= 0 {
		return fmt.Errorf("配置校验失败: normalizer.operation_timeout 必须大于 0")
	}
	if c.Normalizer.LockTTL <= 2*c.Normalizer.OperationTimeout {
		return fmt.Errorf("配置校验失败: normalizer.lock_ttl (%s) 必须大于 operation_timeout 的两倍 (%s)",
			c.Normalizer.LockTTL, 2*c.Normalizer.OperationTimeout)
	}
	return nil
}
