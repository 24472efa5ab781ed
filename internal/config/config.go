package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	Log       LogConfig       `mapstructure:"log"`
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Audit     AuditConfig     `mapstructure:"audit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port           string
	Mode           string
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// QuizConfig 组卷与拉取题目的调优参数，支持热更新
type QuizConfig struct {
	ChunkSize            int           `mapstructure:"chunk_size"`
	ChunkConcurrency     int           `mapstructure:"chunk_concurrency"`
	CandidateConcurrency int           `mapstructure:"candidate_concurrency"`
	RetryAttempts        int           `mapstructure:"retry_attempts"`
	RetryBaseDelay       time.Duration `mapstructure:"retry_base_delay"`
}

// AuditConfig 审计通道，sink 可选 db / redis / amqp / log
type AuditConfig struct {
	Sink         string `mapstructure:"sink"`
	RedisStream  string `mapstructure:"redis_stream"`
	AMQPURL      string `mapstructure:"amqp_url"`
	AMQPExchange string `mapstructure:"amqp_exchange"`
}

const (
	AuditSinkDB    = "db"
	AuditSinkRedis = "redis"
	AuditSinkAMQP  = "amqp"
	AuditSinkLog   = "log"
)

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.request_timeout", 15*time.Second)

	viper.SetDefault("database.charset", "utf8mb4")
	viper.SetDefault("database.parsetime", true)

	viper.SetDefault("log.file", "logs/app.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age_days", 30)

	viper.SetDefault("quiz.chunk_size", 20)
	viper.SetDefault("quiz.chunk_concurrency", 4)
	viper.SetDefault("quiz.candidate_concurrency", 4)
	viper.SetDefault("quiz.retry_attempts", 3)
	viper.SetDefault("quiz.retry_base_delay", 200*time.Millisecond)

	viper.SetDefault("audit.sink", AuditSinkDB)
	viper.SetDefault("audit.redis_stream", "quiz:audit")
	viper.SetDefault("audit.amqp_exchange", "quiz.audit")

	viper.SetDefault("rate_limit.max_requests", 6000)
	viper.SetDefault("rate_limit.window_minutes", 1)
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("QUIZ_ENGINE")
	viper.AutomaticEnv()
	setDefaults()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Audit
	viper.BindEnv("audit.sink", "AUDIT_SINK")
	viper.BindEnv("audit.amqp_url", "AUDIT_AMQP_URL")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 检查启动所必需的配置项
func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}

	switch c.Audit.Sink {
	case AuditSinkDB, AuditSinkRedis, AuditSinkLog:
	case AuditSinkAMQP:
		if c.Audit.AMQPURL == "" {
			return fmt.Errorf("audit.amqp_url is required when audit.sink is %q", AuditSinkAMQP)
		}
	default:
		return fmt.Errorf("unknown audit sink %q", c.Audit.Sink)
	}

	if c.Quiz.ChunkSize <= 0 || c.Quiz.RetryAttempts <= 0 {
		return fmt.Errorf("quiz.chunk_size and quiz.retry_attempts must be positive")
	}
	return nil
}
