package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Notifier NotifierConfig `mapstructure:"notifier"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	// SQLLevel gorm 日志级别：silent / error / warn / info
	SQLLevel string `mapstructure:"sql_level"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	Mail string `mapstructure:"mail"`
}

type NotifierConfig struct {
	// Driver: kafka / log
	Driver             string        `mapstructure:"driver"`
	BreakerFailures    uint32        `mapstructure:"breaker_failures"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
}

type LedgerConfig struct {
	MaxConflictRetries int           `mapstructure:"max_conflict_retries"`
	RetryBackoff       time.Duration `mapstructure:"retry_backoff"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
	LockRetryInterval  time.Duration `mapstructure:"lock_retry_interval"`
	LockMaxRetries     int           `mapstructure:"lock_max_retries"`
}

type OutboxConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	BatchSize     int           `mapstructure:"batch_size"`
	MaxRetryCount int           `mapstructure:"max_retry_count"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
}

type AuditConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// Default 返回一份可直接用于本地开发和测试的配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Log:    LogConfig{Level: "info", SQLLevel: "warn"},
		MySQL: MySQLConfig{
			Host: "127.0.0.1", Port: 3306, User: "root", Database: "campuscoin",
			MaxOpenConns: 50, MaxIdleConns: 10,
		},
		Redis: RedisConfig{Host: "127.0.0.1", Port: 6379},
		Kafka: KafkaConfig{
			Brokers: []string{"127.0.0.1:9092"},
			Topic:   KafkaTopicConfig{Mail: "campuscoin.mail"},
		},
		Notifier: NotifierConfig{
			Driver:             "log",
			BreakerFailures:    5,
			BreakerOpenTimeout: 30 * time.Second,
		},
		Ledger: LedgerConfig{
			MaxConflictRetries: 3,
			RetryBackoff:       20 * time.Millisecond,
			LockTTL:            30 * time.Second,
			LockRetryInterval:  50 * time.Millisecond,
			LockMaxRetries:     60,
		},
		Outbox: OutboxConfig{
			Interval:      time.Second,
			BatchSize:     100,
			MaxRetryCount: 5,
			RatePerSecond: 20,
		},
		Audit: AuditConfig{Enabled: true, Interval: 10 * time.Minute},
	}
}

// LoadConfig 加载配置文件
// 优先级：环境变量(CAMPUSCOIN_*) > 配置文件 > Default()
func LoadConfig(configPath string) (*Config, error) {
	// .env 不存在时忽略，生产环境直接注入环境变量
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("CAMPUSCOIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	return config, nil
}

// setDefaults 让 AutomaticEnv 能覆盖配置文件中没有出现的键
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.pretty", d.Log.Pretty)
	v.SetDefault("log.sql_level", d.Log.SQLLevel)
	v.SetDefault("mysql.host", d.MySQL.Host)
	v.SetDefault("mysql.port", d.MySQL.Port)
	v.SetDefault("mysql.user", d.MySQL.User)
	v.SetDefault("mysql.password", d.MySQL.Password)
	v.SetDefault("mysql.database", d.MySQL.Database)
	v.SetDefault("mysql.max_open_conns", d.MySQL.MaxOpenConns)
	v.SetDefault("mysql.max_idle_conns", d.MySQL.MaxIdleConns)
	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("kafka.brokers", d.Kafka.Brokers)
	v.SetDefault("kafka.topic.mail", d.Kafka.Topic.Mail)
	v.SetDefault("notifier.driver", d.Notifier.Driver)
	v.SetDefault("notifier.breaker_failures", d.Notifier.BreakerFailures)
	v.SetDefault("notifier.breaker_open_timeout", d.Notifier.BreakerOpenTimeout)
	v.SetDefault("ledger.max_conflict_retries", d.Ledger.MaxConflictRetries)
	v.SetDefault("ledger.retry_backoff", d.Ledger.RetryBackoff)
	v.SetDefault("ledger.lock_ttl", d.Ledger.LockTTL)
	v.SetDefault("ledger.lock_retry_interval", d.Ledger.LockRetryInterval)
	v.SetDefault("ledger.lock_max_retries", d.Ledger.LockMaxRetries)
	v.SetDefault("outbox.interval", d.Outbox.Interval)
	v.SetDefault("outbox.batch_size", d.Outbox.BatchSize)
	v.SetDefault("outbox.max_retry_count", d.Outbox.MaxRetryCount)
	v.SetDefault("outbox.rate_per_second", d.Outbox.RatePerSecond)
	v.SetDefault("audit.enabled", d.Audit.Enabled)
	v.SetDefault("audit.interval", d.Audit.Interval)
}
