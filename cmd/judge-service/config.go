package main

import (
	"fmt"
	"os"
	"time"

	"github.com/segmentio/kafka-go"
	"gopkg.in/yaml.v3"

	"rebornoj/internal/common/cache"
	"rebornoj/internal/common/db"
	"rebornoj/internal/common/mq"
	"rebornoj/internal/common/storage"
	"rebornoj/internal/judge/service"
	"rebornoj/pkg/utils/logger"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8085"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// KafkaConfig holds Kafka settings.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	ClientID     string        `yaml:"clientID"`
	MinBytes     int           `yaml:"minBytes"`
	MaxBytes     int           `yaml:"maxBytes"`
	MaxWait      time.Duration `yaml:"maxWait"`
	BatchSize    int           `yaml:"batchSize"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	RequiredAcks int           `yaml:"requiredAcks"`
}

// PackCacheConfig holds local test data cache settings.
type PackCacheConfig struct {
	RootDir    string        `yaml:"rootDir"`
	TTL        time.Duration `yaml:"ttl"`
	LockWait   time.Duration `yaml:"lockWait"`
	MaxEntries int           `yaml:"maxEntries"`
}

// JudgeConfig holds judge execution settings.
type JudgeConfig struct {
	WorkRoot       string        `yaml:"workRoot"`
	CompileTimeout time.Duration `yaml:"compileTimeout"`
	StatusTTL      time.Duration `yaml:"statusTTL"`
}

// ContestConfig holds contest lifecycle settings.
type ContestConfig struct {
	StatusInterval time.Duration `yaml:"statusInterval"`
}

// AppConfig holds judge-service config.
type AppConfig struct {
	Server   ServerConfig           `yaml:"server"`
	Logger   logger.Config          `yaml:"logger"`
	Kafka    KafkaConfig            `yaml:"kafka"`
	Database db.MySQLConfig         `yaml:"database"`
	Redis    cache.RedisConfig      `yaml:"redis"`
	MinIO    storage.MinIOConfig    `yaml:"minio"`
	Consumer service.ConsumerConfig `yaml:"consumer"`
	Cache    PackCacheConfig        `yaml:"cache"`
	Judge    JudgeConfig            `yaml:"judge"`
	Contest  ContestConfig          `yaml:"contest"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Consumer.SubmissionTopic == "" {
		cfg.Consumer.SubmissionTopic = "judge.submissions"
	}
	if cfg.Consumer.ResultTopic == "" {
		cfg.Consumer.ResultTopic = "judge.status.final"
	}
	if cfg.Consumer.DeadLetterTopic == "" {
		cfg.Consumer.DeadLetterTopic = "judge.submissions.dlq"
	}
	if cfg.Consumer.SourceBucket == "" {
		cfg.Consumer.SourceBucket = cfg.MinIO.SourceBucket
	}
	if cfg.Judge.WorkRoot == "" {
		cfg.Judge.WorkRoot = os.TempDir()
	}
	if cfg.Cache.RootDir == "" {
		return nil, fmt.Errorf("cache rootDir is required")
	}
	return &cfg, nil
}

func (k KafkaConfig) toMQConfig() mq.KafkaConfig {
	return mq.KafkaConfig{
		Brokers:      k.Brokers,
		ClientID:     k.ClientID,
		MinBytes:     k.MinBytes,
		MaxBytes:     k.MaxBytes,
		MaxWait:      k.MaxWait,
		BatchSize:    k.BatchSize,
		BatchTimeout: k.BatchTimeout,
		DialTimeout:  k.DialTimeout,
		RequiredAcks: kafka.RequiredAcks(k.RequiredAcks),
	}
}
