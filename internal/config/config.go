package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Etcd     EtcdConfig
	Archive  ArchiveConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver   string // postgres, mysql or sqlite
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string // sqlite file
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret        string
	EntryPageURL     string
	InstanceID       string
	DeadlineInterval time.Duration
	RetentionPeriod  time.Duration
	RetentionCheck   time.Duration
}

// RedisConfig holds the result cache settings; empty Address disables it
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	ResultTTL time.Duration
}

// KafkaConfig holds domain event settings; no brokers means log-only
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// EtcdConfig holds the event ownership lock settings; no endpoints means
// in-process locking
type EtcdConfig struct {
	Endpoints   []string
	DialTimeout time.Duration
	LeaseTTL    time.Duration
}

// ArchiveConfig holds the S3 archive settings; empty Bucket disables it
type ArchiveConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// Load loads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		Database: DatabaseConfig{
			Driver:   v.GetString("DB_DRIVER"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			Path:     v.GetString("DB_PATH"),
		},
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		App: AppConfig{
			JWTSecret:        v.GetString("JWT_SECRET"),
			EntryPageURL:     v.GetString("ENTRY_PAGE_URL"),
			InstanceID:       v.GetString("INSTANCE_ID"),
			DeadlineInterval: v.GetDuration("DEADLINE_CHECK_INTERVAL"),
			RetentionPeriod:  v.GetDuration("RETENTION_PERIOD"),
			RetentionCheck:   v.GetDuration("RETENTION_CHECK_INTERVAL"),
		},
		Redis: RedisConfig{
			Address:   v.GetString("REDIS_ADDRESS"),
			Password:  v.GetString("REDIS_PASSWORD"),
			DB:        v.GetInt("REDIS_DB"),
			ResultTTL: v.GetDuration("REDIS_RESULT_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Etcd: EtcdConfig{
			Endpoints:   splitList(v.GetString("ETCD_ENDPOINTS")),
			DialTimeout: v.GetDuration("ETCD_DIAL_TIMEOUT"),
			LeaseTTL:    v.GetDuration("ETCD_LEASE_TTL"),
		},
		Archive: ArchiveConfig{
			Bucket:          v.GetString("ARCHIVE_BUCKET"),
			Region:          v.GetString("ARCHIVE_REGION"),
			Endpoint:        v.GetString("ARCHIVE_ENDPOINT"),
			AccessKeyID:     v.GetString("ARCHIVE_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("ARCHIVE_SECRET_ACCESS_KEY"),
			Prefix:          v.GetString("ARCHIVE_PREFIX"),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch config.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", config.Database.Driver)
	}
	if config.App.DeadlineInterval <= 0 {
		return nil, fmt.Errorf("DEADLINE_CHECK_INTERVAL must be positive")
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "raffle_admin")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "raffle.db")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("INSTANCE_ID", "raffle-admin")
	v.SetDefault("DEADLINE_CHECK_INTERVAL", "15s")
	v.SetDefault("RETENTION_PERIOD", "2160h")
	v.SetDefault("RETENTION_CHECK_INTERVAL", "1h")
	v.SetDefault("REDIS_RESULT_TTL", "168h")
	v.SetDefault("KAFKA_TOPIC", "raffle-events")
	v.SetDefault("ETCD_DIAL_TIMEOUT", "5s")
	v.SetDefault("ETCD_LEASE_TTL", "10s")
	v.SetDefault("ARCHIVE_REGION", "auto")
	v.SetDefault("ARCHIVE_PREFIX", "raffles")
}

// GetDSN returns the connection string for the configured driver
func (c *Config) GetDSN() string {
	db := c.Database
	switch db.Driver {
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			db.User, db.Password, db.Host, db.Port, db.DBName,
		)
	case "sqlite":
		return db.Path
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.User, db.Password, db.DBName, db.SSLMode,
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
