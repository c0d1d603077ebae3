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
	Storage   StorageConfig
	Sync      SyncConfig      `mapstructure:"sync"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Runtime flags set from the command line, not the config file.
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
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
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

// StorageConfig selects the remote file store backing the content library.
// Type is one of dropbox, minio, oss, local.
type StorageConfig struct {
	Type string `mapstructure:"type"`

	LocalPath string `mapstructure:"local_path"`

	DropboxAccessToken  string `mapstructure:"dropbox_access_token"`
	DropboxRefreshToken string `mapstructure:"dropbox_refresh_token"`
	DropboxAppKey       string `mapstructure:"dropbox_app_key"`
	DropboxAppSecret    string `mapstructure:"dropbox_app_secret"`

	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`

	OSSEndpoint  string `mapstructure:"oss_endpoint"`
	OSSAccessKey string `mapstructure:"oss_access_key"`
	OSSSecretKey string `mapstructure:"oss_secret_key"`
	OSSBucket    string `mapstructure:"oss_bucket"`
}

// SyncConfig drives the content reconciliation engine.
type SyncConfig struct {
	// TenantRoot is the remote folder all branch content lives under.
	TenantRoot      string `mapstructure:"tenant_root"`
	DefaultBranch   string `mapstructure:"default_branch"`
	CooldownSeconds int    `mapstructure:"cooldown_seconds"`
	ReplaceExisting bool   `mapstructure:"replace_existing"`
	AutoObjective   bool   `mapstructure:"auto_objective"`
	AutoExamSets    bool   `mapstructure:"auto_exam_sets"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("BRIDGE4ER")
	viper.AutomaticEnv()

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

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.dropbox_access_token", "DROPBOX_ACCESS_TOKEN")
	viper.BindEnv("storage.dropbox_refresh_token", "DROPBOX_REFRESH_TOKEN")
	viper.BindEnv("storage.dropbox_app_key", "DROPBOX_APP_KEY")
	viper.BindEnv("storage.dropbox_app_secret", "DROPBOX_APP_SECRET")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")
	viper.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	viper.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	viper.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	viper.BindEnv("storage.oss_bucket", "OSS_BUCKET")

	// Sync
	viper.BindEnv("sync.tenant_root", "SYNC_TENANT_ROOT")
	viper.BindEnv("sync.cooldown_seconds", "SYNC_COOLDOWN_SECONDS")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Sync.TenantRoot == "" {
		cfg.Sync.TenantRoot = "/bridge4er"
	}
	if cfg.Sync.DefaultBranch == "" {
		cfg.Sync.DefaultBranch = "Civil Engineering"
	}
	if cfg.Sync.CooldownSeconds <= 0 {
		cfg.Sync.CooldownSeconds = 60
	}

	return &cfg, nil
}
