package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"estate_listing_v1/internal/service"
)

// ==================== 配置结构 ====================

// Config 应用配置
type Config struct {
	ServerPort  string
	GinMode     string
	LogLevel    string
	DatabaseDSN string

	JWTSecret string
	JWTTTL    time.Duration

	Storage           service.StorageConfig
	UploadTimeout     time.Duration
	UploadConcurrency int

	RedisAddr     string
	RedisPassword string
	FeedCacheTTL  time.Duration

	NATSURL string

	AuditCron string

	SeedAdminEmail    string
	SeedAdminPassword string
}

// Production 是否生产环境
func (c *Config) Production() bool {
	return c.GinMode == "release"
}

// ==================== 加载 ====================

// Load 读取 .env（可选）和环境变量
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env，使用环境变量")
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=estate_listing port=5432 sslmode=disable")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", 7*24*time.Hour)

	v.SetDefault("STORAGE_PROVIDER", "local")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_CDN_DOMAIN", "")
	v.SetDefault("STORAGE_BASE_PATH", "")
	v.SetDefault("STORAGE_LOCAL_DIR", "./uploads")
	v.SetDefault("UPLOAD_TIMEOUT", 30*time.Second)
	v.SetDefault("UPLOAD_CONCURRENCY", 4)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("FEED_CACHE_TTL", 5*time.Minute)

	v.SetDefault("NATS_URL", "")

	v.SetDefault("AUDIT_CRON", "0 0 * * * *")

	v.SetDefault("SEED_ADMIN_EMAIL", "")
	v.SetDefault("SEED_ADMIN_PASSWORD", "")
	return v
}

// FromViper 从 viper 实例构建配置
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		ServerPort:  v.GetString("SERVER_PORT"),
		GinMode:     v.GetString("GIN_MODE"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		DatabaseDSN: v.GetString("DATABASE_DSN"),

		JWTSecret: v.GetString("JWT_SECRET"),
		JWTTTL:    v.GetDuration("JWT_TTL"),

		Storage: service.StorageConfig{
			Provider:  strings.ToLower(v.GetString("STORAGE_PROVIDER")),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			CDNDomain: v.GetString("STORAGE_CDN_DOMAIN"),
			BasePath:  v.GetString("STORAGE_BASE_PATH"),
		},
		UploadTimeout:     v.GetDuration("UPLOAD_TIMEOUT"),
		UploadConcurrency: v.GetInt("UPLOAD_CONCURRENCY"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		FeedCacheTTL:  v.GetDuration("FEED_CACHE_TTL"),

		NATSURL: v.GetString("NATS_URL"),

		AuditCron: v.GetString("AUDIT_CRON"),

		SeedAdminEmail:    v.GetString("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: v.GetString("SEED_ADMIN_PASSWORD"),
	}

	// local: BasePath 为落盘目录，Endpoint 为访问前缀
	if cfg.Storage.Provider == "local" {
		cfg.Storage.BasePath = v.GetString("STORAGE_LOCAL_DIR")
		if cfg.Storage.Endpoint == "" {
			cfg.Storage.Endpoint = "http://localhost:" + cfg.ServerPort + "/uploads"
		}
	}
	return cfg
}
