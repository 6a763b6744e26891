package config

import (
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Kafka     KafkaConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	PublicURL      string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	Schema       string
	MaxOpenConns int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type StorageConfig struct {
	Disk           string // "local" or "s3"
	LocalRoot      string
	UploadMaxBytes int64
	S3             S3Config
}

type S3Config struct {
	Bucket   string
	Region   string
	Key      string
	Secret   string
	Endpoint string // empty for AWS, set for MinIO and friends
	URL      string
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

// IsProduction reports whether the server runs with production settings
func (c *Config) IsProduction() bool {
	return c.Server.IsProduction()
}

// IsProduction reports whether Env names the production environment
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("SERVER_PUBLIC_URL", "http://localhost:8080")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("STORAGE_DISK", "local")
	viper.SetDefault("STORAGE_LOCAL_ROOT", "uploads")
	viper.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC_PREFIX", "steelstore")

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			PublicURL:      strings.TrimRight(viper.GetString("SERVER_PUBLIC_URL"), "/"),
			AllowedOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:         viper.GetString("DB_HOST"),
			Port:         viper.GetString("DB_PORT"),
			User:         viper.GetString("DB_USER"),
			Password:     viper.GetString("DB_PASSWORD"),
			Database:     viper.GetString("DB_DATABASE"),
			Schema:       viper.GetString("DB_SCHEMA"),
			MaxOpenConns: viper.GetInt("DB_MAX_OPEN_CONNS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Requests:      viper.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		Storage: StorageConfig{
			Disk:           viper.GetString("STORAGE_DISK"),
			LocalRoot:      viper.GetString("STORAGE_LOCAL_ROOT"),
			UploadMaxBytes: viper.GetInt64("UPLOAD_MAX_BYTES"),
			S3: S3Config{
				Bucket:   viper.GetString("S3_BUCKET"),
				Region:   viper.GetString("S3_REGION"),
				Key:      viper.GetString("S3_KEY"),
				Secret:   viper.GetString("S3_SECRET"),
				Endpoint: viper.GetString("S3_ENDPOINT"),
				URL:      strings.TrimRight(viper.GetString("S3_URL"), "/"),
			},
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(viper.GetString("KAFKA_BROKERS")),
			TopicPrefix: viper.GetString("KAFKA_TOPIC_PREFIX"),
		},
	}
}

// splitList turns a comma separated env value into a slice, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
