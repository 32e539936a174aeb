package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Elastic  ElasticsearchConfig
	Mail     MailConfig
	Upload   UploadConfig
	Order    OrderConfig
}

type ServerConfig struct {
	AppEnv         string
	HTTPPort       string
	GRPCPort       string
	AllowedOrigins []string
	RequestTimeout time.Duration
	I18nDir        string
}

func (s ServerConfig) IsProduction() bool {
	return s.AppEnv == "production"
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
	AutoMigrate     bool
}

type JWTConfig struct {
	SecretKey string
	TTL       time.Duration
}

// RedisConfig with an empty Addr disables the login limiter and notification guard.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	LoginAttempts int
	LoginWindow   time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type UploadConfig struct {
	Dir             string
	BaseURL         string
	MaxProductImage int64
	MaxAvatar       int64
}

type OrderConfig struct {
	CancelWindow time.Duration
}

// devJWTSecret signs tokens outside production when JWT_SECRET_KEY is unset.
const devJWTSecret = "dev-only-secret-change-me"

const minJWTSecretLen = 32

var (
	ErrMissingJWTSecret = errors.New("config: JWT_SECRET_KEY must be set in production")
	ErrWeakJWTSecret    = errors.New("config: JWT_SECRET_KEY must be at least 32 characters in production")
)

// Validate rejects settings that are only acceptable in development.
func (c *Config) Validate() error {
	if !c.Server.IsProduction() {
		return nil
	}
	if c.JWT.SecretKey == "" || c.JWT.SecretKey == devJWTSecret {
		return ErrMissingJWTSecret
	}
	if len(c.JWT.SecretKey) < minJWTSecretLen {
		return ErrWeakJWTSecret
	}
	return nil
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "development"),
			HTTPPort:       getEnv("HTTP_PORT", ":3000"),
			GRPCPort:       getEnv("GRPC_PORT", ":8082"),
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
			I18nDir:        getEnv("I18N_DIR", ""),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			User:            getEnv("POSTGRES_USER", "buffet"),
			Password:        getEnv("POSTGRES_PASSWORD", "buffet"),
			DBName:          getEnv("POSTGRES_DB", "buffet"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
			AutoMigrate:     getEnvBool("POSTGRES_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", devJWTSecret),
			TTL:       getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", ""),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvInt("REDIS_DB", 0),
			LoginAttempts: getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:   getEnvDuration("LOGIN_WINDOW", 15*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_TOPIC_ORDERS", "buffet.orders"),
			GroupID: getEnv("KAFKA_GROUP_NOTIFICATIONS", "notifications"),
		},
		Elastic: ElasticsearchConfig{
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", nil),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", "buffet@campus.local"),
		},
		Upload: UploadConfig{
			Dir:             getEnv("UPLOAD_DIR", "uploads"),
			BaseURL:         getEnv("UPLOAD_BASE_URL", "/uploads"),
			MaxProductImage: int64(getEnvInt("UPLOAD_MAX_PRODUCT_BYTES", 5<<20)),
			MaxAvatar:       int64(getEnvInt("UPLOAD_MAX_AVATAR_BYTES", 2<<20)),
		},
		Order: OrderConfig{
			CancelWindow: getEnvDuration("ORDER_CANCEL_WINDOW", 30*time.Minute),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
