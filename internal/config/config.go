package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV  string
		Name string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver   string // mysql | postgres | sqlite
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		LogSQL   bool
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	Mongo struct {
		Enabled  bool
		URI      string
		Database string
	}

	HTTP struct {
		Host           string
		Port           string
		AllowedOrigins []string
	}

	GRPC struct {
		Host string
		Port string
	}

	Auth struct {
		JWTSecret       string
		Issuer          string
		AccessTTL       time.Duration
		VerificationTTL time.Duration
		ResetTTL        time.Duration
	}

	Notify struct {
		Driver  string // log | kafka
		Brokers []string
		Topic   string
	}

	Storage struct {
		Driver              string // none | cloudinary | s3
		CloudinaryName      string
		CloudinaryAPIKey    string
		CloudinaryAPISecret string
		Folder              string
		S3Endpoint          string
		S3Region            string
		S3Bucket            string
		S3AccessKey         string
		S3SecretKey         string
		S3PathStyle         bool
		S3PublicURL         string
	}

	Relay struct {
		WriteTimeout time.Duration
		PongWait     time.Duration
		PresenceTTL  time.Duration
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = strings.ToLower(getEnvDefault("ENV", "development"))
	cfg.App.Name = getEnvDefault("APP_NAME", "vivah")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "vivah")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "mysql"))
	cfg.DB.LogSQL = isTruthy(os.Getenv("DB_LOG_SQL"))
	cfg.DB.DSN = os.Getenv("DB_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "vivah")

		switch cfg.DB.Driver {
		case "postgres":
			cfg.DB.Port = getEnvDefault("DB_PORT", "5432")
			cfg.DB.DSN = fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
			)
		case "sqlite":
			cfg.DB.DSN = getEnvDefault("SQLITE_PATH", "vivah.db")
		default:
			cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// Mongo (optional message log)
	cfg.Mongo.Enabled = strings.EqualFold(getEnvDefault("MESSAGE_STORE", "sql"), "mongo")
	cfg.Mongo.URI = getEnvDefault("MONGODB_URI", "mongodb://localhost:27017")
	cfg.Mongo.Database = getEnvDefault("MONGODB_DATABASE", "vivah")

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")
	cfg.HTTP.AllowedOrigins = splitList(getEnvDefault("ALLOWED_ORIGINS", "http://localhost:3000"))

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// Auth
	cfg.Auth.JWTSecret = getEnvDefault("JWT_SECRET", "dev-secret-change-me")
	cfg.Auth.Issuer = getEnvDefault("JWT_ISSUER", "vivah")
	cfg.Auth.AccessTTL = getDurationDefault("JWT_ACCESS_TTL", 7*24*time.Hour)
	cfg.Auth.VerificationTTL = getDurationDefault("VERIFICATION_TTL", 24*time.Hour)
	cfg.Auth.ResetTTL = getDurationDefault("PASSWORD_RESET_TTL", time.Hour)

	// Notifications
	cfg.Notify.Driver = strings.ToLower(getEnvDefault("NOTIFY_DRIVER", "log"))
	cfg.Notify.Brokers = splitList(getEnvDefault("KAFKA_BROKERS", "localhost:9092"))
	cfg.Notify.Topic = getEnvDefault("NOTIFY_TOPIC", "vivah.notifications")

	// Photo storage
	cfg.Storage.Driver = strings.ToLower(getEnvDefault("STORAGE_DRIVER", "none"))
	cfg.Storage.CloudinaryName = os.Getenv("CLOUDINARY_CLOUD_NAME")
	cfg.Storage.CloudinaryAPIKey = os.Getenv("CLOUDINARY_API_KEY")
	cfg.Storage.CloudinaryAPISecret = os.Getenv("CLOUDINARY_API_SECRET")
	cfg.Storage.Folder = getEnvDefault("STORAGE_FOLDER", "vivah/photos")
	cfg.Storage.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.Storage.S3Region = getEnvDefault("S3_REGION", "us-east-1")
	cfg.Storage.S3Bucket = getEnvDefault("S3_BUCKET", "vivah-photos")
	cfg.Storage.S3AccessKey = os.Getenv("S3_ACCESS_KEY")
	cfg.Storage.S3SecretKey = os.Getenv("S3_SECRET_KEY")
	cfg.Storage.S3PathStyle = isTruthy(getEnvDefault("S3_PATH_STYLE", "true"))
	cfg.Storage.S3PublicURL = os.Getenv("S3_PUBLIC_URL")

	// Relay
	cfg.Relay.WriteTimeout = getDurationDefault("WS_WRITE_TIMEOUT", 10*time.Second)
	cfg.Relay.PongWait = getDurationDefault("WS_PONG_WAIT", 60*time.Second)
	cfg.Relay.PresenceTTL = getDurationDefault("PRESENCE_TTL", 2*time.Minute)

	return cfg
}

// IsDevelopment reports whether ENV is "development".
func (c *Config) IsDevelopment() bool {
	return c.App.ENV == "development"
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDurationDefault(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
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

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
