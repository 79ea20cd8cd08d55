package environments

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig
	Auth        AuthConfig
	Log         LogConfig
	WhatsApp    WhatsAppConfig
	Credentials CredentialsConfig
	Feed        FeedConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Stream      StreamConfig
}

type ServerConfig struct {
	Port string
}

type AuthConfig struct {
	APIKey string
}

type LogConfig struct {
	Level string
}

type WhatsAppConfig struct {
	APIURL     string
	APIVersion string
	// Timeout of zero leaves outbound calls unbounded; callers may still pass a deadline.
	Timeout   time.Duration
	AppSecret string
}

const (
	CredentialsBackendFile   = "file"
	CredentialsBackendValkey = "valkey"

	FeedBackendMemory = "memory"
	FeedBackendMySQL  = "mysql"
)

type CredentialsConfig struct {
	Backend string
	Dir     string
}

type FeedConfig struct {
	Backend string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Valkey/Redis server was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type StreamConfig struct {
	KeepAlive    time.Duration
	ClientBuffer int
	URL          string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Auth: AuthConfig{
			APIKey: GetEnv("API_KEY", ""),
		},
		Log: LogConfig{
			Level: GetEnv("LOG_LEVEL", "info"),
		},
		WhatsApp: WhatsAppConfig{
			APIURL:     GetEnv("GRAPH_API_URL", "https://graph.facebook.com"),
			APIVersion: GetEnv("GRAPH_API_VERSION", "v17.0"),
			Timeout:    GetEnvAsDuration("WHATSAPP_HTTP_TIMEOUT", 0),
			AppSecret:  GetEnv("WHATSAPP_APP_SECRET", ""),
		},
		Credentials: CredentialsConfig{
			Backend: strings.ToLower(GetEnv("CREDENTIALS_BACKEND", CredentialsBackendFile)),
			Dir:     GetEnv("CREDENTIALS_DIR", "./data"),
		},
		Feed: FeedConfig{
			Backend: strings.ToLower(GetEnv("FEED_BACKEND", FeedBackendMemory)),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "crm"),
			Password: GetEnv("DB_PASSWORD", ""),
			DBName:   GetEnv("DB_NAME", "crm_messages"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", ""),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Stream: StreamConfig{
			KeepAlive:    GetEnvAsDuration("STREAM_KEEPALIVE", 15*time.Second),
			ClientBuffer: GetEnvAsInt("STREAM_CLIENT_BUFFER", 64),
			URL:          GetEnv("STREAM_URL", "http://localhost:8080/api/messages/stream"),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
