package config

import (
	"time"
)

type Config struct {
	Server    ServerConfig    `env-prefix:"SERVER_"`
	Database  DatabaseConfig  `env-prefix:"DB_"`
	Redis     RedisConfig     `env-prefix:"REDIS_"`
	Kafka     KafkaConfig     `env-prefix:"KAFKA_"`
	Logging   LoggingConfig   `env-prefix:"LOG_"`
	OAuth     OAuthConfig     `env-prefix:"OAUTH_"`
	Platforms PlatformsConfig ``
	Publish   PublishConfig   `env-prefix:"PUBLISH_"`
}

type ServerConfig struct {
	Port            int           `env:"PORT" env-default:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type DatabaseConfig struct {
	Host            string        `env:"HOST" env-default:"localhost"`
	Port            int           `env:"PORT" env-default:"5432"`
	User            string        `env:"USER" env-default:"postgres"`
	Password        string        `env:"PASSWORD" env-default:""`
	DBName          string        `env:"NAME" env-default:"social_service"`
	SSLMode         string        `env:"SSLMODE" env-default:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" env-default:"20"`
	MinIdleConns    int           `env:"MIN_IDLE_CONNS" env-default:"2"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" env-default:"30m"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" env-default:"false"`
	MigrationsPath  string        `env:"MIGRATIONS_PATH" env-default:"migrations"`
}

type RedisConfig struct {
	Host     string `env:"HOST" env-default:"localhost"`
	Port     int    `env:"PORT" env-default:"6379"`
	Password string `env:"PASSWORD" env-default:""`
	DB       int    `env:"DB" env-default:"0"`
}

type KafkaConfig struct {
	Brokers          []string `env:"BROKERS" env-default:"localhost:9092"`
	ActivityTopic    string   `env:"ACTIVITY_TOPIC" env-default:"social.activity"`
	CloudEventSource string   `env:"CLOUDEVENT_SOURCE" env-default:"/services/social-service"`
	Enabled          bool     `env:"ENABLED" env-default:"true"`
}

type LoggingConfig struct {
	Level  string `env:"LEVEL" env-default:"info"`
	Format string `env:"FORMAT" env-default:"json"`
}

// OAuthConfig carries the state token settings and the frontend URLs a
// finished callback redirects the browser to.
type OAuthConfig struct {
	StateSecret         string        `env:"STATE_SECRET" env-required:"true"`
	StateTTL            time.Duration `env:"STATE_TTL" env-default:"10m"`
	FrontendRedirectURL string        `env:"FRONTEND_REDIRECT_URL" env-default:"http://localhost:3000/social/connected"`
	FrontendErrorURL    string        `env:"FRONTEND_ERROR_URL" env-default:"http://localhost:3000/social/error"`
}

// PlatformCredentials is one platform's OAuth app registration.
type PlatformCredentials struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	RedirectURI  string   `env:"REDIRECT_URI"`
	Scopes       []string `env:"SCOPES"`
}

type PlatformsConfig struct {
	Facebook  PlatformCredentials `env-prefix:"FACEBOOK_"`
	Instagram PlatformCredentials `env-prefix:"INSTAGRAM_"`
	LinkedIn  PlatformCredentials `env-prefix:"LINKEDIN_"`
	TikTok    PlatformCredentials `env-prefix:"TIKTOK_"`
	Pinterest PlatformCredentials `env-prefix:"PINTEREST_"`
	X         PlatformCredentials `env-prefix:"X_"`
	YouTube   PlatformCredentials `env-prefix:"YOUTUBE_"`
}

// PublishConfig tunes the dispatch path.
type PublishConfig struct {
	// MediaBaseURL resolves bare media ids into fetchable URLs.
	MediaBaseURL   string        `env:"MEDIA_BASE_URL" env-default:"http://localhost:9000/media"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" env-default:"5m"`
}
