package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	DefaultPort           = "8080"
	DefaultFeedLimit      = 5
	DefaultPollInterval   = 30 * time.Second
	DefaultMaxUploadBytes = 5 << 20 // 5MB, límite heredado del producto
)

type Config struct {
	Port      string
	AppName   string
	LogLevel  string
	LogFormat string

	// DSN de Postgres. Vacío => repos in-memory (modo dev).
	DBDSN string

	Auth    AuthConfig
	Storage StorageConfig
	Feed    FeedConfig
}

// AuthConfig configura el verifier contra el servicio de auth hosteado.
// Si JWTSecret está presente se verifica el token localmente (HS256);
// si no, se consulta /auth/v1/user. Todo vacío => modo dev sin verifier.
type AuthConfig struct {
	BaseURL   string
	APIKey    string
	JWTSecret string
}

// StorageConfig selecciona el adapter de imágenes.
// Driver: "memory" | "supabase" | "gcs".
type StorageConfig struct {
	Driver         string
	Bucket         string
	BaseURL        string // supabase
	APIKey         string // supabase
	MaxUploadBytes int64
}

type FeedConfig struct {
	PollInterval time.Duration
	Limit        int
}

// Load lee config desde env vars (y .env si existe, para dev).
// Mapeo: FEED_POLL_INTERVAL -> feed.poll.interval, etc.
func Load() (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}), nil); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:      DefaultPort,
		AppName:   "med-adherence-tracker",
		LogLevel:  "info",
		LogFormat: "text",
		Storage: StorageConfig{
			Driver:         "memory",
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
		Feed: FeedConfig{
			PollInterval: DefaultPollInterval,
			Limit:        DefaultFeedLimit,
		},
	}

	if v := k.String("port"); v != "" {
		cfg.Port = v
	}
	if v := k.String("app.name"); v != "" {
		cfg.AppName = v
	}
	if v := k.String("log.level"); v != "" {
		cfg.LogLevel = v
	}
	if v := k.String("log.format"); v != "" {
		cfg.LogFormat = v
	}
	cfg.DBDSN = k.String("db.dsn")

	cfg.Auth.BaseURL = k.String("auth.base.url")
	cfg.Auth.APIKey = k.String("auth.api.key")
	cfg.Auth.JWTSecret = k.String("auth.jwt.secret")

	if v := k.String("storage.driver"); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	cfg.Storage.Bucket = k.String("storage.bucket")
	cfg.Storage.BaseURL = k.String("storage.base.url")
	cfg.Storage.APIKey = k.String("storage.api.key")
	if v := k.Int64("storage.max.upload.bytes"); v > 0 {
		cfg.Storage.MaxUploadBytes = v
	}

	if v := k.String("feed.poll.interval"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, errInvalidInterval(v)
		}
		cfg.Feed.PollInterval = d
	}
	if v := k.Int("feed.limit"); v > 0 {
		cfg.Feed.Limit = v
	}

	return cfg, nil
}

type errInvalidInterval string

func (e errInvalidInterval) Error() string {
	return "invalid FEED_POLL_INTERVAL: " + string(e)
}
