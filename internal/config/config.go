package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the chat server.
type Config struct {
	Addr            string        `env:"ADDR,default=:8080"`
	JWTSecret       string        `env:"JWT_SECRET,required"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,default=60m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL,default=168h"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	LogFormat       string        `env:"LOG_FORMAT,default=console"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS,default=*"`
	OTLPEndpoint    string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	DB Database
}

// Database selects the store driver and connection string.
type Database struct {
	Driver string `env:"DB_DRIVER,default=sqlite3"`
	DSN    string `env:"DB_DSN,default=chatty.db"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDatabase reads only the database settings, for commands that do not serve requests.
func LoadDatabase(ctx context.Context) (Database, error) {
	var db Database
	if err := envconfig.Process(ctx, &db); err != nil {
		return Database{}, err
	}
	return db, nil
}
