package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	golobby "github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

// Config is everything the process needs before it can open the database.
// User facing settings that can change while running live in Settings instead.
type Config struct {
	MediaServer MediaServerConfig
	Pushover    PushoverConfig
	Spyy        SpyyConfig
}

type MediaServerConfig struct {
	Capacity int    `env:"MEDIA_SERVER_CAPACITY"`
	Password string `env:"MEDIA_SERVER_PASSWORD"`
	User     string `env:"MEDIA_SERVER_USER"`
}

type PushoverConfig struct {
	Recipient string `env:"PUSHOVER_RECIPIENT"`
	Token     string `env:"PUSHOVER_TOKEN"`
}

type SpyyConfig struct {
	Addr             string `env:"SPYY_ADDR"`
	AllowedOrigins   string `env:"ALLOWED_ORIGINS"`
	DbPath           string `env:"DB_PATH"`
	HistoryCapacity  int    `env:"HISTORY_CAPACITY"`
	LivenessInterval int    `env:"LIVENESS_INTERVAL_SECONDS"`
	LogLevel         string `env:"LOG_LEVEL"`
	StorageMode      string `env:"STORAGE_MODE"`
}

const (
	StorageModePersistent = "persistent"
	StorageModeMemory     = "memory"
)

// ExtensionOrigins is what cross origin requests are limited to when
// ALLOWED_ORIGINS is unset. Only the browser extension talks to us.
var ExtensionOrigins = []string{"chrome-extension://*", "moz-extension://*"}

func Default() Config {
	return Config{
		MediaServer: MediaServerConfig{
			Capacity: 1000,
		},
		Spyy: SpyyConfig{
			Addr:             "127.0.0.1:8080",
			DbPath:           "mediaspyy.db",
			HistoryCapacity:  100,
			LivenessInterval: 60,
			LogLevel:         "info",
			StorageMode:      StorageModePersistent,
		},
	}
}

// Load layers an optional .env file and then the environment over Default
func Load(dotenvPath string) (Config, error) {
	cfg := Default()
	c := golobby.New()
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			c.AddFeeder(feeder.DotEnv{Path: dotenvPath})
		} else if !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}
	c.AddFeeder(feeder.Env{})
	c.AddStruct(&cfg)
	if err := c.Feed(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(c.Spyy.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	slog.With(slog.String("log_level", logLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}

// Origins never allows every origin. A bare "*" is ignored and an empty
// list falls back to ExtensionOrigins.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.Spyy.AllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			slog.Warn("Ignoring wildcard entry in ALLOWED_ORIGINS")
			continue
		}
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return append([]string(nil), ExtensionOrigins...)
	}
	return origins
}

func (c *Config) MediaServerEnabled() bool {
	return c.MediaServer.User != "" && c.MediaServer.Password != ""
}
