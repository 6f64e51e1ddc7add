package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envPrefix = "VOICETWIN"

type Config struct {
	Mode       string          `mapstructure:"mode"`
	Port       int             `mapstructure:"port"`
	Secret     string          `mapstructure:"secret"`
	LogLevel   string          `mapstructure:"log_level"`
	Backend    BackendConfig   `mapstructure:"backend"`
	Realtime   RealtimeConfig  `mapstructure:"realtime"`
	Media      MediaConfig     `mapstructure:"media"`
	Feed       FeedConfig      `mapstructure:"feed"`
	StartLimit RateLimitConfig `mapstructure:"start_limit"`
}

// BackendConfig points at the trusted service that issues ephemeral credentials.
type BackendConfig struct {
	SessionURL string        `mapstructure:"session_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type RealtimeConfig struct {
	URL         string   `mapstructure:"url"`
	Model       string   `mapstructure:"model"`
	DataChannel string   `mapstructure:"data_channel"`
	ICEServers  []string `mapstructure:"ice_servers"`
}

type MediaConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFplayPath  string `mapstructure:"ffplay_path"`
	InputFormat string `mapstructure:"input_format"` // empty picks the platform default
	InputDevice string `mapstructure:"input_device"`
	Playback    bool   `mapstructure:"playback"`
}

type FeedConfig struct {
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	SendBuffer int           `mapstructure:"send_buffer"`
}

type RateLimitConfig struct {
	Limit    int           `mapstructure:"limit"`
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (CONFIG_ENV defaults to dev).
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFrom(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFrom reads fileName on top of the defaults. A missing file is not an error.
// VOICETWIN_<SECTION>_<KEY> environment variables override both; .env is loaded first.
func LoadFrom(fileName string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("model", cfg.Realtime.Model).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")

	v.SetDefault("backend.session_url", "http://localhost:8000/session")
	v.SetDefault("backend.timeout", "15s")

	v.SetDefault("realtime.url", "https://api.openai.com/v1/realtime")
	v.SetDefault("realtime.model", "gpt-realtime")
	v.SetDefault("realtime.data_channel", "oai-events")
	v.SetDefault("realtime.ice_servers", []string{"stun:stun.l.google.com:19302"})

	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.ffplay_path", "ffplay")
	v.SetDefault("media.input_format", "")
	v.SetDefault("media.input_device", "")
	v.SetDefault("media.playback", true)

	v.SetDefault("feed.read_limit", 32768)
	v.SetDefault("feed.ping_period", "54s")
	v.SetDefault("feed.send_buffer", 32)

	v.SetDefault("start_limit.limit", 5)
	v.SetDefault("start_limit.interval", "1m")
}

func (c *Config) validate() error {
	if c.Backend.SessionURL == "" {
		return errors.New("backend.session_url is required")
	}
	if c.Realtime.URL == "" {
		return errors.New("realtime.url is required")
	}
	if c.Realtime.Model == "" {
		return errors.New("realtime.model is required")
	}
	if c.Feed.SendBuffer <= 0 {
		return fmt.Errorf("feed.send_buffer must be positive, got %d", c.Feed.SendBuffer)
	}
	return nil
}
