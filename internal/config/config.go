package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling | noop
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // polling workers, sharded by chat
	AdminIDs []int64 `yaml:"admin_ids"`
	SendRate float64 `yaml:"send_rate"` // outbound API calls per second
	// Per-user command window enforced through redis when enabled.
	CommandLimit  int           `yaml:"command_limit"`
	CommandWindow time.Duration `yaml:"command_window"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port      int           `yaml:"port"` // 0 disables the admin HTTP server
	JWTSecret string        `yaml:"jwt_secret"`
	APIKey    string        `yaml:"api_key"` // exchanged for a bearer token at /api/v1/token
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"` // empty keeps download history in memory
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StateConfig struct {
	Backend string        `yaml:"backend"` // memory | redis
	TTL     time.Duration `yaml:"ttl"`     // 0 keeps state until cleared
}

type ProgressConfig struct {
	Interval      time.Duration `yaml:"interval"`
	ReplaceDelay  time.Duration `yaml:"replace_delay"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SideChannel   string        `yaml:"side_channel"`
}

type ThrottleConfig struct {
	MaxConcurrency     int           `yaml:"max_concurrency"`
	ChunkSize          int           `yaml:"chunk_size"`
	SendDelay          time.Duration `yaml:"send_delay"`
	PrepareConcurrency int           `yaml:"prepare_concurrency"`
}

type DownloadConfig struct {
	Binary      string `yaml:"binary"`
	WorkDir     string `yaml:"work_dir"`
	OutputDir   string `yaml:"output_dir"`
	CookiesPath string `yaml:"cookies_path"`
	Retries     int    `yaml:"retries"`
	JobWorkers  int    `yaml:"job_workers"`
	QueueSize   int    `yaml:"queue_size"`
	// Session directories older than StaleAfter are swept every JanitorInterval.
	JanitorInterval time.Duration `yaml:"janitor_interval"`
	StaleAfter      time.Duration `yaml:"stale_after"`
}

type SearchConfig struct {
	VideoLimit   int    `yaml:"video_limit"`
	ChannelLimit int    `yaml:"channel_limit"`
	MusicLimit   int    `yaml:"music_limit"`
	ImageDefault int    `yaml:"image_default"`
	AnimeBaseURL string `yaml:"anime_base_url"`
	ImageCommand string `yaml:"image_command"` // external image search script
	UserAgent    string `yaml:"user_agent"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Log      LogConfig      `yaml:"log"`
	Admin    AdminConfig    `yaml:"admin"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	State    StateConfig    `yaml:"state"`
	Progress ProgressConfig `yaml:"progress"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Download DownloadConfig `yaml:"download"`
	Search   SearchConfig   `yaml:"search"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	cfg.Runtime.Dev = dev

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Bot.Mode == "" {
		c.Bot.Mode = "polling"
	}
	if c.Bot.Workers <= 0 {
		c.Bot.Workers = 8
	}
	if c.Bot.SendRate <= 0 {
		c.Bot.SendRate = 25
	}
	if c.Bot.CommandLimit <= 0 {
		c.Bot.CommandLimit = 20
	}
	if c.Bot.CommandWindow <= 0 {
		c.Bot.CommandWindow = time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Admin.TokenTTL <= 0 {
		c.Admin.TokenTTL = 30 * time.Minute
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 10
	}
	if c.State.Backend == "" {
		c.State.Backend = "memory"
	}
	if c.Progress.Interval <= 0 {
		c.Progress.Interval = 3 * time.Second
	}
	if c.Progress.ReplaceDelay <= 0 {
		c.Progress.ReplaceDelay = 300 * time.Millisecond
	}
	if c.Progress.SweepInterval <= 0 {
		c.Progress.SweepInterval = 10 * time.Second
	}
	if c.Throttle.MaxConcurrency <= 0 {
		c.Throttle.MaxConcurrency = 10
	}
	if c.Throttle.ChunkSize <= 0 {
		c.Throttle.ChunkSize = 5
	}
	if c.Throttle.SendDelay <= 0 {
		c.Throttle.SendDelay = 400 * time.Millisecond
	}
	if c.Throttle.PrepareConcurrency <= 0 {
		c.Throttle.PrepareConcurrency = 5
	}
	if c.Download.Binary == "" {
		c.Download.Binary = "yt-dlp"
	}
	if c.Download.WorkDir == "" {
		c.Download.WorkDir = os.TempDir()
	}
	if c.Download.OutputDir == "" {
		c.Download.OutputDir = "files"
	}
	if c.Download.JanitorInterval <= 0 {
		c.Download.JanitorInterval = 10 * time.Minute
	}
	if c.Download.StaleAfter <= 0 {
		c.Download.StaleAfter = 6 * time.Hour
	}
	if c.Download.Retries <= 0 {
		c.Download.Retries = 3
	}
	if c.Download.JobWorkers <= 0 {
		c.Download.JobWorkers = 4
	}
	if c.Download.QueueSize <= 0 {
		c.Download.QueueSize = c.Download.JobWorkers * 4
	}
	if c.Search.VideoLimit <= 0 {
		c.Search.VideoLimit = 5
	}
	if c.Search.ChannelLimit <= 0 {
		c.Search.ChannelLimit = 5
	}
	if c.Search.MusicLimit <= 0 {
		c.Search.MusicLimit = 8
	}
	if c.Search.ImageDefault <= 0 {
		c.Search.ImageDefault = 5
	}
	if c.Search.AnimeBaseURL == "" {
		c.Search.AnimeBaseURL = "https://anime3rb.com"
	}
	c.Search.AnimeBaseURL = strings.TrimRight(c.Search.AnimeBaseURL, "/")
}

func (c *Config) validate() error {
	mode := strings.ToLower(c.Bot.Mode)
	if mode != "polling" && mode != "noop" {
		return fmt.Errorf("bot.mode %q is not supported", c.Bot.Mode)
	}
	if mode == "polling" && c.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	switch c.State.Backend {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return errors.New("state.backend=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("state.backend %q is not supported", c.State.Backend)
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return errors.New("redis.url is required when redis is enabled")
	}
	if c.Admin.Port > 0 && c.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret is required when the admin server is enabled")
	}
	return nil
}
