package model

import "time"

// Config is the complete TruthPost configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Consensus    ConsensusConfig    `yaml:"consensus" mapstructure:"consensus"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Storage      StorageConfig      `yaml:"storage" mapstructure:"storage"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Notify       NotifyConfig       `yaml:"notify" mapstructure:"notify"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// HTTPConfig controls source page retrieval
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxPageChars  int           `yaml:"max_page_chars" mapstructure:"max_page_chars"` // Text-mode truncation before prompting
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LLMConfig selects and tunes the judgment provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, mock
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// ConsensusConfig tunes the strict-equality reducer
type ConsensusConfig struct {
	Evaluations int `yaml:"evaluations" mapstructure:"evaluations"` // Independent evaluations that must agree
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"` // Evaluations in flight at once
}

// CacheConfig controls the fetched-page cache
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend  string        `yaml:"backend" mapstructure:"backend"` // memory, disk, layered, redis
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir      string        `yaml:"dir" mapstructure:"dir"`
	RedisURL string        `yaml:"redis_url,omitempty" mapstructure:"redis_url"`
}

// StorageConfig selects the claim and reputation backend
type StorageConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // memory, postgres, mysql
	DSN    string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// RateLimitingConfig limits outbound fetches per domain
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig sizes the batch resolution worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr           string        `yaml:"addr" mapstructure:"addr"`
	JWTSecret      string        `yaml:"jwt_secret,omitempty" mapstructure:"jwt_secret"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	ResolveTimeout time.Duration `yaml:"resolve_timeout" mapstructure:"resolve_timeout"`
}

// NotifyConfig enables resolution announcements
type NotifyConfig struct {
	DiscordToken     string `yaml:"discord_token,omitempty" mapstructure:"discord_token"`
	DiscordChannelID string `yaml:"discord_channel_id,omitempty" mapstructure:"discord_channel_id"`
}

// LogConfig controls structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "TruthPost/0.1 (+https://github.com/ppiankov/truthpost)",
			MaxBodyBytes:  2_000_000,
			MaxPageChars:  20_000,
			RespectRobots: true,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   60,
			MaxTokens: 300,
		},
		Consensus: ConsensusConfig{
			Evaluations: 3,
			Concurrency: 3,
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "memory",
			TTL:     15 * time.Minute,
			Dir:     ".truthpost/cache",
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RateLimitRPS:   20,
			RateLimitBurst: 40,
			ResolveTimeout: 3 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
