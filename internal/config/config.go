package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	MaxEventsPerMinute int           `mapstructure:"max_events_per_minute" yaml:"max_events_per_minute"`
	ClientBuffer       int           `mapstructure:"client_buffer" yaml:"client_buffer"`
	PersistTimeout     time.Duration `mapstructure:"persist_timeout" yaml:"persist_timeout"`

	AIServiceURL       string        `mapstructure:"ai_service_url" yaml:"ai_service_url"`
	AITimeout          time.Duration `mapstructure:"ai_timeout" yaml:"ai_timeout"`
	RedisURL           string        `mapstructure:"redis_url" yaml:"redis_url"`
	SuggestionCacheTTL time.Duration `mapstructure:"suggestion_cache_ttl" yaml:"suggestion_cache_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":3000",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		DatabasePath:       "supportchat.db",
		JWTSecret:          "secret",
		JWTIssuer:          "supportchat",
		JWTTTL:             7 * 24 * time.Hour,
		CORSOrigins:        []string{"http://localhost:5173"},
		MaxMessageBytes:    1 << 20,
		MaxEventsPerMinute: 600,
		ClientBuffer:       32,
		PersistTimeout:     5 * time.Second,
		AITimeout:          15 * time.Second,
		SuggestionCacheTTL: 10 * time.Minute,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Used for command-line overrides.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.AIServiceURL != "" {
		c.AIServiceURL = other.AIServiceURL
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}
