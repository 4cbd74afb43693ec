package config

// Config is the main configuration struct, loaded from YAML with
// AGENTLAB_* environment overrides on top.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
	Retention RetentionConfig `yaml:"retention"`
	Session   SessionConfig   `yaml:"session"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// ServerConfig holds http and tls settings.
type ServerConfig struct {
	Address string    `yaml:"address"`
	Port    int       `yaml:"port"`
	DBPath  string    `yaml:"db_path"`
	TLS     TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// SecurityConfig holds security related settings.
type SecurityConfig struct {
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
	RateLimit struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	IPWhitelist []string `yaml:"ip_whitelist"`
	APIKeys     struct {
		Backend  []string `yaml:"backend"`
		Frontend []string `yaml:"frontend"`
		Admin    []string `yaml:"admin"`
	} `yaml:"api_keys"`
	SigningKeys []string `yaml:"signing_keys"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RetentionConfig drives the share-snapshot purge runner.
type RetentionConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Cron      string `yaml:"cron"`
	ShareTTL  string `yaml:"share_ttl"`
	BatchSize int    `yaml:"batch_size"`
}

// SessionConfig tunes per-view conversation state.
type SessionConfig struct {
	ContentCacheSize int `yaml:"content_cache_size"`
}

// IngestConfig configures the event-fragment ingest listener.
type IngestConfig struct {
	Address string `yaml:"address"`
	// MaxBody is a humanized size ("1 MiB"); zero means the default.
	MaxBody string `yaml:"max_body"`
}
