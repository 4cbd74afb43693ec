package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EffectiveConfigResult is the merged outcome of file, environment and
// flags, handed to app wiring and the banner.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string
}

// Addr resolves the listen address from address/port fields.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", addr, port)
}

// Load reads a YAML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// ParseCommandFlags centralizes flag parsing. setFlags records which flags
// the user set explicitly; explicit flags win over env and file values.
func ParseCommandFlags() (addr string, dbPath string, cfgPath string, setFlags map[string]bool) {
	addrFlag := flag.String("addr", ":8080", "listen address")
	dbFlag := flag.String("db", "./data", "database path")
	cfgFlag := flag.String("config", "", "path to config file")
	flag.Parse()
	setFlags = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	return *addrFlag, *dbFlag, *cfgFlag, setFlags
}

// ResolveConfigPath picks the config file path: flag wins over env, env
// over the conventional default.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet && flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("AGENTLAB_CONFIG"); p != "" {
		return p
	}
	return "./agentlab.yaml"
}

// LoadEnvOverrides applies AGENTLAB_* environment variables on top of cfg
// and reports whether any were used.
func LoadEnvOverrides(cfg *Config) bool {
	used := false
	setStr := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
			used = true
		}
	}
	setStr("AGENTLAB_SERVER_ADDRESS", &cfg.Server.Address)
	setStr("AGENTLAB_SERVER_DB_PATH", &cfg.Server.DBPath)
	setStr("AGENTLAB_LOG_LEVEL", &cfg.Logging.Level)
	setStr("AGENTLAB_INGEST_ADDRESS", &cfg.Ingest.Address)
	setStr("AGENTLAB_RETENTION_CRON", &cfg.Retention.Cron)
	setStr("AGENTLAB_SHARE_TTL", &cfg.Retention.ShareTTL)
	if v := strings.TrimSpace(os.Getenv("AGENTLAB_API_KEYS_BACKEND")); v != "" {
		cfg.Security.APIKeys.Backend = splitCSV(v)
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("AGENTLAB_API_KEYS_FRONTEND")); v != "" {
		cfg.Security.APIKeys.Frontend = splitCSV(v)
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("AGENTLAB_API_KEYS_ADMIN")); v != "" {
		cfg.Security.APIKeys.Admin = splitCSV(v)
		used = true
	}
	if v := strings.TrimSpace(os.Getenv("AGENTLAB_SIGNING_KEYS")); v != "" {
		cfg.Security.SigningKeys = splitCSV(v)
		used = true
	}
	return used
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// LoadEffective merges file and environment into an effective config. A
// missing config file is not an error; env and defaults still apply.
func LoadEffective(path string) (EffectiveConfigResult, error) {
	cfg := &Config{}
	src := "defaults"
	if c, err := Load(path); err == nil {
		cfg = c
		src = "config"
	} else if !os.IsNotExist(err) {
		return EffectiveConfigResult{}, err
	}
	if LoadEnvOverrides(cfg) {
		if src == "config" {
			src = "config, env"
		} else {
			src = "env"
		}
	}
	return EffectiveConfigResult{
		Config: cfg,
		Addr:   cfg.Addr(),
		DBPath: cfg.Server.DBPath,
		Source: src,
	}, nil
}
