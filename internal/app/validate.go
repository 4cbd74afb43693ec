package app

import (
	"fmt"
	"os"

	"github.com/adhocore/gronx"

	"github.com/rawkintrevo/agent-lab-ui/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// and focused so callers can surface user-friendly errors.
func validateConfig(eff config.EffectiveConfigResult) error {
	if eff.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, AGENTLAB_SERVER_DB_PATH env, or server.db_path in config")
	}

	// TLS cert/key must come as a pair
	cert := eff.Config.Server.TLS.CertFile
	key := eff.Config.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	if _, err := eff.Config.IngestMaxBodyBytes(); err != nil {
		return fmt.Errorf("invalid ingest.max_body: %w", err)
	}

	if eff.Config.Retention.Enabled {
		if cron := eff.Config.Retention.Cron; cron != "" && !gronx.IsValid(cron) {
			return fmt.Errorf("invalid retention.cron expression: %s", cron)
		}
		if _, err := eff.Config.ShareTTL(); err != nil {
			return fmt.Errorf("invalid retention.share_ttl: %w", err)
		}
	}

	if eff.Config.Session.ContentCacheSize < 0 {
		return fmt.Errorf("session.content_cache_size must not be negative")
	}

	return nil
}
