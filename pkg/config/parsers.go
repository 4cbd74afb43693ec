package config

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultIngestMaxBody bounds event-fragment request bodies when the config
// leaves ingest.max_body empty.
const DefaultIngestMaxBody = 1 << 20 // 1 MiB

// IngestMaxBodyBytes parses ingest.max_body ("512 KiB", "2MB", ...).
func (c *Config) IngestMaxBodyBytes() (int, error) {
	if c.Ingest.MaxBody == "" {
		return DefaultIngestMaxBody, nil
	}
	n, err := humanize.ParseBytes(c.Ingest.MaxBody)
	if err != nil {
		return 0, fmt.Errorf("invalid ingest.max_body %q: %w", c.Ingest.MaxBody, err)
	}
	if n == 0 || n > 1<<30 {
		return 0, fmt.Errorf("ingest.max_body %q out of range", c.Ingest.MaxBody)
	}
	return int(n), nil
}

// ShareTTL parses retention.share_ttl as a Go duration; zero means shares
// never expire.
func (c *Config) ShareTTL() (time.Duration, error) {
	if c.Retention.ShareTTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Retention.ShareTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid retention.share_ttl %q: %w", c.Retention.ShareTTL, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("retention.share_ttl must not be negative")
	}
	return d, nil
}
