package config

import (
	"fmt"
	"strings"
)

// ValidateCore ensures critical configuration is present.
func (c *Config) ValidateCore() error {
	var missing []string

	switch c.Upstream.Source {
	case SourceREST:
		if strings.TrimSpace(c.Upstream.BaseURL) == "" {
			missing = append(missing, "UPSTREAM_BASE_URL")
		}
	case SourcePostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case SourceMock:
	default:
		return fmt.Errorf("unsupported RECORD_SOURCE %q", c.Upstream.Source)
	}

	if strings.TrimSpace(c.Redis.URL) == "" {
		missing = append(missing, "REDIS_URL")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" || c.JWT.Secret == "change-this-secret" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Pipeline.DefaultPageSize < 1 || c.Pipeline.MaxPageSize < c.Pipeline.DefaultPageSize {
		return fmt.Errorf("invalid page size bounds: default=%d max=%d",
			c.Pipeline.DefaultPageSize, c.Pipeline.MaxPageSize)
	}

	return nil
}
