package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the configuration is usable for the given mode.
// Modes: "build" (one-shot CLI pipeline), "serve" (HTTP API).
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch c.Store.Driver {
	case "sqlite":
		check(c.Store.Path != "", "store.path is required for the sqlite driver")
	case "postgres":
		check(c.Store.DatabaseURL != "", "store.database_url is required for the postgres driver")
	default:
		check(false, "store.driver must be sqlite or postgres")
	}

	switch mode {
	case "build":
		// The one-shot pipeline needs no server or storage settings.
	case "serve":
		check(c.Server.Addr != "", "server.addr is required")
		check(c.Server.MaxUploadBytes > 0, "server.max_upload_bytes must be > 0")
		check(c.Storage.Root != "", "storage.root is required")
		check(c.Jobs.MaxConcurrent >= 1 && c.Jobs.MaxConcurrent <= 50,
			"jobs.max_concurrent must be between 1 and 50")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
