package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Drivers lists the accepted store.driver values.
var Drivers = []string{"xlsx", "sqlite", "postgres"}

// Validate checks the settings a command needs. mode is "serve" for the
// HTTP server or "cli" for one-shot commands.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch mode {
	case "serve", "cli":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if strings.TrimSpace(c.Workbook.File) == "" {
		add("workbook.file is required")
	}
	if c.Workbook.LoadTries < 1 || c.Workbook.SaveTries < 1 {
		add("workbook load_tries and save_tries must be >= 1")
	}
	if c.Workbook.LoadWaitMs < 0 || c.Workbook.SaveWaitMs < 0 {
		add("workbook wait times must be >= 0")
	}

	switch {
	case !slices.Contains(Drivers, c.Store.Driver):
		add("store.driver must be one of %s, got %q", strings.Join(Drivers, ", "), c.Store.Driver)
	case c.Store.Driver == "postgres" && c.Store.DatabaseURL == "":
		add("store.database_url is required for the postgres driver")
	case c.Store.Driver == "sqlite" && c.Store.SQLitePath == "":
		add("store.sqlite_path is required for the sqlite driver")
	}

	if len(c.Intake.Stands) == 0 {
		add("intake.stands must list at least one stand")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			add("server.port must be > 0 and <= 65535")
		}
		if c.Server.WriteRate <= 0 || c.Server.WriteBurst < 1 {
			add("server.write_rate must be > 0 and server.write_burst >= 1")
		}
		if c.Server.MaxUploadMB < 1 {
			add("server.max_upload_mb must be >= 1")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}
