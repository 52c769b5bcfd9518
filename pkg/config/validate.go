package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for consistency. It is called after
// defaults are applied, so zero values only appear where the operator
// explicitly cleared them.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.Store.Backend {
	case "github":
		if cfg.GitHub.Organization == "" {
			errs = append(errs, "github.organization is required for the github backend")
		}
		if cfg.GitHub.Token == "" && cfg.GitHub.TokenFile == "" {
			errs = append(errs, "github.token or github.token_file is required for the github backend")
		}
		if cfg.GitHub.APIBaseURL == "" {
			errs = append(errs, "github.api_base_url cannot be empty")
		}
	case "mirror":
		if cfg.Mirror.RootPath == "" {
			errs = append(errs, "mirror.root_path is required for the mirror backend")
		}
		if cfg.Mirror.RemoteBase == "" {
			errs = append(errs, "mirror.remote_base is required for the mirror backend")
		}
		if err := validateAuth(&cfg.Mirror.Auth); err != nil {
			errs = append(errs, err.Error())
		}
	default:
		errs = append(errs, fmt.Sprintf("store.backend must be \"github\" or \"mirror\", got %q", cfg.Store.Backend))
	}

	if cfg.Store.Branch == "" {
		errs = append(errs, "store.branch cannot be empty")
	}

	if cfg.Directory.HealthInterval <= 0 {
		errs = append(errs, "directory.health_interval must be positive")
	}
	if cfg.Directory.ListInterval <= 0 {
		errs = append(errs, "directory.list_interval must be positive")
	}

	if cfg.Server.ListenAddress == "" {
		errs = append(errs, "server.listen_address cannot be empty")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("telemetry.logging.level must be debug/info/warn/error, got %q", cfg.Telemetry.Logging.Level))
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("telemetry.logging.format must be json or text, got %q", cfg.Telemetry.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateAuth(auth *GitAuthConfig) error {
	switch auth.Type {
	case "none":
		return nil
	case "token":
		if auth.Token == "" {
			return fmt.Errorf("mirror.auth.token is required for token auth")
		}
		return nil
	case "ssh":
		if auth.SSHKeyPath == "" {
			return fmt.Errorf("mirror.auth.ssh_key_path is required for ssh auth")
		}
		if auth.SSHKnownHostsPath == "" {
			return fmt.Errorf("mirror.auth.ssh_known_hosts_path is required for ssh auth")
		}
		return nil
	default:
		return fmt.Errorf("mirror.auth.type must be ssh/token/none, got %q", auth.Type)
	}
}
