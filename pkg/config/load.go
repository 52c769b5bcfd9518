package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path,
// applies defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention GANYMEDE_SECTION_FIELD and always take precedence over
// file-based configuration.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if val := os.Getenv(key); val != "" {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = d
			}
		}
	}

	setString("GANYMEDE_STORE_BACKEND", &cfg.Store.Backend)
	setString("GANYMEDE_STORE_BRANCH", &cfg.Store.Branch)

	setString("GANYMEDE_GITHUB_API_BASE_URL", &cfg.GitHub.APIBaseURL)
	setString("GANYMEDE_GITHUB_ORGANIZATION", &cfg.GitHub.Organization)
	setString("GANYMEDE_GITHUB_TOKEN", &cfg.GitHub.Token)
	setString("GANYMEDE_GITHUB_TOKEN_FILE", &cfg.GitHub.TokenFile)
	setDuration("GANYMEDE_GITHUB_REQUEST_TIMEOUT", &cfg.GitHub.RequestTimeout)

	setString("GANYMEDE_MIRROR_ROOT_PATH", &cfg.Mirror.RootPath)
	setString("GANYMEDE_MIRROR_REMOTE_BASE", &cfg.Mirror.RemoteBase)
	setDuration("GANYMEDE_MIRROR_CLONE_TIMEOUT", &cfg.Mirror.CloneTimeout)
	setDuration("GANYMEDE_MIRROR_PUSH_TIMEOUT", &cfg.Mirror.PushTimeout)
	setString("GANYMEDE_MIRROR_AUTH_TYPE", &cfg.Mirror.Auth.Type)
	setString("GANYMEDE_MIRROR_AUTH_TOKEN", &cfg.Mirror.Auth.Token)
	setString("GANYMEDE_MIRROR_AUTH_SSH_KEY_PATH", &cfg.Mirror.Auth.SSHKeyPath)
	setString("GANYMEDE_MIRROR_AUTH_SSH_KNOWN_HOSTS_PATH", &cfg.Mirror.Auth.SSHKnownHostsPath)

	setDuration("GANYMEDE_DIRECTORY_HEALTH_INTERVAL", &cfg.Directory.HealthInterval)
	setDuration("GANYMEDE_DIRECTORY_LIST_INTERVAL", &cfg.Directory.ListInterval)
	setString("GANYMEDE_DIRECTORY_SNAPSHOT_PATH", &cfg.Directory.SnapshotPath)

	setString("GANYMEDE_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	setDuration("GANYMEDE_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	setDuration("GANYMEDE_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	setDuration("GANYMEDE_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	setString("GANYMEDE_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("GANYMEDE_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	setString("GANYMEDE_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
}
