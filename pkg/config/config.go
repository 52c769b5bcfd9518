package config

import "time"

// Config is the root configuration structure for Ganymede.
// It selects the store backend and configures the hosting API client,
// the local mirror, the repository directory cache, the environment
// registry, the HTTP server, and telemetry.
type Config struct {
	// Store selects and parameterizes the store backend.
	Store StoreConfig `yaml:"store"`

	// GitHub configures the remote-API backend. Only read when
	// Store.Backend is "github".
	GitHub GitHubConfig `yaml:"github"`

	// Mirror configures the local-clone backend. Only read when
	// Store.Backend is "mirror".
	Mirror MirrorConfig `yaml:"mirror"`

	// Directory configures the repository directory cache refresh loops.
	Directory DirectoryConfig `yaml:"directory"`

	// Registry holds the static environment registry used by the
	// bootstrap pipeline when no external registry is injected.
	Registry RegistryConfig `yaml:"registry"`

	// Server configures the HTTP API server.
	Server ServerConfig `yaml:"server"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StoreConfig selects the backend variant at process configuration time.
type StoreConfig struct {
	// Backend is "github" (remote hosting API, no local state) or
	// "mirror" (synchronized local clones).
	// Default: "github"
	Backend string `yaml:"backend"`

	// Branch is the primary branch all reads and writes go through.
	// Default: "main"
	Branch string `yaml:"branch"`
}

// GitHubConfig configures the hosting-API client.
type GitHubConfig struct {
	// APIBaseURL is the API root, e.g. "https://api.github.com".
	APIBaseURL string `yaml:"api_base_url"`

	// Organization scopes every repository operation.
	Organization string `yaml:"organization"`

	// Token is the bearer credential. Prefer TokenFile in production so
	// the credential can be rotated without a restart.
	Token string `yaml:"token"`

	// TokenFile is a path to a file holding the bearer credential.
	// When set it takes precedence over Token and is watched for
	// rotation.
	TokenFile string `yaml:"token_file"`

	// RequestTimeout bounds each API request. Zero disables the
	// client-side timeout.
	// Default: 30s
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// MirrorConfig configures the local-clone backend.
type MirrorConfig struct {
	// RootPath is the directory all mirrors live under, one
	// subdirectory per repository.
	RootPath string `yaml:"root_path"`

	// RemoteBase is the locator prefix remotes are derived from; the
	// remote for repository NAME is "<remote_base>/NAME.git".
	RemoteBase string `yaml:"remote_base"`

	// CloneTimeout bounds clone and fetch operations.
	// Default: 30s
	CloneTimeout time.Duration `yaml:"clone_timeout"`

	// PushTimeout bounds push operations.
	// Default: 30s
	PushTimeout time.Duration `yaml:"push_timeout"`

	// Auth configures transport authentication for clone/fetch/push.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig configures Git transport authentication.
type GitAuthConfig struct {
	// Type is "ssh", "token", or "none".
	// Default: "none"
	Type string `yaml:"type"`

	// Token is the credential for token auth.
	Token string `yaml:"token"`

	// SSHKeyPath is the private key for ssh auth.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase unlocks an encrypted private key; empty for
	// unencrypted keys.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`

	// SSHKnownHostsPath is the pinned allowlist of host keys. Required
	// for ssh auth; unknown hosts are rejected.
	SSHKnownHostsPath string `yaml:"ssh_known_hosts_path"`
}

// DirectoryConfig configures the repository directory cache.
type DirectoryConfig struct {
	// HealthInterval schedules the backend reachability probe.
	// Default: 10s
	HealthInterval time.Duration `yaml:"health_interval"`

	// ListInterval schedules the full repository listing refresh.
	// Default: 5m
	ListInterval time.Duration `yaml:"list_interval"`

	// SnapshotPath, when set, persists the last listing to a SQLite
	// file so it survives restarts while the backend is unreachable.
	SnapshotPath string `yaml:"snapshot_path"`
}

// RegistryConfig is the static environment registry.
type RegistryConfig struct {
	// Environments maps environment names to their metadata.
	Environments map[string]EnvironmentConfig `yaml:"environments"`
}

// EnvironmentConfig holds per-environment bootstrap metadata.
type EnvironmentConfig struct {
	// Templates maps a category name to the default document template
	// rendered at bootstrap time.
	Templates map[string]map[string]any `yaml:"templates"`

	// Values are extra substitution values available to the templates,
	// alongside applicationName and environmentName.
	Values map[string]string `yaml:"values"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// ListenAddress is "host:port".
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled controls metric collection and the /metrics endpoint.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace and Subsystem prefix every metric name.
	// Defaults: "mercator", "ganymede"
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}
