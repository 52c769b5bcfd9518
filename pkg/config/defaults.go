package config

import "time"

// Default values applied to unset configuration fields.
const (
	DefaultBackend        = "github"
	DefaultBranch         = "main"
	DefaultAPIBaseURL     = "https://api.github.com"
	DefaultRequestTimeout = 30 * time.Second
	DefaultCloneTimeout   = 30 * time.Second
	DefaultPushTimeout    = 30 * time.Second
	DefaultHealthInterval = 10 * time.Second
	DefaultListInterval   = 5 * time.Minute
	DefaultListenAddress  = "127.0.0.1:8080"
	DefaultMetricsPath    = "/metrics"
)

// ApplyDefaults fills in default values for any unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultBackend
	}
	if cfg.Store.Branch == "" {
		cfg.Store.Branch = DefaultBranch
	}

	if cfg.GitHub.APIBaseURL == "" {
		cfg.GitHub.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.GitHub.RequestTimeout == 0 {
		cfg.GitHub.RequestTimeout = DefaultRequestTimeout
	}

	if cfg.Mirror.CloneTimeout == 0 {
		cfg.Mirror.CloneTimeout = DefaultCloneTimeout
	}
	if cfg.Mirror.PushTimeout == 0 {
		cfg.Mirror.PushTimeout = DefaultPushTimeout
	}
	if cfg.Mirror.Auth.Type == "" {
		cfg.Mirror.Auth.Type = "none"
	}

	if cfg.Directory.HealthInterval == 0 {
		cfg.Directory.HealthInterval = DefaultHealthInterval
	}
	if cfg.Directory.ListInterval == 0 {
		cfg.Directory.ListInterval = DefaultListInterval
	}

	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "mercator"
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = "ganymede"
	}
}
