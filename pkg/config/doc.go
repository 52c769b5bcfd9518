// Package config defines Ganymede's YAML configuration model.
//
// Configuration is loaded once at startup: parse the file, apply
// defaults, apply GANYMEDE_* environment overrides, validate. The store
// backend variant ("github" or "mirror") is fixed here for the lifetime
// of the process.
package config
