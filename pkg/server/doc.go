// Package server exposes the configuration store over HTTP.
//
// Routes:
//
//	GET  /v1/configs/{application}/{environment}/{category}?ref=<ref>
//	GET  /v1/commits/{application}/{environment}
//	GET  /v1/repositories?environment=<env>
//	POST /v1/applications
//	POST /v1/applications/{application}/environments/{environment}
//	GET  /healthz
//	GET  /metrics          (when metrics are enabled)
//
// Reads hit the store directly; the repository listing and the health
// flag come from the directory cache. Mutations run the bootstrap
// pipeline. The server shuts down gracefully on SIGINT/SIGTERM or
// context cancellation.
package server
