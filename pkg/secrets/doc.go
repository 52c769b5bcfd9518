// Package secrets supplies the backend credential from a file that is
// reloaded on rotation.
//
// The token file is watched with fsnotify: on write or create events
// the cached value is dropped and the next Token call re-reads the
// file. This supports Kubernetes-style mounted secrets, where rotation
// replaces the file in place without restarting the process.
package secrets
