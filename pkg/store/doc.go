// Package store defines the versioned configuration store contract shared
// by all backends.
//
// A store keeps one Git repository per (application, environment) pair,
// named "<application>-<environment>". Each repository holds one JSON
// document per configuration category on a single primary branch with
// linear history. The Store interface exposes revision-addressed document
// retrieval, commit history listing, repository bootstrap, and a
// lightweight health probe.
//
// Two implementations exist:
//
//   - store/github talks to a Git hosting API directly and keeps no local
//     state.
//   - store/mirror keeps a synchronized local clone per repository and
//     uses Git plumbing against it.
//
// The backend is selected once at process configuration time; the two
// variants share no mutable state.
package store
