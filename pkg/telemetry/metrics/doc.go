// Package metrics exposes Prometheus metrics for store operations and
// the directory cache.
//
// Store operations are instrumented through a decorator that wraps any
// store.Store. The directory cache is scraped through a custom
// collector reading its stats snapshot, so gauge values are always
// current without a push path.
package metrics
