package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/store"
)

// Stats is a point-in-time view of the cache, consumed by the
// telemetry collector and the health endpoint.
type Stats struct {
	Repositories    int
	Healthy         bool
	Stale           bool
	LastRefresh     time.Time
	Refreshes       uint64
	RefreshFailures uint64
}

// Cache holds the repository directory and the backend health flag,
// refreshed by two background loops.
type Cache struct {
	store    store.Store
	snapshot *Snapshot
	cron     *cron.Cron
	logger   *slog.Logger

	healthInterval time.Duration
	listInterval   time.Duration

	mu              sync.RWMutex
	repos           []store.RepositoryInfo
	healthy         bool
	stale           bool
	lastRefresh     time.Time
	refreshes       uint64
	refreshFailures uint64
	running         bool
}

// NewCache creates a directory cache over the given store. When a
// snapshot path is configured, the previous listing is restored and
// marked stale.
func NewCache(st store.Store, cfg *config.DirectoryConfig, logger *slog.Logger) (*Cache, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{
		store:          st,
		cron:           cron.New(),
		logger:         logger.With("component", "directory"),
		healthInterval: cfg.HealthInterval,
		listInterval:   cfg.ListInterval,
	}

	if cfg.SnapshotPath != "" {
		snapshot, err := OpenSnapshot(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}
		c.snapshot = snapshot

		repos, takenAt, err := snapshot.Load(context.Background())
		if err != nil {
			c.logger.Warn("failed to restore directory snapshot", "error", err)
		} else if len(repos) > 0 {
			c.repos = repos
			c.stale = true
			c.lastRefresh = takenAt
			c.logger.Info("restored directory snapshot",
				"repositories", len(repos),
				"taken_at", takenAt)
		}
	}

	return c, nil
}

// Start computes the first health and listing state eagerly, then runs
// both refresh loops until the context is cancelled or Stop is called.
func (c *Cache) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("directory cache already started")
	}
	c.running = true
	c.mu.Unlock()

	// Eager first compute. A failing backend at startup is logged,
	// not fatal: the loops keep trying and the snapshot (if any)
	// keeps serving.
	c.refreshHealth(ctx)
	c.refreshListing(ctx)

	if _, err := c.cron.AddFunc(fmt.Sprintf("@every %s", c.healthInterval), func() {
		c.refreshHealth(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule health refresh: %w", err)
	}
	if _, err := c.cron.AddFunc(fmt.Sprintf("@every %s", c.listInterval), func() {
		c.refreshListing(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule listing refresh: %w", err)
	}

	c.cron.Start()
	c.logger.Info("directory cache started",
		"health_interval", c.healthInterval,
		"list_interval", c.listInterval)

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	return nil
}

// Stop stops the refresh loops and waits for in-flight refreshes to
// finish, then closes the snapshot.
func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.mu.Unlock()

	<-c.cron.Stop().Done()
	if c.snapshot != nil {
		if err := c.snapshot.Close(); err != nil {
			c.logger.Warn("failed to close directory snapshot", "error", err)
		}
	}
	c.logger.Info("directory cache stopped")
}

// RefreshAsync triggers one listing refresh in the background. Callers
// do not wait for or learn about the outcome; the next loop tick
// corrects any miss.
func (c *Cache) RefreshAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.listInterval)
		defer cancel()
		c.refreshListing(ctx)
	}()
}

// refreshHealth probes the backend and updates the health flag.
func (c *Cache) refreshHealth(ctx context.Context) {
	healthy := c.store.Healthy(ctx)

	c.mu.Lock()
	changed := c.healthy != healthy
	c.healthy = healthy
	c.mu.Unlock()

	if changed {
		c.logger.Info("backend health changed", "healthy", healthy)
	}
}

// refreshListing fetches the repository listing and atomically replaces
// the cached one. On failure the last good listing stays in place.
func (c *Cache) refreshListing(ctx context.Context) {
	repos, err := c.store.ListRepositories(ctx)
	if err != nil {
		c.mu.Lock()
		c.refreshFailures++
		c.mu.Unlock()
		c.logger.Warn("directory refresh failed", "error", err)
		return
	}

	c.mu.Lock()
	c.repos = repos
	c.stale = false
	c.lastRefresh = time.Now()
	c.refreshes++
	snapshot := c.snapshot
	c.mu.Unlock()

	if snapshot != nil {
		if err := snapshot.Save(ctx, repos); err != nil {
			c.logger.Warn("failed to persist directory snapshot", "error", err)
		}
	}

	c.logger.Debug("directory refreshed", "repositories", len(repos))
}

// Repositories returns the cached listing.
func (c *Cache) Repositories() []store.RepositoryInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]store.RepositoryInfo, len(c.repos))
	copy(out, c.repos)
	return out
}

// ByEnvironment returns the cached repositories whose environment
// matches.
func (c *Cache) ByEnvironment(environment string) []store.RepositoryInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []store.RepositoryInfo
	for _, r := range c.repos {
		if r.Environment == environment {
			out = append(out, r)
		}
	}
	return out
}

// Healthy reports the last observed backend health.
func (c *Cache) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

// Stale reports whether the listing still comes from a restored
// snapshot rather than a live refresh.
func (c *Cache) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}

// Stats returns a snapshot of the cache state.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Repositories:    len(c.repos),
		Healthy:         c.healthy,
		Stale:           c.stale,
		LastRefresh:     c.lastRefresh,
		Refreshes:       c.refreshes,
		RefreshFailures: c.refreshFailures,
	}
}
