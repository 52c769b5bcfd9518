package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mercator-hq/ganymede/pkg/store"
)

// ErrUnknownEnvironment reports a provisioning request for an
// environment absent from the registry.
var ErrUnknownEnvironment = errors.New("environment is not registered")

// Refresher triggers an asynchronous directory refresh after a
// mutation. *directory.Cache satisfies it.
type Refresher interface {
	RefreshAsync()
}

// Pipeline provisions configuration repositories for applications.
type Pipeline struct {
	store     store.Store
	registry  Registry
	renderer  Renderer
	refresher Refresher
	logger    *slog.Logger
}

// NewPipeline creates a bootstrap pipeline. refresher may be nil when
// no directory cache is running (one-shot CLI use).
func NewPipeline(st store.Store, registry Registry, renderer Renderer, refresher Refresher, logger *slog.Logger) (*Pipeline, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:     st,
		registry:  registry,
		renderer:  renderer,
		refresher: refresher,
		logger:    logger.With("component", "bootstrap"),
	}, nil
}

// CreateApplication provisions the application in every registered
// environment, sequentially. On failure it returns the repositories
// created so far together with the error; already created repositories
// are not rolled back.
func (p *Pipeline) CreateApplication(ctx context.Context, application string) ([]store.RepositoryInfo, error) {
	environments := p.registry.Environments()
	if len(environments) == 0 {
		return nil, fmt.Errorf("no environments registered")
	}

	var created []store.RepositoryInfo
	for _, environment := range environments {
		info, err := p.provision(ctx, application, environment)
		if err != nil {
			p.refreshIfCreated(created)
			return created, err
		}
		created = append(created, *info)
	}

	p.refreshIfCreated(created)
	return created, nil
}

// CreateApplicationEnvironment provisions the application in one
// registered environment.
func (p *Pipeline) CreateApplicationEnvironment(ctx context.Context, application, environment string) (*store.RepositoryInfo, error) {
	if !p.registry.Has(environment) {
		return nil, fmt.Errorf("environment %q: %w", environment, ErrUnknownEnvironment)
	}

	info, err := p.provision(ctx, application, environment)
	if err != nil {
		return nil, err
	}

	if p.refresher != nil {
		p.refresher.RefreshAsync()
	}
	return info, nil
}

// provision renders all categories and bootstraps one repository.
func (p *Pipeline) provision(ctx context.Context, application, environment string) (*store.RepositoryInfo, error) {
	documents := make(map[store.Category][]byte, len(store.Categories()))
	for _, category := range store.Categories() {
		data, err := p.renderer.Render(application, environment, category)
		if err != nil {
			return nil, err
		}
		documents[category] = data
	}

	info, err := p.store.Bootstrap(ctx, application, environment, documents)
	if err != nil {
		return nil, err
	}

	p.logger.Info("provisioned repository",
		"application", application,
		"environment", environment,
		"repository", info.Name)
	return info, nil
}

// refreshIfCreated fires one directory refresh when at least one
// repository was created.
func (p *Pipeline) refreshIfCreated(created []store.RepositoryInfo) {
	if p.refresher != nil && len(created) > 0 {
		p.refresher.RefreshAsync()
	}
}
