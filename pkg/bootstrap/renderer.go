package bootstrap

import (
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/store"
)

// Renderer produces the initial document for one category of an
// application/environment pair.
type Renderer interface {
	Render(application, environment string, category store.Category) ([]byte, error)
}

// TemplateRenderer renders documents from the environment registry's
// templates. String values may carry placeholders:
//
//	{applicationName}   the application being provisioned
//	{environmentName}   the target environment
//	{<key>}             any key from the environment's values map
//
// A category without a template renders as an empty object.
type TemplateRenderer struct {
	cfg *config.RegistryConfig
}

// NewTemplateRenderer creates a renderer over the configured registry.
func NewTemplateRenderer(cfg *config.RegistryConfig) *TemplateRenderer {
	return &TemplateRenderer{cfg: cfg}
}

// Render produces the document for one category.
func (r *TemplateRenderer) Render(application, environment string, category store.Category) ([]byte, error) {
	env, ok := r.cfg.Environments[environment]
	if !ok {
		return nil, fmt.Errorf("environment %q is not registered", environment)
	}

	template, ok := env.Templates[string(category)]
	if !ok {
		return []byte("{}"), nil
	}

	replacer := newPlaceholderReplacer(application, environment, env.Values)
	rendered := substitute(template, replacer)

	data, err := json.Marshal(rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s for %s/%s: %w",
			category, application, environment, err)
	}
	return data, nil
}

func newPlaceholderReplacer(application, environment string, values map[string]string) *strings.Replacer {
	pairs := []string{
		"{applicationName}", application,
		"{environmentName}", environment,
	}
	for key, value := range values {
		pairs = append(pairs, "{"+key+"}", value)
	}
	return strings.NewReplacer(pairs...)
}

// substitute walks the template and applies placeholder replacement to
// every string leaf.
func substitute(value any, replacer *strings.Replacer) any {
	switch v := value.(type) {
	case string:
		return replacer.Replace(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = substitute(item, replacer)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = substitute(item, replacer)
		}
		return out
	default:
		return v
	}
}
