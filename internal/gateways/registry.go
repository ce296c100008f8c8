// Package gateways builds the configured providers and looks them up by
// name.
package gateways

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gatepay/internal/config"
	"gatepay/internal/models"
	"gatepay/internal/providers/braintree"
	"gatepay/internal/providers/spreedly"
	"gatepay/internal/providers/stripe"
	"gatepay/internal/repositories/cache"

	"go.uber.org/zap"
)

var ErrUnknownGateway = errors.New("unknown gateway")

// Options are shared by every provider the registry builds.
type Options struct {
	Logger *zap.Logger
	// Cache backs capability probes. Optional.
	Cache cache.Store
}

type Registry struct {
	mu        sync.RWMutex
	providers map[string]models.Provider
	def       string
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]models.Provider)}
}

// New builds a provider for every profile in cfg.
func New(cfg *config.Gateways, opts Options) (*Registry, error) {
	r := NewRegistry()
	for _, g := range cfg.Gateways {
		p, err := Build(g, opts)
		if err != nil {
			return nil, err
		}
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	if cfg.Default != "" {
		r.def = cfg.Default
	}
	return r, nil
}

// Build creates the provider for one gateway profile.
func Build(g config.GatewayConfig, opts Options) (models.Provider, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch g.Kind {
	case config.KindBraintree:
		return braintree.New(braintree.Config{
			Name:        g.Name,
			Environment: g.Environment,
			Credentials: braintree.Credentials{
				MerchantID: g.Credential("merchant_id"),
				PublicKey:  g.Credential("public_key"),
				PrivateKey: g.Credential("private_key"),
			},
			BaseURL: g.BaseURL,
			Timeout: g.Timeout,
			Logger:  logger,
		}), nil
	case config.KindSpreedly:
		return spreedly.New(spreedly.Config{
			Name:           g.Name,
			Environment:    g.Environment,
			EnvironmentKey: g.Credential("environment_key"),
			AccessSecret:   g.Credential("access_secret"),
			GatewayToken:   g.Credential("gateway_token"),
			CurrencyCode:   g.CurrencyCode,
			BaseURL:        g.BaseURL,
			Timeout:        g.Timeout,
			Logger:         logger,
			Cache:          opts.Cache,
		}), nil
	case config.KindStripe:
		return stripe.New(stripe.Config{
			Name:           g.Name,
			Environment:    g.Environment,
			SecretKey:      g.Credential("secret_key"),
			PublishableKey: g.Credential("publishable_key"),
			CurrencyCode:   g.CurrencyCode,
			BaseURL:        g.BaseURL,
			Timeout:        g.Timeout,
			Logger:         logger,
		}), nil
	}
	return nil, fmt.Errorf("gateway %s: unknown kind %q", g.Name, g.Kind)
}

// Register adds p under its name. The first provider registered becomes the
// default.
func (r *Registry) Register(p models.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, ok := r.providers[name]; ok {
		return fmt.Errorf("gateway %s already registered", name)
	}
	r.providers[name] = p
	if r.def == "" {
		r.def = name
	}
	return nil
}

// Get returns the named provider. An empty name selects the default.
func (r *Registry) Get(name string) (models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.def
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGateway, name)
	}
	return p, nil
}

func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}

// Names lists registered gateways in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
