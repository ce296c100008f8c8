package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GatewayKind names a supported adapter.
type GatewayKind string

const (
	KindBraintree GatewayKind = "braintree"
	KindSpreedly  GatewayKind = "spreedly"
	KindStripe    GatewayKind = "stripe"
)

var requiredCredentials = map[GatewayKind][]string{
	KindBraintree: {"merchant_id", "public_key", "private_key"},
	KindSpreedly:  {"environment_key", "access_secret", "gateway_token"},
	KindStripe:    {"secret_key", "publishable_key"},
}

// GatewayConfig is one named gateway profile.
type GatewayConfig struct {
	Name         string            `yaml:"name"`
	Kind         GatewayKind       `yaml:"kind"`
	Environment  Environment       `yaml:"environment"`
	CurrencyCode string            `yaml:"currency_code"`
	BaseURL      string            `yaml:"base_url"`
	Timeout      time.Duration     `yaml:"timeout"`
	Credentials  map[string]string `yaml:"credentials"`
}

// Credential returns a credential value or an empty string.
func (g GatewayConfig) Credential(key string) string {
	return g.Credentials[key]
}

func (g *GatewayConfig) Validate() error {
	if g.Name == "" {
		return errors.New("gateway name is required")
	}
	required, ok := requiredCredentials[g.Kind]
	if !ok {
		return fmt.Errorf("gateway %s: unknown kind %q", g.Name, g.Kind)
	}
	env, err := ParseEnvironment(string(g.Environment))
	if err != nil {
		return fmt.Errorf("gateway %s: %w", g.Name, err)
	}
	g.Environment = env
	for _, key := range required {
		if g.Credential(key) == "" {
			return fmt.Errorf("gateway %s: missing credential %s", g.Name, key)
		}
	}
	if g.Kind == KindStripe && g.CurrencyCode == "" {
		return fmt.Errorf("gateway %s: currency_code is required for stripe", g.Name)
	}
	return nil
}

// Gateways is the gateway profile file.
type Gateways struct {
	Default  string          `yaml:"default"`
	Gateways []GatewayConfig `yaml:"gateways"`
}

// LoadGateways reads a YAML profile file. ${VAR} references are expanded
// from the environment before parsing.
func LoadGateways(path string) (*Gateways, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gateways file: %w", err)
	}
	return ParseGateways(data)
}

func ParseGateways(data []byte) (*Gateways, error) {
	var g Gateways
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &g); err != nil {
		return nil, fmt.Errorf("parse gateways file: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

func (g *Gateways) Validate() error {
	seen := make(map[string]bool, len(g.Gateways))
	for i := range g.Gateways {
		if err := g.Gateways[i].Validate(); err != nil {
			return err
		}
		name := g.Gateways[i].Name
		if seen[name] {
			return fmt.Errorf("gateway %s: duplicate name", name)
		}
		seen[name] = true
	}
	if g.Default == "" && len(g.Gateways) > 0 {
		g.Default = g.Gateways[0].Name
	}
	if g.Default != "" && !seen[g.Default] {
		return fmt.Errorf("default gateway %s is not configured", g.Default)
	}
	return nil
}

// GatewaysFromEnv builds profiles from BRAINTREE_*, SPREEDLY_* and STRIPE_*
// variables. Vendors without credentials are skipped.
func GatewaysFromEnv() (*Gateways, error) {
	env := Environment(GetEnv("GATEWAY_ENV", string(Development)))
	candidates := []GatewayConfig{
		{
			Name: string(KindBraintree), Kind: KindBraintree, Environment: env,
			Credentials: map[string]string{
				"merchant_id": GetEnv("BRAINTREE_MERCHANT_ID", ""),
				"public_key":  GetEnv("BRAINTREE_PUBLIC_KEY", ""),
				"private_key": GetEnv("BRAINTREE_PRIVATE_KEY", ""),
			},
		},
		{
			Name: string(KindSpreedly), Kind: KindSpreedly, Environment: env,
			CurrencyCode: GetEnv("SPREEDLY_CURRENCY_CODE", ""),
			Credentials: map[string]string{
				"environment_key": GetEnv("SPREEDLY_ENVIRONMENT_KEY", ""),
				"access_secret":   GetEnv("SPREEDLY_ACCESS_SECRET", ""),
				"gateway_token":   GetEnv("SPREEDLY_GATEWAY_TOKEN", ""),
			},
		},
		{
			Name: string(KindStripe), Kind: KindStripe, Environment: env,
			CurrencyCode: GetEnv("STRIPE_CURRENCY_CODE", ""),
			Credentials: map[string]string{
				"secret_key":      GetEnv("STRIPE_SECRET_KEY", ""),
				"publishable_key": GetEnv("STRIPE_PUBLISHABLE_KEY", ""),
			},
		},
	}

	g := &Gateways{Default: GetEnv("DEFAULT_GATEWAY", "")}
	for _, c := range candidates {
		if !hasAnyCredential(c) {
			continue
		}
		g.Gateways = append(g.Gateways, c)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func hasAnyCredential(c GatewayConfig) bool {
	for _, v := range c.Credentials {
		if v != "" {
			return true
		}
	}
	return false
}
