package gateways

import (
	"gatepay/internal/config"
)

// LoadConfig reads gateway profiles from GATEWAYS_FILE, or from the
// per-vendor environment variables when no file is set.
func LoadConfig() (*config.Gateways, error) {
	if path := config.GetEnv("GATEWAYS_FILE", ""); path != "" {
		return config.LoadGateways(path)
	}
	return config.GatewaysFromEnv()
}
