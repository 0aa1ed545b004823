// Package config loads the gateway configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agentpay/paygate"
)

// Resource is the YAML form of a catalog entry.
type Resource struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Endpoint     string `yaml:"endpoint"`
	PayTo        string `yaml:"pay_to"`
	Price        string `yaml:"price"`
	Asset        string `yaml:"asset"`
	AssetName    string `yaml:"asset_name"`
	AssetVersion string `yaml:"asset_version"`
	Network      string `yaml:"network"`
	MimeType     string `yaml:"mime_type"`
}

// Config is the gateway configuration file.
type Config struct {
	Server struct {
		Addr       string `yaml:"addr"`
		BaseOrigin string `yaml:"base_origin"`
		ServiceID  string `yaml:"service_id"`
	} `yaml:"server"`

	Facilitator struct {
		URL           string `yaml:"url"`
		Authorization string `yaml:"authorization"`
	} `yaml:"facilitator"`

	Chain struct {
		RPCURL          string `yaml:"rpc_url"`
		GatewayContract string `yaml:"gateway_contract"`
	} `yaml:"chain"`

	Audit struct {
		PostgresDSN string `yaml:"postgres_dsn"`
	} `yaml:"audit"`

	Resources []Resource `yaml:"resources"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8402"
	}
	if cfg.Facilitator.URL == "" {
		return nil, fmt.Errorf("config: facilitator.url is required")
	}
	if len(cfg.Resources) == 0 {
		return nil, fmt.Errorf("config: at least one resource is required")
	}
	for i, r := range cfg.Resources {
		if r.ID == "" {
			return nil, fmt.Errorf("config: resources[%d]: id is required", i)
		}
		if _, err := paygate.ParseAmount(r.Price); err != nil {
			return nil, fmt.Errorf("config: resources[%d] (%s): invalid price %q", i, r.ID, r.Price)
		}
		if r.PayTo == "" {
			return nil, fmt.Errorf("config: resources[%d] (%s): pay_to is required", i, r.ID)
		}
	}
	return &cfg, nil
}

// Catalog builds the in-memory catalog from the configured resources.
func (c *Config) Catalog() (*paygate.StaticCatalog, error) {
	catalog := paygate.NewStaticCatalog()
	for _, r := range c.Resources {
		price, err := paygate.ParseAmount(r.Price)
		if err != nil {
			return nil, fmt.Errorf("config: resource %s: %w", r.ID, err)
		}
		catalog.Add(&paygate.ResourceDescriptor{
			ID:           r.ID,
			Name:         r.Name,
			Description:  r.Description,
			Endpoint:     r.Endpoint,
			PayTo:        r.PayTo,
			Price:        price,
			Asset:        r.Asset,
			AssetName:    r.AssetName,
			AssetVersion: r.AssetVersion,
			Network:      r.Network,
			MimeType:     r.MimeType,
		})
	}
	return catalog, nil
}
